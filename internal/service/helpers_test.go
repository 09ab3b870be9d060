package service_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/LeventeLantos/event-checkin/internal/client"
	"github.com/LeventeLantos/event-checkin/internal/model"
	"github.com/LeventeLantos/event-checkin/internal/repo"
)

func newRepo(t *testing.T) *repo.SQLRepository {
	t.Helper()

	ctx := context.Background()
	db, err := repo.Open(ctx, "sqlite", filepath.Join(t.TempDir(), "svc.db")+"?_foreign_keys=on")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	r, err := repo.NewSQLRepository(db, "sqlite")
	if err != nil {
		t.Fatalf("new repo: %v", err)
	}
	if err := r.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return r
}

func mustEvent(t *testing.T, r *repo.SQLRepository, e *model.Event) *model.Event {
	t.Helper()
	if err := r.CreateEvent(context.Background(), e); err != nil {
		t.Fatalf("create event: %v", err)
	}
	return e
}

func mustAttendee(t *testing.T, r *repo.SQLRepository, eventID int64, name, phone string) *model.Attendee {
	t.Helper()
	a := model.NewAttendee(eventID, name, name+"@example.com", phone)
	if err := r.CreateAttendee(context.Background(), a); err != nil {
		t.Fatalf("create attendee %s: %v", name, err)
	}
	return a
}

// fakeClient records every message and fails for chat ids listed in failFor.
type fakeClient struct {
	mu      sync.Mutex
	sent    []client.Message
	failFor map[string]error
}

func (f *fakeClient) Send(_ context.Context, msg client.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	if err, ok := f.failFor[msg.ChatID]; ok {
		return "", err
	}
	return "wa-" + msg.ChatID, nil
}

func (f *fakeClient) messages() []client.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]client.Message(nil), f.sent...)
}

type published struct {
	subject string
	data    any
}

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []published
}

func (p *recordingPublisher) Publish(_ context.Context, subject string, data any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, published{subject: subject, data: data})
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) count(subject string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, m := range p.msgs {
		if m.subject == subject {
			n++
		}
	}
	return n
}

// sleepRecorder counts pauses without waiting.
type sleepRecorder struct {
	mu    sync.Mutex
	calls []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.calls = append(s.calls, d)
	s.mu.Unlock()
	return ctx.Err()
}

var errUpstream = errors.New("upstream rejected message")
