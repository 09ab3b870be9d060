package service_test

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/LeventeLantos/event-checkin/internal/cache"
	"github.com/LeventeLantos/event-checkin/internal/events"
	"github.com/LeventeLantos/event-checkin/internal/model"
	"github.com/LeventeLantos/event-checkin/internal/qr"
	"github.com/LeventeLantos/event-checkin/internal/repo"
	"github.com/LeventeLantos/event-checkin/internal/service"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type invitationFixture struct {
	repo   *repo.SQLRepository
	client *fakeClient
	pub    *recordingPublisher
	cache  *cache.RedisCache
	svc    *service.InvitationService
}

func newInvitationFixture(t *testing.T, fc *fakeClient) *invitationFixture {
	t.Helper()

	r := newRepo(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	rc := cache.NewRedisCache(rdb, time.Hour)
	pub := &recordingPublisher{}
	sr := &sleepRecorder{}

	d := service.NewDispatcher(fc, 10, time.Second, zerolog.Nop()).WithSleep(sr.sleep)
	svc := service.NewInvitationService(service.InvitationDeps{
		Events:      r,
		Attendees:   r,
		Composer:    qr.NewComposer("https://checkin.example", 256, nil),
		Dispatcher:  d,
		Cache:       rc,
		Publisher:   pub,
		CountryCode: "57",
		Log:         zerolog.Nop(),
	})
	return &invitationFixture{repo: r, client: fc, pub: pub, cache: rc, svc: svc}
}

func TestInvitationText(t *testing.T) {
	date := time.Date(2026, 6, 20, 19, 30, 0, 0, time.UTC)
	ev := &model.Event{Title: "Summer Gala", Description: "Black tie dinner", Address: "Calle 10 #5-20", Date: &date}
	a := &model.Attendee{Name: "Jane"}

	want := "🎉 Summer Gala\n\n" +
		"Hello Jane!\n\n" +
		"Black tie dinner\n\n" +
		"Date: 2026-06-20 19:30\n" +
		"Address: Calle 10 #5-20\n\n" +
		"Show the QR code below at the entrance to mark your attendance."
	if got := service.InvitationText(ev, a); got != want {
		t.Fatalf("unexpected text:\n%s\nwant:\n%s", got, want)
	}

	bare := service.InvitationText(&model.Event{Title: "Launch"}, a)
	wantBare := "🎉 Launch\n\nHello Jane!\n\nEvent invitation\n\nDate: TBD\nAddress: TBD\n\n" +
		"Show the QR code below at the entrance to mark your attendance."
	if bare != wantBare {
		t.Fatalf("unexpected fallback text:\n%s", bare)
	}
}

func TestSendEvent_PersistsOutcomes(t *testing.T) {
	fc := &fakeClient{failFor: map[string]error{"573002222222": errUpstream}}
	f := newInvitationFixture(t, fc)
	ctx := context.Background()

	ev := mustEvent(t, f.repo, &model.Event{Title: "Gala"})
	ana := mustAttendee(t, f.repo, ev.ID, "Ana", "3001111111")
	bruno := mustAttendee(t, f.repo, ev.ID, "Bruno", "3002222222")
	nophone := mustAttendee(t, f.repo, ev.ID, "Nophone", "")

	res, err := f.svc.SendEvent(ctx, ev.ID)
	if err != nil {
		t.Fatalf("SendEvent() error: %v", err)
	}
	if res.Eligible != 2 || res.Sent != 1 || res.Failed != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}

	msgs := fc.messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 sends, got %d", len(msgs))
	}
	if msgs[0].ChatID != "573001111111" || msgs[0].AttachmentName == "" {
		t.Fatalf("unexpected first message: %+v", msgs[0])
	}
	if _, err := png.Decode(bytes.NewReader(msgs[0].Attachment)); err != nil {
		t.Fatalf("attachment is not a PNG: %v", err)
	}

	check := func(id int64, want model.InvitationStatus) {
		t.Helper()
		a, err := f.repo.GetAttendee(ctx, id)
		if err != nil {
			t.Fatalf("get attendee %d: %v", id, err)
		}
		if a.InvitationStatus != want {
			t.Fatalf("attendee %d: expected %s, got %s", id, want, a.InvitationStatus)
		}
	}
	check(ana.ID, model.Sent)
	check(bruno.ID, model.Failed)
	check(nophone.ID, model.NotSent)

	receipt, err := f.svc.Receipt(ctx, ana.ID)
	if err != nil || receipt == nil || receipt.RemoteMessageID != "wa-573001111111" {
		t.Fatalf("expected cached receipt, got %+v err=%v", receipt, err)
	}
	if f.pub.count(events.InvitationSent) != 1 || f.pub.count(events.InvitationFailed) != 1 {
		t.Fatalf("unexpected published events: %+v", f.pub.msgs)
	}

	// A second bulk run finds nobody left: sent is terminal and failed
	// attendees only go out through a single send.
	if _, err := f.svc.SendEvent(ctx, ev.ID); !errors.Is(err, model.ErrNoEligibleAttendees) {
		t.Fatalf("expected ErrNoEligibleAttendees, got %v", err)
	}
}

func TestSendEvent_UnknownEvent(t *testing.T) {
	f := newInvitationFixture(t, &fakeClient{})
	if _, err := f.svc.SendEvent(context.Background(), 404); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSendOne(t *testing.T) {
	fc := &fakeClient{failFor: map[string]error{"573001111111": errUpstream}}
	f := newInvitationFixture(t, fc)
	ctx := context.Background()

	ev := mustEvent(t, f.repo, &model.Event{Title: "Gala"})
	a := mustAttendee(t, f.repo, ev.ID, "Ana", "3001111111")
	nophone := mustAttendee(t, f.repo, ev.ID, "Nophone", "")

	if _, err := f.svc.SendOne(ctx, a.ID); !errors.Is(err, errUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	got, _ := f.repo.GetAttendee(ctx, a.ID)
	if got.InvitationStatus != model.Failed {
		t.Fatalf("expected failed, got %s", got.InvitationStatus)
	}

	// Retry after the upstream recovers.
	delete(fc.failFor, "573001111111")
	remoteID, err := f.svc.SendOne(ctx, a.ID)
	if err != nil {
		t.Fatalf("SendOne() retry error: %v", err)
	}
	if remoteID != "wa-573001111111" {
		t.Fatalf("unexpected remote id %q", remoteID)
	}
	got, _ = f.repo.GetAttendee(ctx, a.ID)
	if got.InvitationStatus != model.Sent {
		t.Fatalf("expected sent, got %s", got.InvitationStatus)
	}

	if _, err := f.svc.SendOne(ctx, a.ID); !errors.Is(err, model.ErrInvitationAlreadySent) {
		t.Fatalf("expected ErrInvitationAlreadySent, got %v", err)
	}
	if _, err := f.svc.SendOne(ctx, nophone.ID); !errors.Is(err, service.ErrNoPhone) {
		t.Fatalf("expected ErrNoPhone, got %v", err)
	}
	if _, err := f.svc.SendOne(ctx, 999); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestQRCode(t *testing.T) {
	f := newInvitationFixture(t, &fakeClient{})
	ev := mustEvent(t, f.repo, &model.Event{Title: "Gala"})
	a := mustAttendee(t, f.repo, ev.ID, "Ana", "3001111111")

	out, err := f.svc.QRCode(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("QRCode() error: %v", err)
	}
	if _, err := png.Decode(bytes.NewReader(out)); err != nil {
		t.Fatalf("not a PNG: %v", err)
	}
}

// statusWriteFailingRepo accepts every query but refuses invitation status
// writes.
type statusWriteFailingRepo struct {
	*repo.SQLRepository
}

func (statusWriteFailingRepo) SetInvitationStatus(context.Context, int64, model.InvitationStatus) error {
	return errors.New("db down")
}

func TestSendEvent_UnsavedStatusIsReported(t *testing.T) {
	r := newRepo(t)
	fc := &fakeClient{}
	d := service.NewDispatcher(fc, 10, 0, zerolog.Nop())
	svc := service.NewInvitationService(service.InvitationDeps{
		Events:      r,
		Attendees:   statusWriteFailingRepo{r},
		Composer:    qr.NewComposer("https://checkin.example", 256, nil),
		Dispatcher:  d,
		CountryCode: "57",
		Log:         zerolog.Nop(),
	})
	ctx := context.Background()

	ev := mustEvent(t, r, &model.Event{Title: "Gala"})
	ana := mustAttendee(t, r, ev.ID, "Ana", "3001111111")

	res, err := svc.SendEvent(ctx, ev.ID)
	if err != nil {
		t.Fatalf("SendEvent() error: %v", err)
	}
	if len(fc.messages()) != 1 {
		t.Fatalf("expected one send, got %d", len(fc.messages()))
	}
	if res.Sent != 1 || res.Failed != 0 {
		t.Fatalf("unexpected counts: %+v", res)
	}
	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0], "Ana: ") || !strings.Contains(res.Errors[0], "status not saved") {
		t.Fatalf("expected unsaved status error for Ana, got %v", res.Errors)
	}
	if res.Success() {
		t.Fatalf("expected batch with unsaved status not to report success")
	}

	if _, err := svc.SendOne(ctx, ana.ID); !errors.Is(err, service.ErrStatusNotSaved) {
		t.Fatalf("expected ErrStatusNotSaved from single send, got %v", err)
	}
}
