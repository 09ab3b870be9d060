package logger

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestNew_TagsServiceAndComponent(t *testing.T) {
	var buf bytes.Buffer
	log := Component(New("debug", &buf), "dispatcher")

	log.Debug().Int("sent", 3).Msg("batch done")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line: %v (%q)", err, buf.String())
	}
	if entry["service"] != "event-checkin" || entry["component"] != "dispatcher" {
		t.Fatalf("unexpected fields: %v", entry)
	}
	if entry["level"] != "debug" || entry["sent"] != float64(3) {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestNew_UnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := New("chatty", &buf)

	log.Debug().Msg("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected debug suppressed at info level, got %q", buf.String())
	}

	log.Info().Msg("shown")
	if buf.Len() == 0 {
		t.Fatalf("expected info line to be written")
	}
}
