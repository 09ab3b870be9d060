package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLoggingMiddleware_PassesThroughAndCapturesStatus(t *testing.T) {
	var rec *statusRecorder
	handler := loggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec, _ = w.(*statusRecorder)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("ok"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, rr.Code)
	}
	if body := rr.Body.String(); body != "ok" {
		t.Fatalf("expected body %q, got %q", "ok", body)
	}
	if rec == nil || rec.status != http.StatusCreated || rec.bytes != 2 {
		t.Fatalf("expected recorder to capture status 201 and 2 bytes, got %+v", rec)
	}
}

func TestLoggingMiddleware_ImplicitOK(t *testing.T) {
	var rec *statusRecorder
	handler := loggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec, _ = w.(*statusRecorder)
		_, _ = w.Write([]byte("hello"))
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if rec == nil || rec.status != http.StatusOK {
		t.Fatalf("expected recorded status 200, got %+v", rec)
	}
}
