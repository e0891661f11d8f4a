package stream

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sessionservice "github.com/renhao-x/gatechat/backend/internal/service/session"
)

type chunkedProvider struct {
	chunks []string
}

func (p *chunkedProvider) Respond(context.Context, string, string) (string, error) {
	return strings.Join(p.chunks, ""), nil
}

func (p *chunkedProvider) RespondStream(_ context.Context, _ string, _ string, emit func(chunk string)) (string, error) {
	for _, c := range p.chunks {
		emit(c)
	}
	return strings.Join(p.chunks, ""), nil
}

func newService(provider *chunkedProvider) *sessionservice.Service {
	return sessionservice.NewService(sessionservice.Config{
		Secret:       "hunter2",
		MaxAttempts:  3,
		Timeout:      time.Hour,
		ModelOptions: []string{"gemini-pro"},
	}, provider)
}

func TestHandleStreamRequest(t *testing.T) {
	svc := newService(&chunkedProvider{chunks: []string{"he", "llo"}})
	entry := svc.Create()
	entry.Guard.AttemptLogin("hunter2")

	h := New(svc)
	resp := httptest.NewRecorder()

	if err := h.HandleStreamRequest(context.Background(), resp, entry.ID, "hi"); err != nil {
		t.Fatalf("HandleStreamRequest err: %v", err)
	}

	if got := resp.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Fatalf("content type: got %q", got)
	}

	body := resp.Body.String()
	for _, want := range []string{`"event":"start"`, `"event":"delta"`, `"event":"turn"`, `"event":"end"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("stream missing %s frame:\n%s", want, body)
		}
	}

	if turns := entry.Chat.Turns(); len(turns) != 2 {
		t.Fatalf("streaming must append exactly two turns, got %d", len(turns))
	}
}

func TestHandleStreamRequestUnauthenticated(t *testing.T) {
	svc := newService(&chunkedProvider{chunks: []string{"x"}})
	entry := svc.Create()

	h := New(svc)
	resp := httptest.NewRecorder()

	if err := h.HandleStreamRequest(context.Background(), resp, entry.ID, "hi"); err == nil {
		t.Fatal("expected an error for an unauthenticated session")
	}
	if !strings.Contains(resp.Body.String(), `"event":"error"`) {
		t.Fatalf("expected an error frame:\n%s", resp.Body.String())
	}
	if len(entry.Chat.Turns()) != 0 {
		t.Fatal("rejected stream must not mutate the transcript")
	}
}

func TestHandleStreamRequestUnknownSession(t *testing.T) {
	svc := newService(&chunkedProvider{chunks: []string{"x"}})
	h := New(svc)
	resp := httptest.NewRecorder()

	if err := h.HandleStreamRequest(context.Background(), resp, "missing", "hi"); err == nil {
		t.Fatal("expected an error for an unknown session")
	}
}
