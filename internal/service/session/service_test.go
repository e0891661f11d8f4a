package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/renhao-x/gatechat/backend/internal/service/session"
)

type staticProvider struct{}

func (staticProvider) Respond(context.Context, string, string) (string, error) {
	return "ok", nil
}

func testConfig() session.Config {
	return session.Config{
		Secret:       "hunter2",
		MaxAttempts:  3,
		Timeout:      time.Hour,
		ModelOptions: []string{"gemini-pro", "gemini-pro-vision"},
	}
}

func TestCreateAndDo(t *testing.T) {
	svc := session.NewService(testConfig(), staticProvider{})
	entry := svc.Create()

	if entry.ID == "" {
		t.Fatal("expected a session ID")
	}
	if entry.Guard.Authenticated() {
		t.Fatal("fresh sessions start logged out")
	}
	if entry.Chat.Model() != "gemini-pro" {
		t.Fatalf("default model: got %q", entry.Chat.Model())
	}

	err := svc.Do(entry.ID, func(e *session.Entry) error {
		if e.ID != entry.ID {
			t.Fatalf("Do resolved the wrong session: %s", e.ID)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do err: %v", err)
	}
}

func TestDoUnknownSession(t *testing.T) {
	svc := session.NewService(testConfig(), staticProvider{})
	err := svc.Do("missing", func(*session.Entry) error { return nil })
	if !errors.Is(err, session.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSessionsAreIndependent(t *testing.T) {
	svc := session.NewService(testConfig(), staticProvider{})
	a := svc.Create()
	b := svc.Create()

	a.Guard.AttemptLogin("hunter2")
	if b.Guard.Authenticated() {
		t.Fatal("logging in one session must not touch another")
	}
	if err := a.Chat.SetModel("gemini-pro-vision"); err != nil {
		t.Fatalf("SetModel err: %v", err)
	}
	if b.Chat.Model() != "gemini-pro" {
		t.Fatal("model selection must be per session")
	}
}
