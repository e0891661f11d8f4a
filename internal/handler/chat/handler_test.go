package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	chatmodel "github.com/renhao-x/gatechat/backend/internal/model/chat"
	sessionservice "github.com/renhao-x/gatechat/backend/internal/service/session"
)

type scriptedProvider struct {
	reply string
	err   error
	calls int
}

func (p *scriptedProvider) Respond(context.Context, string, string) (string, error) {
	p.calls++
	return p.reply, p.err
}

func setupRouter(provider *scriptedProvider) (*chi.Mux, *sessionservice.Service) {
	svc := sessionservice.NewService(sessionservice.Config{
		Secret:       "hunter2",
		MaxAttempts:  3,
		Timeout:      time.Hour,
		ModelOptions: []string{"gemini-pro", "gemini-pro-vision"},
	}, provider)
	handler := New(svc)

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r, svc
}

func loggedInEntry(t *testing.T, svc *sessionservice.Service) *sessionservice.Entry {
	t.Helper()
	entry := svc.Create()
	if res := entry.Guard.AttemptLogin("hunter2"); !res.Accepted {
		t.Fatal("test login failed")
	}
	return entry
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal err: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func decodeTurns(t *testing.T, resp *httptest.ResponseRecorder) []chatmodel.Turn {
	t.Helper()
	var payload struct {
		Turns []chatmodel.Turn `json:"turns"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	return payload.Turns
}

func TestSubmitPrompt(t *testing.T) {
	provider := &scriptedProvider{reply: "hello"}
	r, svc := setupRouter(provider)
	entry := loggedInEntry(t, svc)

	resp := doJSON(t, r, http.MethodPost, "/session/"+entry.ID+"/messages", map[string]string{"content": "hi"})
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}

	turns := decodeTurns(t, resp)
	if len(turns) != 2 {
		t.Fatalf("expected the appended pair, got %d turns", len(turns))
	}
	if turns[0].Role != chatmodel.RoleUser || turns[0].Content != "hi" {
		t.Fatalf("unexpected user turn: %+v", turns[0])
	}
	if turns[1].Role != chatmodel.RoleAssistant || turns[1].Content != "hello" {
		t.Fatalf("unexpected assistant turn: %+v", turns[1])
	}
}

func TestSubmitPromptBlank(t *testing.T) {
	provider := &scriptedProvider{reply: "hello"}
	r, svc := setupRouter(provider)
	entry := loggedInEntry(t, svc)

	resp := doJSON(t, r, http.MethodPost, "/session/"+entry.ID+"/messages", map[string]string{"content": "   "})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if provider.calls != 0 {
		t.Fatal("blank prompt must not reach the provider")
	}
	if len(entry.Chat.Turns()) != 0 {
		t.Fatal("blank prompt must not change the transcript")
	}
}

func TestSubmitPromptRequiresLogin(t *testing.T) {
	provider := &scriptedProvider{reply: "hello"}
	r, svc := setupRouter(provider)
	entry := svc.Create()

	resp := doJSON(t, r, http.MethodPost, "/session/"+entry.ID+"/messages", map[string]string{"content": "hi"})
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestSubmitPromptProviderFailure(t *testing.T) {
	provider := &scriptedProvider{err: errors.New("bad api key")}
	r, svc := setupRouter(provider)
	entry := loggedInEntry(t, svc)

	resp := doJSON(t, r, http.MethodPost, "/session/"+entry.ID+"/messages", map[string]string{"content": "hi"})
	if resp.Code != http.StatusCreated {
		t.Fatalf("provider failure is still a conversational turn, got %d", resp.Code)
	}

	turns := decodeTurns(t, resp)
	if len(turns) != 2 || turns[1].Content != "Error: bad api key" {
		t.Fatalf("unexpected turns: %+v", turns)
	}
}

func TestSubmitPromptUnknownSession(t *testing.T) {
	r, _ := setupRouter(&scriptedProvider{reply: "x"})

	resp := doJSON(t, r, http.MethodPost, "/session/missing/messages", map[string]string{"content": "hi"})
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestTranscript(t *testing.T) {
	provider := &scriptedProvider{reply: "hello"}
	r, svc := setupRouter(provider)
	entry := loggedInEntry(t, svc)

	doJSON(t, r, http.MethodPost, "/session/"+entry.ID+"/messages", map[string]string{"content": "hi"})

	resp := doJSON(t, r, http.MethodGet, "/session/"+entry.ID+"/messages", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if turns := decodeTurns(t, resp); len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}
}

func TestReset(t *testing.T) {
	provider := &scriptedProvider{reply: "hello"}
	r, svc := setupRouter(provider)
	entry := loggedInEntry(t, svc)

	doJSON(t, r, http.MethodPost, "/session/"+entry.ID+"/messages", map[string]string{"content": "hi"})

	resp := doJSON(t, r, http.MethodDelete, "/session/"+entry.ID+"/messages", nil)
	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
	if len(entry.Chat.Turns()) != 0 {
		t.Fatal("reset must clear the transcript")
	}
}

func TestSetModel(t *testing.T) {
	provider := &scriptedProvider{reply: "hello"}
	r, svc := setupRouter(provider)
	entry := loggedInEntry(t, svc)

	resp := doJSON(t, r, http.MethodPut, "/session/"+entry.ID+"/model", map[string]string{"model": "gemini-pro-vision"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if entry.Chat.Model() != "gemini-pro-vision" {
		t.Fatalf("selected model: got %q", entry.Chat.Model())
	}

	resp = doJSON(t, r, http.MethodPut, "/session/"+entry.ID+"/model", map[string]string{"model": "gpt-9"})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("unknown model: expected 400, got %d", resp.Code)
	}
	if entry.Chat.Model() != "gemini-pro-vision" {
		t.Fatal("rejected switch must leave the selection unchanged")
	}
}
