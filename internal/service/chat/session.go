// Package chat implements the conversation side of a gated session: an
// append-only transcript, the selected backend model, and the boundary to
// the response provider.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	model "github.com/renhao-x/gatechat/backend/internal/model/chat"
	"github.com/renhao-x/gatechat/backend/internal/service/auth"
)

var (
	ErrEmptyPrompt      = errors.New("prompt is empty")
	ErrSessionExpired   = errors.New("session expired")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrUnknownModel     = errors.New("unknown model")
)

// ResponseProvider maps a model identifier and prompt to generated text.
// Failures are recoverable; the session renders them into the transcript.
type ResponseProvider interface {
	Respond(ctx context.Context, modelID, prompt string) (string, error)
}

// StreamProvider is an optional ResponseProvider extension for transports
// that relay incremental output. emit receives chunks in order; the return
// value is the complete text and becomes the assistant turn.
type StreamProvider interface {
	ResponseProvider
	RespondStream(ctx context.Context, modelID, prompt string, emit func(chunk string)) (string, error)
}

// Session holds one conversation. It consults the guard before accepting
// input and owns the only mutable view of the transcript. Not safe for
// concurrent use; callers serialize access per session.
type Session struct {
	guard    *auth.Guard
	provider ResponseProvider
	options  []string
	selected string
	turns    []model.Turn
	now      func() time.Time
}

// NewSession creates an empty session. The first model option is selected
// by default; pass a defaultModel from the option list to override.
func NewSession(guard *auth.Guard, provider ResponseProvider, options []string, defaultModel string) *Session {
	s := &Session{
		guard:    guard,
		provider: provider,
		options:  append([]string(nil), options...),
		now:      time.Now,
	}
	if len(s.options) > 0 {
		s.selected = s.options[0]
	}
	if defaultModel != "" && s.knownModel(defaultModel) {
		s.selected = defaultModel
	}
	return s
}

// SubmitPrompt appends the user turn, asks the provider for a reply, and
// appends the assistant turn. A provider failure still produces an assistant
// turn, prefixed "Error:", so the transcript never ends on a dangling user
// turn. Blank input is rejected before anything is appended or invoked.
func (s *Session) SubmitPrompt(ctx context.Context, text string) (model.Turn, error) {
	return s.submit(ctx, text, nil)
}

// SubmitPromptStream behaves like SubmitPrompt but relays incremental
// chunks through emit when the provider supports streaming.
func (s *Session) SubmitPromptStream(ctx context.Context, text string, emit func(chunk string)) (model.Turn, error) {
	return s.submit(ctx, text, emit)
}

func (s *Session) submit(ctx context.Context, text string, emit func(chunk string)) (model.Turn, error) {
	if strings.TrimSpace(text) == "" {
		return model.Turn{}, ErrEmptyPrompt
	}
	if s.guard.CheckTimeout() {
		return model.Turn{}, ErrSessionExpired
	}
	if !s.guard.Authenticated() {
		return model.Turn{}, ErrNotAuthenticated
	}

	s.guard.Touch()
	s.turns = append(s.turns, model.NewTurn(model.RoleUser, text, s.now()))

	content, err := s.respond(ctx, text, emit)
	if err != nil {
		content = fmt.Sprintf("Error: %v", err)
	}

	turn := model.NewTurn(model.RoleAssistant, content, s.now())
	s.turns = append(s.turns, turn)
	return turn, nil
}

func (s *Session) respond(ctx context.Context, text string, emit func(chunk string)) (string, error) {
	if emit != nil {
		if sp, ok := s.provider.(StreamProvider); ok {
			return sp.RespondStream(ctx, s.selected, text, emit)
		}
	}
	return s.provider.Respond(ctx, s.selected, text)
}

// SetModel switches the backend model. Identifiers outside the configured
// option list are rejected and the selection is left untouched.
func (s *Session) SetModel(modelID string) error {
	if !s.knownModel(modelID) {
		return fmt.Errorf("%w: %q", ErrUnknownModel, modelID)
	}
	s.selected = modelID
	return nil
}

// Reset clears the transcript. Model selection and auth state stay as-is.
func (s *Session) Reset() {
	s.turns = nil
}

// Turns returns a copy of the transcript in chronological order.
func (s *Session) Turns() []model.Turn {
	copied := make([]model.Turn, len(s.turns))
	copy(copied, s.turns)
	return copied
}

// Model returns the currently selected model identifier.
func (s *Session) Model() string {
	return s.selected
}

// ModelOptions returns the configured model list in its fixed order.
func (s *Session) ModelOptions() []string {
	return append([]string(nil), s.options...)
}

func (s *Session) knownModel(modelID string) bool {
	for _, opt := range s.options {
		if opt == modelID {
			return true
		}
	}
	return false
}
