// Package stream relays assistant replies over Server-Sent Events.
package stream

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	chatservice "github.com/renhao-x/gatechat/backend/internal/service/chat"
	sessionservice "github.com/renhao-x/gatechat/backend/internal/service/session"
	"github.com/renhao-x/gatechat/backend/pkg/utils"
)

// Handler streams prompt responses for a session.
type Handler struct {
	sessions *sessionservice.Service
}

// New creates a stream handler.
func New(sessions *sessionservice.Service) *Handler {
	return &Handler{sessions: sessions}
}

// StreamResponse is the payload of every SSE frame.
type StreamResponse struct {
	Event     string `json:"event"`
	Content   string `json:"content,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Turn      any    `json:"turn,omitempty"`
	Finished  bool   `json:"finished,omitempty"`
	Error     string `json:"error,omitempty"`
}

// HandleStreamRequest submits one prompt and streams the reply: a start
// frame, zero or more delta frames, the final assistant turn, then end.
// The transcript invariant is unchanged: exactly two turns are appended.
func (h *Handler) HandleStreamRequest(ctx context.Context, w http.ResponseWriter, sessionID, userMessage string) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("streaming unsupported")
	}

	utils.SetupSSEHeaders(w)

	err := h.sessions.Do(sessionID, func(e *sessionservice.Entry) error {
		h.sendSSE(w, flusher, StreamResponse{Event: "start", SessionID: sessionID})

		turn, err := e.Chat.SubmitPromptStream(ctx, userMessage, func(chunk string) {
			h.sendSSE(w, flusher, StreamResponse{
				Event:     "delta",
				SessionID: sessionID,
				Content:   chunk,
			})
		})
		if err != nil {
			h.sendSSE(w, flusher, StreamResponse{Event: "error", SessionID: sessionID, Error: rejectionMessage(err)})
			return err
		}

		h.sendSSE(w, flusher, StreamResponse{Event: "turn", SessionID: sessionID, Turn: turn})
		h.sendSSE(w, flusher, StreamResponse{Event: "end", SessionID: sessionID, Finished: true})
		return nil
	})
	if errors.Is(err, sessionservice.ErrSessionNotFound) {
		h.sendSSE(w, flusher, StreamResponse{Event: "error", Error: "session not found"})
	}
	return err
}

func rejectionMessage(err error) string {
	switch {
	case errors.Is(err, chatservice.ErrSessionExpired):
		return "session expired"
	case errors.Is(err, chatservice.ErrNotAuthenticated):
		return "authentication required"
	case errors.Is(err, chatservice.ErrEmptyPrompt):
		return "prompt must not be blank"
	}
	return err.Error()
}

func (h *Handler) sendSSE(w http.ResponseWriter, flusher http.Flusher, response StreamResponse) {
	utils.SendSSEChunk(w, flusher, response)
}
