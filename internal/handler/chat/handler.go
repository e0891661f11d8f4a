// Package chat exposes the conversation endpoints: prompt submission,
// transcript access, model selection, and reset.
package chat

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	chatmodel "github.com/renhao-x/gatechat/backend/internal/model/chat"
	chatservice "github.com/renhao-x/gatechat/backend/internal/service/chat"
	sessionservice "github.com/renhao-x/gatechat/backend/internal/service/session"
	"github.com/renhao-x/gatechat/backend/pkg/utils"
)

// Handler serves the conversation endpoints.
type Handler struct {
	sessions *sessionservice.Service
}

// New creates a chat handler.
func New(sessions *sessionservice.Service) *Handler {
	return &Handler{sessions: sessions}
}

// RegisterRoutes mounts the conversation routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/session/{sessionID}/messages", h.handleSubmit)
	r.Get("/session/{sessionID}/messages", h.handleTranscript)
	r.Delete("/session/{sessionID}/messages", h.handleReset)
	r.Put("/session/{sessionID}/model", h.handleSetModel)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var payload struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.sessions.Do(sessionID, func(e *sessionservice.Entry) error {
		if _, err := e.Chat.SubmitPrompt(r.Context(), payload.Content); err != nil {
			status, message := rejectionStatus(err)
			utils.RespondError(w, status, message)
			return nil
		}

		turns := e.Chat.Turns()
		utils.RespondJSON(w, http.StatusCreated, map[string]any{
			"turns": turns[len(turns)-2:],
		})
		return nil
	})
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
	}
}

func (h *Handler) handleTranscript(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	err := h.sessions.Do(sessionID, func(e *sessionservice.Entry) error {
		if err := requireLogin(e); err != nil {
			status, message := rejectionStatus(err)
			utils.RespondError(w, status, message)
			return nil
		}

		turns := e.Chat.Turns()
		if turns == nil {
			turns = []chatmodel.Turn{}
		}
		utils.RespondJSON(w, http.StatusOK, map[string]any{"turns": turns})
		return nil
	})
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
	}
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	err := h.sessions.Do(sessionID, func(e *sessionservice.Entry) error {
		if err := requireLogin(e); err != nil {
			status, message := rejectionStatus(err)
			utils.RespondError(w, status, message)
			return nil
		}

		e.Chat.Reset()
		w.WriteHeader(http.StatusNoContent)
		return nil
	})
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
	}
}

func (h *Handler) handleSetModel(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var payload struct {
		Model string `json:"model"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.sessions.Do(sessionID, func(e *sessionservice.Entry) error {
		if err := requireLogin(e); err != nil {
			status, message := rejectionStatus(err)
			utils.RespondError(w, status, message)
			return nil
		}

		if err := e.Chat.SetModel(payload.Model); err != nil {
			status, message := rejectionStatus(err)
			utils.RespondError(w, status, message)
			return nil
		}
		utils.RespondJSON(w, http.StatusOK, map[string]string{"model": e.Chat.Model()})
		return nil
	})
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
	}
}

// requireLogin gates handler-level operations the same way SubmitPrompt
// gates itself: expiry check first, then the authenticated flag, then an
// activity touch.
func requireLogin(e *sessionservice.Entry) error {
	if e.Guard.CheckTimeout() {
		return chatservice.ErrSessionExpired
	}
	if !e.Guard.Authenticated() {
		return chatservice.ErrNotAuthenticated
	}
	e.Guard.Touch()
	return nil
}

func rejectionStatus(err error) (int, string) {
	switch {
	case errors.Is(err, chatservice.ErrSessionExpired):
		return http.StatusUnauthorized, "session expired"
	case errors.Is(err, chatservice.ErrNotAuthenticated):
		return http.StatusUnauthorized, "authentication required"
	case errors.Is(err, chatservice.ErrEmptyPrompt):
		return http.StatusBadRequest, "prompt must not be blank"
	case errors.Is(err, chatservice.ErrUnknownModel):
		return http.StatusBadRequest, err.Error()
	}
	return http.StatusInternalServerError, err.Error()
}
