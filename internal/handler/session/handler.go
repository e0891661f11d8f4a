// Package session exposes the authentication lifecycle over HTTP: session
// creation, login, logout, and status.
package session

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	sessionservice "github.com/renhao-x/gatechat/backend/internal/service/session"
	"github.com/renhao-x/gatechat/backend/pkg/utils"
)

// Handler serves the session lifecycle endpoints.
type Handler struct {
	sessions *sessionservice.Service
}

// New creates a session handler.
func New(sessions *sessionservice.Service) *Handler {
	return &Handler{sessions: sessions}
}

// RegisterRoutes mounts the session routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/session", h.handleCreate)
	r.Get("/session/{sessionID}", h.handleStatus)
	r.Post("/session/{sessionID}/login", h.handleLogin)
	r.Post("/session/{sessionID}/logout", h.handleLogout)
}

type statusPayload struct {
	ID                string   `json:"id"`
	Authenticated     bool     `json:"authenticated"`
	Locked            bool     `json:"locked"`
	RemainingAttempts int      `json:"remainingAttempts"`
	SelectedModel     string   `json:"selectedModel"`
	ModelOptions      []string `json:"modelOptions"`
	MessageCount      int      `json:"messageCount"`
}

func snapshot(e *sessionservice.Entry) statusPayload {
	return statusPayload{
		ID:                e.ID,
		Authenticated:     e.Guard.Authenticated(),
		Locked:            e.Guard.Locked(),
		RemainingAttempts: e.Guard.RemainingAttempts(),
		SelectedModel:     e.Chat.Model(),
		ModelOptions:      e.Chat.ModelOptions(),
		MessageCount:      len(e.Chat.Turns()),
	}
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	entry := h.sessions.Create()
	utils.RespondJSON(w, http.StatusCreated, snapshot(entry))
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	err := h.sessions.Do(sessionID, func(e *sessionservice.Entry) error {
		// Reporting status after expiry must already show the forced logout.
		e.Guard.CheckTimeout()
		utils.RespondJSON(w, http.StatusOK, snapshot(e))
		return nil
	})
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
	}
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var payload struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.sessions.Do(sessionID, func(e *sessionservice.Entry) error {
		result := e.Guard.AttemptLogin(payload.Password)
		switch {
		case result.Accepted:
			utils.RespondJSON(w, http.StatusOK, result)
		case result.Locked:
			utils.RespondJSON(w, http.StatusLocked, result)
		default:
			utils.RespondJSON(w, http.StatusUnauthorized, result)
		}
		return nil
	})
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
	}
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	err := h.sessions.Do(sessionID, func(e *sessionservice.Entry) error {
		e.Guard.Logout()
		w.WriteHeader(http.StatusNoContent)
		return nil
	})
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
	}
}
