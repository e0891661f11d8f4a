package handler

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	chathandler "github.com/renhao-x/gatechat/backend/internal/handler/chat"
	sessionhandler "github.com/renhao-x/gatechat/backend/internal/handler/session"
	"github.com/renhao-x/gatechat/backend/internal/handler/stream"
	middlewarePkg "github.com/renhao-x/gatechat/backend/internal/middleware"
	sessionservice "github.com/renhao-x/gatechat/backend/internal/service/session"
	"github.com/renhao-x/gatechat/backend/pkg/utils"
)

// NewRouter wires HTTP routes to the session registry.
func NewRouter(sessions *sessionservice.Service) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	sessionHandler := sessionhandler.New(sessions)
	chatHandler := chathandler.New(sessions)
	wsHandler := chathandler.NewWebSocket(sessions)
	streamHandler := stream.New(sessions)

	r.Route("/api", func(api chi.Router) {
		sessionHandler.RegisterRoutes(api)
		chatHandler.RegisterRoutes(api)
		wsHandler.RegisterRoutes(api)

		api.Get("/stream/{sessionID}", func(w http.ResponseWriter, r *http.Request) {
			sessionID := chi.URLParam(r, "sessionID")
			userMessage := r.URL.Query().Get("message")

			if userMessage == "" {
				utils.RespondError(w, http.StatusBadRequest, "message query parameter is required")
				return
			}

			if err := streamHandler.HandleStreamRequest(r.Context(), w, sessionID, userMessage); err != nil {
				log.Printf("[stream] error handling request: %v", err)
			}
		})
	})

	return r
}
