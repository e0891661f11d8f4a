package chat

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	sessionservice "github.com/renhao-x/gatechat/backend/internal/service/session"
)

// WebSocketHandler serves a live conversation channel: prompt frames in,
// chunk and turn frames out.
type WebSocketHandler struct {
	sessions *sessionservice.Service
	upgrader websocket.Upgrader
}

// NewWebSocket creates the websocket chat handler.
func NewWebSocket(sessions *sessionservice.Service) *WebSocketHandler {
	return &WebSocketHandler{
		sessions: sessions,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes mounts the websocket route.
func (h *WebSocketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/chat/ws/{sessionID}", h.handleWebSocket)
}

type inboundFrame struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

type outboundFrame struct {
	Type      string `json:"type"`
	Content   string `json:"content,omitempty"`
	Turn      any    `json:"turn,omitempty"`
	Error     string `json:"error,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade failed for session=%s: %v", sessionID, err)
		return
	}
	defer conn.Close()

	log.Printf("[ws] connection opened for session=%s", sessionID)

	for {
		var frame inboundFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[ws] read error for session=%s: %v", sessionID, err)
			}
			return
		}

		if frame.Type != "prompt" {
			h.send(conn, outboundFrame{Type: "error", Error: "unsupported frame type"})
			continue
		}

		h.handlePrompt(r, conn, sessionID, frame.Content)
	}
}

func (h *WebSocketHandler) handlePrompt(r *http.Request, conn *websocket.Conn, sessionID, content string) {
	err := h.sessions.Do(sessionID, func(e *sessionservice.Entry) error {
		turn, err := e.Chat.SubmitPromptStream(r.Context(), content, func(chunk string) {
			h.send(conn, outboundFrame{Type: "chunk", Content: chunk})
		})
		if err != nil {
			_, message := rejectionStatus(err)
			h.send(conn, outboundFrame{Type: "error", Error: message})
			return nil
		}

		h.send(conn, outboundFrame{Type: "turn", Turn: turn})
		return nil
	})
	if err != nil {
		h.send(conn, outboundFrame{Type: "error", Error: "session not found"})
	}
}

func (h *WebSocketHandler) send(conn *websocket.Conn, frame outboundFrame) {
	frame.Timestamp = time.Now().UnixMilli()
	if err := conn.WriteJSON(frame); err != nil {
		log.Printf("[ws] write failed: %v", err)
	}
}
