package chatbot

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/hualaowei/chatbot/backend/internal/model/chat"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type wsInbound struct {
	UserID      string   `json:"userId"`
	Text        string   `json:"text"`
	AudioData   []byte   `json:"audioData,omitempty"`
	Format      string   `json:"format,omitempty"`
	Attachments []string `json:"attachments,omitempty"`
}

type wsOutbound struct {
	SessionID string `json:"sessionId"`
	Response  string `json:"response"`
	Language  string `json:"language"`
	Timestamp int64  `json:"timestamp"`
}

// handleWebSocket serves a persistent conversation: one inbound frame is
// one user turn, answered with one outbound frame. The session ID from the
// URL pins every turn of the connection to the same history.
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[chatbot] websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("[chatbot] websocket connected, session=%s", sessionID)

	for {
		var in wsInbound
		if err := conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("[chatbot] websocket read failed, session=%s: %v", sessionID, err)
			}
			return
		}

		result, err := h.pipeline.Run(r.Context(), chat.TurnInput{
			SessionID:   sessionID,
			UserID:      in.UserID,
			Text:        in.Text,
			Audio:       in.AudioData,
			AudioFormat: in.Format,
			Attachments: in.Attachments,
		})
		if err != nil {
			log.Printf("[chatbot] websocket turn failed, session=%s: %v", sessionID, err)
			_ = conn.WriteJSON(map[string]string{"error": "failed to process the message"})
			continue
		}

		if err := conn.WriteJSON(wsOutbound{
			SessionID: result.SessionID,
			Response:  result.Response,
			Language:  result.Language,
			Timestamp: time.Now().UnixMilli(),
		}); err != nil {
			log.Printf("[chatbot] websocket write failed, session=%s: %v", sessionID, err)
			return
		}
	}
}
