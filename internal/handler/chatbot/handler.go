// Package chatbot exposes the conversational pipeline over HTTP and
// WebSocket.
package chatbot

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hualaowei/chatbot/backend/internal/model/chat"
	"github.com/hualaowei/chatbot/backend/pkg/utils"
)

// maxAudioBytes caps uploaded audio at 10 MiB.
const maxAudioBytes = 10 << 20

// TurnRunner processes one user turn and always yields a user-facing
// response unless the pipeline itself is defective.
type TurnRunner interface {
	Run(ctx context.Context, in chat.TurnInput) (chat.TurnResult, error)
}

// Handler serves the chatbot query endpoints.
type Handler struct {
	pipeline TurnRunner
}

// New creates a chatbot handler.
func New(pipeline TurnRunner) *Handler {
	return &Handler{pipeline: pipeline}
}

// RegisterRoutes mounts the chatbot routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chatbot/query", h.handleQuery)
	r.Get("/chatbot/ws/{sessionID}", h.handleWebSocket)
}

type queryRequest struct {
	SessionID   string   `json:"sessionId"`
	UserID      string   `json:"userId"`
	Text        string   `json:"text"`
	Attachments []string `json:"attachments,omitempty"`
}

type queryResponse struct {
	SessionID string `json:"sessionId"`
	Response  string `json:"response"`
	Language  string `json:"language"`
}

// handleQuery accepts either a JSON body with a text turn or a multipart
// form carrying an audio recording.
func (h *Handler) handleQuery(w http.ResponseWriter, r *http.Request) {
	var input chat.TurnInput

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		parsed, err := parseMultipartTurn(r)
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		input = parsed
	} else {
		var payload queryRequest
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		input = chat.TurnInput{
			SessionID:   payload.SessionID,
			UserID:      payload.UserID,
			Text:        payload.Text,
			Attachments: payload.Attachments,
		}
	}

	result, err := h.pipeline.Run(r.Context(), input)
	if err != nil {
		log.Printf("[chatbot] turn failed, session=%s: %v", input.SessionID, err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to process the message")
		return
	}

	utils.RespondJSON(w, http.StatusOK, queryResponse{
		SessionID: result.SessionID,
		Response:  result.Response,
		Language:  result.Language,
	})
}

func parseMultipartTurn(r *http.Request) (chat.TurnInput, error) {
	if err := r.ParseMultipartForm(maxAudioBytes); err != nil {
		return chat.TurnInput{}, errInvalidMultipart
	}

	input := chat.TurnInput{
		SessionID:   r.FormValue("sessionId"),
		UserID:      r.FormValue("userId"),
		Text:        r.FormValue("text"),
		Attachments: r.MultipartForm.Value["attachments"],
	}

	file, header, err := r.FormFile("audio")
	if err == http.ErrMissingFile {
		return input, nil
	}
	if err != nil {
		return chat.TurnInput{}, errInvalidMultipart
	}
	defer file.Close()

	audio, err := io.ReadAll(io.LimitReader(file, maxAudioBytes+1))
	if err != nil {
		return chat.TurnInput{}, errInvalidMultipart
	}
	if len(audio) > maxAudioBytes {
		return chat.TurnInput{}, errAudioTooLarge
	}

	input.Audio = audio
	input.AudioFormat = audioFormat(header.Filename)
	return input, nil
}

// audioFormat derives the recording format from the uploaded filename,
// defaulting to wav.
func audioFormat(filename string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if ext == "" {
		return "wav"
	}
	return ext
}

type handlerError string

func (e handlerError) Error() string { return string(e) }

const (
	errInvalidMultipart = handlerError("invalid multipart form")
	errAudioTooLarge    = handlerError("audio payload too large")
)
