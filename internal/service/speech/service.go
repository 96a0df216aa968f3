// Package speech sends recorded audio to the speech-to-text endpoint and
// returns the transcription.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/hualaowei/chatbot/backend/internal/fault"
)

// Service is a one-shot transcription client.
type Service struct {
	url        string
	httpClient *http.Client
}

// NewService builds the client. An empty url disables transcription;
// Transcribe then fails with a transport fault.
func NewService(url string, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Service{
		url:        strings.TrimSpace(url),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether an endpoint is configured.
func (s *Service) Enabled() bool {
	return s != nil && s.url != ""
}

type transcribeResponse struct {
	Transcription string `json:"transcription"`
}

// Transcribe uploads audio as a multipart file and returns the recognized
// text. format names the container ("wav", "m4a"); it only shapes the upload
// filename.
func (s *Service) Transcribe(ctx context.Context, audio []byte, format string) (string, error) {
	if !s.Enabled() {
		return "", fault.New(fault.Transport, "speech.transcribe", fmt.Errorf("no speech endpoint configured"))
	}
	if len(audio) == 0 {
		return "", fault.New(fault.EmptyResult, "speech.transcribe", fmt.Errorf("empty audio payload"))
	}

	format = strings.TrimSpace(strings.ToLower(format))
	if format == "" {
		format = "wav"
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "audio."+format)
	if err != nil {
		return "", fault.New(fault.Malformed, "speech.transcribe", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fault.New(fault.Malformed, "speech.transcribe", err)
	}
	if err := writer.Close(); err != nil {
		return "", fault.New(fault.Malformed, "speech.transcribe", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, &body)
	if err != nil {
		return "", fault.New(fault.Transport, "speech.transcribe", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fault.Wrap("speech.transcribe", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fault.New(fault.Transport, "speech.transcribe",
			fmt.Errorf("speech endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(payload))))
	}

	var parsed transcribeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fault.New(fault.Malformed, "speech.transcribe", err)
	}

	transcription := strings.TrimSpace(parsed.Transcription)
	if transcription == "" {
		return "", fault.New(fault.EmptyResult, "speech.transcribe", fmt.Errorf("empty transcription"))
	}

	log.Printf("[speech] transcribed %d bytes, length=%d", len(audio), len(transcription))
	return transcription, nil
}
