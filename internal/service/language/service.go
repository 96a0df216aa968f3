// Package language detects the language of user text and round-trips it
// through an NLLB-style translation endpoint so the rest of the pipeline
// can operate on English.
package language

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/pemistahl/lingua-go"

	"github.com/hualaowei/chatbot/backend/internal/fault"
)

// English is the pipeline's internal working language.
const English = "en"

// nllbCodes maps ISO 639-1 codes onto the NLLB codes the translation
// endpoint expects. Codes outside this map are unsupported: translation
// becomes a no-op passthrough.
var nllbCodes = map[string]string{
	"zh": "zho_Hans",
	"ms": "msa_Latn",
	"ta": "tam_Taml",
	"en": "eng_Latn",
}

// Service bundles local detection with the remote translation client.
type Service struct {
	detector     lingua.LanguageDetector
	translateURL string
	httpClient   *http.Client
}

// NewService builds the detector over the supported languages. An empty
// translateURL disables translation; Translate then passes text through.
func NewService(translateURL string, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	detector := lingua.NewLanguageDetectorBuilder().
		FromLanguages(lingua.English, lingua.Chinese, lingua.Malay, lingua.Tamil).
		Build()

	return &Service{
		detector:     detector,
		translateURL: strings.TrimSpace(translateURL),
		httpClient:   &http.Client{Timeout: timeout},
	}
}

// Detect returns the ISO 639-1 code of text and a confidence in [0, 1].
// Undetectable text is reported as English with zero confidence.
func (s *Service) Detect(text string) (string, float64) {
	lang, ok := s.detector.DetectLanguageOf(text)
	if !ok {
		return English, 0
	}

	code := strings.ToLower(lang.IsoCode639_1().String())
	confidence := s.detector.ComputeLanguageConfidence(text, lang)
	return code, confidence
}

type translateRequest struct {
	Text       string `json:"text"`
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
}

type translateResponse struct {
	Translation string `json:"translation"`
}

// Translate converts text from src to dst, both ISO 639-1 codes. Identical
// or unsupported code pairs return the input unchanged with no error and no
// network call, as does a service with no endpoint configured.
func (s *Service) Translate(ctx context.Context, text, src, dst string) (string, error) {
	if src == dst || s.translateURL == "" {
		return text, nil
	}

	srcCode, ok := nllbCodes[src]
	if !ok {
		log.Printf("[language] unsupported source language %q, skipping translation", src)
		return text, nil
	}
	dstCode, ok := nllbCodes[dst]
	if !ok {
		log.Printf("[language] unsupported target language %q, skipping translation", dst)
		return text, nil
	}

	body, err := json.Marshal(translateRequest{
		Text:       text,
		SourceLang: srcCode,
		TargetLang: dstCode,
	})
	if err != nil {
		return "", fault.New(fault.Malformed, "language.translate", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.translateURL, bytes.NewReader(body))
	if err != nil {
		return "", fault.New(fault.Transport, "language.translate", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fault.Wrap("language.translate", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fault.New(fault.Transport, "language.translate",
			fmt.Errorf("translate endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(payload))))
	}

	var parsed translateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fault.New(fault.Malformed, "language.translate", err)
	}
	if strings.TrimSpace(parsed.Translation) == "" {
		return "", fault.New(fault.EmptyResult, "language.translate", fmt.Errorf("empty translation for %s->%s", src, dst))
	}

	return parsed.Translation, nil
}
