// Package orchestrator sequences one user turn through the chat pipeline:
// input resolution, language normalization, the report sub-dialogue, gating,
// intent routing and response generation, and the bilingual round-trip.
package orchestrator

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/hualaowei/chatbot/backend/internal/analysis/heuristics"
	"github.com/hualaowei/chatbot/backend/internal/model/chat"
	"github.com/hualaowei/chatbot/backend/internal/service/index"
	"github.com/hualaowei/chatbot/backend/internal/service/intent"
	"github.com/hualaowei/chatbot/backend/internal/service/language"
)

const (
	// historyWindow is how many stored messages are read back per turn.
	historyWindow = 10
	// defaultTopK is the retrieval depth for data-driven queries.
	defaultTopK = 3
)

// Pipeline owns one turn's control flow. All collaborators are injected;
// the pipeline keeps no per-session state of its own beyond the serialization
// locks.
type Pipeline struct {
	transcriber Transcriber
	lang        LanguageService
	classifier  Classifier
	generator   Generator
	retriever   Retriever
	store       SessionStore
	reports     ReportDialogue
	topK        int

	locks sessionLocks
}

// Config carries the pipeline's collaborators. Transcriber may be nil when
// no speech endpoint is configured; everything else is required.
type Config struct {
	Transcriber Transcriber
	Language    LanguageService
	Classifier  Classifier
	Generator   Generator
	Retriever   Retriever
	Store       SessionStore
	Reports     ReportDialogue
	TopK        int
}

// New validates the wiring and builds the pipeline.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Language == nil || cfg.Classifier == nil || cfg.Generator == nil ||
		cfg.Retriever == nil || cfg.Store == nil || cfg.Reports == nil {
		return nil, fmt.Errorf("orchestrator: missing required collaborator")
	}

	topK := cfg.TopK
	if topK <= 0 {
		topK = defaultTopK
	}

	return &Pipeline{
		transcriber: cfg.Transcriber,
		lang:        cfg.Language,
		classifier:  cfg.Classifier,
		generator:   cfg.Generator,
		retriever:   cfg.Retriever,
		store:       cfg.Store,
		reports:     cfg.Reports,
		topK:        topK,
	}, nil
}

// Run processes one user turn and always produces a user-facing response.
// External failures are absorbed at their call site; Run returns an error
// only for defects in the pipeline itself.
func (p *Pipeline) Run(ctx context.Context, in chat.TurnInput) (chat.TurnResult, error) {
	sessionID := in.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	// Turns of the same session are serialized so the history read of one
	// turn sees the committed writes of the previous one. Different
	// sessions proceed in parallel.
	unlock := p.locks.lock(sessionID)
	defer unlock()

	// Step 1: input resolution.
	text := in.Text
	if len(in.Audio) > 0 {
		transcribed, err := p.transcribe(ctx, in.Audio, in.AudioFormat)
		if err != nil {
			log.Printf("[orchestrator] transcription failed, session=%s: %v", sessionID, err)
			return chat.TurnResult{SessionID: sessionID, Response: audioFailedMessage, Language: language.English}, nil
		}
		text = transcribed
	}
	if text == "" {
		return chat.TurnResult{SessionID: sessionID, Response: noInputMessage, Language: language.English}, nil
	}

	// Step 2: language normalization. Translation failure degrades to the
	// untranslated text rather than failing the turn.
	originalLang, confidence := p.lang.Detect(text)
	english := text
	if originalLang != language.English {
		log.Printf("[orchestrator] detected language=%s confidence=%.2f, session=%s", originalLang, confidence, sessionID)
		translated, err := p.lang.Translate(ctx, text, originalLang, language.English)
		if err != nil {
			log.Printf("[orchestrator] translation to English failed, continuing untranslated: %v", err)
		} else {
			english = translated
		}
	}

	// Step 3: an active report sub-dialogue consumes the turn exclusively.
	// No gating, no intent classification, no history logging.
	if p.reports.Active(ctx, sessionID) {
		reply, err := p.reports.HandleTurn(ctx, sessionID, english, in.Attachments)
		if err != nil {
			return chat.TurnResult{}, err
		}
		return p.finalize(ctx, sessionID, reply, originalLang), nil
	}

	// Step 4: history assembly.
	window, err := p.store.ReadWindow(ctx, sessionID, historyWindow)
	if err != nil {
		log.Printf("[orchestrator] history read failed, continuing with current turn only: %v", err)
		window = nil
	}
	userMsg := chat.Message{
		SessionID:   sessionID,
		UserID:      in.UserID,
		Sender:      chat.SenderUser,
		Content:     english,
		MessageType: chat.TypeText,
	}
	window = append(window, userMsg)

	// Step 5: follow-up detection, then gating. Follow-ups may be terse or
	// context-dependent, so both gates are skipped for them. Gated turns are
	// deliberately not persisted: a rejected message must not pollute
	// follow-up detection on later turns.
	isFollowUp := p.classifier.IsFollowUp(ctx, window)
	log.Printf("[orchestrator] follow-up=%v, session=%s", isFollowUp, sessionID)

	if !isFollowUp {
		if heuristics.IsGibberish(english) {
			return p.finalize(ctx, sessionID, gibberishMessage, originalLang), nil
		}
		if !p.classifier.InScope(ctx, english) {
			return p.finalize(ctx, sessionID, outOfScopeMessage, originalLang), nil
		}
	}

	// Step 6: the turn is accepted; log it, classify, dispatch.
	p.append(ctx, userMsg)

	turnIntent := p.classifier.ClassifyIntent(ctx, english)
	log.Printf("[orchestrator] intent=%s, session=%s", turnIntent, sessionID)

	var response string
	logResponse := true

	switch turnIntent {
	case intent.DataDrivenQuery, intent.CheckReportStatus:
		response, logResponse = p.answerFromIndex(ctx, english, window, isFollowUp, turnIntent == intent.CheckReportStatus)

	case intent.GeneralQuery:
		generated, err := p.generator.Generate(ctx, buildSystemPrompt(isFollowUp, false, ""), window)
		if err != nil {
			log.Printf("[orchestrator] generation failed, session=%s: %v", sessionID, err)
			response, logResponse = generationApology, false
		} else {
			response = generated
		}

	case intent.StartReport:
		opening, err := p.reports.Start(ctx, sessionID, in.UserID)
		if err != nil {
			log.Printf("[orchestrator] report start failed, session=%s: %v", sessionID, err)
			response, logResponse = reportStartApology, false
		} else {
			response = opening
		}

	default:
		// Unreachable with the closed intent set; reaching it is a defect.
		return chat.TurnResult{}, fmt.Errorf("unhandled intent %q", turnIntent)
	}

	if logResponse {
		p.append(ctx, chat.Message{
			SessionID:   sessionID,
			UserID:      in.UserID,
			Sender:      chat.SenderBot,
			Content:     response,
			MessageType: chat.TypeText,
		})
	}

	// Step 7: finalization.
	return p.finalize(ctx, sessionID, response, originalLang), nil
}

// answerFromIndex runs the retrieval-augmented branch. Zero hits or a
// retrieval error is terminal: the apology is returned and generation is
// never called.
func (p *Pipeline) answerFromIndex(ctx context.Context, query string, window []chat.Message, isFollowUp, statusQuery bool) (string, bool) {
	hits, err := p.retriever.Search(ctx, query, p.topK)
	if err != nil {
		log.Printf("[orchestrator] retrieval failed: %v", err)
		return retrievalApology, false
	}
	if len(hits) == 0 {
		log.Printf("[orchestrator] retrieval returned no hits")
		return retrievalApology, false
	}

	for _, hit := range hits {
		log.Printf("[orchestrator] hit score=%.2f issue_id=%d %s > %s", hit.Score, hit.IssueID, hit.IssueType, hit.IssueSubtype)
	}

	generated, err := p.generator.Generate(ctx, buildSystemPrompt(isFollowUp, statusQuery, index.BuildContext(hits)), window)
	if err != nil {
		log.Printf("[orchestrator] generation failed: %v", err)
		return generationApology, false
	}
	return generated, true
}

func (p *Pipeline) transcribe(ctx context.Context, audio []byte, format string) (string, error) {
	if p.transcriber == nil {
		return "", fmt.Errorf("no transcriber configured")
	}
	return p.transcriber.Transcribe(ctx, audio, format)
}

// append logs a message, absorbing store failures. A lost log entry costs
// history quality, not the turn.
func (p *Pipeline) append(ctx context.Context, msg chat.Message) {
	if err := p.store.Append(ctx, msg); err != nil {
		log.Printf("[orchestrator] failed to log %s message, session=%s: %v", msg.Sender, msg.SessionID, err)
	}
}

// finalize translates the response back to the user's language when the
// turn did not arrive in English. Translation failure degrades to the
// English response.
func (p *Pipeline) finalize(ctx context.Context, sessionID, response, originalLang string) chat.TurnResult {
	if originalLang != language.English {
		translated, err := p.lang.Translate(ctx, response, language.English, originalLang)
		if err != nil {
			log.Printf("[orchestrator] translation back to %s failed, returning English: %v", originalLang, err)
		} else {
			response = translated
		}
	}
	return chat.TurnResult{SessionID: sessionID, Response: response, Language: originalLang}
}

// sessionLocks hands out one mutex per session ID.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (l *sessionLocks) lock(sessionID string) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*sync.Mutex)
	}
	sessionMu, ok := l.locks[sessionID]
	if !ok {
		sessionMu = &sync.Mutex{}
		l.locks[sessionID] = sessionMu
	}
	l.mu.Unlock()

	sessionMu.Lock()
	return sessionMu.Unlock
}
