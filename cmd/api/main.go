package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/hualaowei/chatbot/backend/internal/config"
	"github.com/hualaowei/chatbot/backend/internal/handler"
	"github.com/hualaowei/chatbot/backend/internal/service/ai"
	"github.com/hualaowei/chatbot/backend/internal/service/index"
	"github.com/hualaowei/chatbot/backend/internal/service/intent"
	"github.com/hualaowei/chatbot/backend/internal/service/language"
	"github.com/hualaowei/chatbot/backend/internal/service/orchestrator"
	"github.com/hualaowei/chatbot/backend/internal/service/report"
	"github.com/hualaowei/chatbot/backend/internal/service/session"
	"github.com/hualaowei/chatbot/backend/internal/service/speech"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// The chat model serves generation and every LLM classifier; without it
	// the service cannot answer, so missing credentials are fatal.
	if !cfg.AI.Enabled() {
		log.Fatal("ARK credentials missing: provide ARK_API_KEY (or AK/SK pair) and ARK_MODEL")
	}
	chatModel, err := cfg.AI.NewChatModel(ctx)
	if err != nil {
		log.Fatalf("failed to initialize chat model: %v", err)
	}

	aiService, err := ai.NewService(ctx, chatModel, time.Duration(cfg.AI.TimeoutSeconds)*time.Second)
	if err != nil {
		log.Fatalf("failed to initialize AI service: %v", err)
	}

	intentService, err := intent.NewService(ctx, chatModel)
	if err != nil {
		log.Fatalf("failed to initialize intent service: %v", err)
	}
	if intentService.Enabled() {
		log.Println("intent classifiers enabled")
	}

	languageService := language.NewService(cfg.Language.TranslateURL, time.Duration(cfg.Language.TimeoutSeconds)*time.Second)
	if cfg.Language.TranslateURL == "" {
		log.Println("TRANSLATE_URL not set, responses stay in the detected language only when it is English")
	}

	sessionStore, err := session.NewSQLiteStore(ctx, cfg.Session.DBPath)
	if err != nil {
		log.Fatalf("failed to open session store: %v", err)
	}
	defer sessionStore.Close()

	if cfg.Index.EmbedAPIKey == "" {
		log.Println("warning: EMBED_API_KEY not set, data-driven queries will fall back to an apology")
	}
	embedder := index.NewOpenAIEmbedder(cfg.Index.EmbedAPIKey, cfg.Index.EmbedModel, cfg.Index.EmbedBaseURL)
	issueIndex, err := index.New(ctx, cfg.Index.DBPath, embedder)
	if err != nil {
		log.Fatalf("failed to open issue index: %v", err)
	}
	defer issueIndex.Close()

	if cfg.Index.SeedDir != "" {
		if err := issueIndex.Seed(ctx, cfg.Index.SeedDir); err != nil {
			log.Printf("warning: failed to seed issue index: %v", err)
		}
		if cfg.Index.Watch {
			watcher, err := index.NewSeedWatcher(cfg.Index.SeedDir, issueIndex)
			if err != nil {
				log.Printf("warning: failed to watch seed directory: %v", err)
			} else {
				watcher.Start()
				defer watcher.Stop()
			}
		}
	}

	var reportState report.StateStore
	if cfg.Report.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Report.RedisAddr,
			Password: cfg.Report.RedisPassword,
		})
		defer rdb.Close()
		reportState = report.NewRedisStateStore(rdb)
		log.Printf("report dialogue state backed by redis at %s", cfg.Report.RedisAddr)
	} else {
		reportState = report.NewMemoryStateStore()
		log.Println("report dialogue state held in memory")
	}

	submitter, err := report.NewSQLiteSubmitter(ctx, cfg.Session.DBPath)
	if err != nil {
		log.Fatalf("failed to open report store: %v", err)
	}
	defer submitter.Close()

	reportManager := report.NewManager(reportState, submitter)

	pipelineCfg := orchestrator.Config{
		Language:   languageService,
		Classifier: intentService,
		Generator:  aiService,
		Retriever:  issueIndex,
		Store:      sessionStore,
		Reports:    reportManager,
		TopK:       cfg.Index.TopK,
	}
	if cfg.Speech.Enabled {
		pipelineCfg.Transcriber = speech.NewService(cfg.Speech.URL, time.Duration(cfg.Speech.TimeoutSeconds)*time.Second)
		log.Println("speech-to-text enabled")
	} else {
		log.Println("STT_URL not set, audio turns will be rejected")
	}

	pipeline, err := orchestrator.New(pipelineCfg)
	if err != nil {
		log.Fatalf("failed to assemble pipeline: %v", err)
	}

	router := handler.NewRouter(pipeline)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("chatbot backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
