package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hualaowei/chatbot/backend/internal/handler/chatbot"
	middlewarePkg "github.com/hualaowei/chatbot/backend/internal/middleware"
	"github.com/hualaowei/chatbot/backend/pkg/utils"
)

// NewRouter wires HTTP routes to the conversational pipeline.
func NewRouter(pipeline chatbot.TurnRunner) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	chatbotHandler := chatbot.New(pipeline)
	r.Route("/api", func(api chi.Router) {
		chatbotHandler.RegisterRoutes(api)
	})

	return r
}
