package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/eric-nichols-nyc/recall-api/internal/api/handlers"
	appMiddleware "github.com/eric-nichols-nyc/recall-api/internal/api/middlewares"
	"github.com/eric-nichols-nyc/recall-api/internal/config"
	"github.com/eric-nichols-nyc/recall-api/internal/core"
	"github.com/eric-nichols-nyc/recall-api/internal/logger"
	"github.com/eric-nichols-nyc/recall-api/internal/services"
)

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
	log        *logger.Logger
}

// NewServer builds and wires all routes.
func NewServer(cfg *config.Config, db core.DbClient, ingest *services.IngestService, notes *services.NoteService, emb core.EmbeddingProvider, llm core.LLMProvider, log *logger.Logger) *Server {
	authHandler := handlers.NewAuthHandler(db, cfg.JWTSecret)
	noteHandler := handlers.NewNoteHandler(ingest, notes)
	chatHandler := handlers.NewChatHandler(db, emb, llm)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(api chi.Router) {
		// public endpoints
		api.Post("/signup", authHandler.Signup)
		api.Post("/login", authHandler.Login)

		// protected endpoints
		api.Group(func(protected chi.Router) {
			protected.Use(appMiddleware.JWTMiddleware(cfg.JWTSecret))
			protected.Post("/notes/text", noteHandler.CreateFromText)
			protected.Post("/notes/web", noteHandler.CreateFromWeb)
			protected.Post("/notes/transcripts", noteHandler.CreateFromYouTube)
			protected.Post("/notes/upload", noteHandler.UploadPDF)
			protected.Get("/summaries", noteHandler.ListSummaries)
			protected.Get("/notes/{id}", noteHandler.GetNote)
			protected.Post("/chat/query", chatHandler.QuerySource)
		})
	})

	httpSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	return &Server{httpServer: httpSrv, log: log}
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	s.log.Info("HTTP server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
