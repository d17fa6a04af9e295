package app

import (
	"context"
	"fmt"
	"time"

	"github.com/eric-nichols-nyc/recall-api/internal/config"
	"github.com/eric-nichols-nyc/recall-api/internal/core"
	db "github.com/eric-nichols-nyc/recall-api/internal/core/database"
	"github.com/eric-nichols-nyc/recall-api/internal/core/extract"
	"github.com/eric-nichols-nyc/recall-api/internal/core/llm"
	objectclient "github.com/eric-nichols-nyc/recall-api/internal/core/object-client"
	"github.com/eric-nichols-nyc/recall-api/internal/core/summarize"
	"github.com/eric-nichols-nyc/recall-api/internal/logger"
	"github.com/eric-nichols-nyc/recall-api/internal/services"
)

// App owns every long-lived component and their shutdown order.
type App struct {
	DBClient core.DbClient
	Indexer  *services.NoteIndexer
	Server   *Server

	log *logger.Logger
}

func NewApp(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	dbClient, err := db.NewDatabaseClient(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	log.Info("database initialized and ready")

	llmProvider, err := llm.NewGeminiLLM(appCtx, cfg.AIAPIKey, cfg.GenModel, summarize.MaxOutputTokens())
	if err != nil {
		return nil, fmt.Errorf("couldn't initialize the llm provider: %w", err)
	}

	geminiEmbedder, err := llm.NewGeminiEmbedder(appCtx, cfg.AIAPIKey, cfg.EmbedModel)
	if err != nil {
		return nil, fmt.Errorf("couldn't initialize the embedder: %w", err)
	}

	summarizer := summarize.NewSummarizer(llmProvider, cfg.GenModel)
	scraper := extract.NewFirecrawlScraper(cfg.FirecrawlAPIKey, cfg.FirecrawlBaseURL)
	transcripts := extract.NewYouTubeTranscriptFetcher("")

	ixCfg := &services.IndexerConfig{
		TargetTokens:  100,
		OverlapTokens: 5,
		BatchSize:     16,
	}
	indexer := services.NewNoteIndexer(dbClient, geminiEmbedder, ixCfg, log)
	indexer.Start(ctx, cfg.IndexWorkers)

	ingest := services.NewIngestService(dbClient, summarizer, scraper, transcripts, log).
		WithIndexer(indexer)

	// S3 archival is optional: without credentials uploads are simply not
	// mirrored to object storage.
	if cfg.AwsAccessKey != "" && cfg.AwsSecretKey != "" {
		objClient, err := objectclient.NewS3Client(appCtx, cfg)
		if err != nil {
			return nil, err
		}
		log.Info("object client initialized and ready")
		ingest = ingest.WithStorage(objClient, cfg.BucketName)
	} else {
		log.Warn("object storage disabled, AWS credentials not configured")
	}

	notes := services.NewNoteService(dbClient)

	server := NewServer(cfg, dbClient, ingest, notes, geminiEmbedder, llmProvider, log)

	return &App{DBClient: dbClient, Indexer: indexer, Server: server, log: log}, nil
}

func (a *App) Close() {
	if a.DBClient != nil {
		_ = a.DBClient.Close()
	}
}
