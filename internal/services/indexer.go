package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/eric-nichols-nyc/recall-api/internal/core"
	"github.com/eric-nichols-nyc/recall-api/internal/logger"
	"github.com/eric-nichols-nyc/recall-api/internal/models"
)

// IndexerConfig tunes the chunk embedding pipeline.
//
// TargetTokens:  approximate tokens per chunk.
// OverlapTokens: tokens retained from the end of the previous chunk as seed
// of the next one for context bleed.
// BatchSize:     how many chunks to embed/write in one batch.
type IndexerConfig struct {
	TargetTokens  int
	OverlapTokens int
	BatchSize     int
}

// chunk is the internal representation passed through the pipeline.
type chunk struct {
	Pos      int
	Text     string
	TokenCnt int
}

// NoteIndexer embeds a source's text segments in the background so the
// chat endpoint can retrieve over them. Ingestion never waits on it; jobs
// are dropped with a warning when the queue is full.
type NoteIndexer struct {
	db       core.DbClient
	embedder core.EmbeddingProvider
	cfg      *IndexerConfig
	jobs     chan string
	log      *logger.Logger
}

// NewNoteIndexer constructs the indexer with a bounded job queue (64).
func NewNoteIndexer(db core.DbClient, emb core.EmbeddingProvider, cfg *IndexerConfig, log *logger.Logger) *NoteIndexer {
	return &NoteIndexer{
		db: db, embedder: emb, cfg: cfg, log: log,
		jobs: make(chan string, 64),
	}
}

// Start runs numWorkers goroutines reading from the jobs channel.
func (i *NoteIndexer) Start(ctx context.Context, numWorkers int) {
	for w := 1; w <= numWorkers; w++ {
		go func(w int) {
			for {
				select {
				case <-ctx.Done():
					i.log.Info("note indexer worker shutting down", "worker", w)
					return
				case sourceID := <-i.jobs:
					if err := i.ProcessOne(ctx, sourceID); err != nil {
						i.log.Error("indexing failed", "source_id", sourceID, "worker", w, "err", err)
					}
				}
			}
		}(w)
	}
}

// Enqueue schedules a source for chunk embedding.
func (i *NoteIndexer) Enqueue(sourceID string) {
	select {
	case i.jobs <- sourceID:
	default:
		i.log.Warn("indexer queue full, dropping job", "source_id", sourceID)
	}
}

// ProcessOne chunks, embeds and persists for a single source ID. Existing
// chunks are replaced so re-ingested content is re-indexed cleanly.
func (i *NoteIndexer) ProcessOne(ctx context.Context, sourceID string) error {
	texts, err := i.db.GetSourceTexts(ctx, sourceID)
	if err != nil {
		return err
	}
	if len(texts) == 0 {
		return nil
	}
	ownerID := texts[0].OwnerID

	if err := i.db.DeleteSourceChunks(ctx, sourceID); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	fragCh := fragments(gctx, g, texts)
	chunkCh := i.streamChunk(gctx, g, fragCh)
	g.Go(func() error {
		return i.embedAndPersist(gctx, ownerID, sourceID, chunkCh)
	})

	return g.Wait()
}

// fragments feeds the segments' non-empty lines downstream.
func fragments(ctx context.Context, g *errgroup.Group, texts []models.SourceText) <-chan string {
	out := make(chan string, 32)
	g.Go(func() error {
		defer close(out)
		for _, t := range texts {
			for _, line := range strings.Split(t.Text, "\n") {
				line = strings.TrimSpace(line)
				if line == "" {
					continue
				}
				select {
				case out <- line:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
		return nil
	})
	return out
}

// streamChunk groups incoming fragments into token-bounded chunks with
// optional overlap.
func (i *NoteIndexer) streamChunk(ctx context.Context, g *errgroup.Group, frags <-chan string) <-chan chunk {
	out := make(chan chunk, 8)

	g.Go(func() error {
		defer close(out)

		var (
			buf    []string
			tokSum int
			pos    int
		)

		// flush emits the current buffer as a chunk and prepares the buffer
		// for the next one, preserving OverlapTokens from the tail.
		flush := func() error {
			if tokSum == 0 {
				return nil
			}
			ch := chunk{Pos: pos, Text: strings.Join(buf, "\n"), TokenCnt: tokSum}
			pos++

			select {
			case out <- ch:
			case <-ctx.Done():
				return ctx.Err()
			}

			if i.cfg.OverlapTokens > 0 {
				keep := []string{}
				remain := i.cfg.OverlapTokens
				for j := len(buf) - 1; j >= 0 && remain > 0; j-- {
					keep = append([]string{buf[j]}, keep...)
					remain -= approxTokens(buf[j])
				}
				buf = keep
				tokSum = 0
				for _, s := range buf {
					tokSum += approxTokens(s)
				}
			} else {
				buf = buf[:0]
				tokSum = 0
			}
			return nil
		}

		for frag := range frags {
			buf = append(buf, frag)
			tokSum += approxTokens(frag)

			if tokSum >= i.cfg.TargetTokens {
				if err := flush(); err != nil {
					return err
				}
			}
		}
		return flush()
	})

	return out
}

// embedAndPersist drains chunks in batches, embeds each batch and writes
// the resulting rows.
func (i *NoteIndexer) embedAndPersist(ctx context.Context, ownerID, sourceID string, chunks <-chan chunk) error {
	batch := make([]chunk, 0, i.cfg.BatchSize)

	writeBatch := func() error {
		if len(batch) == 0 {
			return nil
		}
		texts := make([]string, 0, len(batch))
		for _, ch := range batch {
			texts = append(texts, ch.Text)
		}
		vecs, err := i.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return err
		}

		rows := make([]models.SourceChunk, 0, len(batch))
		for j, ch := range batch {
			var emb []float32
			if j < len(vecs) {
				emb = vecs[j]
			}
			rows = append(rows, models.SourceChunk{
				ID:         uuid.NewString(),
				OwnerID:    ownerID,
				SourceID:   sourceID,
				Position:   ch.Pos,
				Text:       ch.Text,
				Embedding:  emb,
				TokenCount: ch.TokenCnt,
			})
		}
		if err := i.db.InsertSourceChunks(ctx, rows); err != nil {
			return err
		}
		batch = batch[:0]
		return nil
	}

	for ch := range chunks {
		batch = append(batch, ch)
		if len(batch) >= i.cfg.BatchSize {
			if err := writeBatch(); err != nil {
				return err
			}
		}
	}
	return writeBatch()
}

// approxTokens is a cheap token estimator (~4 chars ≈ 1 token).
func approxTokens(s string) int {
	n := len([]rune(s))
	if n <= 0 {
		return 0
	}
	return (n + 3) / 4
}

var _ Indexer = (*NoteIndexer)(nil)
