package core

import (
	"context"

	"github.com/eric-nichols-nyc/recall-api/internal/models"
)

// DbClient defines all persistence operations the services need.
// It abstracts Postgres so higher layers never depend on a specific DB
// and tests can substitute the in-memory client.
//
// Every method is owner-scoped where a record has an owner; a store
// implementation must never return or mutate another user's records.
type DbClient interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	CreateSource(ctx context.Context, src *models.Source) error
	GetSourceByID(ctx context.Context, id string) (*models.Source, error)
	FindSourceByFingerprint(ctx context.Context, ownerID, sha256 string) (*models.Source, error)

	CreateSourceTexts(ctx context.Context, texts []models.SourceText) error
	GetSourceTextByOrdinal(ctx context.Context, sourceID string, ordinal int) (*models.SourceText, error)
	UpdateSourceTextContent(ctx context.Context, id, text string) error
	GetSourceTexts(ctx context.Context, sourceID string) ([]models.SourceText, error)

	UpsertNote(ctx context.Context, note *models.Note) error
	GetNoteBySourceID(ctx context.Context, sourceID string) (*models.NoteWithSource, error)
	ListNotesByOwner(ctx context.Context, ownerID string) ([]models.NoteWithSource, error)

	InsertSourceChunks(ctx context.Context, chunks []models.SourceChunk) error
	DeleteSourceChunks(ctx context.Context, sourceID string) error
	SearchSourceChunks(ctx context.Context, ownerID, sourceID string, queryVec []float32, limit int) ([]models.SourceChunk, error)

	Close() error
}

// ObjectClient defines interactions with S3 or any object storage.
// It's abstract so AWS can be replaced with MinIO, GCP, etc. easily.
type ObjectClient interface {
	UploadFile(ctx context.Context, bucket, key string, data []byte, contentType string) (url string, err error)
}

// Scraper converts a web page into markdown text.
type Scraper interface {
	ScrapeMarkdown(ctx context.Context, url string) (string, error)
}

// TranscriptSegment is one caption segment of a video transcript.
// Offsets are milliseconds from the start of the video.
type TranscriptSegment struct {
	Text       string
	OffsetMs   int
	DurationMs int
}

// TranscriptFetcher retrieves the transcript of a video by its ID.
type TranscriptFetcher interface {
	FetchTranscript(ctx context.Context, videoID string) ([]TranscriptSegment, error)
}
