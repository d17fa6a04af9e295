package models

import (
	"time"
)

// Source types accepted by the ingestion pipeline.
const (
	SourceTypePDF     = "pdf"
	SourceTypeText    = "text"
	SourceTypeWeb     = "web"
	SourceTypeYouTube = "youtube"
)

// User represents an authenticated user of the system.
type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Source represents one ingested document (PDF upload, pasted text,
// scraped web page or YouTube transcript).
type Source struct {
	ID         string    `db:"id" json:"id"`
	OwnerID    string    `db:"owner_id" json:"owner_id"`
	Type       string    `db:"type" json:"type"`
	URL        *string   `db:"url" json:"url,omitempty"`
	Filename   *string   `db:"filename" json:"filename,omitempty"`
	SHA256     *string   `db:"sha256" json:"sha256,omitempty"` // dedup key, PDFs only
	Title      *string   `db:"title" json:"title,omitempty"`
	StorageURL *string   `db:"storage_url" json:"storage_url,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// SourceText is one normalized text segment of a Source. Ordinals are
// zero-based and unique per source; concatenating segments in ordinal
// order reconstructs the full text.
type SourceText struct {
	ID        string    `db:"id" json:"id"`
	OwnerID   string    `db:"owner_id" json:"owner_id"`
	SourceID  string    `db:"source_id" json:"source_id"`
	Ordinal   int       `db:"ordinal" json:"ordinal"`
	Text      string    `db:"text" json:"text"`
	Page      *int      `db:"page" json:"page,omitempty"`
	StartSec  *int      `db:"start_sec" json:"start_sec,omitempty"`
	EndSec    *int      `db:"end_sec" json:"end_sec,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Note is the AI-generated summary for a Source; at most one per source.
type Note struct {
	ID        string    `db:"id" json:"id"`
	OwnerID   string    `db:"owner_id" json:"owner_id"`
	SourceID  string    `db:"source_id" json:"source_id"`
	Title     string    `db:"title" json:"title"`
	SummaryMd string    `db:"summary_md" json:"summary_md"`
	Model     string    `db:"model" json:"model"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// NoteWithSource pairs a note with its source's title for listing and
// single-note fetches.
type NoteWithSource struct {
	Note
	SourceTitle *string `json:"source_title,omitempty"`
}

// SourceChunk is one embedded text chunk used by the chat retrieval path.
type SourceChunk struct {
	ID         string    `db:"id" json:"id"`
	OwnerID    string    `db:"owner_id" json:"owner_id"`
	SourceID   string    `db:"source_id" json:"source_id"`
	Position   int       `db:"position" json:"position"`
	Text       string    `db:"text" json:"text"`
	Embedding  []float32 `db:"embedding" json:"embedding"` // pgvector column
	TokenCount int       `db:"token_count" json:"token_count"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
