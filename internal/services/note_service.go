package services

import (
	"context"
	"time"

	"github.com/eric-nichols-nyc/recall-api/internal/core"
	"github.com/eric-nichols-nyc/recall-api/internal/models"
)

const untitledSource = "Untitled source"

// NoteService serves saved notes: newest-first listing and single-note
// fetch with owner verification.
type NoteService struct {
	db core.DbClient
}

func NewNoteService(db core.DbClient) *NoteService {
	return &NoteService{db: db}
}

// SummaryItem is one entry of the notes listing.
type SummaryItem struct {
	ID        string    `json:"id"`
	SourceID  string    `json:"sourceId"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	Summary   string    `json:"summary"`
}

// NoteDetail is the single-note response payload.
type NoteDetail struct {
	ID        string    `json:"id"`
	SourceID  string    `json:"sourceId"`
	Title     string    `json:"title"`
	SummaryMd string    `json:"summaryMd"`
	CreatedAt time.Time `json:"createdAt"`
}

// ListSummaries returns the caller's notes newest-first.
func (s *NoteService) ListSummaries(ctx context.Context, ownerID string) ([]SummaryItem, error) {
	if ownerID == "" {
		return nil, core.Errf(core.KindUnauthenticated, nil, "Unauthorized")
	}

	notes, err := s.db.ListNotesByOwner(ctx, ownerID)
	if err != nil {
		return nil, core.Errf(core.KindPersistence, err, "Failed to fetch summaries")
	}

	out := make([]SummaryItem, 0, len(notes))
	for _, n := range notes {
		out = append(out, SummaryItem{
			ID:        n.ID,
			SourceID:  n.SourceID,
			Title:     noteTitle(&n),
			CreatedAt: n.CreatedAt,
			Summary:   n.SummaryMd,
		})
	}
	return out, nil
}

// GetBySourceID fetches one note by its source identifier. A note owned by
// someone else is rejected as forbidden, not hidden as missing.
func (s *NoteService) GetBySourceID(ctx context.Context, ownerID, sourceID string) (*NoteDetail, error) {
	if ownerID == "" {
		return nil, core.Errf(core.KindUnauthenticated, nil, "Unauthorized")
	}

	note, err := s.db.GetNoteBySourceID(ctx, sourceID)
	if err != nil {
		return nil, core.Errf(core.KindPersistence, err, "Database error. Please try again later.")
	}
	if note == nil {
		return nil, core.Errf(core.KindNotFound, nil, "Note not found.")
	}
	if note.OwnerID != ownerID {
		return nil, core.Errf(core.KindForbidden, nil, "Unauthorized to access this note.")
	}

	return &NoteDetail{
		ID:        note.ID,
		SourceID:  note.SourceID,
		Title:     noteTitle(note),
		SummaryMd: note.SummaryMd,
		CreatedAt: note.CreatedAt,
	}, nil
}

// noteTitle applies the uniform fallback chain: the note's own title, else
// the source's title, else a literal default.
func noteTitle(n *models.NoteWithSource) string {
	if n.Title != "" {
		return n.Title
	}
	if n.SourceTitle != nil && *n.SourceTitle != "" {
		return *n.SourceTitle
	}
	return untitledSource
}
