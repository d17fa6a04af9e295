package db

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/eric-nichols-nyc/recall-api/internal/core"
	"github.com/eric-nichols-nyc/recall-api/internal/models"
)

// MemoryClient is an in-memory DbClient with the same observable semantics
// as the Postgres client, including unique-constraint conflicts. It backs
// the test suite and local development without a database.
type MemoryClient struct {
	mu      sync.Mutex
	users   map[string]*models.User // keyed by email
	sources map[string]*models.Source
	texts   map[string]*models.SourceText
	notes   map[string]*models.Note // keyed by source ID
	chunks  map[string][]models.SourceChunk
}

func NewMemoryClient() *MemoryClient {
	return &MemoryClient{
		users:   make(map[string]*models.User),
		sources: make(map[string]*models.Source),
		texts:   make(map[string]*models.SourceText),
		notes:   make(map[string]*models.Note),
		chunks:  make(map[string][]models.SourceChunk),
	}
}

func (m *MemoryClient) Close() error { return nil }

func (m *MemoryClient) CreateUser(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.Email]; ok {
		return core.Errf(core.KindDuplicate, nil, "An account with this email already exists.")
	}
	cp := *user
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	m.users[user.Email] = &cp
	return nil
}

func (m *MemoryClient) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (m *MemoryClient) CreateSource(_ context.Context, src *models.Source) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if src.SHA256 != nil {
		for _, s := range m.sources {
			if s.SHA256 != nil && *s.SHA256 == *src.SHA256 {
				return core.Errf(core.KindDuplicate, nil,
					"This document was just uploaded. Please refresh your notes.")
			}
		}
	}
	cp := *src
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	m.sources[src.ID] = &cp
	return nil
}

func (m *MemoryClient) GetSourceByID(_ context.Context, id string) (*models.Source, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sources[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *MemoryClient) FindSourceByFingerprint(_ context.Context, ownerID, sha256 string) (*models.Source, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sources {
		if s.OwnerID == ownerID && s.SHA256 != nil && *s.SHA256 == sha256 {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MemoryClient) CreateSourceTexts(_ context.Context, texts []models.SourceText) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range texts {
		cp := texts[i]
		cp.CreatedAt = time.Now()
		m.texts[cp.ID] = &cp
	}
	return nil
}

func (m *MemoryClient) GetSourceTextByOrdinal(_ context.Context, sourceID string, ordinal int) (*models.SourceText, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.texts {
		if t.SourceID == sourceID && t.Ordinal == ordinal {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MemoryClient) UpdateSourceTextContent(_ context.Context, id, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.texts[id]
	if !ok {
		return core.Errf(core.KindPersistence, nil, "Failed to save note to database. Please try again.")
	}
	t.Text = text
	return nil
}

func (m *MemoryClient) GetSourceTexts(_ context.Context, sourceID string) ([]models.SourceText, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.SourceText
	for _, t := range m.texts {
		if t.SourceID == sourceID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ordinal < out[j].Ordinal })
	return out, nil
}

func (m *MemoryClient) UpsertNote(_ context.Context, note *models.Note) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.notes[note.SourceID]; ok {
		existing.Title = note.Title
		existing.SummaryMd = note.SummaryMd
		existing.Model = note.Model
		existing.UpdatedAt = time.Now()
		note.ID = existing.ID
		note.CreatedAt = existing.CreatedAt
		return nil
	}
	cp := *note
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	m.notes[note.SourceID] = &cp
	note.CreatedAt = cp.CreatedAt
	return nil
}

func (m *MemoryClient) GetNoteBySourceID(_ context.Context, sourceID string) (*models.NoteWithSource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notes[sourceID]
	if !ok {
		return nil, nil
	}
	out := models.NoteWithSource{Note: *n}
	if s, ok := m.sources[sourceID]; ok {
		out.SourceTitle = s.Title
	}
	return &out, nil
}

func (m *MemoryClient) ListNotesByOwner(_ context.Context, ownerID string) ([]models.NoteWithSource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.NoteWithSource
	for _, n := range m.notes {
		if n.OwnerID != ownerID {
			continue
		}
		item := models.NoteWithSource{Note: *n}
		if s, ok := m.sources[n.SourceID]; ok {
			item.SourceTitle = s.Title
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryClient) InsertSourceChunks(_ context.Context, chunks []models.SourceChunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range chunks {
		cp := chunks[i]
		cp.CreatedAt = time.Now()
		m.chunks[cp.SourceID] = append(m.chunks[cp.SourceID], cp)
	}
	return nil
}

func (m *MemoryClient) DeleteSourceChunks(_ context.Context, sourceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.chunks, sourceID)
	return nil
}

func (m *MemoryClient) SearchSourceChunks(_ context.Context, ownerID, sourceID string, queryVec []float32, limit int) ([]models.SourceChunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.SourceChunk
	for _, ch := range m.chunks[sourceID] {
		if ch.OwnerID == ownerID {
			out = append(out, ch)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return l2(out[i].Embedding, queryVec) < l2(out[j].Embedding, queryVec)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func l2(a, b []float32) float64 {
	var sum float64
	for i := 0; i < len(a) && i < len(b); i++ {
		d := float64(a[i] - b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

var _ core.DbClient = (*MemoryClient)(nil)
