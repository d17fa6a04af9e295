package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/eric-nichols-nyc/recall-api/internal/config"
	"github.com/eric-nichols-nyc/recall-api/internal/core"
	"github.com/eric-nichols-nyc/recall-api/internal/models"
)

const uniqueViolation = "23505"

type DatabaseClient struct {
	db *sql.DB
}

func NewDatabaseClient(ctx context.Context, cfg *config.Config) (core.DbClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database client configuration is nil")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Sensible pool settings for an API service; adjust as needed.
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &DatabaseClient{db: db}, nil
}

func (c *DatabaseClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// isUniqueViolation reports whether err is the Postgres unique-constraint
// SQLSTATE. The orchestrator relies on this to resolve the dedup race.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// ---- users ----

func (c *DatabaseClient) CreateUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return errors.New("nil user")
	}
	const q = `
		INSERT INTO users (id, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, now(), now())
	`
	_, err := c.db.ExecContext(ctx, q, user.ID, user.Email, user.PasswordHash)
	if isUniqueViolation(err) {
		return core.Errf(core.KindDuplicate, err, "An account with this email already exists.")
	}
	return err
}

func (c *DatabaseClient) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const q = `
		SELECT id, email, password_hash, created_at, updated_at
		FROM users WHERE email = $1
	`
	var u models.User
	err := c.db.QueryRowContext(ctx, q, email).Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ---- sources ----

func (c *DatabaseClient) CreateSource(ctx context.Context, src *models.Source) error {
	if src == nil {
		return errors.New("nil source")
	}
	const q = `
		INSERT INTO sources
			(id, owner_id, type, url, filename, sha256, title, storage_url, created_at, updated_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
	`
	_, err := c.db.ExecContext(ctx, q,
		src.ID, src.OwnerID, src.Type, src.URL, src.Filename, src.SHA256, src.Title, src.StorageURL)
	if isUniqueViolation(err) {
		return core.Errf(core.KindDuplicate, err,
			"This document was just uploaded. Please refresh your notes.")
	}
	return err
}

func (c *DatabaseClient) GetSourceByID(ctx context.Context, id string) (*models.Source, error) {
	const q = `
		SELECT id, owner_id, type, url, filename, sha256, title, storage_url, created_at, updated_at
		FROM sources WHERE id = $1
	`
	return c.scanSource(c.db.QueryRowContext(ctx, q, id))
}

func (c *DatabaseClient) FindSourceByFingerprint(ctx context.Context, ownerID, sha256 string) (*models.Source, error) {
	const q = `
		SELECT id, owner_id, type, url, filename, sha256, title, storage_url, created_at, updated_at
		FROM sources WHERE owner_id = $1 AND sha256 = $2
	`
	return c.scanSource(c.db.QueryRowContext(ctx, q, ownerID, sha256))
}

func (c *DatabaseClient) scanSource(row *sql.Row) (*models.Source, error) {
	var s models.Source
	err := row.Scan(
		&s.ID, &s.OwnerID, &s.Type, &s.URL, &s.Filename, &s.SHA256, &s.Title, &s.StorageURL,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ---- source texts ----

// CreateSourceTexts inserts segments in a single transaction.
func (c *DatabaseClient) CreateSourceTexts(ctx context.Context, texts []models.SourceText) error {
	if len(texts) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	const q = `
		INSERT INTO source_texts
			(id, owner_id, source_id, ordinal, text, page, start_sec, end_sec, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
	`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i := range texts {
		t := &texts[i]
		if _, err := stmt.ExecContext(ctx,
			t.ID, t.OwnerID, t.SourceID, t.Ordinal, t.Text, t.Page, t.StartSec, t.EndSec,
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (c *DatabaseClient) GetSourceTextByOrdinal(ctx context.Context, sourceID string, ordinal int) (*models.SourceText, error) {
	const q = `
		SELECT id, owner_id, source_id, ordinal, text, page, start_sec, end_sec, created_at
		FROM source_texts WHERE source_id = $1 AND ordinal = $2
	`
	var t models.SourceText
	err := c.db.QueryRowContext(ctx, q, sourceID, ordinal).Scan(
		&t.ID, &t.OwnerID, &t.SourceID, &t.Ordinal, &t.Text, &t.Page, &t.StartSec, &t.EndSec, &t.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *DatabaseClient) UpdateSourceTextContent(ctx context.Context, id, text string) error {
	const q = `UPDATE source_texts SET text = $2 WHERE id = $1`
	res, err := c.db.ExecContext(ctx, q, id, text)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("source text not found: %s", id)
	}
	return nil
}

func (c *DatabaseClient) GetSourceTexts(ctx context.Context, sourceID string) ([]models.SourceText, error) {
	const q = `
		SELECT id, owner_id, source_id, ordinal, text, page, start_sec, end_sec, created_at
		FROM source_texts
		WHERE source_id = $1
		ORDER BY ordinal ASC
	`
	rows, err := c.db.QueryContext(ctx, q, sourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.SourceText
	for rows.Next() {
		var t models.SourceText
		if err := rows.Scan(
			&t.ID, &t.OwnerID, &t.SourceID, &t.Ordinal, &t.Text, &t.Page, &t.StartSec, &t.EndSec, &t.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ---- notes ----

// UpsertNote creates the note for a source or refreshes summary, title and
// model if one already exists. The persisted identity is written back onto
// the passed note.
func (c *DatabaseClient) UpsertNote(ctx context.Context, note *models.Note) error {
	if note == nil {
		return errors.New("nil note")
	}
	const q = `
		INSERT INTO notes (id, owner_id, source_id, title, summary_md, model, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		ON CONFLICT (source_id) DO UPDATE
		SET title = EXCLUDED.title, summary_md = EXCLUDED.summary_md,
		    model = EXCLUDED.model, updated_at = now()
		RETURNING id, created_at
	`
	return c.db.QueryRowContext(ctx, q,
		note.ID, note.OwnerID, note.SourceID, note.Title, note.SummaryMd, note.Model,
	).Scan(&note.ID, &note.CreatedAt)
}

func (c *DatabaseClient) GetNoteBySourceID(ctx context.Context, sourceID string) (*models.NoteWithSource, error) {
	const q = `
		SELECT n.id, n.owner_id, n.source_id, n.title, n.summary_md, n.model,
		       n.created_at, n.updated_at, s.title
		FROM notes n
		LEFT JOIN sources s ON s.id = n.source_id
		WHERE n.source_id = $1
	`
	var n models.NoteWithSource
	err := c.db.QueryRowContext(ctx, q, sourceID).Scan(
		&n.ID, &n.OwnerID, &n.SourceID, &n.Title, &n.SummaryMd, &n.Model,
		&n.CreatedAt, &n.UpdatedAt, &n.SourceTitle,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (c *DatabaseClient) ListNotesByOwner(ctx context.Context, ownerID string) ([]models.NoteWithSource, error) {
	const q = `
		SELECT n.id, n.owner_id, n.source_id, n.title, n.summary_md, n.model,
		       n.created_at, n.updated_at, s.title
		FROM notes n
		LEFT JOIN sources s ON s.id = n.source_id
		WHERE n.owner_id = $1
		ORDER BY n.created_at DESC
	`
	rows, err := c.db.QueryContext(ctx, q, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.NoteWithSource
	for rows.Next() {
		var n models.NoteWithSource
		if err := rows.Scan(
			&n.ID, &n.OwnerID, &n.SourceID, &n.Title, &n.SummaryMd, &n.Model,
			&n.CreatedAt, &n.UpdatedAt, &n.SourceTitle,
		); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// ---- source chunks ----

// InsertSourceChunks inserts chunks in a single transaction.
func (c *DatabaseClient) InsertSourceChunks(ctx context.Context, chunks []models.SourceChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	const q = `
		INSERT INTO source_chunks
			(id, owner_id, source_id, position, text, embedding, token_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
	`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i := range chunks {
		ch := &chunks[i]
		vec := pgvector.NewVector(ch.Embedding)
		if _, err := stmt.ExecContext(ctx,
			ch.ID, ch.OwnerID, ch.SourceID, ch.Position, ch.Text, vec, ch.TokenCount,
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (c *DatabaseClient) DeleteSourceChunks(ctx context.Context, sourceID string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM source_chunks WHERE source_id = $1`, sourceID)
	return err
}

// SearchSourceChunks finds top-k similar chunks within an owned source for a
// query embedding.
func (c *DatabaseClient) SearchSourceChunks(ctx context.Context, ownerID, sourceID string, queryVec []float32, limit int) ([]models.SourceChunk, error) {
	const q = `
		SELECT id, owner_id, source_id, position, text, embedding, token_count
		FROM source_chunks
		WHERE owner_id = $1 AND source_id = $2
		ORDER BY embedding <-> $3
		LIMIT $4
	`
	vec := pgvector.NewVector(queryVec)
	rows, err := c.db.QueryContext(ctx, q, ownerID, sourceID, vec, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.SourceChunk
	for rows.Next() {
		var (
			ch  models.SourceChunk
			emb pgvector.Vector
		)
		if err := rows.Scan(&ch.ID, &ch.OwnerID, &ch.SourceID, &ch.Position, &ch.Text, &emb, &ch.TokenCount); err != nil {
			return nil, err
		}
		ch.Embedding = emb.Slice()
		out = append(out, ch)
	}
	return out, rows.Err()
}

var _ core.DbClient = (*DatabaseClient)(nil)
