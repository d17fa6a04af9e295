package services

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/eric-nichols-nyc/recall-api/internal/core"
	"github.com/eric-nichols-nyc/recall-api/internal/core/extract"
	"github.com/eric-nichols-nyc/recall-api/internal/core/summarize"
	"github.com/eric-nichols-nyc/recall-api/internal/logger"
	"github.com/eric-nichols-nyc/recall-api/internal/models"
)

const maxPDFBytes = 10 << 20 // 10 MiB

// Indexer receives source IDs for background chunk embedding.
type Indexer interface {
	Enqueue(sourceID string)
}

// IngestService runs one ingestion end-to-end: validate, extract,
// fingerprint, dedup-check, summarize, persist. It is the single place
// deciding create-vs-update and the only component that classifies
// persistence failures.
type IngestService struct {
	db          core.DbClient
	summarizer  *summarize.Summarizer
	scraper     core.Scraper
	transcripts core.TranscriptFetcher
	storage     core.ObjectClient
	bucket      string
	indexer     Indexer
	log         *logger.Logger
}

func NewIngestService(db core.DbClient, sum *summarize.Summarizer, scraper core.Scraper, transcripts core.TranscriptFetcher, log *logger.Logger) *IngestService {
	return &IngestService{db: db, summarizer: sum, scraper: scraper, transcripts: transcripts, log: log}
}

// WithStorage enables archival of original uploads to object storage.
func (s *IngestService) WithStorage(storage core.ObjectClient, bucket string) *IngestService {
	s.storage = storage
	s.bucket = bucket
	return s
}

// WithIndexer enables background chunk embedding after ingestion.
func (s *IngestService) WithIndexer(ix Indexer) *IngestService {
	s.indexer = ix
	return s
}

// IngestResult is the uniform outcome of every ingestion path.
type IngestResult struct {
	SourceID  string
	NoteID    string
	Summary   string
	PageCount int
}

// IngestText ingests pasted text.
func (s *IngestService) IngestText(ctx context.Context, ownerID, text string) (*IngestResult, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}

	content, err := extract.Text(text)
	if err != nil {
		return nil, err
	}

	summary, err := s.summarizer.Summarize(ctx, summarize.Request{
		Content: content,
		Kind:    summarize.KindText,
	})
	if err != nil {
		return nil, err
	}

	src := &models.Source{
		ID:      uuid.NewString(),
		OwnerID: ownerID,
		Type:    models.SourceTypeText,
	}
	return s.createRecords(ctx, src, []models.SourceText{{
		ID:       uuid.NewString(),
		OwnerID:  ownerID,
		SourceID: src.ID,
		Ordinal:  0,
		Text:     content,
	}}, summary, 0)
}

// IngestWeb scrapes a web page and ingests its markdown rendering.
func (s *IngestService) IngestWeb(ctx context.Context, ownerID, rawURL string) (*IngestResult, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}

	validURL, err := validateWebURL(rawURL)
	if err != nil {
		return nil, err
	}

	markdown, err := s.scraper.ScrapeMarkdown(ctx, validURL)
	if err != nil {
		return nil, err
	}

	summary, err := s.summarizer.Summarize(ctx, summarize.Request{
		Content:   markdown,
		Kind:      summarize.KindWeb,
		SourceURL: validURL,
	})
	if err != nil {
		return nil, err
	}

	title := summarize.TitleFromSummary(summary)
	src := &models.Source{
		ID:      uuid.NewString(),
		OwnerID: ownerID,
		Type:    models.SourceTypeWeb,
		URL:     &validURL,
		Title:   &title,
	}
	return s.createRecords(ctx, src, []models.SourceText{{
		ID:       uuid.NewString(),
		OwnerID:  ownerID,
		SourceID: src.ID,
		Ordinal:  0,
		Text:     markdown,
	}}, summary, 0)
}

// IngestYouTube fetches a video transcript and ingests it, one text
// segment per caption with second-resolution offsets.
func (s *IngestService) IngestYouTube(ctx context.Context, ownerID, urlOrID string) (*IngestResult, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}

	trimmed := strings.TrimSpace(urlOrID)
	if trimmed == "" {
		return nil, core.Errf(core.KindInvalid, nil,
			"YouTube URL or video ID is required and cannot be empty.")
	}
	videoID, ok := extract.VideoID(trimmed)
	if !ok {
		return nil, core.Errf(core.KindInvalid, nil,
			"Invalid YouTube URL or video ID. Please provide a valid YouTube URL or video ID.")
	}
	videoURL := extract.WatchURL(videoID)

	segments, err := s.transcripts.FetchTranscript(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if len(segments) == 0 {
		return nil, core.Errf(core.KindExtraction, nil, "No transcript available for this video.")
	}

	summary, err := s.summarizer.Summarize(ctx, summarize.Request{
		Content:   extract.JoinTranscript(segments),
		Kind:      summarize.KindTranscript,
		SourceURL: videoURL,
	})
	if err != nil {
		return nil, err
	}

	title := summarize.TitleFromSummary(summary)
	src := &models.Source{
		ID:      uuid.NewString(),
		OwnerID: ownerID,
		Type:    models.SourceTypeYouTube,
		URL:     &videoURL,
		Title:   &title,
	}

	texts := make([]models.SourceText, 0, len(segments))
	for i, seg := range segments {
		startSec := seg.OffsetMs / 1000
		endSec := (seg.OffsetMs + seg.DurationMs) / 1000
		texts = append(texts, models.SourceText{
			ID:       uuid.NewString(),
			OwnerID:  ownerID,
			SourceID: src.ID,
			Ordinal:  i,
			Text:     seg.Text,
			StartSec: &startSec,
			EndSec:   &endSec,
		})
	}
	return s.createRecords(ctx, src, texts, summary, 0)
}

// PDFUpload is the validated-to-be-present form payload of a PDF upload.
type PDFUpload struct {
	Filename     string
	ContentType  string
	Data         []byte
	Instructions string
	Title        string
}

// IngestPDF is the one path with deduplication: byte-identical re-uploads
// update the existing source's text and note in place instead of creating
// duplicates. A fingerprint race lost to a concurrent upload surfaces as a
// conflict, never as corrupted state.
func (s *IngestService) IngestPDF(ctx context.Context, ownerID string, up *PDFUpload) (*IngestResult, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	if up == nil || len(up.Data) == 0 {
		return nil, core.Errf(core.KindInvalid, nil, "A PDF file is required.")
	}
	if mediaType(up.ContentType) != "application/pdf" {
		return nil, core.Errf(core.KindInvalid, nil, "Only PDF documents are supported.")
	}
	if len(up.Data) > maxPDFBytes {
		return nil, core.Errf(core.KindInvalid, nil, "File is too large. Max size is 10MB.")
	}

	res, err := extract.PDF(up.Data)
	if err != nil {
		return nil, err
	}
	fingerprint := extract.Fingerprint(up.Data)

	existing, err := s.db.FindSourceByFingerprint(ctx, ownerID, fingerprint)
	if err != nil {
		return nil, persistErr(err)
	}

	summary, err := s.summarizer.Summarize(ctx, summarize.Request{
		Content:      res.Text,
		Kind:         summarize.KindDocument,
		Instructions: up.Instructions,
	})
	if err != nil {
		return nil, err
	}

	noteTitle := summarize.TitleFromSummary(summary)
	sourceTitle := strings.TrimSpace(up.Title)
	if sourceTitle == "" {
		sourceTitle = noteTitle
	}
	filename := filepath.Base(up.Filename)

	if existing != nil {
		return s.updateExistingPDF(ctx, ownerID, existing, res, summary, noteTitle)
	}

	src := &models.Source{
		ID:       uuid.NewString(),
		OwnerID:  ownerID,
		Type:     models.SourceTypePDF,
		Filename: &filename,
		SHA256:   &fingerprint,
		Title:    &sourceTitle,
	}
	if s.storage != nil {
		key := fmt.Sprintf("users/%s/sources/%s/%s", ownerID, src.ID, strings.ReplaceAll(filename, " ", "_"))
		storageURL, upErr := s.storage.UploadFile(ctx, s.bucket, key, up.Data, up.ContentType)
		if upErr != nil {
			s.log.Warn("object storage upload failed", "source_id", src.ID, "err", upErr)
		} else {
			src.StorageURL = &storageURL
		}
	}

	return s.createRecords(ctx, src, []models.SourceText{{
		ID:       uuid.NewString(),
		OwnerID:  ownerID,
		SourceID: src.ID,
		Ordinal:  0,
		Text:     res.Text,
	}}, summary, res.PageCount)
}

// updateExistingPDF refreshes a deduplicated source: the ordinal-0 segment
// is rewritten only when the extracted text actually changed, and the note
// is upserted with the new summary, title and model.
func (s *IngestService) updateExistingPDF(ctx context.Context, ownerID string, existing *models.Source, res *extract.PDFResult, summary, noteTitle string) (*IngestResult, error) {
	seg, err := s.db.GetSourceTextByOrdinal(ctx, existing.ID, 0)
	if err != nil {
		return nil, persistErr(err)
	}
	switch {
	case seg == nil:
		err = s.db.CreateSourceTexts(ctx, []models.SourceText{{
			ID:       uuid.NewString(),
			OwnerID:  ownerID,
			SourceID: existing.ID,
			Ordinal:  0,
			Text:     res.Text,
		}})
	case seg.Text != res.Text:
		err = s.db.UpdateSourceTextContent(ctx, seg.ID, res.Text)
	}
	if err != nil {
		return nil, persistErr(err)
	}

	note := &models.Note{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		SourceID:  existing.ID,
		Title:     noteTitle,
		SummaryMd: summary,
		Model:     s.summarizer.Model(),
	}
	if err := s.db.UpsertNote(ctx, note); err != nil {
		return nil, persistErr(err)
	}

	s.enqueue(existing.ID)
	return &IngestResult{
		SourceID:  existing.ID,
		NoteID:    note.ID,
		Summary:   summary,
		PageCount: res.PageCount,
	}, nil
}

// createRecords persists a fresh source, its text segments and its note,
// deriving the note title from the summary. Each creation step commits
// independently; rollback of partial state is intentionally not attempted.
func (s *IngestService) createRecords(ctx context.Context, src *models.Source, texts []models.SourceText, summary string, pageCount int) (*IngestResult, error) {
	if err := s.db.CreateSource(ctx, src); err != nil {
		return nil, persistErr(err)
	}
	if err := s.db.CreateSourceTexts(ctx, texts); err != nil {
		return nil, persistErr(err)
	}

	note := &models.Note{
		ID:        uuid.NewString(),
		OwnerID:   src.OwnerID,
		SourceID:  src.ID,
		Title:     summarize.TitleFromSummary(summary),
		SummaryMd: summary,
		Model:     s.summarizer.Model(),
	}
	if err := s.db.UpsertNote(ctx, note); err != nil {
		return nil, persistErr(err)
	}

	s.enqueue(src.ID)
	return &IngestResult{
		SourceID:  src.ID,
		NoteID:    note.ID,
		Summary:   summary,
		PageCount: pageCount,
	}, nil
}

func (s *IngestService) enqueue(sourceID string) {
	if s.indexer != nil {
		s.indexer.Enqueue(sourceID)
	}
}

func requireOwner(ownerID string) error {
	if ownerID == "" {
		return core.Errf(core.KindUnauthenticated, nil, "Unauthorized")
	}
	return nil
}

// persistErr classifies store failures, passing already-classified
// conflicts through untouched.
func persistErr(err error) error {
	if core.KindOf(err) != core.KindUnexpected {
		return err
	}
	return core.Errf(core.KindPersistence, err, "Failed to save note to database. Please try again.")
}

func validateWebURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", core.Errf(core.KindInvalid, nil, "URL is required and cannot be empty.")
	}
	u, err := url.Parse(trimmed)
	if err != nil || u.Scheme == "" {
		return "", core.Errf(core.KindInvalid, nil, "Invalid URL format. Please provide a valid URL.")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", core.Errf(core.KindInvalid, nil, "URL must use http:// or https:// protocol.")
	}
	if u.Host == "" {
		return "", core.Errf(core.KindInvalid, nil, "Invalid URL format. Please provide a valid URL.")
	}
	return u.String(), nil
}

func mediaType(contentType string) string {
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}
