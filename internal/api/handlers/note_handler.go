package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	middleware "github.com/eric-nichols-nyc/recall-api/internal/api/middlewares"
	"github.com/eric-nichols-nyc/recall-api/internal/core"
	"github.com/eric-nichols-nyc/recall-api/internal/services"
)

// maxUploadBytes bounds multipart parsing; the service enforces the
// user-facing 10MB cap with its own message.
const maxUploadBytes = 11 << 20

type NoteHandler struct {
	ingest *services.IngestService
	notes  *services.NoteService
}

func NewNoteHandler(ingest *services.IngestService, notes *services.NoteService) *NoteHandler {
	return &NoteHandler{ingest: ingest, notes: notes}
}

type textRequest struct {
	Text string `json:"text"`
}

type urlRequest struct {
	URL string `json:"url"`
}

// noteResponse is returned by the text, web and transcript paths.
type noteResponse struct {
	NoteID   string `json:"noteId"`
	SourceID string `json:"sourceId"`
	Summary  string `json:"summary"`
}

// uploadResponse is returned by the PDF path.
type uploadResponse struct {
	Summary    string `json:"summary"`
	SummaryID  string `json:"summaryId"`
	DocumentID string `json:"documentId"`
	PageCount  int    `json:"pageCount,omitempty"`
}

// CreateFromText summarizes pasted text into a note.
func (h *NoteHandler) CreateFromText(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, core.Errf(core.KindUnauthenticated, nil, "Unauthorized"))
		return
	}

	var req textRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "Invalid request body.")
		return
	}

	res, err := h.ingest.IngestText(r.Context(), userID, req.Text)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, noteResponse{NoteID: res.NoteID, SourceID: res.SourceID, Summary: res.Summary})
}

// CreateFromWeb scrapes a URL and summarizes it into a note.
func (h *NoteHandler) CreateFromWeb(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, core.Errf(core.KindUnauthenticated, nil, "Unauthorized"))
		return
	}

	var req urlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "Invalid request body.")
		return
	}

	res, err := h.ingest.IngestWeb(r.Context(), userID, req.URL)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, noteResponse{NoteID: res.NoteID, SourceID: res.SourceID, Summary: res.Summary})
}

// CreateFromYouTube fetches a video transcript and summarizes it into a note.
func (h *NoteHandler) CreateFromYouTube(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, core.Errf(core.KindUnauthenticated, nil, "Unauthorized"))
		return
	}

	var req urlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "Invalid request body.")
		return
	}

	res, err := h.ingest.IngestYouTube(r.Context(), userID, req.URL)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, noteResponse{NoteID: res.NoteID, SourceID: res.SourceID, Summary: res.Summary})
}

// UploadPDF handles a multipart PDF upload: extract, dedup, summarize, persist.
func (h *NoteHandler) UploadPDF(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, core.Errf(core.KindUnauthenticated, nil, "Unauthorized"))
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeBadRequest(w, "Invalid multipart form.")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, core.Errf(core.KindInvalid, err, "A PDF file is required."))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		writeError(w, core.Errf(core.KindUnexpected, err, "failed to read upload"))
		return
	}

	up := &services.PDFUpload{
		Filename:     filepath.Base(header.Filename),
		ContentType:  header.Header.Get("Content-Type"),
		Data:         data,
		Instructions: r.FormValue("instructions"),
		Title:        r.FormValue("title"),
	}

	res, err := h.ingest.IngestPDF(r.Context(), userID, up)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, uploadResponse{
		Summary:    res.Summary,
		SummaryID:  res.NoteID,
		DocumentID: res.SourceID,
		PageCount:  res.PageCount,
	})
}

// ListSummaries returns the owner's notes, newest first.
func (h *NoteHandler) ListSummaries(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, core.Errf(core.KindUnauthenticated, nil, "Unauthorized"))
		return
	}

	items, err := h.notes.ListSummaries(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"summaries": items})
}

// GetNote returns a single note by its source ID.
func (h *NoteHandler) GetNote(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, core.Errf(core.KindUnauthenticated, nil, "Unauthorized"))
		return
	}

	sourceID := chi.URLParam(r, "id")
	detail, err := h.notes.GetBySourceID(r.Context(), userID, sourceID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}
