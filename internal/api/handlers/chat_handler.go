package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	middleware "github.com/eric-nichols-nyc/recall-api/internal/api/middlewares"
	"github.com/eric-nichols-nyc/recall-api/internal/core"
)

type ChatHandler struct {
	dbclient core.DbClient
	embedder core.EmbeddingProvider
	llm      core.LLMProvider
}

func NewChatHandler(db core.DbClient, emb core.EmbeddingProvider, llm core.LLMProvider) *ChatHandler {
	return &ChatHandler{dbclient: db, embedder: emb, llm: llm}
}

type chatRequest struct {
	SourceID string `json:"sourceId"`
	Query    string `json:"query"`
}

// QuerySource answers a question grounded only in the given source's
// indexed chunks.
func (h *ChatHandler) QuerySource(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := middleware.UserID(ctx)
	if !ok {
		writeError(w, core.Errf(core.KindUnauthenticated, nil, "Unauthorized"))
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "Invalid request body.")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeBadRequest(w, "Query is required and cannot be empty.")
		return
	}

	src, err := h.dbclient.GetSourceByID(ctx, req.SourceID)
	if err != nil {
		writeError(w, core.Errf(core.KindPersistence, err, "Database error. Please try again later."))
		return
	}
	if src == nil {
		writeError(w, core.Errf(core.KindNotFound, nil, "Source not found."))
		return
	}
	if src.OwnerID != userID {
		writeError(w, core.Errf(core.KindForbidden, nil, "Unauthorized to access this source."))
		return
	}

	vecs, err := h.embedder.EmbedTexts(ctx, []string{req.Query})
	if err != nil || len(vecs) == 0 {
		writeError(w, core.Errf(core.KindSummarization, err, "Failed to process query. The AI service may be unavailable. Please try again later."))
		return
	}

	chunks, err := h.dbclient.SearchSourceChunks(ctx, userID, req.SourceID, vecs[0], 5)
	if err != nil {
		writeError(w, core.Errf(core.KindPersistence, err, "Database error. Please try again later."))
		return
	}

	var sb strings.Builder
	for _, ch := range chunks {
		sb.WriteString(ch.Text)
		sb.WriteString("\n---\n")
	}

	systemPrompt := "You are an intelligent assistant answering based only on the given source content. If unsure, say 'I cannot find this in the source.'"
	userPrompt := fmt.Sprintf("Context:\n%s\n\nQuestion: %s", sb.String(), req.Query)

	answer, err := h.llm.Generate(ctx, systemPrompt, userPrompt)
	if err != nil {
		writeError(w, core.Errf(core.KindSummarization, err, "Failed to generate answer. The AI service may be unavailable. Please try again later."))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"answer": answer})
}
