package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	middleware "github.com/eric-nichols-nyc/recall-api/internal/api/middlewares"
	db "github.com/eric-nichols-nyc/recall-api/internal/core/database"
	"github.com/eric-nichols-nyc/recall-api/internal/models"
)

type fakeEmbed struct {
	err error
}

func (f *fakeEmbed) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func seedChunkedSource(t *testing.T, store *db.MemoryClient, ownerID, sourceID string) {
	t.Helper()
	require.NoError(t, store.CreateSource(context.Background(), &models.Source{
		ID: sourceID, OwnerID: ownerID, Type: models.SourceTypePDF,
	}))
	require.NoError(t, store.InsertSourceChunks(context.Background(), []models.SourceChunk{
		{ID: "c1", OwnerID: ownerID, SourceID: sourceID, Position: 0, Text: "revenue grew 20 percent", Embedding: []float32{1, 0, 0}},
		{ID: "c2", OwnerID: ownerID, SourceID: sourceID, Position: 1, Text: "costs were flat", Embedding: []float32{0, 1, 0}},
	}))
}

func doChat(t *testing.T, h *ChatHandler, userID, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/chat/query", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req = req.WithContext(middleware.WithUserID(req.Context(), userID))
	}
	rec := httptest.NewRecorder()
	h.QuerySource(rec, req)
	return rec
}

func TestQuerySource(t *testing.T) {
	store := db.NewMemoryClient()
	seedChunkedSource(t, store, "owner-1", "src-1")
	h := NewChatHandler(store, &fakeEmbed{}, &fakeGen{resp: "Revenue grew by 20%."})

	rec := doChat(t, h, "owner-1", `{"sourceId":"src-1","query":"how did revenue do?"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Revenue grew by 20%.", resp["answer"])
}

func TestQuerySource_EmptyQuery(t *testing.T) {
	h := NewChatHandler(db.NewMemoryClient(), &fakeEmbed{}, &fakeGen{resp: "x"})

	rec := doChat(t, h, "owner-1", `{"sourceId":"src-1","query":"  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQuerySource_NotFound(t *testing.T) {
	h := NewChatHandler(db.NewMemoryClient(), &fakeEmbed{}, &fakeGen{resp: "x"})

	rec := doChat(t, h, "owner-1", `{"sourceId":"missing","query":"anything"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Source not found."}`, rec.Body.String())
}

func TestQuerySource_Forbidden(t *testing.T) {
	store := db.NewMemoryClient()
	seedChunkedSource(t, store, "owner-1", "src-1")
	h := NewChatHandler(store, &fakeEmbed{}, &fakeGen{resp: "x"})

	rec := doChat(t, h, "owner-2", `{"sourceId":"src-1","query":"anything"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"Unauthorized to access this source."}`, rec.Body.String())
}

func TestQuerySource_Unauthenticated(t *testing.T) {
	h := NewChatHandler(db.NewMemoryClient(), &fakeEmbed{}, &fakeGen{resp: "x"})

	rec := doChat(t, h, "", `{"sourceId":"src-1","query":"anything"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
