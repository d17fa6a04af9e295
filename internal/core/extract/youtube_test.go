package extract

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eric-nichols-nyc/recall-api/internal/core"
)

func TestVideoID(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://www.youtube.com/v/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"  https://youtu.be/dQw4w9WgXcQ  ", "dQw4w9WgXcQ", true},
		{"not-a-valid-url", "", false},
		{"https://vimeo.com/12345", "", false},
		{"", "", false},
		{"shortid", "", false},
	}
	for _, tc := range tests {
		got, ok := VideoID(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestWatchURL(t *testing.T) {
	assert.Equal(t, "https://www.youtube.com/watch?v=dQw4w9WgXcQ", WatchURL("dQw4w9WgXcQ"))
}

func TestJoinTranscript(t *testing.T) {
	segs := []core.TranscriptSegment{
		{Text: "hello"},
		{Text: "world"},
		{Text: "again"},
	}
	assert.Equal(t, "hello world again", JoinTranscript(segs))
	assert.Equal(t, "", JoinTranscript(nil))
}

func TestParseTimedText(t *testing.T) {
	raw := `<?xml version="1.0" encoding="utf-8"?>
<transcript>
  <text start="0.5" dur="2.1">first &amp; foremost</text>
  <text start="2.6" dur="1.0">   </text>
  <text start="3.6" dur="4.25">second line</text>
</transcript>`

	segs, err := parseTimedText(raw)
	require.NoError(t, err)
	require.Len(t, segs, 2)

	assert.Equal(t, "first & foremost", segs[0].Text)
	assert.Equal(t, 500, segs[0].OffsetMs)
	assert.Equal(t, 2100, segs[0].DurationMs)

	assert.Equal(t, "second line", segs[1].Text)
	assert.Equal(t, 3600, segs[1].OffsetMs)
	assert.Equal(t, 4250, segs[1].DurationMs)
}

func TestParseTimedText_Invalid(t *testing.T) {
	_, err := parseTimedText("not xml at all <<<")
	assert.Error(t, err)
}

func TestFetchTranscript(t *testing.T) {
	var gotTrackQuery url.Values

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/watch", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "dQw4w9WgXcQ", r.URL.Query().Get("v"))
		// Ampersands in the embedded baseUrl arrive as the literal
		// six-character sequence &, exactly as the watch page
		// serializes them.
		fmt.Fprintf(w,
			`{"playabilityStatus":{"status":"OK"},"captions":{"captionTracks":[{"baseUrl":"%s/api/timedtext?v=dQw4w9WgXcQ&lang=en&fmt=srv1"}]}}`,
			srv.URL)
	})
	mux.HandleFunc("/api/timedtext", func(w http.ResponseWriter, r *http.Request) {
		gotTrackQuery = r.URL.Query()
		fmt.Fprint(w, `<transcript><text start="0.5" dur="2">hello there</text><text start="2.5" dur="3">general remarks</text></transcript>`)
	})

	f := NewYouTubeTranscriptFetcher(srv.URL)
	segs, err := f.FetchTranscript(context.Background(), "dQw4w9WgXcQ")
	require.NoError(t, err)
	require.Len(t, segs, 2)
	assert.Equal(t, "hello there", segs[0].Text)
	assert.Equal(t, 500, segs[0].OffsetMs)
	assert.Equal(t, "general remarks", segs[1].Text)

	// The track URL's parameters must arrive as separate query values,
	// which only happens if the & separators were unescaped.
	require.NotNil(t, gotTrackQuery)
	assert.Equal(t, "dQw4w9WgXcQ", gotTrackQuery.Get("v"))
	assert.Equal(t, "en", gotTrackQuery.Get("lang"))
	assert.Equal(t, "srv1", gotTrackQuery.Get("fmt"))
}

func TestFetchTranscript_NoCaptions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"playabilityStatus":{"status":"OK"}}`)
	}))
	defer srv.Close()

	f := NewYouTubeTranscriptFetcher(srv.URL)
	_, err := f.FetchTranscript(context.Background(), "dQw4w9WgXcQ")
	require.Error(t, err)
	assert.Equal(t, core.KindExtraction, core.KindOf(err))
	assert.Equal(t,
		"Transcript is not available for this video. The video may not have captions enabled.",
		core.Message(err))
}

func TestFetchTranscript_PrivateVideo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"playabilityStatus":{"status":"LOGIN_REQUIRED"}}`)
	}))
	defer srv.Close()

	f := NewYouTubeTranscriptFetcher(srv.URL)
	_, err := f.FetchTranscript(context.Background(), "dQw4w9WgXcQ")
	require.Error(t, err)
	assert.Equal(t,
		"Video is private or unavailable. Please check the video URL.",
		core.Message(err))
}
