package extract

import (
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/eric-nichols-nyc/recall-api/internal/core"
)

var (
	videoIDPattern    = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)
	youtubeURLPattern = regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/|youtube\.com/embed/|youtube\.com/v/)([a-zA-Z0-9_-]{11})`)

	// captionTracks appears inside the watch page's embedded player response.
	captionTrackPattern = regexp.MustCompile(`"captionTracks":\[\{"baseUrl":"([^"]+)"`)
)

// VideoID extracts a YouTube video ID from a URL or returns the ID if
// already provided as a bare 11-character identifier.
func VideoID(urlOrID string) (string, bool) {
	trimmed := strings.TrimSpace(urlOrID)

	if videoIDPattern.MatchString(trimmed) {
		return trimmed, true
	}

	if m := youtubeURLPattern.FindStringSubmatch(trimmed); m != nil {
		return m[1], true
	}

	return "", false
}

// WatchURL returns the canonical watch URL for a video ID.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

// JoinTranscript produces the plain-text form of a transcript: segment
// texts space-joined in order.
func JoinTranscript(segments []core.TranscriptSegment) string {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		parts = append(parts, seg.Text)
	}
	return strings.Join(parts, " ")
}

// YouTubeTranscriptFetcher retrieves caption transcripts by scraping the
// caption track reference off the video's watch page and fetching the
// timedtext XML it points at.
type YouTubeTranscriptFetcher struct {
	baseURL string
	client  *http.Client
}

func NewYouTubeTranscriptFetcher(baseURL string) *YouTubeTranscriptFetcher {
	if baseURL == "" {
		baseURL = "https://www.youtube.com"
	}
	return &YouTubeTranscriptFetcher{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type timedTextDoc struct {
	Texts []timedText `xml:"text"`
}

type timedText struct {
	Start string `xml:"start,attr"`
	Dur   string `xml:"dur,attr"`
	Body  string `xml:",chardata"`
}

func (f *YouTubeTranscriptFetcher) FetchTranscript(ctx context.Context, videoID string) ([]core.TranscriptSegment, error) {
	page, err := f.fetch(ctx, f.baseURL+"/watch?v="+videoID)
	if err != nil {
		return nil, core.Errf(core.KindExtraction, err, "Failed to fetch transcript. Please try again later.")
	}

	if strings.Contains(page, `"status":"LOGIN_REQUIRED"`) || strings.Contains(page, `"status":"ERROR"`) {
		return nil, core.Errf(core.KindExtraction, nil,
			"Video is private or unavailable. Please check the video URL.")
	}

	m := captionTrackPattern.FindStringSubmatch(page)
	if m == nil {
		return nil, core.Errf(core.KindExtraction, nil,
			"Transcript is not available for this video. The video may not have captions enabled.")
	}

	// The baseUrl is JSON-embedded, with ampersands escaped as \u0026.
	trackURL := strings.ReplaceAll(m[1], `\u0026`, "&")
	trackURL = strings.ReplaceAll(trackURL, "&amp;", "&")
	body, err := f.fetch(ctx, trackURL)
	if err != nil {
		return nil, core.Errf(core.KindExtraction, err, "Failed to fetch transcript. Please try again later.")
	}

	segments, err := parseTimedText(body)
	if err != nil {
		return nil, core.Errf(core.KindExtraction, err, "Failed to fetch transcript. Please try again later.")
	}
	if len(segments) == 0 {
		return nil, core.Errf(core.KindExtraction, nil,
			"Transcript is not available for this video. The video may not have captions enabled.")
	}
	return segments, nil
}

func (f *YouTubeTranscriptFetcher) fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept-Language", "en-US,en")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// parseTimedText converts timedtext XML into transcript segments with
// millisecond offsets.
func parseTimedText(raw string) ([]core.TranscriptSegment, error) {
	var doc timedTextDoc
	if err := xml.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("parse timedtext: %w", err)
	}

	segments := make([]core.TranscriptSegment, 0, len(doc.Texts))
	for _, t := range doc.Texts {
		text := strings.TrimSpace(html.UnescapeString(t.Body))
		if text == "" {
			continue
		}
		start, _ := strconv.ParseFloat(t.Start, 64)
		dur, _ := strconv.ParseFloat(t.Dur, 64)
		segments = append(segments, core.TranscriptSegment{
			Text:       text,
			OffsetMs:   int(start * 1000),
			DurationMs: int(dur * 1000),
		})
	}
	return segments, nil
}

var _ core.TranscriptFetcher = (*YouTubeTranscriptFetcher)(nil)
