package summarize

import (
	"context"
	"strings"

	"github.com/eric-nichols-nyc/recall-api/internal/core"
)

const (
	// maxContentChars bounds the content body embedded in the prompt.
	maxContentChars = 12_000
	truncationMark  = "\n\n...[truncated]"

	maxOutputTokens = 800
)

// Kind selects the prompt framing for the content being summarized.
type Kind string

const (
	KindText       Kind = "text"
	KindWeb        Kind = "web"
	KindTranscript Kind = "video transcript"
	KindDocument   Kind = "document"
)

// contentHeader labels the body section of the prompt per content kind.
var contentHeader = map[Kind]string{
	KindText:       "Document content:",
	KindWeb:        "Web content:",
	KindTranscript: "Transcript content:",
	KindDocument:   "Document content:",
}

// Request describes one summarization call.
type Request struct {
	Content      string
	Kind         Kind
	Instructions string // optional explicit user instructions
	SourceURL    string // optional source annotation
}

// Summarizer builds bounded prompts and invokes the generation service.
type Summarizer struct {
	llm   core.LLMProvider
	model string
}

func NewSummarizer(llm core.LLMProvider, model string) *Summarizer {
	return &Summarizer{llm: llm, model: model}
}

// Model reports the model identifier recorded on generated notes.
func (s *Summarizer) Model() string { return s.model }

// Summarize generates a markdown summary of the request content. Provider
// failures and empty results are both surfaced as a retryable
// service-unavailable condition, never as a silent empty summary.
func (s *Summarizer) Summarize(ctx context.Context, req Request) (string, error) {
	prompt := BuildPrompt(req)

	summary, err := s.llm.Generate(ctx, "", prompt)
	if err != nil || strings.TrimSpace(summary) == "" {
		return "", core.Errf(core.KindSummarization, err,
			"Failed to generate summary. The AI service may be unavailable. Please try again later.")
	}
	return summary, nil
}

// BuildPrompt assembles the fixed framing, optional instructions and source
// annotation, and the truncated content body.
func BuildPrompt(req Request) string {
	sections := []string{
		"You are a note-taking assistant that summarizes " + string(req.Kind) + " content.",
		"Return a concise markdown summary with headings and bullet points.",
	}
	if req.Instructions != "" {
		sections = append(sections, "Additional instructions: "+req.Instructions)
	}
	if req.SourceURL != "" {
		sections = append(sections, "Source URL: "+req.SourceURL)
	}
	sections = append(sections, contentHeader[req.Kind], TruncateContent(req.Content))
	return strings.Join(sections, "\n\n")
}

// TruncateContent cuts content to the prompt budget, appending the
// truncation marker when anything was removed. The budget counts
// characters, not bytes; cutting mid-rune would also hand the provider
// invalid UTF-8.
func TruncateContent(content string) string {
	runes := []rune(content)
	if len(runes) > maxContentChars {
		return string(runes[:maxContentChars]) + truncationMark
	}
	return content
}

// MaxOutputTokens is the fixed token budget for generated summaries.
func MaxOutputTokens() int32 { return maxOutputTokens }
