package extract

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"code.sajari.com/docconv"
	"github.com/ledongthuc/pdf"

	"github.com/eric-nichols-nyc/recall-api/internal/core"
)

const (
	// Sanity ceiling on extracted text: malformed PDFs can report absurd
	// sizes and a conversion result past this is garbage, not content.
	maxSanePDFChars = 50_000_000
	maxSanePDFPages = 50_000
)

// quotedRunPattern matches runs of at least 10 alphanumeric/space characters
// inside PDF literal strings. Last-resort recovery for documents whose
// structure neither converter understands.
var quotedRunPattern = regexp.MustCompile(`\(([A-Za-z0-9 ]{10,})\)`)

// PDFResult is the outcome of PDF text extraction.
type PDFResult struct {
	Text      string
	PageCount int
}

// PDF extracts text from raw PDF bytes. Three strategies are tried in fixed
// order, first non-empty result wins:
//
//  1. docconv structured text conversion
//  2. page/field tree reconstruction (all text leaves plus form field values)
//  3. quoted-run scan over the raw byte serialization
//
// The underlying parsers panic on some malformed documents; each strategy is
// run recovered so a crash in method N simply falls through to method N+1.
func PDF(data []byte) (*PDFResult, error) {
	if len(data) == 0 {
		return nil, core.Errf(core.KindInvalid, nil, "A PDF file is required.")
	}

	reader := openReader(data)
	pageCount := safePageCount(reader)

	methods := []func() (string, error){
		func() (string, error) { return docconvText(data) },
		func() (string, error) { return pageTreeText(reader, pageCount) },
		func() (string, error) { return quotedRunText(data) },
	}

	for _, method := range methods {
		text, err := runRecovered(method)
		if err != nil {
			continue
		}
		if t := strings.TrimSpace(text); t != "" {
			return &PDFResult{Text: t, PageCount: pageCount}, nil
		}
	}

	return nil, core.Errf(core.KindExtraction, nil,
		"Could not extract text from this PDF. It may be image-based, encrypted, or use an unsupported structure.")
}

// runRecovered executes one extraction strategy, converting panics from the
// underlying parser into ordinary failures.
func runRecovered(fn func() (string, error)) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf extraction panicked: %v", r)
		}
	}()
	return fn()
}

func openReader(data []byte) (r *pdf.Reader) {
	defer func() {
		if rec := recover(); rec != nil {
			r = nil
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil
	}
	return r
}

// safePageCount guards against parsers reporting malformed page counts.
func safePageCount(r *pdf.Reader) (n int) {
	defer func() {
		if rec := recover(); rec != nil {
			n = 0
		}
	}()
	if r == nil {
		return 0
	}
	np := r.NumPage()
	if np < 0 || np > maxSanePDFPages {
		return 0
	}
	return np
}

// docconvText is the primary structured-text accessor.
func docconvText(data []byte) (string, error) {
	res, err := docconv.Convert(bytes.NewReader(data), "application/pdf", false)
	if err != nil {
		return "", fmt.Errorf("docconv: %w", err)
	}
	if len(res.Body) > maxSanePDFChars {
		return "", fmt.Errorf("docconv: implausible text size %d", len(res.Body))
	}
	return res.Body, nil
}

// pageTreeText reconstructs text from the parsed page tree: every text leaf
// on every page, plus any AcroForm field values.
func pageTreeText(r *pdf.Reader, pageCount int) (string, error) {
	if r == nil || pageCount == 0 {
		return "", fmt.Errorf("pdf reader unavailable")
	}

	var sb strings.Builder
	for i := 1; i <= pageCount; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText := leafText(page)
		if pageText == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(pageText)
	}

	fields := r.Trailer().Key("Root").Key("AcroForm").Key("Fields")
	if fields.Kind() == pdf.Array {
		for i := 0; i < fields.Len(); i++ {
			v := fields.Index(i).Key("V")
			if v.Kind() != pdf.String {
				continue
			}
			if s := strings.TrimSpace(v.Text()); s != "" {
				if sb.Len() > 0 {
					sb.WriteString("\n")
				}
				sb.WriteString(s)
			}
		}
	}

	return sb.String(), nil
}

// leafText concatenates a page's positioned text spans. A page that panics
// mid-walk contributes whatever was collected before the crash.
func leafText(page pdf.Page) (out string) {
	var sb strings.Builder
	defer func() {
		if rec := recover(); rec != nil {
			out = sb.String()
		}
	}()
	content := page.Content()
	for _, span := range content.Text {
		if span.S == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(span.S)
	}
	return sb.String()
}

// quotedRunText scans the raw serialization for quoted character runs.
func quotedRunText(data []byte) (string, error) {
	matches := quotedRunPattern.FindAllSubmatch(data, -1)
	if len(matches) == 0 {
		return "", fmt.Errorf("no quoted runs found")
	}
	parts := make([]string, 0, len(matches))
	for _, m := range matches {
		parts = append(parts, string(m[1]))
	}
	return strings.Join(parts, " "), nil
}
