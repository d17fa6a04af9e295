package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eric-nichols-nyc/recall-api/internal/core"
)

func TestPDF_QuotedRunRecovery(t *testing.T) {
	// Structurally broken document: the converters fail, but the literal
	// string scan still recovers readable runs.
	data := []byte("%PDF-1.4\n1 0 obj\n<< /Type /Page >>\nBT (Recovered text from a malformed document) Tj ET\nendobj")

	res, err := PDF(data)
	require.NoError(t, err)
	assert.Contains(t, res.Text, "Recovered text from a malformed document")
}

func TestPDF_AllMethodsFail(t *testing.T) {
	// No PDF structure and no quoted runs long enough to recover.
	_, err := PDF([]byte("%PDF-1.4\nbinary(garb)age\x00\x01\x02"))
	require.Error(t, err)
	assert.Equal(t, core.KindExtraction, core.KindOf(err))
	assert.Equal(t,
		"Could not extract text from this PDF. It may be image-based, encrypted, or use an unsupported structure.",
		core.Message(err))
}

func TestPDF_Empty(t *testing.T) {
	_, err := PDF(nil)
	require.Error(t, err)
	assert.Equal(t, core.KindInvalid, core.KindOf(err))
}

func TestText(t *testing.T) {
	got, err := Text("  hello world  ")
	require.NoError(t, err)
	assert.Equal(t, "hello world", got)

	_, err = Text("   ")
	require.Error(t, err)
	assert.Equal(t, core.KindInvalid, core.KindOf(err))
	assert.Equal(t, "Text is required and cannot be empty.", core.Message(err))
}
