package extract

import (
	"strings"

	"github.com/eric-nichols-nyc/recall-api/internal/core"
)

// Text normalizes pasted text input: trim, reject empty.
func Text(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", core.Errf(core.KindInvalid, nil, "Text is required and cannot be empty.")
	}
	return trimmed, nil
}
