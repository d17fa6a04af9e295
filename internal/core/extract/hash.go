package extract

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint computes the content hash used for deduplication. It digests
// the raw uploaded bytes, not the extracted text, so byte-identical
// re-uploads are recognized even if extraction output were to vary.
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
