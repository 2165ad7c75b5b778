// Package checksum fingerprints document content. The index uses the digest
// to detect changed vault files during sync, and the API uses it as the
// If-Match concurrency token.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
