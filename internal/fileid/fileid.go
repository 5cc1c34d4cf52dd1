// Package fileid derives stable document IDs from file paths.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
)

// ForPath returns a stable document ID for a file path. The same path
// always maps to the same ID, so re-ingesting a directory updates
// documents in place instead of duplicating them.
func ForPath(path string) string {
	sum := sha256.Sum256([]byte(path))
	return "file:" + hex.EncodeToString(sum[:16])
}
