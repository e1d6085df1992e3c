package util

import (
	"crypto/sha256"
	"fmt"
)

// HashContent returns the SHA256 hex digest of the given clipboard content.
// The hash depends on the content only, never on timestamps, so two entries
// holding the same text always carry the same hash.
func HashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return fmt.Sprintf("%x", sum)
}
