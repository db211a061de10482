package ids

import (
	"crypto/sha256"
	"encoding/base32"
	"strconv"
	"strings"
	"time"
)

// DefaultLength is the standard length for generated IDs.
const DefaultLength = 8

var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// Generate creates a deterministic, lowercase base32 ID derived from input.
// Length is capped at the encoded digest length.
func Generate(input string, length int) string {
	if length <= 0 {
		return ""
	}
	hash := sha256.Sum256([]byte(input))
	encoded := strings.ToLower(encoding.EncodeToString(hash[:]))
	return encoded[:min(length, len(encoded))]
}

// ForDocument returns the attempt-th candidate id for a document with the
// given content created by userID at created. Callers try successive
// attempts until they find an unused id.
func ForDocument(userID, content string, created time.Time, attempt int) string {
	input := strings.Join([]string{
		userID,
		content,
		created.UTC().Format(time.RFC3339Nano),
		strconv.Itoa(attempt),
	}, "\x00")
	return Generate(input, DefaultLength)
}
