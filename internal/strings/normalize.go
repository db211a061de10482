package strings

import (
	"strings"
	"unicode"
)

// CollapseSpace trims value and replaces every interior run of whitespace,
// including newlines and tabs, with a single space.
func CollapseSpace(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	pending := false
	for _, r := range value {
		if unicode.IsSpace(r) {
			pending = b.Len() > 0
			continue
		}
		if pending {
			b.WriteByte(' ')
			pending = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Fold maps an enumeration keyword to its canonical spelling: surrounding
// whitespace dropped, lower case.
func Fold(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// IsBlank reports whether value is empty after trimming whitespace.
func IsBlank(value string) bool {
	return strings.TrimSpace(value) == ""
}

// TrimBlock converts CRLF and lone CR line endings to LF and drops trailing
// line breaks, leaving leading indentation intact.
func TrimBlock(value string) string {
	if strings.ContainsRune(value, '\r') {
		value = strings.ReplaceAll(value, "\r\n", "\n")
		value = strings.ReplaceAll(value, "\r", "\n")
	}
	return strings.TrimRight(value, "\n")
}
