package simulator

import (
	"fmt"
	"hash/fnv"
	"strings"
	"unicode"
)

// NormalizeContent reduces text to a canonical form for repetition checks:
// lowercase, letters/digits/spaces only, single-spaced, trimmed. Two posts
// that differ only in punctuation, casing or spacing normalize identically.
func NormalizeContent(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	lastSpace := true
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r):
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// Fingerprint returns a stable identifier for normalized content, used to
// detect duplicate-content signatures across a session. FNV-1a keeps the
// fingerprint cheap and deterministic across save/load cycles.
func Fingerprint(text string) string {
	h := fnv.New64a()
	h.Write([]byte(NormalizeContent(text)))
	return fmt.Sprintf("%016x", h.Sum64())
}
