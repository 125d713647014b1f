package persist

import (
	"strings"
	"unicode"

	"github.com/google/uuid"
)

const maxDocumentIDLen = 64

// DocumentID derives a deterministic document identifier from a canonical
// key: letters (diacritics included) and digits survive, everything else
// becomes a single separator, and the result is capped. Deterministic ids
// make concurrent writers of the same key *likely* to address the same
// document; the sweeper remains the authority when they don't.
func DocumentID(key string) string {
	var b strings.Builder
	b.Grow(len(key))

	lastSep := true
	for _, r := range strings.ToLower(key) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastSep = false
			continue
		}
		if !lastSep {
			b.WriteRune('-')
			lastSep = true
		}
	}

	id := strings.Trim(b.String(), "-")
	if runes := []rune(id); len(runes) > maxDocumentIDLen {
		id = strings.Trim(string(runes[:maxDocumentIDLen]), "-")
	}
	if id == "" {
		return uuid.NewString()
	}
	return id
}
