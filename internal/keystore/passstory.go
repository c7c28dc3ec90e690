package keystore

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// PassStorySlots is the number of words in a pass-story (spec.md §6): a
// human-memorable alternative to a passphrase.
const PassStorySlots = 23

// NormalizePassStory NFC-normalizes, lowercases, and collapses internal
// whitespace in each word before joining the story with single spaces.
// This makes key derivation tolerant of superficial differences in how a
// story is typed or copy-pasted (extra spaces, a different Unicode
// decomposition, mixed case) while still deriving the exact same key for
// the exact same story.
func NormalizePassStory(words []string) (string, error) {
	if len(words) != PassStorySlots {
		return "", fmt.Errorf("keystore: pass-story must have %d words, got %d", PassStorySlots, len(words))
	}
	normalized := make([]string, len(words))
	for i, w := range words {
		w = norm.NFC.String(w)
		w = strings.ToLower(w)
		w = collapseWhitespace(w)
		if w == "" {
			return "", fmt.Errorf("keystore: pass-story word %d is empty", i+1)
		}
		normalized[i] = w
	}
	return strings.Join(normalized, " "), nil
}

func collapseWhitespace(s string) string {
	fields := strings.FieldsFunc(s, unicode.IsSpace)
	return strings.Join(fields, " ")
}
