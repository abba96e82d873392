// Package mention extracts @-mentions from message text. The scan is a pure
// function over the text and the set of currently known display names, so it
// carries no storage or transport coupling.
package mention

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Extract returns the display names mentioned in text, resolved against the
// known-name set. Matching is case-insensitive and prefers the longest known
// name at each @ position (display names may contain spaces). Tokens that
// match no known name are left as literal text and simply not returned.
// Results keep the casing of the known set and are deduplicated.
func Extract(text string, known []string) []string {
	if text == "" || len(known) == 0 {
		return nil
	}

	// Longest first so "ana maria" wins over "ana" at the same position.
	candidates := make([]string, len(known))
	copy(candidates, known)
	sort.Slice(candidates, func(i, j int) bool {
		return len(candidates[i]) > len(candidates[j])
	})

	lower := strings.ToLower(text)
	seen := make(map[string]struct{})
	var out []string

	for i := 0; i < len(lower); i++ {
		if lower[i] != '@' {
			continue
		}
		// An @ inside a word (e.g. an e-mail address) is not a mention.
		if i > 0 {
			prev, _ := utf8.DecodeLastRuneInString(lower[:i])
			if !isBoundary(prev) {
				continue
			}
		}
		rest := lower[i+1:]
		for _, name := range candidates {
			if name == "" {
				continue
			}
			ln := strings.ToLower(name)
			if !strings.HasPrefix(rest, ln) {
				continue
			}
			if len(rest) > len(ln) {
				next, _ := utf8.DecodeRuneInString(rest[len(ln):])
				if !isBoundary(next) {
					continue
				}
			}
			if _, dup := seen[ln]; !dup {
				seen[ln] = struct{}{}
				out = append(out, name)
			}
			i += len(ln)
			break
		}
	}
	return out
}

func isBoundary(r rune) bool {
	return unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r)
}
