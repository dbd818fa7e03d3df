package clustering

import (
	"regexp"
	"strings"
)

// MinNormalizedTitleLen is the floor below which Tier A refuses to
// treat a title as a dedup signal (spec §4.1 Tier A, §8 boundary case).
const MinNormalizedTitleLen = 10

// MinSignificantWords is the floor below which Tier B refuses to
// treat a story as having enough signal to fuzzy-match (spec §4.1
// Tier B, §8 boundary case).
const MinSignificantWords = 5

var nonWordRe = regexp.MustCompile(`[^\w]+`)
var whitespaceRe = regexp.MustCompile(`\s+`)

// NormalizeTitle lowercases, strips non-word characters, and
// collapses whitespace (spec §4.1 Tier A).
func NormalizeTitle(title string) string {
	lower := strings.ToLower(title)
	stripped := nonWordRe.ReplaceAllString(lower, " ")
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(stripped, " "))
}

// stopwords is a fixed set of common English words excluded from
// Tier B's significant-word sets.
var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "but": true,
	"not": true, "you": true, "all": true, "can": true, "her": true,
	"was": true, "one": true, "our": true, "out": true, "day": true,
	"get": true, "has": true, "him": true, "his": true, "how": true,
	"man": true, "new": true, "now": true, "old": true, "see": true,
	"two": true, "way": true, "who": true, "boy": true, "did": true,
	"its": true, "let": true, "put": true, "say": true, "she": true,
	"too": true, "use": true, "with": true, "this": true, "that": true,
	"from": true, "have": true, "will": true, "your": true, "what": true,
	"when": true, "been": true, "were": true, "they": true, "their": true,
	"than": true, "them": true, "about": true, "after": true, "into": true,
	"over": true, "more": true, "some": true, "could": true, "would": true,
	"should": true, "there": true, "these": true, "which": true, "while": true,
}

// SignificantWords returns the normalized, de-duplicated set of
// "significant" title words for Tier B: normalized, length>2, not a
// stopword.
func SignificantWords(title string) map[string]bool {
	words := strings.Fields(NormalizeTitle(title))
	out := make(map[string]bool, len(words))
	for _, w := range words {
		if len(w) <= 2 {
			continue
		}
		if stopwords[w] {
			continue
		}
		out[w] = true
	}
	return out
}

// JaccardSimilarity computes |a∩b| / |a∪b| over two word sets.
func JaccardSimilarity(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	for w := range small {
		if large[w] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
