// Package sections implements the Section Processor: enforcing the
// briefing HTML section contract on an LLM's raw output (spec §4.4).
// It normalizes and validates section keys, extracts section-keyed
// HTML blocks, filters disabled sections, and embeds icons and
// email-safe inline styling.
package sections

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/newsbrief/engine/internal/model"
)

// FilterMode selects between the two documented behaviors of
// filterDisabledSections (spec §9 Open Question): whether the default
// section is retained unconditionally, or only via the "nothing
// survives filtering" fallback. Both are implemented and tested; the
// default mode follows spec §4.4's prose.
type FilterMode int

const (
	// FilterKeepDefault always retains the default section (spec §4.4:
	// "the default trending_global is always retained even if false").
	FilterKeepDefault FilterMode = iota
	// FilterStrict drops every disabled section including the default;
	// the original document is returned unfiltered only if the result
	// would otherwise be empty.
	FilterStrict
)

const wrapperClass = "NB-briefing-summary"

var headerRe = regexp.MustCompile(`(?is)<h3\b([^>]*)>`)
var dataSectionRe = regexp.MustCompile(`(?is)data-section\s*=\s*"([^"]*)"`)
var storyHashRe = regexp.MustCompile(`(?is)data-story-hash\s*=\s*"([^"]*)"`)
var trailingDivRe = regexp.MustCompile(`(?is)</div>\s*$`)
var fuzzySepRe = regexp.MustCompile(`[_\-\s]+`)

// NormalizeSectionKey lowercases, trims, replaces hyphens with
// underscores, collapses consecutive underscores, strips leading and
// trailing underscores, then fuzzy-matches by stripping separators
// entirely against the valid key set. Returns "" if no valid key
// matches (spec §4.4 "Key normalization").
func NormalizeSectionKey(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.ReplaceAll(key, "-", "_")
	for strings.Contains(key, "__") {
		key = strings.ReplaceAll(key, "__", "_")
	}
	key = strings.Trim(key, "_")
	if model.IsValidSectionKey(key) {
		return key
	}

	fuzzy := fuzzySepRe.ReplaceAllString(key, "")
	for _, candidate := range allValidKeys() {
		if fuzzySepRe.ReplaceAllString(candidate, "") == fuzzy {
			return candidate
		}
	}
	return ""
}

func allValidKeys() []string {
	keys := []string{
		model.SectionTrendingUnread, model.SectionLongRead, model.SectionClassifierMatch,
		model.SectionFollowUp, model.SectionTrendingGlobal, model.SectionDuplicates,
		model.SectionQuickCatchup, model.SectionEmergingTopics, model.SectionContrarianViews,
	}
	for n := 1; n <= model.MaxCustomSections; n++ {
		keys = append(keys, model.CustomSectionKey(n))
	}
	return keys
}

// Section is one extracted, validated block of the briefing document.
type Section struct {
	Key   string
	Body  string // rewrapped in its own NB-briefing-summary div
	Hashes []string
}

// ExtractSectionSummaries splits html on <h3 …data-section="KEY"…>
// headers (attribute order tolerant), validates/normalizes each key,
// drops blocks whose key doesn't resolve, strips a trailing </div>
// that closes the outer wrapper, and rewraps each surviving block
// (spec §4.4 "Extraction"). Returns sections in document order.
func ExtractSectionSummaries(html string) []Section {
	headerMatches := headerRe.FindAllStringSubmatchIndex(html, -1)
	if len(headerMatches) == 0 {
		return nil
	}

	var out []Section
	for i, m := range headerMatches {
		headerStart, headerEnd := m[0], m[1]
		attrs := html[m[2]:m[3]]

		var bodyEnd int
		if i+1 < len(headerMatches) {
			bodyEnd = headerMatches[i+1][0]
		} else {
			bodyEnd = len(html)
		}
		headerTag := html[headerStart:headerEnd]
		body := html[headerEnd:bodyEnd]

		secMatch := dataSectionRe.FindStringSubmatch(attrs)
		if secMatch == nil {
			continue
		}
		key := NormalizeSectionKey(secMatch[1])
		if key == "" {
			continue
		}

		if i == len(headerMatches)-1 {
			body = trailingDivRe.ReplaceAllString(body, "")
		}

		hashes := extractHashes(headerTag + body)
		out = append(out, Section{
			Key:    key,
			Body:   wrapBlock(headerTag + body),
			Hashes: hashes,
		})
	}
	return out
}

func extractHashes(block string) []string {
	matches := storyHashRe.FindAllStringSubmatch(block, -1)
	hashes := make([]string, 0, len(matches))
	for _, m := range matches {
		hashes = append(hashes, m[1])
	}
	return hashes
}

func wrapBlock(body string) string {
	return fmt.Sprintf(`<div class="%s">%s</div>`, wrapperClass, body)
}

// FilterDisabled keeps only sections whose toggle is true in active.
// Under FilterKeepDefault, the default section is retained regardless
// of its toggle. Under either mode, if filtering would empty the
// result, the original unfiltered section list is returned unchanged
// (spec §4.4 "Filter disabled sections", spec §7 invalid-output rule).
func FilterDisabled(secs []Section, active map[string]bool, mode FilterMode) []Section {
	if len(secs) == 0 {
		return secs
	}
	var kept []Section
	for _, s := range secs {
		if active[s.Key] {
			kept = append(kept, s)
			continue
		}
		if mode == FilterKeepDefault && s.Key == model.DefaultSection {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		return secs
	}
	return kept
}

// RemapDisabledToDefault rewrites each section's Hashes list into
// curatedSections under the section's own key if active, or under the
// default key otherwise — used by the Briefing Worker to build
// curated_sections with disabled-section stories folded into the
// default bucket (spec §4.5 step 7).
func RemapDisabledToDefault(secs []Section, active map[string]bool) map[string][]string {
	out := make(map[string][]string)
	for _, s := range secs {
		key := s.Key
		if !active[key] {
			key = model.DefaultSection
		}
		out[key] = append(out[key], s.Hashes...)
	}
	return out
}
