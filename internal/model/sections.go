package model

import "fmt"

// Fixed section keys (spec §4.3). Custom sections are custom_1..custom_5.
const (
	SectionTrendingUnread  = "trending_unread"
	SectionLongRead        = "long_read"
	SectionClassifierMatch = "classifier_match"
	SectionFollowUp        = "follow_up"
	SectionTrendingGlobal  = "trending_global"
	SectionDuplicates      = "duplicates"
	SectionQuickCatchup    = "quick_catchup"
	SectionEmergingTopics  = "emerging_topics"
	SectionContrarianViews = "contrarian_views"

	// DefaultSection is always retained as a fallback (spec §3 invariant).
	DefaultSection = SectionTrendingGlobal

	MaxCustomSections = 5
)

var fixedSectionKeys = map[string]bool{
	SectionTrendingUnread:  true,
	SectionLongRead:        true,
	SectionClassifierMatch: true,
	SectionFollowUp:        true,
	SectionTrendingGlobal:  true,
	SectionDuplicates:      true,
	SectionQuickCatchup:    true,
	SectionEmergingTopics:  true,
	SectionContrarianViews: true,
}

// CustomSectionKey returns "custom_<n>" for n in [1, MaxCustomSections].
func CustomSectionKey(n int) string {
	return fmt.Sprintf("custom_%d", n)
}

// IsValidSectionKey reports whether key is one of the fixed section
// keys or a custom_1..custom_5 key.
func IsValidSectionKey(key string) bool {
	if fixedSectionKeys[key] {
		return true
	}
	for n := 1; n <= MaxCustomSections; n++ {
		if key == CustomSectionKey(n) {
			return true
		}
	}
	return false
}

// DefaultSectionToggles returns every fixed section enabled. Custom
// sections get no toggle here, so they stay off until a toggle is set
// for them and a prompt is configured.
func DefaultSectionToggles() map[string]bool {
	toggles := make(map[string]bool, len(fixedSectionKeys))
	for k := range fixedSectionKeys {
		toggles[k] = true
	}
	return toggles
}
