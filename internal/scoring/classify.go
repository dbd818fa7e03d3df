package scoring

import (
	"strings"

	"github.com/newsbrief/engine/internal/model"
)

// matchClassifiers returns the classifiers whose scope/value match the
// candidate story, honoring each classifier's folder restriction
// (spec §3, §4.2 step 4 "classifier matches").
func matchClassifiers(classifiers []model.Classifier, story model.Story, feedTitle, author, folder string) []model.Classifier {
	var matches []model.Classifier
	for _, c := range classifiers {
		if c.Folder != "" && c.Folder != folder {
			continue
		}
		var field string
		switch c.Scope {
		case model.ClassifierFeed:
			field = feedTitle
		case model.ClassifierAuthor:
			field = author
		case model.ClassifierTag:
			for _, tag := range story.Tags {
				if strings.EqualFold(tag, c.Value) {
					matches = append(matches, c)
				}
			}
			continue
		case model.ClassifierTitle:
			field = story.Title
		default:
			continue
		}
		if strings.Contains(strings.ToLower(field), strings.ToLower(c.Value)) {
			matches = append(matches, c)
		}
	}
	return matches
}

// matchCustomKeywordPrompt reports the 1-based index of the first
// custom-section keyword prompt that appears in the story's title or
// excerpt, or 0 if none match (spec §4.2 step 5 "custom_<n>").
func matchCustomKeywordPrompt(prompts []string, title, excerpt string) int {
	haystack := strings.ToLower(title + " " + excerpt)
	for i, p := range prompts {
		if p == "" {
			continue
		}
		if strings.Contains(haystack, strings.ToLower(p)) {
			return i + 1
		}
	}
	return 0
}

// excerptFrom truncates content to maxLen runes for keyword matching
// and prompt construction, stripping no markup (the Section Processor
// owns HTML handling).
func excerptFrom(content string, maxLen int) string {
	r := []rune(content)
	if len(r) <= maxLen {
		return string(r)
	}
	return string(r[:maxLen])
}
