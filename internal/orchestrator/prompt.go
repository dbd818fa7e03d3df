package orchestrator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/newsbrief/engine/internal/model"
	"github.com/newsbrief/engine/internal/scoring"
)

// sectionDescriptions documents every fixed section key for the
// system prompt (spec §4.3). Sections the Candidate Scorer never
// assigns (quick_catchup, emerging_topics, contrarian_views) are
// populated at the model's own discretion from the candidate set.
var sectionDescriptions = map[string]string{
	model.SectionTrendingUnread:  "unread stories trending above the global average for their feed",
	model.SectionLongRead:        "substantial unread pieces well above the typical word count",
	model.SectionClassifierMatch: "stories matching one of the reader's saved classifiers",
	model.SectionFollowUp:        "previously-read stories worth a follow-up mention",
	model.SectionTrendingGlobal:  "stories trending across the whole candidate pool; the catch-all default",
	model.SectionDuplicates:      "a single representative for a cluster of stories covering the same event across feeds",
	model.SectionQuickCatchup:    "a terse bullet round-up of minor stories not covered elsewhere",
	model.SectionEmergingTopics:  "a thematic pattern you notice recurring across several candidates",
	model.SectionContrarianViews: "a story presenting a minority or contrasting take on a trending topic",
}

const classifierPillHTML = `<span class="NB-classifier-pill"><label>TAG</label><b>:</b><span>VALUE</span></span>`

// lengthInstruction maps a summary length preference to a word-count
// instruction for the system prompt (spec §4.3).
func lengthInstruction(length model.SummaryLength) string {
	switch length {
	case model.LengthShort:
		return "Keep the entire summary under 300 words."
	case model.LengthDetailed:
		return "The summary may run up to 1000 words."
	default:
		return "Keep the entire summary under 600 words."
	}
}

// styleInstruction maps a summary style preference to a prose
// instruction for the system prompt (spec §4.3). <ul>/<li> are
// forbidden in every style.
func styleInstruction(style model.SummaryStyle) string {
	switch style {
	case model.StyleBullets:
		return "Write each story as a single bullet-style sentence, each wrapped in its own <p>. Do not use <ul> or <li>."
	case model.StyleHeadlines:
		return "Write each story as a short headline followed by one sentence, wrapped in <p>. Do not use <ul> or <li>."
	default:
		return "Write in editorial prose, one or more <p> paragraphs per story. Do not use <ul> or <li>."
	}
}

// buildSystemPrompt enumerates exactly the sections the user has
// enabled (spec §4.3) and states the output contract.
func buildSystemPrompt(prefs *model.BriefingPreferences) string {
	var b strings.Builder
	b.WriteString("You are the editorial summarizer for a personalized news briefing. ")
	b.WriteString("Produce a single HTML fragment and nothing else: no markdown, no preamble, no code fences, no explanation.\n\n")
	b.WriteString("The fragment must be exactly this shape:\n")
	b.WriteString(`<div class="NB-briefing-summary"> <h3 data-section="KEY">Section Title</h3> ...story content with data-story-hash attributes... </div>` + "\n\n")
	b.WriteString("Use only the following section keys, in any order, omitting any with nothing to say:\n")

	for _, key := range enabledSectionKeys(prefs) {
		desc := sectionDescriptions[key]
		if desc == "" {
			desc = "a custom keyword-filtered section"
		}
		b.WriteString(fmt.Sprintf("- %s: %s\n", key, desc))
	}

	b.WriteString("\nFor every story you mention, include its hash as a data-story-hash attribute on the element discussing it.\n")
	b.WriteString("When a story matches one of the reader's classifiers, render this exact pill inline:\n")
	b.WriteString(classifierPillHTML + "\n")
	b.WriteString("(substitute TAG and VALUE for the classifier's scope and value).\n\n")
	b.WriteString(lengthInstruction(prefs.SummaryLength) + "\n")
	b.WriteString(styleInstruction(prefs.SummaryStyle) + "\n")
	return b.String()
}

// enabledSectionKeys returns the fixed and custom sections whose
// toggle is on, in a stable order (fixed sections first).
func enabledSectionKeys(prefs *model.BriefingPreferences) []string {
	fixed := []string{
		model.SectionTrendingUnread, model.SectionLongRead, model.SectionClassifierMatch,
		model.SectionFollowUp, model.SectionTrendingGlobal, model.SectionDuplicates,
		model.SectionQuickCatchup, model.SectionEmergingTopics, model.SectionContrarianViews,
	}
	var keys []string
	for _, k := range fixed {
		if prefs.Sections[k] {
			keys = append(keys, k)
		}
	}
	for n := 1; n <= model.MaxCustomSections; n++ {
		key := model.CustomSectionKey(n)
		if prefs.Sections[key] && n-1 < len(prefs.CustomSectionPrompts) && prefs.CustomSectionPrompts[n-1] != "" {
			keys = append(keys, key)
		}
	}
	return keys
}

// remapCategory maps a candidate's category back to the default
// section when its toggle is off, so the model sees a consistent
// contract (spec §4.3).
func remapCategory(category string, enabled map[string]bool) string {
	if enabled[category] {
		return category
	}
	return model.SectionTrendingGlobal
}

// candidateRow is the rendered line for one candidate in the user prompt.
type candidateRow struct {
	hash        string
	category    string
	title       string
	feedTitle   string
	author      string
	date        string
	isRead      bool
	wordCount   int
	excerpt     string
	classifiers []string
}

// buildUserPrompt lists every candidate with the fields spec §4.3
// requires, with disabled-section candidates remapped to the default.
func buildUserPrompt(rows []candidateRow) string {
	var b strings.Builder
	b.WriteString("Candidates for this briefing, one per line:\n\n")
	for _, r := range rows {
		status := "unread"
		if r.isRead {
			status = "read"
		}
		fmt.Fprintf(&b, "HASH=%s CATEGORY: %s TITLE=%q FEED=%q AUTHOR=%q DATE=%s STATUS=%s WORDS=%s EXCERPT=%q",
			r.hash, r.category, r.title, r.feedTitle, r.author, r.date, status, strconv.Itoa(r.wordCount), r.excerpt)
		if len(r.classifiers) > 0 {
			fmt.Fprintf(&b, " CLASSIFIERS=%s", strings.Join(r.classifiers, ","))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// buildCandidateRows resolves each candidate's story/feed metadata
// into the row shape the user prompt renders.
func buildCandidateRows(candidates []scoring.Candidate, stories map[string]*model.Story, feedTitleFor func(feedID string) string, enabled map[string]bool) []candidateRow {
	rows := make([]candidateRow, 0, len(candidates))
	for _, c := range candidates {
		story, ok := stories[c.StoryHash]
		if !ok {
			continue
		}
		rows = append(rows, candidateRow{
			hash:        c.StoryHash,
			category:    remapCategory(c.Category, enabled),
			title:       story.Title,
			feedTitle:   feedTitleFor(story.FeedID),
			author:      story.Author,
			date:        story.PubDate.UTC().Format("2006-01-02"),
			isRead:      c.IsRead,
			wordCount:   c.ContentWordCount,
			excerpt:     excerptFor(story.Content),
			classifiers: c.ClassifierMatches,
		})
	}
	return rows
}

const userPromptExcerptLen = 300

func excerptFor(content string) string {
	r := []rune(content)
	if len(r) <= userPromptExcerptLen {
		return string(r)
	}
	return string(r[:userPromptExcerptLen])
}
