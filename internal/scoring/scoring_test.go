package scoring

import (
	"testing"

	"github.com/newsbrief/engine/internal/model"
)

func TestCategorizeClassifierMatchWinsFirst(t *testing.T) {
	p := pooledStory{
		story: model.Story{StoryHash: "f1:g1", Title: "Budget vote nears", WordCount: 900},
	}
	matches := []model.Classifier{{Scope: model.ClassifierTitle, Value: "budget", Score: 1}}
	prefs := model.NewDefaultPreferences("u1")
	cat, idx := categorize(p, matches, nil, prefs, 0, 0, 100)
	if cat != model.SectionClassifierMatch || idx != 0 {
		t.Fatalf("expected classifier_match, got %s", cat)
	}
}

func TestCategorizeDuplicatesBeforeLongRead(t *testing.T) {
	p := pooledStory{
		story: model.Story{StoryHash: "f1:g1", Title: "Long feature on something", WordCount: 3000},
	}
	prefs := model.NewDefaultPreferences("u1")
	cat, _ := categorize(p, nil, []string{"f2:g2"}, prefs, 0, 0, 100)
	if cat != model.SectionDuplicates {
		t.Fatalf("expected duplicates to win over long_read, got %s", cat)
	}
}

func TestCategorizeFallsThroughToTrendingGlobal(t *testing.T) {
	p := pooledStory{
		story: model.Story{StoryHash: "f1:g1", Title: "short", WordCount: 50},
	}
	prefs := model.NewDefaultPreferences("u1")
	cat, _ := categorize(p, nil, nil, prefs, 0, 0, 1000)
	if cat != model.SectionTrendingGlobal {
		t.Fatalf("expected default trending_global, got %s", cat)
	}
}

func TestCategorizeFollowUpWhenRead(t *testing.T) {
	p := pooledStory{
		story:  model.Story{StoryHash: "f1:g1", Title: "short piece", WordCount: 50},
		isRead: true,
	}
	prefs := model.NewDefaultPreferences("u1")
	cat, _ := categorize(p, nil, nil, prefs, 0, 0, 1000)
	if cat != model.SectionFollowUp {
		t.Fatalf("expected follow_up for a read story, got %s", cat)
	}
}

func TestMedianEvenAndOdd(t *testing.T) {
	if got := median([]int{100, 300}); got != 200 {
		t.Fatalf("expected 200, got %d", got)
	}
	if got := median([]int{100, 200, 900}); got != 200 {
		t.Fatalf("expected 200, got %d", got)
	}
	if got := median(nil); got != 0 {
		t.Fatalf("expected 0 for empty input, got %d", got)
	}
}

func TestMatchClassifiersRespectsFolderScope(t *testing.T) {
	classifiers := []model.Classifier{
		{Scope: model.ClassifierTitle, Value: "budget", Score: 1, Folder: "politics"},
	}
	story := model.Story{Title: "Budget vote nears"}
	if m := matchClassifiers(classifiers, story, "Feed", "Author", "tech"); len(m) != 0 {
		t.Fatalf("expected no match outside the classifier's folder, got %v", m)
	}
	if m := matchClassifiers(classifiers, story, "Feed", "Author", "politics"); len(m) != 1 {
		t.Fatalf("expected match inside the classifier's folder, got %v", m)
	}
}

func TestMatchCustomKeywordPromptFirstMatchWins(t *testing.T) {
	prompts := []string{"climate", "election"}
	if n := matchCustomKeywordPrompt(prompts, "Election results roll in", ""); n != 2 {
		t.Fatalf("expected custom_2, got custom_%d", n)
	}
	if n := matchCustomKeywordPrompt(prompts, "Climate policy shapes the election", ""); n != 1 {
		t.Fatalf("expected first matching prompt custom_1, got custom_%d", n)
	}
	if n := matchCustomKeywordPrompt(prompts, "Nothing relevant here", ""); n != 0 {
		t.Fatalf("expected no match, got custom_%d", n)
	}
}
