package model_test

import (
	"testing"

	"github.com/newsbrief/engine/internal/model"
)

func TestResolvedFeedID(t *testing.T) {
	f := model.Feed{FeedID: "f2", BranchFromFeed: "f1"}
	if f.ResolvedFeedID() != "f1" {
		t.Fatalf("expected branch target, got %s", f.ResolvedFeedID())
	}
	original := model.Feed{FeedID: "f1"}
	if original.ResolvedFeedID() != "f1" {
		t.Fatalf("expected self, got %s", original.ResolvedFeedID())
	}
}

func TestSetSectionsDropsInvalidKeys(t *testing.T) {
	p := model.NewDefaultPreferences("u1")
	p.SetSections(map[string]bool{
		model.SectionLongRead: false,
		"not_a_real_section":  true,
		"custom_3":            true,
	})
	if _, ok := p.Sections["not_a_real_section"]; ok {
		t.Fatalf("invalid section key was not dropped")
	}
	if p.Sections[model.SectionLongRead] {
		t.Fatalf("expected long_read disabled")
	}
	if !p.Sections["custom_3"] {
		t.Fatalf("expected custom_3 retained")
	}
}

func TestFrequencyPeriodAndMinCandidates(t *testing.T) {
	cases := []struct {
		freq   model.BriefingFrequency
		period string
		min    int
	}{
		{model.FrequencyDaily, "24h0m0s", 3},
		{model.FrequencyTwiceDaily, "12h0m0s", 1},
		{model.FrequencyWeekly, "168h0m0s", 3},
	}
	for _, c := range cases {
		if got := c.freq.Period().String(); got != c.period {
			t.Errorf("%s: expected period %s, got %s", c.freq, c.period, got)
		}
		if got := c.freq.MinCandidates(); got != c.min {
			t.Errorf("%s: expected min candidates %d, got %d", c.freq, c.min, got)
		}
	}
}

func TestIsValidSectionKey(t *testing.T) {
	if !model.IsValidSectionKey(model.SectionTrendingGlobal) {
		t.Fatalf("expected trending_global valid")
	}
	if !model.IsValidSectionKey("custom_5") {
		t.Fatalf("expected custom_5 valid")
	}
	if model.IsValidSectionKey("custom_6") {
		t.Fatalf("expected custom_6 invalid")
	}
	if model.IsValidSectionKey("bogus") {
		t.Fatalf("expected bogus invalid")
	}
}
