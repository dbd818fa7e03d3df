package sections

import (
	"strings"
	"testing"

	"github.com/newsbrief/engine/internal/model"
)

func TestNormalizeSectionKeyIsIdempotent(t *testing.T) {
	cases := []string{"Long-Read", "  trending__global ", "classifier-match", "not_a_real_key", "CUSTOM_1"}
	for _, c := range cases {
		once := NormalizeSectionKey(c)
		twice := NormalizeSectionKey(once)
		if once != twice {
			t.Errorf("normalize not idempotent for %q: %q then %q", c, once, twice)
		}
	}
}

func TestNormalizeSectionKeyFuzzyMatch(t *testing.T) {
	if got := NormalizeSectionKey("trending-unread"); got != model.SectionTrendingUnread {
		t.Errorf("got %q, want %q", got, model.SectionTrendingUnread)
	}
	if got := NormalizeSectionKey("bogus_section"); got != "" {
		t.Errorf("expected unknown key to normalize to empty, got %q", got)
	}
}

func TestExtractSectionSummariesBasic(t *testing.T) {
	html := `<div class="NB-briefing-summary"> <h3 data-section="trending_global">Top</h3> <p>Hello <a data-story-hash="f1:abc">link</a></p> <h3 data-section="long_read">Long</h3> <p>World <a data-story-hash="f2:def">link2</a></p> </div>`
	secs := ExtractSectionSummaries(html)
	if len(secs) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(secs))
	}
	if secs[0].Key != model.SectionTrendingGlobal || secs[1].Key != model.SectionLongRead {
		t.Fatalf("unexpected keys: %v %v", secs[0].Key, secs[1].Key)
	}
	if len(secs[0].Hashes) != 1 || secs[0].Hashes[0] != "f1:abc" {
		t.Errorf("expected hash f1:abc in first section, got %v", secs[0].Hashes)
	}
	if !strings.HasSuffix(strings.TrimSpace(secs[1].Body), "</div>") {
		t.Errorf("expected rewrapped body to end with </div>, got %q", secs[1].Body)
	}
}

func TestExtractSectionSummariesDropsUnknownKey(t *testing.T) {
	html := `<div class="NB-briefing-summary"> <h3 data-section="not_a_key">X</h3> <p>nope</p> <h3 data-section="duplicates">Y</h3> <p>yes</p> </div>`
	secs := ExtractSectionSummaries(html)
	if len(secs) != 1 || secs[0].Key != model.SectionDuplicates {
		t.Fatalf("expected only duplicates to survive, got %v", secs)
	}
}

func TestExtractionIsStableAcrossEmbedding(t *testing.T) {
	html := `<div class="NB-briefing-summary"> <h3 data-section="trending_global">Top</h3> <p>Hello <a data-story-hash="f1:abc">link</a></p> </div>`
	before := ExtractSectionSummaries(html)

	embedded := EmbedIconsAndStyles(html, "https://app.example.com", nil)
	after := ExtractSectionSummaries(embedded)

	if len(before) != len(after) {
		t.Fatalf("section count changed after embedding: %d vs %d", len(before), len(after))
	}
	for i := range before {
		if before[i].Key != after[i].Key {
			t.Errorf("section %d key changed: %q vs %q", i, before[i].Key, after[i].Key)
		}
		if len(before[i].Hashes) != len(after[i].Hashes) {
			t.Errorf("section %d hash count changed: %v vs %v", i, before[i].Hashes, after[i].Hashes)
		}
	}
}

func TestFilterDisabledKeepsDefaultInKeepDefaultMode(t *testing.T) {
	secs := []Section{
		{Key: model.SectionTrendingGlobal, Body: "a"},
		{Key: model.SectionLongRead, Body: "b"},
	}
	active := map[string]bool{model.SectionLongRead: false, model.SectionTrendingGlobal: false}
	out := FilterDisabled(secs, active, FilterKeepDefault)
	if len(out) != 1 || out[0].Key != model.SectionTrendingGlobal {
		t.Fatalf("expected default section retained, got %v", out)
	}
}

func TestFilterDisabledStrictReturnsOriginalWhenEmpty(t *testing.T) {
	secs := []Section{
		{Key: model.SectionTrendingGlobal, Body: "a"},
		{Key: model.SectionLongRead, Body: "b"},
	}
	active := map[string]bool{} // everything disabled
	out := FilterDisabled(secs, active, FilterStrict)
	if len(out) != len(secs) {
		t.Fatalf("expected original sections returned when filtering would empty result, got %v", out)
	}
}

func TestFilterDisabledKeepsEnabledNonDefault(t *testing.T) {
	secs := []Section{
		{Key: model.SectionTrendingGlobal, Body: "a"},
		{Key: model.SectionDuplicates, Body: "b"},
	}
	active := map[string]bool{model.SectionDuplicates: true}
	out := FilterDisabled(secs, active, FilterStrict)
	if len(out) != 1 || out[0].Key != model.SectionDuplicates {
		t.Fatalf("expected only duplicates kept, got %v", out)
	}
}

func TestRemapDisabledToDefault(t *testing.T) {
	secs := []Section{
		{Key: model.SectionLongRead, Hashes: []string{"h1", "h2"}},
		{Key: model.SectionDuplicates, Hashes: []string{"h3"}},
	}
	active := map[string]bool{model.SectionDuplicates: true}
	out := RemapDisabledToDefault(secs, active)
	if len(out[model.SectionTrendingGlobal]) != 2 {
		t.Errorf("expected long_read's hashes remapped to default, got %v", out)
	}
	if len(out[model.SectionDuplicates]) != 1 {
		t.Errorf("expected duplicates to keep its own hashes, got %v", out)
	}
}

func TestEmbedInjectsFaviconAndHref(t *testing.T) {
	html := `<div class="NB-briefing-summary"> <h3 data-section="trending_global">Top</h3> <p>Hello <a data-story-hash="f1:abc">link</a></p> </div>`
	out := EmbedIconsAndStyles(html, "https://app.example.com", nil)
	if !strings.Contains(out, `href="https://app.example.com/briefing?story=f1:abc"`) {
		t.Errorf("expected href to be injected, got %s", out)
	}
	if !strings.Contains(out, "data:image/svg+xml;base64,") {
		t.Errorf("expected favicon/icon data URI embedded, got %s", out)
	}
}
