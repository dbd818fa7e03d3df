package usage

import (
	"strings"
	"testing"
)

func TestRegistryTextFormat(t *testing.T) {
	r := NewRegistry()
	r.Add("clustering_clusters_total", nil, 3)
	r.Add("llm_requests_total", map[string]string{"provider": "openai", "model": "gpt_4o", "feature": "briefing"}, 1)
	r.Add("llm_requests_total", map[string]string{"provider": "openai", "model": "gpt_4o", "feature": "briefing"}, 1)

	text := r.Text()
	if !strings.Contains(text, "clustering_clusters_total 3") {
		t.Errorf("expected unlabeled counter line, got:\n%s", text)
	}
	if !strings.Contains(text, `llm_requests_total{feature=briefing,model=gpt_4o,provider=openai} 2`) {
		t.Errorf("expected labeled counter accumulated to 2, got:\n%s", text)
	}
}

func TestSanitizeModelName(t *testing.T) {
	if got := sanitizeModelName("gpt-4.1-mini"); got != "gpt_4_1_mini" {
		t.Errorf("got %q", got)
	}
}
