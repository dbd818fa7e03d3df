package orchestrator

import "testing"

func TestTokenBudgetRespectsCeiling(t *testing.T) {
	got := tokenBudget(100, 9)
	if got != maxTokensCeiling {
		t.Errorf("tokenBudget(100, 9) = %d, want ceiling %d", got, maxTokensCeiling)
	}
}

func TestTokenBudgetFormula(t *testing.T) {
	got := tokenBudget(5, 3)
	want := 1024 + 80*5 + 100*3
	if got != want {
		t.Errorf("tokenBudget(5, 3) = %d, want %d", got, want)
	}
}

func TestStripCodeFenceRemovesLeadingAndTrailing(t *testing.T) {
	in := "```html\n<div>hello</div>\n```"
	got := stripCodeFence(in)
	if got != "<div>hello</div>" {
		t.Errorf("stripCodeFence = %q", got)
	}
}

func TestStripCodeFenceNoOpWithoutFence(t *testing.T) {
	in := "  <div>hello</div>  "
	got := stripCodeFence(in)
	if got != "<div>hello</div>" {
		t.Errorf("stripCodeFence = %q", got)
	}
}
