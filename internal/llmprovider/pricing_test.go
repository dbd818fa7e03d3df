package llmprovider

import "testing"

func TestCalculateCostKnownModel(t *testing.T) {
	pc := DefaultPricing()
	usd, micro := pc.CalculateCost("claude-3.5-sonnet", 1_000_000, 1_000_000)
	wantUSD := 3.00 + 15.00
	if usd != wantUSD {
		t.Errorf("usd = %v, want %v", usd, wantUSD)
	}
	if micro != 18_000_000 {
		t.Errorf("micro = %d, want 18000000", micro)
	}
}

func TestCalculateCostUnknownModelIsZero(t *testing.T) {
	pc := DefaultPricing()
	usd, micro := pc.CalculateCost("some-future-model", 500, 500)
	if usd != 0 || micro != 0 {
		t.Errorf("expected zero cost for unknown model, got usd=%v micro=%d", usd, micro)
	}
}

func TestCalculateCostFreeModelIsZero(t *testing.T) {
	pc := DefaultPricing()
	pc.SetPricing("house-model", ModelPricing{InputPer1M: 99, OutputPer1M: 99, Free: true})
	usd, micro := pc.CalculateCost("house-model", 10_000, 10_000)
	if usd != 0 || micro != 0 {
		t.Errorf("expected free model to cost nothing, got usd=%v micro=%d", usd, micro)
	}
	if !pc.IsFreeModel("house-model") {
		t.Errorf("expected IsFreeModel to report true")
	}
}

func TestCalculateCostRoundsToNearestMicroDollar(t *testing.T) {
	pc := DefaultPricing()
	pc.SetPricing("rounding-model", ModelPricing{InputPer1M: 0.6, OutputPer1M: 0})
	// 1 input token costs 0.6 micro-dollars; that rounds to the nearest
	// whole micro-dollar (1) rather than truncating to zero.
	_, micro := pc.CalculateCost("rounding-model", 1, 0)
	if micro != 1 {
		t.Errorf("micro = %d, want 1", micro)
	}
}
