package activity

import (
	"testing"
	"time"
)

func TestTypicalReadingHourRequiresMinimumCount(t *testing.T) {
	histogram := map[int]int{9: 4}
	if got := TypicalReadingHour(histogram); got != nil {
		t.Fatalf("expected nil below threshold, got %v", *got)
	}
	histogram[9] = 5
	if got := TypicalReadingHour(histogram); got == nil || *got != 9 {
		t.Fatalf("expected hour 9 at threshold, got %v", got)
	}
}

func TestTypicalReadingHourPicksMode(t *testing.T) {
	histogram := map[int]int{7: 5, 20: 12}
	got := TypicalReadingHour(histogram)
	if got == nil || *got != 20 {
		t.Fatalf("expected mode hour 20, got %v", got)
	}
}

func TestBriefingGenerationTimeDefaultsWithoutTypicalHour(t *testing.T) {
	loc := time.UTC
	date := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	got := BriefingGenerationTime(nil, loc, date)
	want := time.Date(2026, 3, 5, 6, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestBriefingGenerationTimeDiffersByTimezone(t *testing.T) {
	histogram := map[int]int{9: 10}
	date := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)

	nyLoc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata not available")
	}
	tokyoLoc, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Skip("tzdata not available")
	}

	ny := BriefingGenerationTime(histogram, nyLoc, date)
	tokyo := BriefingGenerationTime(histogram, tokyoLoc, date)
	if ny.Equal(tokyo) {
		t.Fatalf("expected different UTC times for same local hour in different zones, got %v and %v", ny, tokyo)
	}
}
