// Package activity implements the Activity Tracker: a per-user,
// per-local-hour histogram used to derive a user's typical reading
// hour and the UTC time to generate their next briefing (spec §4.6).
package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// typicalHourMinCount is the minimum bucket count before an hour is
// considered the user's typical reading hour (spec §4.6).
const typicalHourMinCount = 5

// defaultGenerationHour is used when no typical reading hour exists.
const defaultGenerationHour = 7

// generationLeadTime is how far before the typical reading hour the
// briefing is generated (spec §4.6).
const generationLeadTime = 30 * time.Minute

func activityKey(userID string) string { return "uAct:" + userID }

func hourField(hour int) string { return fmt.Sprintf("hour_%d", hour) }

// Tracker records and queries per-user reading activity.
type Tracker struct {
	rdb *redis.Client
}

// New wraps a redis client.
func New(rdb *redis.Client) *Tracker {
	return &Tracker{rdb: rdb}
}

// RecordActivity increments the hash field for the user's local hour
// at "at" in the given location (spec §4.6 "record_activity").
func (t *Tracker) RecordActivity(ctx context.Context, userID string, loc *time.Location, at time.Time) error {
	hour := at.In(loc).Hour()
	if err := t.rdb.HIncrBy(ctx, activityKey(userID), hourField(hour), 1).Err(); err != nil {
		return fmt.Errorf("record activity for %s: %w", userID, err)
	}
	return nil
}

// Histogram returns the user's hour→count map (spec §4.6 "histogram").
func (t *Tracker) Histogram(ctx context.Context, userID string) (map[int]int, error) {
	fields, err := t.rdb.HGetAll(ctx, activityKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("read histogram for %s: %w", userID, err)
	}
	out := make(map[int]int, len(fields))
	for k, v := range fields {
		var hour, count int
		if _, err := fmt.Sscanf(k, "hour_%d", &hour); err != nil {
			continue
		}
		if _, err := fmt.Sscanf(v, "%d", &count); err != nil {
			continue
		}
		out[hour] = count
	}
	return out, nil
}

// TypicalReadingHour returns the mode hour whose count is at least
// typicalHourMinCount, or nil if no hour qualifies (spec §4.6). Ties
// are broken by the earliest hour.
func TypicalReadingHour(histogram map[int]int) *int {
	best := -1
	bestCount := 0
	for hour := 0; hour < 24; hour++ {
		count, ok := histogram[hour]
		if !ok || count < typicalHourMinCount {
			continue
		}
		if count > bestCount || (count == bestCount && best == -1) {
			best, bestCount = hour, count
		}
	}
	if best == -1 {
		return nil
	}
	return &best
}

// BriefingGenerationTime computes the UTC instant, on the given date,
// that is generationLeadTime before the user's typical reading hour
// (or defaultGenerationHour if none), expressed in the user's
// location, then converted to UTC and returned naive — i.e. as a
// plain time.Time carrying wall-clock UTC fields (spec §4.6
// "briefing_generation_time"). Two users in different time zones with
// the same local hour yield different UTC times because the
// conversion runs through each user's own location.
func BriefingGenerationTime(histogram map[int]int, loc *time.Location, date time.Time) time.Time {
	hour := defaultGenerationHour
	if typical := TypicalReadingHour(histogram); typical != nil {
		hour = *typical
	}
	localDate := date.In(loc)
	local := time.Date(localDate.Year(), localDate.Month(), localDate.Day(), hour, 0, 0, 0, loc)
	local = local.Add(-generationLeadTime)
	return local.UTC()
}
