package model

import (
	"context"
	"time"
)

// StoryStore is the read-only external story metadata collaborator
// (the RSS fetcher / document store, out of scope per spec §1).
type StoryStore interface {
	// GetStories batches a metadata fetch for the given hashes. Missing
	// hashes are simply absent from the result, not an error.
	GetStories(ctx context.Context, hashes []string) (map[string]*Story, error)
}

// FeedStore is the read-only external feed-schema collaborator.
type FeedStore interface {
	GetFeed(ctx context.Context, feedID string) (*Feed, error)
}

// SubscriptionStore is the read-only external subscription-graph
// collaborator, plus the two mutations the Briefing Worker makes:
// ensuring a synthetic per-user briefing feed exists and setting its
// recalc flag.
type SubscriptionStore interface {
	// ActiveSubscriptions returns a user's active feed subscriptions.
	ActiveSubscriptions(ctx context.Context, userID string) ([]UserSubscription, error)
	// ArchiveTierSubscribers returns up to limit user ids subscribed to
	// feedID on the archive tier (spec §4.1 precondition/candidate pool).
	ArchiveTierSubscribers(ctx context.Context, feedID string, limit int) ([]string, error)
	// EnsureBriefingFeed idempotently creates the synthetic per-user
	// briefing feed (spec §4.5 step 4), returning its feed id. The
	// Redis-backed datastore does not create a subscription to it.
	EnsureBriefingFeed(ctx context.Context, userID string) (feedID string, err error)
	// SetNeedsUnreadRecalc flips the per-feed recalc flag (spec §4.5 step 8).
	SetNeedsUnreadRecalc(ctx context.Context, userID, feedID string) error
}

// ReadStateStore tracks per-user read/unread state.
type ReadStateStore interface {
	IsRead(ctx context.Context, userID, storyHash string) (bool, error)
}

// UserStore is the read-only external user/profile collaborator.
type UserStore interface {
	Exists(ctx context.Context, userID string) (bool, error)
	Preferences(ctx context.Context, userID string) (*BriefingPreferences, error)
	// LocalHour returns the hour-of-day (0-23) in the user's timezone at.
	LocalHour(ctx context.Context, userID string, at time.Time) (int, error)
}

// BriefingStore persists Briefing records.
type BriefingStore interface {
	Latest(ctx context.Context, userID string) (*Briefing, error)
	ExistsInPeriod(ctx context.Context, userID string, periodStart, periodEnd time.Time) (bool, error)
	Save(ctx context.Context, b *Briefing) error
	// InsertSummaryStory creates the synthetic story carrying the
	// rendered briefing HTML under the user's briefing feed, returning
	// its story hash.
	InsertSummaryStory(ctx context.Context, feedID, title, html string) (storyHash string, err error)
}
