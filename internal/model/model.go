// Package model defines the data model shared by every briefing engine
// component (spec §3): stories and feeds as read-only external
// collaborators, clusters, subscriptions, preferences, briefings, and
// the activity histogram.
package model

import "time"

// Story is an external, read-only record. Its identifying story_hash
// has the form "<feed_id>:<guid_hash>"; stories sharing the same
// guid_hash across different feeds are the same underlying article.
type Story struct {
	StoryHash string
	FeedID    string
	GUIDHash  string
	Title     string
	Author    string
	PubDate   time.Time
	Content   string // plain-text content, used to derive WordCount
	WordCount int
	Tags      []string
}

// Feed is an external, read-only record. BranchFromFeed, when set,
// points at the feed's original; ResolvedFeedID follows that pointer.
type Feed struct {
	FeedID         string
	Title          string
	BranchFromFeed string // empty if this feed is itself original
}

// ResolvedFeedID returns BranchFromFeed if set, else FeedID itself —
// the "resolved feed id" from the glossary.
func (f Feed) ResolvedFeedID() string {
	if f.BranchFromFeed != "" {
		return f.BranchFromFeed
	}
	return f.FeedID
}

// Cluster is a set of story hashes judged to cover the same event
// across feeds. ClusterID is the hash of the earliest (by StoryDate)
// member. Bounded to ClusterMaxMembers.
type Cluster struct {
	ClusterID string
	Members   []string // story hashes, StoryDate ascending
}

const ClusterMaxMembers = 10

// ClassifierScope names what field a classifier matches against.
type ClassifierScope string

const (
	ClassifierFeed   ClassifierScope = "feed"
	ClassifierAuthor ClassifierScope = "author"
	ClassifierTag    ClassifierScope = "tag"
	ClassifierTitle  ClassifierScope = "title"
)

// Classifier is a user-defined scoring rule: a scope, a match value,
// a score in {-1, 0, +1}, and an optional folder restriction.
type Classifier struct {
	Scope  ClassifierScope
	Value  string
	Score  int
	Folder string // empty = applies in every folder
}

// UserSubscription is the (user, feed, active) relation plus the
// per-feed unread-recalc flag and the user's classifier set.
type UserSubscription struct {
	UserID            string
	FeedID            string
	Active            bool
	Folder            string
	NeedsUnreadRecalc bool
	Classifiers       []Classifier
}

// ClassifierScoreFor sums the scores of every classifier on the
// subscription that applies in folder (no folder restriction, or the
// same folder). It does not check which feed, author, tag or title a
// classifier targets.
func (s UserSubscription) ClassifierScoreFor(folder string) int {
	total := 0
	for _, c := range s.Classifiers {
		if c.Folder != "" && c.Folder != folder {
			continue
		}
		total += c.Score
	}
	return total
}

// BriefingFrequency is the regeneration cadence for a user's briefing.
type BriefingFrequency string

const (
	FrequencyDaily       BriefingFrequency = "daily"
	FrequencyTwiceDaily  BriefingFrequency = "twice_daily"
	FrequencyWeekly      BriefingFrequency = "weekly"
)

// Period returns the period length a frequency maps to (spec §4.5 step 3).
func (f BriefingFrequency) Period() time.Duration {
	switch f {
	case FrequencyTwiceDaily:
		return 12 * time.Hour
	case FrequencyWeekly:
		return 7 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// MinCandidates is the minimum candidate count below which the worker
// skips generation (spec §4.5 step 5).
func (f BriefingFrequency) MinCandidates() int {
	if f == FrequencyTwiceDaily {
		return 1
	}
	return 3
}

// SummaryLength is the user-selected target length for the briefing.
type SummaryLength string

const (
	LengthShort    SummaryLength = "short"
	LengthMedium   SummaryLength = "medium"
	LengthDetailed SummaryLength = "detailed"
)

// SummaryStyle is the user-selected prose style for the briefing.
type SummaryStyle string

const (
	StyleEditorial SummaryStyle = "editorial"
	StyleBullets   SummaryStyle = "bullets"
	StyleHeadlines SummaryStyle = "headlines"
)

// ReadFilter controls which read-state of story is eligible.
type ReadFilter string

const (
	ReadFilterAll    ReadFilter = "all"
	ReadFilterUnread ReadFilter = "unread"
	ReadFilterFocus  ReadFilter = "focus"
)

// StorySourceFilter restricts candidates to all feeds or one folder.
type StorySourceFilter struct {
	All    bool
	Folder string // used when All is false
}

const maxCustomSections = 5

// BriefingPreferences holds one user's configuration for briefing
// generation (spec §3).
type BriefingPreferences struct {
	UserID              string
	Frequency           BriefingFrequency
	Enabled             bool
	PreferredHour       *int // nil = auto (derive from activity)
	StoryCount          int
	SummaryLength       SummaryLength
	SummaryStyle        SummaryStyle
	Sections            map[string]bool
	CustomSectionPrompts []string // up to 5, keys custom_1..custom_5
	BriefingModel        string   // empty = use default
	StorySource          StorySourceFilter
	ReadFilter           ReadFilter
	BriefingFeedID       string
}

// NewDefaultPreferences returns preferences with spec defaults.
func NewDefaultPreferences(userID string) *BriefingPreferences {
	return &BriefingPreferences{
		UserID:        userID,
		Frequency:     FrequencyDaily,
		Enabled:       true,
		StoryCount:    5,
		SummaryLength: LengthMedium,
		SummaryStyle:  StyleEditorial,
		Sections:      DefaultSectionToggles(),
		StorySource:   StorySourceFilter{All: true},
		ReadFilter:    ReadFilterAll,
	}
}

// SetSections validates and stores a section-key→bool map, silently
// dropping any key outside the fixed valid set (spec §3 invariant).
func (p *BriefingPreferences) SetSections(sections map[string]bool) {
	clean := make(map[string]bool, len(sections))
	for k, v := range sections {
		if IsValidSectionKey(k) {
			clean[k] = v
		}
	}
	p.Sections = clean
}

// SetCustomSectionPrompts stores up to 5 custom keyword prompts,
// truncating silently beyond the cap.
func (p *BriefingPreferences) SetCustomSectionPrompts(prompts []string) {
	if len(prompts) > maxCustomSections {
		prompts = prompts[:maxCustomSections]
	}
	p.CustomSectionPrompts = prompts
}

// BriefingStatus is the lifecycle status of a generated Briefing.
type BriefingStatus string

const (
	BriefingPending  BriefingStatus = "pending"
	BriefingComplete BriefingStatus = "complete"
	BriefingFailed   BriefingStatus = "failed"
)

// BriefingMetadata records the model and token usage for one briefing.
type BriefingMetadata struct {
	Model        string
	InputTokens  int
	OutputTokens int
}

// Briefing is one generated editorial artifact for one user and period.
// Immutable once Status == BriefingComplete.
type Briefing struct {
	UserID              string
	BriefingFeedID      string
	BriefingDate        time.Time
	PeriodStart         time.Time
	GeneratedAt         time.Time
	Status              BriefingStatus
	CuratedStoryHashes  []string
	CuratedSections     map[string][]string // section key -> ordered story hashes
	SectionSummaries    map[string]string   // section key -> HTML block
	SummaryStoryHash    string
	Metadata            BriefingMetadata
}

// ActivityHistogram is a per-user map from local-hour (0-23) to count.
type ActivityHistogram map[int]int
