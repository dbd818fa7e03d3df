// Package worker implements the Briefing Worker: the per-user state
// machine that turns a subscription set into a persisted Briefing
// story (spec §4.5), plus the dispatcher that sweeps eligible users
// under a cross-process lock (spec §4.1 precondition analog, §5
// locking).
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/newsbrief/engine/internal/model"
	"github.com/newsbrief/engine/internal/orchestrator"
	"github.com/newsbrief/engine/internal/redisclient"
	"github.com/newsbrief/engine/internal/scoring"
	"github.com/newsbrief/engine/internal/sections"
	"github.com/rs/zerolog"
)

const eventsChannel = "briefing:events"

func perUserLockKey(userID string) string { return "briefing:generate_user:" + userID }

// Outcome is the terminal state of one RunBriefing invocation.
type Outcome string

const (
	OutcomeDone    Outcome = "done"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// Worker runs the scoring -> summarizing -> processing -> persisting
// pipeline for one user at a time.
type Worker struct {
	rdb          *redisclient.Client
	users        model.UserStore
	subs         model.SubscriptionStore
	briefings    model.BriefingStore
	scorer       *scoring.Scorer
	orchestrator *orchestrator.Orchestrator

	lockTTL     time.Duration
	siteBaseURL string
	filterMode  sections.FilterMode
	log         zerolog.Logger
}

// Config bundles Worker construction parameters that come from
// internal/config rather than from a collaborator interface.
type Config struct {
	LockTTL     time.Duration
	SiteBaseURL string
	FilterMode  sections.FilterMode
}

// New builds a Worker.
func New(rdb *redisclient.Client, users model.UserStore, subs model.SubscriptionStore, briefings model.BriefingStore, scorer *scoring.Scorer, orch *orchestrator.Orchestrator, cfg Config, log zerolog.Logger) *Worker {
	return &Worker{
		rdb:          rdb,
		users:        users,
		subs:         subs,
		briefings:    briefings,
		scorer:       scorer,
		orchestrator: orch,
		lockTTL:      cfg.LockTTL,
		siteBaseURL:  cfg.SiteBaseURL,
		filterMode:   cfg.FilterMode,
		log:          log.With().Str("component", "briefing-worker").Logger(),
	}
}

type startEvent struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
}

type completeEvent struct {
	Type           string `json:"type"`
	UserID         string `json:"user_id"`
	BriefingFeedID string `json:"briefing_feed_id"`
	StoryHash      string `json:"story_hash"`
}

func (w *Worker) publish(ctx context.Context, v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		w.log.Warn().Err(err).Msg("marshal briefing event")
		return
	}
	if err := w.rdb.C.Publish(ctx, eventsChannel, "briefing:"+string(payload)).Err(); err != nil {
		w.log.Warn().Err(err).Msg("publish briefing event")
	}
}

// RunBriefing drives one user through the full state machine (spec
// §4.5). onDemand controls the start/complete pub/sub events and
// whether the per-user lock is released on completion or failure.
func (w *Worker) RunBriefing(ctx context.Context, userID string, onDemand bool) Outcome {
	runID := GenerateRunID()
	log := w.log.With().Str("run_id", runID.String()).Str("user_id", userID).Logger()

	acquired, err := w.rdb.AcquireLock(ctx, perUserLockKey(userID), w.lockTTL)
	if err != nil {
		log.Error().Err(err).Msg("acquire per-user lock")
		return OutcomeFailed
	}
	if !acquired {
		log.Debug().Msg("per-user lock contended, skipping")
		return OutcomeSkipped
	}

	releaseLock := func() {
		if onDemand {
			if err := w.rdb.ReleaseLock(ctx, perUserLockKey(userID)); err != nil {
				log.Warn().Err(err).Msg("release per-user lock")
			}
		}
	}

	exists, err := w.users.Exists(ctx, userID)
	if err != nil {
		log.Error().Err(err).Msg("check user existence")
		releaseLock()
		return OutcomeFailed
	}
	if !exists {
		releaseLock()
		return OutcomeSkipped
	}

	prefs, err := w.users.Preferences(ctx, userID)
	if err != nil {
		log.Error().Err(err).Msg("load preferences")
		releaseLock()
		return OutcomeFailed
	}
	if prefs == nil || !prefs.Enabled {
		releaseLock()
		return OutcomeSkipped
	}

	now := time.Now().UTC()
	period := prefs.Frequency.Period()
	periodStart := now.Add(-period)
	already, err := w.briefings.ExistsInPeriod(ctx, userID, periodStart, now)
	if err != nil {
		log.Error().Err(err).Msg("check existing briefing")
		releaseLock()
		return OutcomeFailed
	}
	if already {
		releaseLock()
		return OutcomeSkipped
	}

	feedID, err := w.subs.EnsureBriefingFeed(ctx, userID)
	if err != nil {
		log.Error().Err(err).Msg("ensure briefing feed")
		releaseLock()
		return OutcomeFailed
	}
	prefs.BriefingFeedID = feedID

	if onDemand {
		w.publish(ctx, startEvent{Type: "start", UserID: userID})
	}

	span := StartSpan(log, runID, "scoring")
	candidates, err := w.scorer.Score(ctx, userID, periodStart, now, prefs.StoryCount, prefs.ReadFilter, prefs)
	span.End()
	if err != nil {
		log.Error().Err(err).Msg("score candidates")
		releaseLock()
		return OutcomeFailed
	}
	if len(candidates) < prefs.Frequency.MinCandidates() {
		log.Debug().Int("candidates", len(candidates)).Msg("below minimum candidate threshold, skipping")
		releaseLock()
		return OutcomeSkipped
	}

	stories, err := w.scorer.StoriesFor(ctx, candidates)
	if err != nil {
		log.Error().Err(err).Msg("load candidate stories")
		releaseLock()
		return OutcomeFailed
	}

	span = StartSpan(log, runID, "summarizing")
	result, err := w.orchestrator.Generate(ctx, userID, candidates, stories, w.scorer.FeedTitleFor, prefs)
	span.End()
	if err != nil {
		log.Error().Err(err).Msg("generate summary")
		releaseLock()
		return OutcomeFailed
	}
	if result == nil {
		log.Warn().Msg("every provider declined, failing run")
		releaseLock()
		return OutcomeFailed
	}

	span = StartSpan(log, runID, "processing")
	curatedSections, sectionSummaries, curatedHashes, finalHTML := w.process(result, prefs)
	span.End()

	span = StartSpan(log, runID, "persisting")
	localHour, err := w.users.LocalHour(ctx, userID, now)
	if err != nil {
		log.Warn().Err(err).Msg("resolve local hour, defaulting to 0")
		localHour = 0
	}
	title := briefingTitle(localHour, now)

	storyHash, err := w.briefings.InsertSummaryStory(ctx, feedID, title, finalHTML)
	if err != nil {
		span.End()
		log.Error().Err(err).Msg("insert summary story")
		releaseLock()
		return OutcomeFailed
	}

	briefing := &model.Briefing{
		UserID:             userID,
		BriefingFeedID:     feedID,
		BriefingDate:       now,
		PeriodStart:        periodStart,
		GeneratedAt:        now,
		Status:             model.BriefingComplete,
		CuratedStoryHashes: curatedHashes,
		CuratedSections:    curatedSections,
		SectionSummaries:   sectionSummaries,
		SummaryStoryHash:   storyHash,
		Metadata:           result.Metadata,
	}
	if err := w.briefings.Save(ctx, briefing); err != nil {
		span.End()
		log.Error().Err(err).Msg("save briefing")
		releaseLock()
		return OutcomeFailed
	}

	if err := w.subs.SetNeedsUnreadRecalc(ctx, userID, feedID); err != nil {
		log.Warn().Err(err).Msg("set needs_unread_recalc")
	}
	span.End()

	if onDemand {
		w.publish(ctx, completeEvent{Type: "complete", UserID: userID, BriefingFeedID: feedID, StoryHash: storyHash})
		releaseLock()
	}

	log.Info().Str("story_hash", storyHash).Int("candidates", len(candidates)).Msg("briefing generated")
	return OutcomeDone
}

// process applies the Section Processor pipeline to an orchestrator
// result: extraction, disabled-section filtering with remap, icon/
// style embedding, and the debug footer (spec §4.5 step 7). It
// returns the curated section->hashes map (post-remap), the raw
// section->HTML map (pre-embedding, for storage), the deduplicated
// ordered hash list, and the final embedded HTML to persist.
func (w *Worker) process(result *orchestrator.Result, prefs *model.BriefingPreferences) (map[string][]string, map[string]string, []string, string) {
	secs := sections.ExtractSectionSummaries(result.HTML)
	remap := sections.RemapDisabledToDefault(secs, prefs.Sections)
	kept := sections.FilterDisabled(secs, prefs.Sections, w.filterMode)

	curatedHashes := make([]string, 0)
	sectionSummaries := make(map[string]string, len(kept))
	seen := make(map[string]bool)
	var html string
	for _, s := range kept {
		html += s.Body
		sectionSummaries[s.Key] = s.Body
		for _, h := range s.Hashes {
			if !seen[h] {
				seen[h] = true
				curatedHashes = append(curatedHashes, h)
			}
		}
	}
	html = `<div class="NB-briefing-summary">` + html + `</div>`
	html = sections.EmbedIconsAndStyles(html, w.siteBaseURL, nil)
	html += debugFooter(result.Metadata)

	return remap, sectionSummaries, curatedHashes, html
}

func debugFooter(meta model.BriefingMetadata) string {
	return fmt.Sprintf(`<div class="NB-briefing-debug">model: %s, input_tokens: %d, output_tokens: %d</div>`,
		meta.Model, meta.InputTokens, meta.OutputTokens)
}

// briefingTitle implements spec §4.5 step 8's title rule.
func briefingTitle(localHour int, at time.Time) string {
	var part string
	switch {
	case localHour >= 0 && localHour <= 11:
		part = "Morning Briefing"
	case localHour >= 12 && localHour <= 16:
		part = "Afternoon Briefing"
	default:
		part = "Evening Briefing"
	}
	return fmt.Sprintf("%s – %s", part, at.Format("Jan 02"))
}
