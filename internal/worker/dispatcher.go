package worker

import (
	"context"
	"sync"
	"time"

	"github.com/newsbrief/engine/internal/redisclient"
	"github.com/rs/zerolog"
)

const crossUserLockKey = "briefing:generate_all_lock"

// acquireTimeout bounds how long a dispatcher tick waits for a free
// worker slot before giving up on a user for this sweep.
const acquireTimeout = 2 * time.Second

// Dispatcher enumerates eligible users on a tick and fans their
// briefing runs out across a bounded worker pool (spec §4.5 step 1,
// spec §5 concurrency model).
type Dispatcher struct {
	rdb     *redisclient.Client
	users   UserEnumerator
	worker  *Worker
	sem     *Semaphore
	lockTTL time.Duration
	log     zerolog.Logger
}

// UserEnumerator lists the user ids a dispatch sweep should consider.
// Implemented by the same external user store that backs
// model.UserStore, kept separate here because enumeration (list all
// enabled users) is a different query shape than the single-user
// lookups model.UserStore exposes.
type UserEnumerator interface {
	EnabledUserIDs(ctx context.Context) ([]string, error)
}

// NewDispatcher builds a Dispatcher with the given worker concurrency cap.
func NewDispatcher(rdb *redisclient.Client, users UserEnumerator, w *Worker, concurrency int, lockTTL time.Duration, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		rdb:     rdb,
		users:   users,
		worker:  w,
		sem:     NewSemaphore(concurrency),
		lockTTL: lockTTL,
		log:     log.With().Str("component", "briefing-dispatcher").Logger(),
	}
}

// Tick runs one sweep: acquires the cross-user lock, enumerates
// eligible users, and runs each through the worker with bounded
// concurrency. Returns immediately without doing work if the lock is
// contended (spec §4.5 step 1).
func (d *Dispatcher) Tick(ctx context.Context) {
	acquired, err := d.rdb.AcquireLock(ctx, crossUserLockKey, d.lockTTL)
	if err != nil {
		d.log.Error().Err(err).Msg("acquire cross-user lock")
		return
	}
	if !acquired {
		d.log.Debug().Msg("cross-user lock contended, skipping sweep")
		return
	}

	userIDs, err := d.users.EnabledUserIDs(ctx)
	if err != nil {
		d.log.Error().Err(err).Msg("enumerate eligible users")
		return
	}

	var wg sync.WaitGroup
	for _, userID := range userIDs {
		if !d.sem.Acquire(acquireTimeout) {
			d.log.Warn().Str("user_id", userID).Msg("worker pool saturated, skipping this tick")
			continue
		}
		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			defer d.sem.Release()
			outcome := d.worker.RunBriefing(ctx, userID, false)
			d.log.Debug().Str("user_id", userID).Str("outcome", string(outcome)).Msg("dispatch run finished")
		}(userID)
	}
	wg.Wait()
}

// Run starts a ticking loop on the given interval until ctx is
// cancelled.
func (d *Dispatcher) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.Tick(ctx)
		}
	}
}
