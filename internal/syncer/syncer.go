// Package syncer runs the per-user sync cycle: fetch cloud events for the
// configured horizon, normalize them, merge them into the stored set and
// persist the result. The merge itself is pure (internal/reconcile); this
// package owns the I/O around it.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"booked/internal/calendar"
	"booked/internal/models"
	"booked/internal/normalize"
	"booked/internal/reconcile"
	"booked/internal/store"
)

// Outcome distinguishes the non-error results of a sync cycle.
type Outcome string

const (
	// OutcomeSynced: the cycle fetched, merged and (unless dry-run)
	// persisted.
	OutcomeSynced Outcome = "synced"
	// OutcomeNoCalendars: the provider exposes no calendars. Informational,
	// not a failure; the stored set is untouched.
	OutcomeNoCalendars Outcome = "no_matching_calendars"
)

// Result summarizes one sync cycle.
type Result struct {
	Outcome Outcome
	Fetched int // cloud events fetched and normalized
	Stored  int // events in the merged set
}

// Options configures a Syncer.
type Options struct {
	// CalendarIDs restricts the fetch to specific calendars. Empty means
	// every calendar the provider exposes.
	CalendarIDs []string
	// Horizon is how far ahead each cycle fetches. Zero means 30 days.
	Horizon time.Duration
	// Location is the user's calendar timezone for all-day resolution.
	// Nil means time.Local.
	Location *time.Location
	// DryRun logs the would-be result without persisting.
	DryRun bool
	// Now overrides the clock in tests.
	Now func() time.Time
}

// Syncer orchestrates sync cycles for one calendar provider against the
// document store.
type Syncer struct {
	logger   *slog.Logger
	provider calendar.Provider
	store    store.DocumentStore
	opts     Options
}

// New creates a Syncer.
func New(logger *slog.Logger, provider calendar.Provider, st store.DocumentStore, opts Options) *Syncer {
	if opts.Horizon <= 0 {
		opts.Horizon = 30 * 24 * time.Hour
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Syncer{logger: logger, provider: provider, store: st, opts: opts}
}

// Sync runs one full cycle for the given user. On any fetch or store
// failure the cycle aborts and the stored set is left exactly as it was;
// there are no partial merges.
func (s *Syncer) Sync(ctx context.Context, userID string) (Result, error) {
	s.logger.Info("Starting sync cycle.", "user", userID)

	calendarIDs := s.opts.CalendarIDs
	if len(calendarIDs) == 0 {
		calendars, err := s.provider.ListCalendars(ctx)
		if err != nil {
			return Result{}, fmt.Errorf("failed to list calendars: %w", err)
		}
		for _, cal := range calendars {
			calendarIDs = append(calendarIDs, cal.ID)
		}
	}
	if len(calendarIDs) == 0 {
		s.logger.Info("Provider exposes no calendars, nothing to sync.", "user", userID)
		return Result{Outcome: OutcomeNoCalendars}, nil
	}

	windowStart := s.opts.Now()
	window := models.Interval{Start: windowStart, End: windowStart.Add(s.opts.Horizon)}

	raws, err := s.provider.ListEvents(ctx, calendarIDs, window.Start, window.End)
	if err != nil {
		return Result{}, fmt.Errorf("failed to fetch cloud events: %w", err)
	}

	fresh := make([]models.Event, 0, len(raws))
	for _, raw := range raws {
		ev, err := normalize.Normalize(raw, normalize.Options{
			Imported: true,
			Now:      windowStart,
			Location: s.opts.Location,
		})
		if err != nil {
			var verr *models.ValidationError
			if errors.As(err, &verr) {
				s.logger.Warn("Skipping malformed cloud event.", "id", raw.ID, "kind", verr.Kind)
				continue
			}
			return Result{}, fmt.Errorf("failed to normalize cloud event %s: %w", raw.ID, err)
		}
		fresh = append(fresh, ev)
	}

	// The caller may have abandoned the sync while we were fetching. A
	// cancelled cycle must not merge a partially-observed window.
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("sync cancelled before merge: %w", err)
	}

	existing, err := s.store.GetUserEvents(ctx, userID)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read stored events: %w", err)
	}

	merged := reconcile.Merge(existing, fresh, window)
	result := Result{Outcome: OutcomeSynced, Fetched: len(fresh), Stored: len(merged)}

	if s.opts.DryRun {
		s.logger.Info("[DRY RUN] Would store merged event set.", "user", userID, "fetched", result.Fetched, "stored", result.Stored)
		return result, nil
	}

	if err := s.store.PutUserEvents(ctx, userID, merged); err != nil {
		return Result{}, fmt.Errorf("failed to store merged events: %w", err)
	}

	s.logger.Info("Sync cycle finished.", "user", userID, "fetched", result.Fetched, "stored", result.Stored)
	return result, nil
}

// Watch runs Sync on the given cron schedule until ctx is done. Individual
// cycle failures are logged and the schedule keeps going.
func (s *Syncer) Watch(ctx context.Context, userID, cronSpec string) error {
	c := cron.New()
	_, err := c.AddFunc(cronSpec, func() {
		if _, err := s.Sync(ctx, userID); err != nil {
			s.logger.Error("Sync cycle failed", "user", userID, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", cronSpec, err)
	}

	s.logger.Info("Starting watcher.", "user", userID, "schedule", cronSpec)
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return ctx.Err()
}
