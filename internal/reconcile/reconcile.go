// Package reconcile merges a freshly-fetched set of cloud events into a
// user's stored event set. The merge is pure and deterministic: applying
// the same fresh pull twice yields the same result, and the order of the
// fresh events never matters.
package reconcile

import (
	"sort"

	"booked/internal/models"
)

// Merge combines existing stored events with freshCloud, the cloud events
// fetched for the half-open window.
//
// Rules:
//   - Local events are kept unconditionally.
//   - A fresh cloud event replaces any stored cloud event with the same id
//     (fresh data wins, picking up upstream edits); otherwise it is added.
//   - A stored cloud event absent from the pull is dropped only if its
//     start instant falls inside the window. Cloud data outside the
//     fetched window was not observed and must never be deleted.
//
// The result is sorted by start instant, then id, so repeated merges are
// byte-for-byte stable.
func Merge(existing []models.Event, freshCloud []models.Event, window models.Interval) []models.Event {
	fresh := make(map[string]struct{}, len(freshCloud))
	for _, ev := range freshCloud {
		fresh[ev.ID] = struct{}{}
	}

	merged := make([]models.Event, 0, len(existing)+len(freshCloud))
	for _, ev := range existing {
		if ev.Source == models.SourceLocal {
			merged = append(merged, ev)
			continue
		}
		if _, ok := fresh[ev.ID]; ok {
			// Superseded by the fresh copy below.
			continue
		}
		if window.Contains(ev.Start) {
			// Observed window, id gone upstream: deleted or moved away.
			continue
		}
		merged = append(merged, ev)
	}
	merged = append(merged, freshCloud...)

	sort.Slice(merged, func(i, j int) bool {
		if !merged[i].Start.Equal(merged[j].Start) {
			return merged[i].Start.Before(merged[j].Start)
		}
		return merged[i].ID < merged[j].ID
	})
	return merged
}
