// Package availability derives group busy indexes from member event sets
// and answers "when is everyone free" queries over them.
package availability

import (
	"sort"

	"booked/internal/models"
)

// MergeIntervals sorts intervals by start and coalesces any overlapping or
// touching pair into one, producing the minimal ordered busy sequence.
// Zero- and negative-length inputs are discarded. O(n log n).
func MergeIntervals(intervals []models.Interval) []models.Interval {
	in := make([]models.Interval, 0, len(intervals))
	for _, iv := range intervals {
		if iv.End.After(iv.Start) {
			in = append(in, iv)
		}
	}
	if len(in) == 0 {
		return nil
	}
	sort.Slice(in, func(i, j int) bool { return in[i].Start.Before(in[j].Start) })

	out := []models.Interval{in[0]}
	for _, iv := range in[1:] {
		last := &out[len(out)-1]
		if !iv.Start.After(last.End) {
			if iv.End.After(last.End) {
				last.End = iv.End
			}
			continue
		}
		out = append(out, iv)
	}
	return out
}

// BuildGroupAvailability computes the per-member busy index for a group
// from each member's event set. Both local and cloud events count as
// commitments; events marked Free are excluded. The result is a derived
// view, recomputed on demand and never persisted.
func BuildGroupAvailability(groupID string, memberEvents map[string][]models.Event) models.GroupAvailability {
	ga := models.GroupAvailability{
		GroupID:         groupID,
		MemberIntervals: make(map[string][]models.Interval, len(memberEvents)),
	}
	for member, events := range memberEvents {
		busy := make([]models.Interval, 0, len(events))
		for _, ev := range events {
			if ev.Free {
				continue
			}
			busy = append(busy, ev.Interval())
		}
		ga.MemberIntervals[member] = MergeIntervals(busy)
	}
	return ga
}

// FreeWindows answers "when are all of members free inside rng".
//
// The selected members' busy sequences are merged into one coalesced busy
// timeline clipped to rng; the free windows are the strictly positive gaps
// between busy spans, plus the leading and trailing gaps. An empty member
// subset imposes no constraint, so the whole range is one window. A member
// with no recorded intervals likewise imposes none. O(N log N) in the
// total interval count.
func FreeWindows(ga models.GroupAvailability, members []string, rng models.Interval) []models.OverlapWindow {
	if !rng.End.After(rng.Start) {
		return nil
	}

	var busy []models.Interval
	for _, m := range members {
		busy = append(busy, ga.MemberIntervals[m]...)
	}
	timeline := clip(MergeIntervals(busy), rng)

	memberSet := append([]string(nil), members...)
	var out []models.OverlapWindow
	cursor := rng.Start
	for _, iv := range timeline {
		if iv.Start.After(cursor) {
			out = append(out, models.OverlapWindow{Start: cursor, End: iv.Start, MemberSet: memberSet})
		}
		if iv.End.After(cursor) {
			cursor = iv.End
		}
	}
	if rng.End.After(cursor) {
		out = append(out, models.OverlapWindow{Start: cursor, End: rng.End, MemberSet: memberSet})
	}
	return out
}

// clip trims a coalesced interval sequence to rng, dropping anything that
// ends up empty.
func clip(intervals []models.Interval, rng models.Interval) []models.Interval {
	var out []models.Interval
	for _, iv := range intervals {
		if !iv.End.After(rng.Start) || !rng.End.After(iv.Start) {
			continue
		}
		if iv.Start.Before(rng.Start) {
			iv.Start = rng.Start
		}
		if iv.End.After(rng.End) {
			iv.End = rng.End
		}
		if iv.End.After(iv.Start) {
			out = append(out, iv)
		}
	}
	return out
}
