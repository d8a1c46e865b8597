package caldav

import (
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/teambition/rrule-go"

	"booked/internal/models"
)

// expandComponent converts a VEVENT into raw records. Non-recurring events
// yield at most one record; recurring events are expanded into their
// occurrences inside [rangeStart, rangeEnd).
func expandComponent(comp *ical.Component, rangeStart, rangeEnd time.Time) []models.RawEvent {
	base, ok := parseComponent(comp)
	if !ok {
		return nil
	}

	rruleProp := comp.Props.Get(ical.PropRecurrenceRule)
	if rruleProp == nil {
		return []models.RawEvent{base}
	}
	return expandRecurring(comp, base, rruleProp.Value, rangeStart, rangeEnd)
}

// parseComponent extracts the fields the normalizer cares about from a
// VEVENT. Returns false for events with no usable start time.
func parseComponent(comp *ical.Component) (models.RawEvent, bool) {
	raw := models.RawEvent{}

	if p := comp.Props.Get(ical.PropUID); p != nil {
		raw.ID = p.Value
	}
	if p := comp.Props.Get(ical.PropSummary); p != nil {
		raw.Title = p.Value
	}
	if p := comp.Props.Get(ical.PropDescription); p != nil {
		raw.Notes = p.Value
	}
	if p := comp.Props.Get(ical.PropTransparency); p != nil {
		raw.Free = strings.EqualFold(p.Value, "TRANSPARENT")
	}

	if p := comp.Props.Get(ical.PropDateTimeStart); p != nil {
		if t, err := p.DateTime(time.Local); err == nil {
			raw.Start = &t
		}
		raw.AllDay = isDateValue(p)
	}
	if raw.Start == nil {
		return raw, false
	}
	if p := comp.Props.Get(ical.PropDateTimeEnd); p != nil {
		if t, err := p.DateTime(time.Local); err == nil {
			// A date-valued DTEND is exclusive (RFC 5545): a one-day event
			// ends the day after it starts. Shift it back so downstream
			// all-day snapping covers the right last day.
			if isDateValue(p) && t.After(*raw.Start) {
				t = t.AddDate(0, 0, -1)
			}
			raw.End = &t
		}
	}

	for _, p := range comp.Props.Values(ical.PropAttendee) {
		raw.Participants = append(raw.Participants, strings.TrimPrefix(p.Value, "mailto:"))
	}

	return raw, true
}

// isDateValue reports whether the property carries a date (all-day) rather
// than a datetime.
func isDateValue(p *ical.Prop) bool {
	if strings.EqualFold(p.Params.Get(ical.ParamValue), string(ical.ValueDate)) {
		return true
	}
	return !strings.Contains(p.Value, "T")
}

// expandRecurring expands an RRULE within the window, honoring EXDATEs and
// preserving the base event's duration. Each occurrence gets a derived id
// so re-syncs stay stable.
func expandRecurring(comp *ical.Component, base models.RawEvent, rawRule string, rangeStart, rangeEnd time.Time) []models.RawEvent {
	r, err := rrule.StrToRRule(rawRule)
	if err != nil {
		// An unparseable rule degrades to the base occurrence.
		return []models.RawEvent{base}
	}
	r.DTStart(*base.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range exDates(comp, base.Start.Location()) {
		set.ExDate(ex)
	}

	loc := base.Start.Location()
	times := set.Between(rangeStart.In(loc), rangeEnd.In(loc), true)
	if len(times) > maxOccurrences {
		times = times[:maxOccurrences]
	}

	var duration time.Duration
	if base.End != nil {
		duration = base.End.Sub(*base.Start)
	}

	out := make([]models.RawEvent, 0, len(times))
	for _, occStart := range times {
		occ := base
		start := occStart
		end := occStart.Add(duration)
		occ.Start = &start
		if base.End != nil {
			occ.End = &end
		} else {
			occ.End = nil
		}
		if base.ID != "" {
			occ.ID = base.ID + "-" + occStart.UTC().Format("20060102T150405Z")
		}
		out = append(out, occ)
	}
	return out
}

func exDates(comp *ical.Component, loc *time.Location) []time.Time {
	var out []time.Time
	for _, p := range comp.Props.Values(ical.PropExceptionDates) {
		for _, part := range strings.Split(p.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if t, err := parseICalTime(part, loc); err == nil {
				out = append(out, t)
			}
		}
	}
	return out
}

// parseICalTime parses the basic DATE, DATE-TIME and UTC forms used by
// EXDATE values.
func parseICalTime(v string, loc *time.Location) (time.Time, error) {
	if strings.HasSuffix(v, "Z") {
		return time.Parse("20060102T150405Z", v)
	}
	if strings.Contains(v, "T") {
		return time.ParseInLocation("20060102T150405", v, loc)
	}
	return time.ParseInLocation("20060102", v, loc)
}
