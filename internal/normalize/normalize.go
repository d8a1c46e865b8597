// Package normalize converts loosely-validated raw event records into the
// canonical Event representation. Everything here is pure: identity, clock
// and timezone are supplied by the caller.
package normalize

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"booked/internal/models"
)

const untitledImport = "Untitled Event"

// localIDPrefix keeps locally-synthesized ids disjoint from any id space a
// calendar provider could hand us, so the reconciler can never mistake a
// local event for a cloud duplicate.
const localIDPrefix = "local-"

// Options controls defaulting during normalization.
type Options struct {
	// Imported marks the record as coming from an external calendar. It
	// changes the defaulting rules: a missing title becomes "Untitled
	// Event" instead of a failure, and a missing end defaults to the start
	// instead of start+1h.
	Imported bool

	// Now is the reference instant for missing timestamps. Zero means
	// time.Now().
	Now time.Time

	// Location is the user's calendar timezone, used to resolve all-day
	// day boundaries before conversion to absolute instants. Nil means
	// time.Local.
	Location *time.Location

	// NewID synthesizes an identifier when the record has none. Nil means
	// a fresh UUID.
	NewID func() string
}

// Normalize converts raw into a canonical Event or a *models.ValidationError.
func Normalize(raw models.RawEvent, opts Options) (models.Event, error) {
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}

	title := strings.TrimSpace(raw.Title)
	if title == "" {
		if !opts.Imported {
			return models.Event{}, &models.ValidationError{Kind: models.MissingTitle, Field: "title"}
		}
		title = untitledImport
	}

	start := opts.Now
	if raw.Start != nil {
		start = *raw.Start
	}
	var end time.Time
	switch {
	case raw.End != nil:
		end = *raw.End
	case opts.Imported:
		end = start
	default:
		end = start.Add(time.Hour)
	}

	if end.Before(start) {
		return models.Event{}, &models.ValidationError{Kind: models.InvalidInterval, Field: "end"}
	}

	if raw.AllDay {
		// Snap to the full local calendar day(s) before converting to
		// absolute instants.
		start, end = snapAllDay(start, end, opts.Location)
	}

	source := models.SourceLocal
	if opts.Imported {
		source = models.SourceCloud
	}

	ev := models.Event{
		ID:           raw.ID,
		Title:        title,
		Notes:        raw.Notes,
		Start:        start.UTC(),
		End:          end.UTC(),
		AllDay:       raw.AllDay,
		Category:     category(raw.Category),
		Source:       source,
		Participants: splitParticipants(raw.Participants, raw.ParticipantList),
		Free:         raw.Free,
	}
	if ev.ID == "" {
		ev.ID = newID(opts)
	}
	return ev, nil
}

func newID(opts Options) string {
	if opts.NewID != nil {
		return opts.NewID()
	}
	if opts.Imported {
		return uuid.NewString()
	}
	return localIDPrefix + uuid.NewString()
}

// snapAllDay expands [start, end] to 00:00:00 of the start day through
// 23:59:59 of the end day in loc.
func snapAllDay(start, end time.Time, loc *time.Location) (time.Time, time.Time) {
	s := start.In(loc)
	e := end.In(loc)
	dayStart := time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, loc)
	dayEnd := time.Date(e.Year(), e.Month(), e.Day(), 23, 59, 59, 0, loc)
	return dayStart, dayEnd
}

func splitParticipants(list []string, raw string) []string {
	var out []string
	add := func(p string) {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	for _, p := range list {
		add(p)
	}
	for _, p := range strings.Split(raw, ",") {
		add(p)
	}
	return out
}

// category maps well-known labels onto the fixed set and passes free-form
// labels through untouched.
func category(label string) models.Category {
	label = strings.TrimSpace(label)
	if label == "" {
		return ""
	}
	for _, c := range []models.Category{
		models.CategoryWork,
		models.CategoryPersonal,
		models.CategoryMeeting,
		models.CategoryTravel,
		models.CategoryOther,
	} {
		if strings.EqualFold(label, string(c)) {
			return c
		}
	}
	return models.Category(label)
}
