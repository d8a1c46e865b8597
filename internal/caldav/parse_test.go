package caldav

import (
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeEvents(t *testing.T, body string) []*ical.Component {
	t.Helper()
	cal, err := ical.NewDecoder(strings.NewReader(body)).Decode()
	require.NoError(t, err)

	var events []*ical.Component
	for _, comp := range cal.Children {
		if comp.Name == ical.CompEvent {
			events = append(events, comp)
		}
	}
	return events
}

func ics(lines ...string) string {
	all := append([]string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//test//EN",
	}, lines...)
	all = append(all, "END:VCALENDAR")
	return strings.Join(all, "\r\n") + "\r\n"
}

func TestParseComponentBasicEvent(t *testing.T) {
	events := decodeEvents(t, ics(
		"BEGIN:VEVENT",
		"UID:ev-1",
		"SUMMARY:Dentist",
		"DESCRIPTION:bring insurance card",
		"DTSTART:20240101T090000Z",
		"DTEND:20240101T093000Z",
		"TRANSP:OPAQUE",
		"ATTENDEE:mailto:ana@example.com",
		"END:VEVENT",
	))
	require.Len(t, events, 1)

	raw, ok := parseComponent(events[0])
	require.True(t, ok)
	assert.Equal(t, "ev-1", raw.ID)
	assert.Equal(t, "Dentist", raw.Title)
	assert.Equal(t, "bring insurance card", raw.Notes)
	assert.False(t, raw.Free)
	assert.False(t, raw.AllDay)
	require.NotNil(t, raw.Start)
	assert.True(t, raw.Start.Equal(time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)))
	require.NotNil(t, raw.End)
	assert.Equal(t, []string{"ana@example.com"}, raw.Participants)
}

func TestParseComponentAllDay(t *testing.T) {
	events := decodeEvents(t, ics(
		"BEGIN:VEVENT",
		"UID:ev-2",
		"SUMMARY:Holiday",
		"DTSTART;VALUE=DATE:20240102",
		"END:VEVENT",
	))
	require.Len(t, events, 1)

	raw, ok := parseComponent(events[0])
	require.True(t, ok)
	assert.True(t, raw.AllDay)
}

func TestParseComponentAllDayExclusiveEnd(t *testing.T) {
	// RFC 5545: a date-valued DTEND names the day after the last day. A
	// one-day event must not leak into Jan 2.
	events := decodeEvents(t, ics(
		"BEGIN:VEVENT",
		"UID:ev-5",
		"SUMMARY:Holiday",
		"DTSTART;VALUE=DATE:20240101",
		"DTEND;VALUE=DATE:20240102",
		"END:VEVENT",
	))
	require.Len(t, events, 1)

	raw, ok := parseComponent(events[0])
	require.True(t, ok)
	assert.True(t, raw.AllDay)
	require.NotNil(t, raw.End)
	assert.True(t, raw.End.Equal(*raw.Start))
}

func TestParseComponentMultiDayAllDay(t *testing.T) {
	events := decodeEvents(t, ics(
		"BEGIN:VEVENT",
		"UID:ev-6",
		"SUMMARY:Conference",
		"DTSTART;VALUE=DATE:20240101",
		"DTEND;VALUE=DATE:20240104",
		"END:VEVENT",
	))
	raw, ok := parseComponent(events[0])
	require.True(t, ok)
	require.NotNil(t, raw.End)
	assert.True(t, raw.End.Equal(raw.Start.AddDate(0, 0, 2)), "inclusive last day is Jan 3")
}

func TestParseComponentTransparentEvent(t *testing.T) {
	events := decodeEvents(t, ics(
		"BEGIN:VEVENT",
		"UID:ev-3",
		"SUMMARY:Maybe drinks",
		"DTSTART:20240101T180000Z",
		"TRANSP:TRANSPARENT",
		"END:VEVENT",
	))
	raw, ok := parseComponent(events[0])
	require.True(t, ok)
	assert.True(t, raw.Free)
}

func TestParseComponentMissingStart(t *testing.T) {
	events := decodeEvents(t, ics(
		"BEGIN:VEVENT",
		"UID:ev-4",
		"SUMMARY:No time",
		"END:VEVENT",
	))
	_, ok := parseComponent(events[0])
	assert.False(t, ok)
}

func TestExpandComponentRecurring(t *testing.T) {
	events := decodeEvents(t, ics(
		"BEGIN:VEVENT",
		"UID:standup",
		"SUMMARY:Standup",
		"DTSTART:20240101T090000Z",
		"DTEND:20240101T091500Z",
		"RRULE:FREQ=DAILY;COUNT=5",
		"EXDATE:20240102T090000Z",
		"END:VEVENT",
	))
	require.Len(t, events, 1)

	rangeStart := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rangeEnd := time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC)
	raws := expandComponent(events[0], rangeStart, rangeEnd)

	// Jan 1 through Jan 3 minus the Jan 2 exception.
	require.Len(t, raws, 2)
	assert.True(t, raws[0].Start.Equal(time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)))
	assert.True(t, raws[1].Start.Equal(time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC)))

	// Each occurrence keeps the base duration and gets a stable derived id.
	assert.Equal(t, 15*time.Minute, raws[0].End.Sub(*raws[0].Start))
	assert.Equal(t, "standup-20240101T090000Z", raws[0].ID)
	assert.NotEqual(t, raws[0].ID, raws[1].ID)
}

func TestExpandComponentNonRecurring(t *testing.T) {
	events := decodeEvents(t, ics(
		"BEGIN:VEVENT",
		"UID:once",
		"SUMMARY:One-off",
		"DTSTART:20240110T100000Z",
		"DTEND:20240110T110000Z",
		"END:VEVENT",
	))
	raws := expandComponent(events[0],
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	require.Len(t, raws, 1)
	assert.Equal(t, "once", raws[0].ID)
}
