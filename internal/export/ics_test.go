package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/emersion/go-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"booked/internal/models"
)

func decodeEvents(t *testing.T, buf *bytes.Buffer) []*ical.Component {
	t.Helper()
	cal, err := ical.NewDecoder(buf).Decode()
	require.NoError(t, err)

	var events []*ical.Component
	for _, comp := range cal.Children {
		if comp.Name == ical.CompEvent {
			events = append(events, comp)
		}
	}
	return events
}

func text(t *testing.T, comp *ical.Component, name string) string {
	t.Helper()
	p := comp.Props.Get(name)
	require.NotNil(t, p, name)
	v, err := p.Text()
	require.NoError(t, err)
	return v
}

func TestEventsRoundTrip(t *testing.T) {
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	err := Events(&buf, []models.Event{
		{
			ID:           "ev-1",
			Title:        "Dentist",
			Notes:        "bring insurance card",
			Start:        start,
			End:          start.Add(30 * time.Minute),
			Participants: []string{"ana@example.com"},
		},
		{
			ID:    "ev-2",
			Title: "Maybe drinks",
			Start: start.Add(9 * time.Hour),
			End:   start.Add(11 * time.Hour),
			Free:  true,
		},
	})
	require.NoError(t, err)

	events := decodeEvents(t, &buf)
	require.Len(t, events, 2)

	first := events[0]
	assert.Equal(t, "ev-1", text(t, first, ical.PropUID))
	assert.Equal(t, "Dentist", text(t, first, ical.PropSummary))
	assert.Equal(t, "bring insurance card", text(t, first, ical.PropDescription))
	assert.Nil(t, first.Props.Get(ical.PropTransparency))

	got, err := first.Props.Get(ical.PropDateTimeStart).DateTime(time.UTC)
	require.NoError(t, err)
	assert.True(t, got.Equal(start))
	assert.Equal(t, "mailto:ana@example.com", text(t, first, ical.PropAttendee))

	assert.Equal(t, "TRANSPARENT", text(t, events[1], ical.PropTransparency))
}

func TestFreeWindowsRoundTrip(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	err := FreeWindows(&buf, "band: everyone free", []models.OverlapWindow{
		{Start: start, End: start.Add(time.Hour)},
		{Start: start.Add(3 * time.Hour), End: start.Add(4 * time.Hour)},
	})
	require.NoError(t, err)

	events := decodeEvents(t, &buf)
	require.Len(t, events, 2)

	for _, ve := range events {
		assert.Equal(t, "band: everyone free", text(t, ve, ical.PropSummary))
		// Transparent so importing the result does not mark anyone busy.
		assert.Equal(t, "TRANSPARENT", text(t, ve, ical.PropTransparency))
		assert.NotEmpty(t, text(t, ve, ical.PropUID))
	}

	got, err := events[1].Props.Get(ical.PropDateTimeStart).DateTime(time.UTC)
	require.NoError(t, err)
	assert.True(t, got.Equal(start.Add(3*time.Hour)))
}

func TestFreeWindowsEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FreeWindows(&buf, "nobody", nil))
	assert.Empty(t, decodeEvents(t, &buf))
}
