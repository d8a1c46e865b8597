package normalize

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"booked/internal/models"
)

var testNow = time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)

func baseOpts() Options {
	return Options{Now: testNow, Location: time.UTC}
}

func TestNormalizeMissingTitle(t *testing.T) {
	_, err := Normalize(models.RawEvent{Title: "  "}, baseOpts())
	require.Error(t, err)

	var verr *models.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, models.MissingTitle, verr.Kind)
}

func TestNormalizeImportedTitleDefaults(t *testing.T) {
	opts := baseOpts()
	opts.Imported = true

	ev, err := Normalize(models.RawEvent{ID: "ext-1"}, opts)
	require.NoError(t, err)
	assert.Equal(t, "Untitled Event", ev.Title)
	assert.Equal(t, models.SourceCloud, ev.Source)
}

func TestNormalizeTimestampDefaults(t *testing.T) {
	ev, err := Normalize(models.RawEvent{Title: "Standup"}, baseOpts())
	require.NoError(t, err)
	assert.True(t, ev.Start.Equal(testNow))
	assert.True(t, ev.End.Equal(testNow.Add(time.Hour)))

	opts := baseOpts()
	opts.Imported = true
	ev, err = Normalize(models.RawEvent{ID: "ext-2", Title: "Imported"}, opts)
	require.NoError(t, err)
	assert.True(t, ev.End.Equal(ev.Start), "imported events default end to start")
}

func TestNormalizeInvalidInterval(t *testing.T) {
	start := testNow
	end := testNow.Add(-time.Hour)
	_, err := Normalize(models.RawEvent{Title: "Backwards", Start: &start, End: &end}, baseOpts())

	var verr *models.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, models.InvalidInterval, verr.Kind)
}

func TestNormalizeAllDayBackwardsInterval(t *testing.T) {
	// A backwards interval is rejected even when day snapping would have
	// produced a valid span.
	start := time.Date(2024, 3, 6, 9, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 5, 14, 0, 0, 0, time.UTC)
	_, err := Normalize(models.RawEvent{Title: "Backwards", Start: &start, End: &end, AllDay: true}, baseOpts())

	var verr *models.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, models.InvalidInterval, verr.Kind)
}

func TestNormalizeAllDaySnapsToCalendarDays(t *testing.T) {
	start := time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)
	end := time.Date(2024, 3, 6, 9, 0, 0, 0, time.UTC)

	ev, err := Normalize(models.RawEvent{Title: "Offsite", Start: &start, End: &end, AllDay: true}, baseOpts())
	require.NoError(t, err)

	assert.True(t, ev.Start.Equal(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)))
	assert.True(t, ev.End.Equal(time.Date(2024, 3, 6, 23, 59, 59, 0, time.UTC)))
	assert.True(t, ev.AllDay)
}

func TestNormalizeAllDayLocalDayBeforeUTCConversion(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 01:30 UTC is still the previous evening in New York; the all-day
	// span must cover the local day, not the UTC one.
	start := time.Date(2024, 3, 6, 1, 30, 0, 0, time.UTC)
	opts := baseOpts()
	opts.Location = loc

	ev, err := Normalize(models.RawEvent{Title: "Trip", Start: &start, AllDay: true}, opts)
	require.NoError(t, err)
	assert.True(t, ev.Start.Equal(time.Date(2024, 3, 5, 0, 0, 0, 0, loc)))
	assert.Equal(t, time.UTC, ev.Start.Location())
}

func TestNormalizeParticipants(t *testing.T) {
	ev, err := Normalize(models.RawEvent{
		Title:           "Dinner",
		Participants:    []string{" ana ", ""},
		ParticipantList: "bo, , chris ",
	}, baseOpts())
	require.NoError(t, err)
	assert.Equal(t, []string{"ana", "bo", "chris"}, ev.Participants)
}

func TestNormalizeIdentity(t *testing.T) {
	ev, err := Normalize(models.RawEvent{ID: "ext-9", Title: "Keeps id"}, baseOpts())
	require.NoError(t, err)
	assert.Equal(t, "ext-9", ev.ID)

	ev, err = Normalize(models.RawEvent{Title: "Fresh local"}, baseOpts())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ev.ID, "local-"), "local ids live in their own id space")

	opts := baseOpts()
	opts.Imported = true
	ev, err = Normalize(models.RawEvent{Title: "Fresh import"}, opts)
	require.NoError(t, err)
	assert.NotEmpty(t, ev.ID)
	assert.False(t, strings.HasPrefix(ev.ID, "local-"))
}

func TestNormalizeCategory(t *testing.T) {
	ev, err := Normalize(models.RawEvent{Title: "1:1", Category: "meeting"}, baseOpts())
	require.NoError(t, err)
	assert.Equal(t, models.CategoryMeeting, ev.Category)

	ev, err = Normalize(models.RawEvent{Title: "Band", Category: "Rehearsal"}, baseOpts())
	require.NoError(t, err)
	assert.Equal(t, models.Category("Rehearsal"), ev.Category)
}

func TestNormalizeStartEndInvariant(t *testing.T) {
	cases := []models.RawEvent{
		{Title: "defaults only"},
		{Title: "start only", Start: &testNow},
		{Title: "all day", AllDay: true},
	}
	for _, raw := range cases {
		ev, err := Normalize(raw, baseOpts())
		require.NoError(t, err, raw.Title)
		assert.False(t, ev.End.Before(ev.Start), raw.Title)
	}
}
