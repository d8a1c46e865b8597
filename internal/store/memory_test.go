package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"booked/internal/models"
)

func TestMemoryUserEvents(t *testing.T) {
	st := NewMemory()
	ctx := context.Background()

	events, err := st.GetUserEvents(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, events, "unknown user has an empty set, not an error")

	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	set := []models.Event{{ID: "local-1", Title: "x", Start: now, End: now.Add(time.Hour), Source: models.SourceLocal}}
	require.NoError(t, st.PutUserEvents(ctx, "u1", set))

	got, err := st.GetUserEvents(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, set, got)

	// Mutating the returned slice must not leak into the store.
	got[0].Title = "mutated"
	again, _ := st.GetUserEvents(ctx, "u1")
	assert.Equal(t, "x", again[0].Title)
}

func TestMemoryGroups(t *testing.T) {
	st := NewMemory()
	ctx := context.Background()

	_, err := st.GetGroup(ctx, "nope")
	assert.True(t, errors.Is(err, models.ErrNotFound))

	require.NoError(t, st.PutGroup(ctx, models.Group{ID: "g2", Name: "b"}))
	require.NoError(t, st.PutGroup(ctx, models.Group{ID: "g1", Name: "a"}))

	groups, err := st.ListGroups(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "g1", groups[0].ID, "listing is ordered by id")
}

func TestMemoryMessages(t *testing.T) {
	st := NewMemory()
	ctx := context.Background()

	msg := models.Message{ID: "m1", GroupID: "g1", Sender: "a", Body: "hi", SentAt: time.Now().UTC()}
	require.NoError(t, st.AppendMessage(ctx, msg))

	msgs, err := st.ListMessages(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hi", msgs[0].Body)

	other, err := st.ListMessages(ctx, "g2")
	require.NoError(t, err)
	assert.Empty(t, other)
}
