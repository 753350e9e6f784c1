package repo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryProfiles(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.FindProfileByDevice(ctx, "d1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, m.UpsertProfile(ctx, Profile{DeviceID: "d1", Name: "Dr A", Email: "a@x.org"}))
	p, err := m.FindProfileByEmail(ctx, "A@X.ORG")
	require.NoError(t, err)
	assert.Equal(t, "d1", p.DeviceID)

	require.NoError(t, m.RelinkDevice(ctx, "d1", "d2"))
	_, err = m.FindProfileByDevice(ctx, "d1")
	assert.ErrorIs(t, err, ErrNotFound)
	p, err = m.FindProfileByDevice(ctx, "d2")
	require.NoError(t, err)
	assert.Equal(t, "Dr A", p.Name)

	assert.ErrorIs(t, m.RelinkDevice(ctx, "nope", "d3"), ErrNotFound)
}

func TestMemoryFeedbackQueue(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		_, err := m.InsertFeedback(ctx, Feedback{Subject: string(rune('a' + i)), CreatedAt: base.Add(time.Duration(i) * time.Hour)})
		require.NoError(t, err)
	}

	pending, err := m.PendingFeedback(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	require.NoError(t, m.MarkFeedbackNotified(ctx, pending[0].ID, base))

	pending, err = m.PendingFeedback(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 2)
	assert.Equal(t, "b", pending[0].Subject)

	all, err := m.ListFeedback(ctx, 2)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "c", all[0].Subject)

	assert.ErrorIs(t, m.MarkFeedbackNotified(ctx, 99, base), ErrNotFound)
}
