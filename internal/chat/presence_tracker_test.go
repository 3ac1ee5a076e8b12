package chat

import (
	"testing"
	"time"

	"github.com/rubihq/chat-sync/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresenceTrackerTyping(t *testing.T) {
	now := time.Now()
	tracker := NewPresenceTracker(6 * time.Second)
	tracker.now = func() time.Time { return now }

	tracker.ApplySnapshot([]models.PresenceState{
		{UserID: "alice", IsTyping: true, UpdatedAt: now},
		{UserID: "bob", IsTyping: false, UpdatedAt: now},
		{UserID: "me", IsTyping: true, UpdatedAt: now},
	})

	got := tracker.Typing("me")
	require.Equal(t, []string{"alice"}, got)
}

func TestPresenceTrackerStaleDecay(t *testing.T) {
	now := time.Now()
	tracker := NewPresenceTracker(6 * time.Second)
	tracker.now = func() time.Time { return now }

	tracker.ApplySnapshot([]models.PresenceState{
		{UserID: "alice", IsTyping: true, UpdatedAt: now},
	})
	require.Equal(t, []string{"alice"}, tracker.Typing("me"))

	// No further snapshots: the entry decays past the staleness window even
	// though no stop event ever arrived.
	tracker.now = func() time.Time { return now.Add(7 * time.Second) }
	assert.Empty(t, tracker.Typing("me"))
}

func TestPresenceTrackerSnapshotRebuild(t *testing.T) {
	now := time.Now()
	tracker := NewPresenceTracker(6 * time.Second)
	tracker.now = func() time.Time { return now }

	tracker.ApplySnapshot([]models.PresenceState{
		{UserID: "alice", IsTyping: true, UpdatedAt: now},
	})
	tracker.ApplySnapshot([]models.PresenceState{
		{UserID: "bob", IsTyping: true, UpdatedAt: now},
	})

	// Full-state semantics: alice vanished from the membership snapshot.
	require.Equal(t, []string{"bob"}, tracker.Typing("me"))
}

func TestPresenceTrackerZeroTimestampDefaultsToNow(t *testing.T) {
	now := time.Now()
	tracker := NewPresenceTracker(6 * time.Second)
	tracker.now = func() time.Time { return now }

	tracker.ApplySnapshot([]models.PresenceState{
		{UserID: "alice", IsTyping: true},
	})
	require.Equal(t, []string{"alice"}, tracker.Typing("me"))
}

func TestPresenceTrackerClear(t *testing.T) {
	now := time.Now()
	tracker := NewPresenceTracker(6 * time.Second)
	tracker.now = func() time.Time { return now }

	tracker.ApplySnapshot([]models.PresenceState{
		{UserID: "alice", IsTyping: true, UpdatedAt: now},
	})
	tracker.Clear()
	assert.Empty(t, tracker.Typing("me"))
}
