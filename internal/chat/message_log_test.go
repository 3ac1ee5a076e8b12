package chat

import (
	"testing"
	"time"

	"github.com/rubihq/chat-sync/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func confirmedMsg(id, author, content string, at time.Time) models.Message {
	return models.Message{
		ID:        id,
		AuthorID:  author,
		Content:   content,
		CreatedAt: at,
		Status:    models.StatusConfirmed,
	}
}

func TestMessageLogOrdering(t *testing.T) {
	l := NewMessageLog()
	base := time.Now()

	require.True(t, l.Append(confirmedMsg("m3", "alice", "third", base.Add(2*time.Second))))
	require.True(t, l.Append(confirmedMsg("m1", "alice", "first", base)))
	require.True(t, l.Append(confirmedMsg("m2", "bob", "second", base.Add(time.Second))))

	got := l.Query()
	require.Len(t, got, 3)
	assert.Equal(t, "m1", got[0].ID)
	assert.Equal(t, "m2", got[1].ID)
	assert.Equal(t, "m3", got[2].ID)
}

func TestMessageLogTimestampTiebreakByID(t *testing.T) {
	l := NewMessageLog()
	at := time.Now()

	l.Append(confirmedMsg("b", "alice", "x", at))
	l.Append(confirmedMsg("a", "alice", "y", at))

	got := l.Query()
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
}

func TestMessageLogDeduplicatesByID(t *testing.T) {
	l := NewMessageLog()
	m := confirmedMsg("m1", "alice", "hello", time.Now())

	require.True(t, l.Append(m))
	require.False(t, l.Append(m))
	assert.Equal(t, 1, l.Len())
}

func TestMessageLogReconcileByToken(t *testing.T) {
	l := NewMessageLog()
	now := time.Now()

	l.Append(models.Message{
		AuthorID:    "alice",
		Content:     "hello",
		ClientToken: "tok-1",
		CreatedAt:   now,
	})
	require.Equal(t, 1, l.Len())

	echo := confirmedMsg("m1", "alice", "hello", now.Add(200*time.Millisecond))
	echo.ClientToken = "tok-1"
	require.True(t, l.Append(echo))

	got := l.Query()
	require.Len(t, got, 1)
	assert.Equal(t, "m1", got[0].ID)
	assert.Equal(t, models.StatusConfirmed, got[0].Status)

	// The echo may arrive again; the id is known now.
	require.False(t, l.Append(echo))
	assert.Equal(t, 1, l.Len())
}

func TestMessageLogReconcileHeuristic(t *testing.T) {
	l := NewMessageLog()
	now := time.Now()

	l.Append(models.Message{
		AuthorID:    "alice",
		Content:     "hello",
		ClientToken: "tok-1",
		CreatedAt:   now,
	})

	// No token on the echo: author, content and timestamp proximity decide.
	echo := confirmedMsg("m1", "alice", "hello", now.Add(2*time.Second))
	require.True(t, l.Append(echo))

	got := l.Query()
	require.Len(t, got, 1)
	assert.Equal(t, "m1", got[0].ID)
}

func TestMessageLogHeuristicRespectsWindow(t *testing.T) {
	l := NewMessageLog()
	now := time.Now()

	l.Append(models.Message{
		AuthorID:    "alice",
		Content:     "hello",
		ClientToken: "tok-1",
		CreatedAt:   now,
	})

	// Same author and content but far outside the window: a different message.
	echo := confirmedMsg("m9", "alice", "hello", now.Add(time.Minute))
	require.True(t, l.Append(echo))
	assert.Equal(t, 2, l.Len())
}

func TestMessageLogMarkFailed(t *testing.T) {
	l := NewMessageLog()

	l.Append(models.Message{
		AuthorID:    "alice",
		Content:     "hello",
		ClientToken: "tok-1",
		CreatedAt:   time.Now(),
	})

	require.True(t, l.MarkFailed("tok-1"))
	require.False(t, l.MarkFailed("tok-1"), "already settled")
	require.False(t, l.MarkFailed("unknown"))

	got := l.Query()
	require.Len(t, got, 1)
	assert.Equal(t, models.StatusFailed, got[0].Status)
}

func TestMessageLogLateEchoSupersedesFailed(t *testing.T) {
	l := NewMessageLog()
	now := time.Now()

	l.Append(models.Message{
		AuthorID:    "alice",
		Content:     "hi",
		ClientToken: "tok-1",
		CreatedAt:   now,
	})
	require.True(t, l.MarkFailed("tok-1"))

	// The write succeeded server-side; its echo just missed the deadline.
	echo := confirmedMsg("m1", "alice", "hi", now.Add(time.Second))
	echo.ClientToken = "tok-1"
	require.True(t, l.Append(echo))

	got := l.Query()
	require.Len(t, got, 1, "failed entry superseded, not duplicated")
	assert.Equal(t, "m1", got[0].ID)
	assert.Equal(t, models.StatusConfirmed, got[0].Status)
}

func TestMessageLogHeuristicSkipsFailed(t *testing.T) {
	l := NewMessageLog()
	now := time.Now()

	l.Append(models.Message{
		AuthorID:    "alice",
		Content:     "hi",
		ClientToken: "tok-1",
		CreatedAt:   now,
	})
	require.True(t, l.MarkFailed("tok-1"))

	// Without the token there is no proof this is the same message.
	echo := confirmedMsg("m1", "alice", "hi", now.Add(time.Second))
	require.True(t, l.Append(echo))
	assert.Equal(t, 2, l.Len())
}

func TestMessageLogResetKeepsProvisionals(t *testing.T) {
	l := NewMessageLog()
	now := time.Now()

	l.Append(confirmedMsg("old", "bob", "stale", now.Add(-time.Hour)))
	l.Append(models.Message{
		AuthorID:    "alice",
		Content:     "in flight",
		ClientToken: "tok-1",
		CreatedAt:   now,
	})

	l.Reset([]models.Message{
		confirmedMsg("m1", "bob", "first", now.Add(-time.Minute)),
	})

	got := l.Query()
	require.Len(t, got, 2)
	assert.Equal(t, "m1", got[0].ID)
	assert.True(t, got[1].Provisional())
	assert.Equal(t, "tok-1", got[1].ClientToken)
}

func TestMessageLogResetDropsConfirmedProvisional(t *testing.T) {
	l := NewMessageLog()
	now := time.Now()

	l.Append(models.Message{
		AuthorID:    "alice",
		Content:     "in flight",
		ClientToken: "tok-1",
		CreatedAt:   now,
	})

	// The write landed during the gap: the seed carries the confirmed row.
	seed := confirmedMsg("m1", "alice", "in flight", now)
	seed.ClientToken = "tok-1"
	l.Reset([]models.Message{seed})

	got := l.Query()
	require.Len(t, got, 1)
	assert.Equal(t, "m1", got[0].ID)
	assert.Equal(t, models.StatusConfirmed, got[0].Status)
}

func TestMessageLogResetDropsFailedProvisionalConfirmedBySeed(t *testing.T) {
	l := NewMessageLog()
	now := time.Now()

	l.Append(models.Message{
		AuthorID:    "alice",
		Content:     "in flight",
		ClientToken: "tok-1",
		CreatedAt:   now,
	})
	require.True(t, l.MarkFailed("tok-1"))

	// The deadline fired, but the seed proves the write went through.
	seed := confirmedMsg("m1", "alice", "in flight", now)
	seed.ClientToken = "tok-1"
	l.Reset([]models.Message{seed})

	got := l.Query()
	require.Len(t, got, 1)
	assert.Equal(t, models.StatusConfirmed, got[0].Status)
}

func TestMessageLogClear(t *testing.T) {
	l := NewMessageLog()
	l.Append(confirmedMsg("m1", "alice", "hello", time.Now()))
	l.Append(models.Message{AuthorID: "alice", ClientToken: "tok-1", Content: "x", CreatedAt: time.Now()})

	l.Clear()
	assert.Equal(t, 0, l.Len())

	// Cleared tokens are gone for good.
	assert.False(t, l.MarkFailed("tok-1"))
}
