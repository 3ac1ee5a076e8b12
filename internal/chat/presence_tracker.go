package chat

import (
	"sort"
	"sync"
	"time"

	"github.com/rubihq/chat-sync/internal/models"
)

// PresenceTracker derives the displayed typing set from presence channel
// snapshots. The channel is lossy and best-effort, so entries decay: anything
// older than the staleness window is treated as absent even without an
// explicit stop event.
type PresenceTracker struct {
	mu     sync.Mutex
	ttl    time.Duration
	now    func() time.Time
	states map[string]models.PresenceState
}

func NewPresenceTracker(ttl time.Duration) *PresenceTracker {
	return &PresenceTracker{
		ttl:    ttl,
		now:    time.Now,
		states: make(map[string]models.PresenceState),
	}
}

// ApplySnapshot rebuilds the tracked state from a full membership snapshot.
// Presence is fully ephemeral; nothing from previous snapshots survives.
func (t *PresenceTracker) ApplySnapshot(snapshot []models.PresenceState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.states = make(map[string]models.PresenceState, len(snapshot))
	for _, s := range snapshot {
		if s.UpdatedAt.IsZero() {
			s.UpdatedAt = t.now()
		}
		t.states[s.UserID] = s
	}
}

// Typing returns the ids of users currently typing, excluding the local
// identity and any entry whose heartbeat has gone stale.
func (t *PresenceTracker) Typing(selfID string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.now().Add(-t.ttl)
	var out []string
	for id, s := range t.states {
		if id == selfID || !s.IsTyping {
			continue
		}
		if s.UpdatedAt.Before(cutoff) {
			continue
		}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Clear drops all tracked state. Used on scope switch.
func (t *PresenceTracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.states = make(map[string]models.PresenceState)
}
