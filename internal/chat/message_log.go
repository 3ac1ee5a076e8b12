package chat

import (
	"sort"
	"sync"
	"time"

	"github.com/rubihq/chat-sync/internal/models"
)

// heuristicMatchWindow bounds how far apart a provisional entry's local
// timestamp and the store-assigned timestamp of its echo may be for the
// content-based fallback match to fire.
const heuristicMatchWindow = 10 * time.Second

// MessageLog is the ordered, deduplicated in-memory view of the active
// scope's messages. It is the single source of truth the read surface
// renders. Entries are kept sorted by creation timestamp ascending with the
// store id as tiebreak, except that a provisional entry keeps its position
// when its confirming echo replaces it.
type MessageLog struct {
	mu      sync.Mutex
	entries []models.Message
	ids     map[string]struct{}
}

func NewMessageLog() *MessageLog {
	return &MessageLog{
		ids: make(map[string]struct{}),
	}
}

// Append inserts a message into the log. Confirmed messages are deduplicated
// by id (at-least-once delivery upstream), and a confirmed message matching
// an outstanding provisional entry replaces that entry in place instead of
// inserting a duplicate. Returns false when the call was a no-op.
func (l *MessageLog) Append(m models.Message) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if m.Provisional() {
		m.Status = models.StatusPending
		l.insertSorted(m)
		return true
	}

	if _, ok := l.ids[m.ID]; ok {
		return false
	}
	if l.reconcileLocked(m) {
		return true
	}
	m.Status = models.StatusConfirmed
	l.ids[m.ID] = struct{}{}
	l.insertSorted(m)
	return true
}

// Reconcile replaces the provisional entry held under token with the
// confirmed message, preserving its position. Returns false when no pending
// entry matches.
func (l *MessageLog) Reconcile(token string, confirmed models.Message) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	confirmed.ClientToken = token
	return l.reconcileLocked(confirmed)
}

func (l *MessageLog) reconcileLocked(confirmed models.Message) bool {
	idx := l.findProvisional(confirmed)
	if idx < 0 {
		return false
	}
	confirmed.Status = models.StatusConfirmed
	l.entries[idx] = confirmed
	l.ids[confirmed.ID] = struct{}{}
	return true
}

// findProvisional matches a confirmed message against outstanding provisional
// entries: by correlation token when the echo carries one, otherwise by
// author and content with timestamps within the heuristic window. The token
// match is unambiguous, so it also supersedes entries already marked failed:
// an echo landing after the reconcile deadline means the write did succeed
// server-side, and the provisional must be replaced, not duplicated. The
// heuristic never touches failed entries.
func (l *MessageLog) findProvisional(confirmed models.Message) int {
	if confirmed.ClientToken != "" {
		for i, e := range l.entries {
			if e.Provisional() && e.ClientToken == confirmed.ClientToken {
				return i
			}
		}
	}
	for i, e := range l.entries {
		if !e.Provisional() || e.Status != models.StatusPending {
			continue
		}
		if e.AuthorID != confirmed.AuthorID || e.Content != confirmed.Content {
			continue
		}
		delta := confirmed.CreatedAt.Sub(e.CreatedAt)
		if delta < 0 {
			delta = -delta
		}
		if delta <= heuristicMatchWindow {
			return i
		}
	}
	return -1
}

// MarkFailed flags the pending provisional entry held under token. The entry
// stays visible for user retry. Returns false when the token is unknown or
// already settled.
func (l *MessageLog) MarkFailed(token string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, e := range l.entries {
		if e.Provisional() && e.Status == models.StatusPending && e.ClientToken == token {
			l.entries[i].Status = models.StatusFailed
			return true
		}
	}
	return false
}

// Reset replaces the log's confirmed contents with a fresh seed, keeping any
// outstanding provisional entries that the seed does not already confirm.
// Used on scope seed and on reseed after a stream gap.
func (l *MessageLog) Reset(seed []models.Message) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var held []models.Message
	for _, e := range l.entries {
		if e.Provisional() {
			held = append(held, e)
		}
	}

	l.entries = l.entries[:0]
	l.ids = make(map[string]struct{}, len(seed))
	for _, m := range seed {
		if _, ok := l.ids[m.ID]; ok {
			continue
		}
		m.Status = models.StatusConfirmed
		l.ids[m.ID] = struct{}{}
		l.insertSorted(m)
	}

	// A provisional whose write landed during the gap is already in the seed;
	// matching it here avoids resurrecting a duplicate. Failed entries count
	// too: the seed row proves the write succeeded after all.
	for _, p := range held {
		if l.seedConfirms(p) {
			continue
		}
		l.insertSorted(p)
	}
}

func (l *MessageLog) seedConfirms(p models.Message) bool {
	for _, e := range l.entries {
		if e.Provisional() {
			continue
		}
		if e.ClientToken != "" && e.ClientToken == p.ClientToken {
			return true
		}
	}
	return false
}

// Clear drops everything, provisional entries included. Used on scope switch
// where nothing from the old scope may leak into the new one.
func (l *MessageLog) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = l.entries[:0]
	l.ids = make(map[string]struct{})
}

// Query returns a snapshot copy in display order.
func (l *MessageLog) Query() []models.Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]models.Message, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len reports the number of entries, provisional included.
func (l *MessageLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *MessageLog) insertSorted(m models.Message) {
	idx := sort.Search(len(l.entries), func(i int) bool {
		return messageLess(m, l.entries[i])
	})
	l.entries = append(l.entries, models.Message{})
	copy(l.entries[idx+1:], l.entries[idx:])
	l.entries[idx] = m
}

func messageLess(a, b models.Message) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}
