package chat

import (
	"sort"
	"sync"

	"github.com/rubihq/chat-sync/internal/models"
)

// ReactionIndex maps message ids to the reactions on them. At most one
// reaction per (message, author) pair is kept; a repeat upsert overwrites.
type ReactionIndex struct {
	mu        sync.Mutex
	byMessage map[string]map[string]models.Reaction
}

func NewReactionIndex() *ReactionIndex {
	return &ReactionIndex{
		byMessage: make(map[string]map[string]models.Reaction),
	}
}

// Upsert records a reaction, overwriting any prior value by the same author
// on the same message. Idempotent to duplicate stream delivery.
func (ri *ReactionIndex) Upsert(r models.Reaction) {
	ri.mu.Lock()
	defer ri.mu.Unlock()
	authors, ok := ri.byMessage[r.MessageID]
	if !ok {
		authors = make(map[string]models.Reaction)
		ri.byMessage[r.MessageID] = authors
	}
	authors[r.AuthorID] = r
}

// ByMessage returns the reactions on a message in deterministic (author id)
// order.
func (ri *ReactionIndex) ByMessage(messageID string) []models.Reaction {
	ri.mu.Lock()
	defer ri.mu.Unlock()
	authors := ri.byMessage[messageID]
	if len(authors) == 0 {
		return nil
	}
	out := make([]models.Reaction, 0, len(authors))
	for _, r := range authors {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].AuthorID < out[j].AuthorID
	})
	return out
}

// Reset replaces the index contents with a fresh seed.
func (ri *ReactionIndex) Reset(seed []models.Reaction) {
	ri.mu.Lock()
	defer ri.mu.Unlock()
	ri.byMessage = make(map[string]map[string]models.Reaction, len(seed))
	for _, r := range seed {
		authors, ok := ri.byMessage[r.MessageID]
		if !ok {
			authors = make(map[string]models.Reaction)
			ri.byMessage[r.MessageID] = authors
		}
		authors[r.AuthorID] = r
	}
}

// Clear drops everything. Used on scope switch.
func (ri *ReactionIndex) Clear() {
	ri.mu.Lock()
	defer ri.mu.Unlock()
	ri.byMessage = make(map[string]map[string]models.Reaction)
}
