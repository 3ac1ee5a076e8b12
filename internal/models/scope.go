package models

import "strings"

// Scope is the (room, search text) pair that defines which subset of
// messages, reactions and presence is currently live. Exactly one scope is
// active at a time; switching it invalidates everything loaded under the
// previous one.
type Scope struct {
	RoomID string `json:"room_id"` // empty = default room
	Search string `json:"search"`
}

// MatchesMessage reports whether a message belongs to this scope: exact room
// match plus case-insensitive substring match on the search text. The seed
// query applies the same filter server-side; this is the client-side check
// for live stream inserts.
func (s Scope) MatchesMessage(m Message) bool {
	if m.RoomID != s.RoomID {
		return false
	}
	if s.Search == "" {
		return true
	}
	return strings.Contains(strings.ToLower(m.Content), strings.ToLower(s.Search))
}
