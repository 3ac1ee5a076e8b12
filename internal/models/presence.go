package models

import "time"

// PresenceState is one participant's entry in the ephemeral presence channel.
// It is never persisted; the channel delivers full snapshots and entries decay
// when their heartbeat goes stale.
type PresenceState struct {
	UserID    string    `json:"user_id"`
	IsTyping  bool      `json:"is_typing"`
	UpdatedAt time.Time `json:"updated_at"`
}
