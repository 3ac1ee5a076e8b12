package models

// ChangeOp is the operation class of a row-change notification.
type ChangeOp string

const (
	ChangeInsert ChangeOp = "INSERT"
	ChangeUpdate ChangeOp = "UPDATE"
)

// MessageChange is a change-stream notification for the messages stream.
type MessageChange struct {
	Op      ChangeOp `json:"op"`
	Message Message  `json:"message"`
}

// ReactionChange is a change-stream notification for the reactions stream.
// Reactions are upserts, so insert and update are handled identically.
type ReactionChange struct {
	Op       ChangeOp `json:"op"`
	Reaction Reaction `json:"reaction"`
}
