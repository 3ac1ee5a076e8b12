package models

// Reaction is one emoji tag on a message. Identity is (MessageID, AuthorID);
// a repeat reaction by the same author overwrites the previous value.
type Reaction struct {
	MessageID string `json:"message_id" validate:"required"`
	AuthorID  string `json:"author_id" validate:"required"`
	Emoji     string `json:"emoji" validate:"required"`
}
