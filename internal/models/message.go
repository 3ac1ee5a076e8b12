package models

import (
	"strings"
	"time"
)

// MediaKind is the coarse classification of an attachment, derived from the
// declared content type at upload time.
type MediaKind string

const (
	MediaKindImage MediaKind = "image"
	MediaKindAudio MediaKind = "audio"
	MediaKindVideo MediaKind = "video"
	MediaKindFile  MediaKind = "file"
)

func MediaKindFromContentType(contentType string) MediaKind {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return MediaKindImage
	case strings.HasPrefix(contentType, "audio/"):
		return MediaKindAudio
	case strings.HasPrefix(contentType, "video/"):
		return MediaKindVideo
	default:
		return MediaKindFile
	}
}

// Attachment is a durable reference to an uploaded blob. It is resolved by
// the upload pipeline before any message referencing it exists.
type Attachment struct {
	URL         string    `json:"url" validate:"required,url"`
	ContentType string    `json:"content_type"`
	MediaKind   MediaKind `json:"media_kind"`
}

// DeliveryStatus tracks a message through optimistic reconciliation.
type DeliveryStatus string

const (
	// StatusPending marks a provisional entry awaiting its change-stream echo.
	StatusPending DeliveryStatus = "pending"
	// StatusConfirmed marks an entry backed by a store-assigned row.
	StatusConfirmed DeliveryStatus = "confirmed"
	// StatusFailed marks a provisional entry whose write failed or whose echo
	// never arrived. It stays visible for user retry.
	StatusFailed DeliveryStatus = "failed"
)

// Message is one entry in a conversation. ID and CreatedAt are assigned by
// the remote store; a provisional entry carries only a ClientToken until the
// confirming echo arrives.
type Message struct {
	ID          string         `json:"id,omitempty"`
	AuthorID    string         `json:"author_id" validate:"required"`
	Content     string         `json:"content"`
	Attachment  *Attachment    `json:"attachment,omitempty"`
	RoomID      string         `json:"room_id,omitempty"` // empty = default room
	ClientToken string         `json:"client_token,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	Status      DeliveryStatus `json:"status,omitempty"`
}

// Provisional reports whether the message has not yet been confirmed by the
// remote store.
func (m Message) Provisional() bool {
	return m.ID == ""
}
