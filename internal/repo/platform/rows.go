package platform

import (
	"time"

	"github.com/rubihq/chat-sync/internal/models"
)

type messageRow struct {
	ID          string    `json:"id,omitempty"`
	AuthorID    string    `json:"author_id"`
	Content     string    `json:"content"`
	FileURL     string    `json:"file_url,omitempty"`
	FileType    string    `json:"file_type,omitempty"`
	RoomID      string    `json:"room_id,omitempty"`
	ClientToken string    `json:"client_token,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

func newMessageRow(m models.Message) messageRow {
	row := messageRow{
		AuthorID:    m.AuthorID,
		Content:     m.Content,
		RoomID:      m.RoomID,
		ClientToken: m.ClientToken,
	}
	if m.Attachment != nil {
		row.FileURL = m.Attachment.URL
		row.FileType = m.Attachment.ContentType
	}
	return row
}

func (r messageRow) toModel() models.Message {
	m := models.Message{
		ID:          r.ID,
		AuthorID:    r.AuthorID,
		Content:     r.Content,
		RoomID:      r.RoomID,
		ClientToken: r.ClientToken,
		CreatedAt:   r.CreatedAt,
		Status:      models.StatusConfirmed,
	}
	if r.FileURL != "" {
		m.Attachment = &models.Attachment{
			URL:         r.FileURL,
			ContentType: r.FileType,
			MediaKind:   models.MediaKindFromContentType(r.FileType),
		}
	}
	return m
}

type reactionRow struct {
	MessageID string `json:"message_id"`
	AuthorID  string `json:"author_id"`
	Emoji     string `json:"emoji"`
}

type profileRow struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}
