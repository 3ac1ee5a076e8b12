package realtime

import (
	"encoding/json"
	"time"

	"github.com/rubihq/chat-sync/internal/models"
)

// The wire protocol is a Phoenix-channel flavored JSON framing: every frame
// names a topic, an event class and an opaque payload. Replies correlate to
// pushes by ref.
type frame struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Ref     string          `json:"ref,omitempty"`
}

const (
	eventJoin          = "phx_join"
	eventLeave         = "phx_leave"
	eventReply         = "phx_reply"
	eventHeartbeat     = "heartbeat"
	eventChanges       = "postgres_changes"
	eventPresenceState = "presence_state"
	eventTrack         = "track"

	heartbeatTopic = "phoenix"

	tableMessages  = "messages"
	tableReactions = "reactions"
)

type joinPayload struct {
	Config joinConfig `json:"config"`
}

type joinConfig struct {
	PostgresChanges []changesConfig `json:"postgres_changes"`
}

type changesConfig struct {
	Event  string `json:"event"`
	Schema string `json:"schema"`
	Table  string `json:"table"`
	Filter string `json:"filter,omitempty"`
}

type replyPayload struct {
	Status   string          `json:"status"`
	Response json.RawMessage `json:"response,omitempty"`
}

type changesPayload struct {
	Data changeData `json:"data"`
}

type changeData struct {
	Table  string          `json:"table"`
	Type   models.ChangeOp `json:"type"`
	Record json.RawMessage `json:"record"`
}

// messageRow is the messages table shape as the platform serializes it.
type messageRow struct {
	ID          string    `json:"id"`
	AuthorID    string    `json:"author_id"`
	Content     string    `json:"content"`
	FileURL     string    `json:"file_url,omitempty"`
	FileType    string    `json:"file_type,omitempty"`
	RoomID      string    `json:"room_id,omitempty"`
	ClientToken string    `json:"client_token,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
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

func (r reactionRow) toModel() models.Reaction {
	return models.Reaction{
		MessageID: r.MessageID,
		AuthorID:  r.AuthorID,
		Emoji:     r.Emoji,
	}
}

// presenceMeta is one heartbeat snapshot entry. The channel delivers the full
// membership state keyed by user id; the newest meta wins.
type presenceMeta struct {
	IsTyping  bool      `json:"is_typing"`
	UpdatedAt time.Time `json:"updated_at"`
}

type presenceStatePayload map[string][]presenceMeta

func (p presenceStatePayload) toModel() []models.PresenceState {
	out := make([]models.PresenceState, 0, len(p))
	for userID, metas := range p {
		if len(metas) == 0 {
			continue
		}
		meta := metas[len(metas)-1]
		out = append(out, models.PresenceState{
			UserID:    userID,
			IsTyping:  meta.IsTyping,
			UpdatedAt: meta.UpdatedAt,
		})
	}
	return out
}

type trackPayload struct {
	UserID    string    `json:"user_id"`
	IsTyping  bool      `json:"is_typing"`
	UpdatedAt time.Time `json:"updated_at"`
}
