package chat

import (
	"context"

	"github.com/rubihq/chat-sync/internal/models"
)

// MessageQuerier is the platform's row query/write API for messages. Seed
// queries are a single round trip; ordering and filtering happen upstream.
type MessageQuerier interface {
	ListMessages(ctx context.Context, scope models.Scope) ([]models.Message, error)
	CreateMessage(ctx context.Context, msg models.Message) (*models.Message, error)
}

// ReactionQuerier is the platform's row query/write API for reactions.
// UpsertReaction overwrites on conflict of (message id, author id).
type ReactionQuerier interface {
	ListReactions(ctx context.Context, scope models.Scope) ([]models.Reaction, error)
	UpsertReaction(ctx context.Context, r models.Reaction) error
}

// StreamHandlers receive the live feed for one subscription. Delivery is
// at-least-once within each stream; no relative order is guaranteed across
// streams. OnReconnect fires after the transport has dropped and the
// subscription is live again, which means a gap: the consumer must reseed.
type StreamHandlers struct {
	OnMessage   func(models.MessageChange)
	OnReaction  func(models.ReactionChange)
	OnPresence  func([]models.PresenceState)
	OnReconnect func()
}

// Subscription is a live change-stream plus presence channel handle for one
// scope. Track publishes the local participant's ephemeral state to the
// channel; the transport retransmits the last tracked state itself after a
// reconnect (the server retains nothing across a dropped connection).
type Subscription interface {
	Track(ctx context.Context, state models.PresenceState) error
	Unsubscribe()
}

// ChangeStream opens scoped subscriptions over the realtime transport.
type ChangeStream interface {
	Subscribe(ctx context.Context, scope models.Scope, h StreamHandlers) (Subscription, error)
}

// BlobStore is the opaque upload/URL API of the storage backend.
type BlobStore interface {
	Upload(ctx context.Context, path string, data []byte, contentType string) error
	PublicURL(path string) string
}

// ProfileFetcher resolves author display data. Returns models.ErrNotFound
// for unknown identities.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, userID string) (*models.UserProfile, error)
}
