package platform

import (
	"context"
	"fmt"

	"github.com/rubihq/chat-sync/internal/chat"
	"github.com/rubihq/chat-sync/internal/models"
)

var _ chat.ReactionQuerier = (*Client)(nil)

func (c *Client) ListReactions(ctx context.Context, scope models.Scope) ([]models.Reaction, error) {
	var rows []reactionRow
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("select", "message_id,author_id,emoji").
		SetQueryParam("room_id", roomParam(scope)).
		SetResult(&rows).
		Get("/rest/v1/reactions")
	if err != nil {
		return nil, fmt.Errorf("list reactions: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("list reactions: status %d: %s", resp.StatusCode(), resp.String())
	}

	out := make([]models.Reaction, len(rows))
	for i, row := range rows {
		out[i] = models.Reaction{MessageID: row.MessageID, AuthorID: row.AuthorID, Emoji: row.Emoji}
	}
	return out, nil
}

// UpsertReaction writes one reaction row, overwriting on conflict of
// (message_id, author_id) so an author holds at most one emoji per message.
func (c *Client) UpsertReaction(ctx context.Context, r models.Reaction) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Prefer", "resolution=merge-duplicates").
		SetQueryParam("on_conflict", "message_id,author_id").
		SetBody([]reactionRow{{MessageID: r.MessageID, AuthorID: r.AuthorID, Emoji: r.Emoji}}).
		Post("/rest/v1/reactions")
	if err != nil {
		return fmt.Errorf("upsert reaction: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("upsert reaction: status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}
