package platform

import (
	"context"
	"fmt"

	"github.com/rubihq/chat-sync/internal/chat"
	"github.com/rubihq/chat-sync/internal/models"
	"github.com/rubihq/chat-sync/pkg/util"
)

var _ chat.MessageQuerier = (*Client)(nil)

// ListMessages fetches the full ordered history for a scope. The room filter
// and the case-insensitive content match are pushed down to the platform.
func (c *Client) ListMessages(ctx context.Context, scope models.Scope) ([]models.Message, error) {
	req := c.http.R().
		SetContext(ctx).
		SetQueryParam("select", "*").
		SetQueryParam("order", "created_at.asc").
		SetQueryParam("room_id", roomParam(scope))
	if scope.Search != "" {
		req.SetQueryParam("content", "ilike.*"+scope.Search+"*")
	}

	var rows []messageRow
	resp, err := req.SetResult(&rows).Get("/rest/v1/messages")
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("list messages: status %d: %s", resp.StatusCode(), resp.String())
	}
	return util.ConvertList(rows, messageRow.toModel), nil
}

// CreateMessage inserts one row and returns the server's representation, which
// carries the assigned id and authoritative timestamp.
func (c *Client) CreateMessage(ctx context.Context, msg models.Message) (*models.Message, error) {
	var rows []messageRow
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Prefer", "return=representation").
		SetBody([]messageRow{newMessageRow(msg)}).
		SetResult(&rows).
		Post("/rest/v1/messages")
	if err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("create message: status %d: %s", resp.StatusCode(), resp.String())
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("create message: empty representation")
	}
	confirmed := rows[0].toModel()
	return &confirmed, nil
}

func roomParam(scope models.Scope) string {
	if scope.RoomID == "" {
		return "is.null"
	}
	return "eq." + scope.RoomID
}
