package platform

import (
	"context"
	"fmt"

	"github.com/rubihq/chat-sync/internal/chat"
	"github.com/rubihq/chat-sync/internal/models"
)

var _ chat.ProfileFetcher = (*Client)(nil)

func (c *Client) FetchProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	var rows []profileRow
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("select", "*").
		SetQueryParam("user_id", "eq."+userID).
		SetResult(&rows).
		Get("/rest/v1/profiles")
	if err != nil {
		return nil, fmt.Errorf("fetch profile: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch profile: status %d: %s", resp.StatusCode(), resp.String())
	}
	if len(rows) == 0 {
		return nil, models.ErrNotFound
	}
	return &models.UserProfile{
		UserID:      rows[0].UserID,
		DisplayName: rows[0].DisplayName,
		AvatarURL:   rows[0].AvatarURL,
	}, nil
}
