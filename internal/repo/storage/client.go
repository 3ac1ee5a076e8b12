package storage

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/rubihq/chat-sync/internal/chat"
	"github.com/rubihq/chat-sync/internal/config"
	"github.com/rubihq/chat-sync/pkg/util"
)

var _ chat.BlobStore = (*Client)(nil)

// Client uploads blobs to a single bucket of the platform's object store.
// Uploading never touches message rows; linking an object to a message is the
// sender's job.
type Client struct {
	http    *resty.Client
	baseURL string
	bucket  string
}

func NewClient(conf *config.Config) *Client {
	c := util.NewRestyClient().
		SetBaseURL(conf.Storage.BaseURL).
		SetAuthToken(conf.Storage.APIKey)
	return &Client{
		http:    c,
		baseURL: conf.Storage.BaseURL,
		bucket:  conf.Storage.Bucket,
	}
}

func (c *Client) Upload(ctx context.Context, path string, data []byte, contentType string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentType).
		SetBody(data).
		Post(fmt.Sprintf("/object/%s/%s", c.bucket, path))
	if err != nil {
		return fmt.Errorf("upload %s: %w", path, err)
	}
	if resp.IsError() {
		return fmt.Errorf("upload %s: status %d: %s", path, resp.StatusCode(), resp.String())
	}
	return nil
}

// PublicURL derives the object's public address. No round trip; the bucket
// serves anonymous reads.
func (c *Client) PublicURL(path string) string {
	return fmt.Sprintf("%s/object/public/%s/%s", c.baseURL, c.bucket, path)
}
