package platform

import (
	"github.com/go-resty/resty/v2"
	"github.com/rubihq/chat-sync/internal/config"
	"github.com/rubihq/chat-sync/pkg/util"
)

// Client talks to the platform's row query/write HTTP API. All reads are
// single round trips; filtering and ordering are expressed as query
// parameters and applied upstream.
type Client struct {
	http *resty.Client
}

func NewClient(conf *config.Config) *Client {
	c := util.NewRestyClient().
		SetBaseURL(conf.Platform.BaseURL).
		SetHeader("apikey", conf.Platform.APIKey).
		SetAuthToken(conf.Platform.APIKey)
	return &Client{http: c}
}
