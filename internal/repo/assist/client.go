package assist

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/rubihq/chat-sync/internal/config"
	"github.com/rubihq/chat-sync/pkg/util"
)

// ErrDisabled is returned when no assist endpoint is configured.
var ErrDisabled = errors.New("assist: not configured")

// Client wraps the opaque AI call-outs. The endpoints take and return plain
// strings; nothing about their internals leaks into the rest of the app.
type Client struct {
	http    *resty.Client
	enabled bool
}

func NewClient(conf *config.Config) *Client {
	c := util.NewRestyClient().
		SetBaseURL(conf.Assist.BaseURL).
		SetAuthToken(conf.Assist.APIKey)
	return &Client{
		http:    c,
		enabled: conf.Assist.BaseURL != "",
	}
}

type transcribeRequest struct {
	AudioURL string `json:"audio_url"`
}

type transcribeResponse struct {
	Transcript string `json:"transcript"`
}

// Transcribe turns an uploaded voice clip into text.
func (c *Client) Transcribe(ctx context.Context, audioURL string) (string, error) {
	if !c.enabled {
		return "", ErrDisabled
	}
	var out transcribeResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(transcribeRequest{AudioURL: audioURL}).
		SetResult(&out).
		Post("/functions/v1/process-voice")
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("transcribe: status %d: %s", resp.StatusCode(), resp.String())
	}
	return out.Transcript, nil
}

type completeRequest struct {
	Prompt string `json:"prompt"`
}

type completeResponse struct {
	Text string `json:"text"`
}

// Complete asks the assistant endpoint for a reply to a prompt.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if !c.enabled {
		return "", ErrDisabled
	}
	var out completeResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(completeRequest{Prompt: prompt}).
		SetResult(&out).
		Post("/functions/v1/assist")
	if err != nil {
		return "", fmt.Errorf("complete: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("complete: status %d: %s", resp.StatusCode(), resp.String())
	}
	return out.Text, nil
}
