package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rubihq/chat-sync/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(&config.Config{
		Storage: config.StorageConfig{
			BaseURL: srv.URL,
			Bucket:  "chat-files",
		},
	})
}

func TestUpload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/object/chat-files/alice/x.png", r.URL.Path)
		assert.Equal(t, "image/png", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, []byte("data"), body)
		w.WriteHeader(http.StatusOK)
	})

	err := c.Upload(context.Background(), "alice/x.png", []byte("data"), "image/png")
	require.NoError(t, err)
}

func TestUploadFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "denied", http.StatusForbidden)
	})

	err := c.Upload(context.Background(), "alice/x.png", []byte("data"), "image/png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestPublicURL(t *testing.T) {
	c := &Client{baseURL: "https://store.example.com", bucket: "chat-files"}
	assert.Equal(t,
		"https://store.example.com/object/public/chat-files/alice/x.png",
		c.PublicURL("alice/x.png"))
}
