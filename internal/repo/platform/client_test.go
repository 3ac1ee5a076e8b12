package platform

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rubihq/chat-sync/internal/config"
	"github.com/rubihq/chat-sync/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(&config.Config{
		Platform: config.PlatformConfig{
			BaseURL: srv.URL,
			APIKey:  "test-key",
		},
	})
}

func TestListMessagesQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/messages", r.URL.Path)
		assert.Equal(t, "created_at.asc", r.URL.Query().Get("order"))
		assert.Equal(t, "eq.r1", r.URL.Query().Get("room_id"))
		assert.Equal(t, "ilike.*pizza*", r.URL.Query().Get("content"))
		assert.Equal(t, "test-key", r.Header.Get("apikey"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]messageRow{
			{ID: "m1", AuthorID: "alice", Content: "pizza?"},
		})
	})

	msgs, err := c.ListMessages(context.Background(), models.Scope{RoomID: "r1", Search: "pizza"})
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "m1", msgs[0].ID)
	assert.Equal(t, models.StatusConfirmed, msgs[0].Status)
}

func TestListMessagesDefaultRoom(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "is.null", r.URL.Query().Get("room_id"))
		assert.Empty(t, r.URL.Query().Get("content"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte("[]"))
	})

	msgs, err := c.ListMessages(context.Background(), models.Scope{})
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestCreateMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "return=representation", r.Header.Get("Prefer"))

		var rows []messageRow
		require.NoError(t, json.NewDecoder(r.Body).Decode(&rows))
		require.Len(t, rows, 1)
		assert.Equal(t, "tok-1", rows[0].ClientToken)

		rows[0].ID = "m1"
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(rows)
	})

	got, err := c.CreateMessage(context.Background(), models.Message{
		AuthorID:    "me",
		Content:     "hello",
		ClientToken: "tok-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "m1", got.ID)
	assert.Equal(t, "tok-1", got.ClientToken)
}

func TestCreateMessageServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	})

	_, err := c.CreateMessage(context.Background(), models.Message{AuthorID: "me", Content: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestUpsertReaction(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/reactions", r.URL.Path)
		assert.Equal(t, "resolution=merge-duplicates", r.Header.Get("Prefer"))
		assert.Equal(t, "message_id,author_id", r.URL.Query().Get("on_conflict"))
		w.WriteHeader(http.StatusCreated)
	})

	err := c.UpsertReaction(context.Background(), models.Reaction{
		MessageID: "m1", AuthorID: "me", Emoji: "👍",
	})
	require.NoError(t, err)
}

func TestFetchProfileNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte("[]"))
	})

	_, err := c.FetchProfile(context.Background(), "ghost")
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestFetchProfile(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "eq.alice", r.URL.Query().Get("user_id"))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]profileRow{
			{UserID: "alice", DisplayName: "Alice", AvatarURL: "https://img/a.png"},
		})
	})

	got, err := c.FetchProfile(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.DisplayName)
}
