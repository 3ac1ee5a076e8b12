package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/rubihq/chat-sync/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBlobStore struct {
	mu      sync.Mutex
	uploads map[string][]byte
	err     error
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{uploads: make(map[string][]byte)}
}

func (f *fakeBlobStore) Upload(ctx context.Context, path string, data []byte, contentType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.uploads[path] = data
	return nil
}

func (f *fakeBlobStore) PublicURL(path string) string {
	return "https://blob.example.com/" + path
}

func (f *fakeBlobStore) paths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.uploads))
	for p := range f.uploads {
		out = append(out, p)
	}
	return out
}

func TestAttachmentsUpload(t *testing.T) {
	store := newFakeBlobStore()
	a := NewAttachments(store, 2)
	defer a.Close()

	att, err := a.Upload(context.Background(), "alice", "photo.png", []byte("data"), "image/png")
	require.NoError(t, err)

	paths := store.paths()
	require.Len(t, paths, 1)
	assert.True(t, strings.HasPrefix(paths[0], "alice/"), "namespaced by author: %s", paths[0])
	assert.True(t, strings.HasSuffix(paths[0], ".png"), "extension kept: %s", paths[0])

	assert.Equal(t, "https://blob.example.com/"+paths[0], att.URL)
	assert.Equal(t, models.MediaKindImage, att.MediaKind)
	assert.Equal(t, "image/png", att.ContentType)
}

func TestAttachmentsUploadDistinctPaths(t *testing.T) {
	store := newFakeBlobStore()
	a := NewAttachments(store, 2)
	defer a.Close()

	_, err := a.Upload(context.Background(), "alice", "photo.png", []byte("one"), "image/png")
	require.NoError(t, err)
	_, err = a.Upload(context.Background(), "alice", "photo.png", []byte("two"), "image/png")
	require.NoError(t, err)

	// Same filename twice never collides.
	assert.Len(t, store.paths(), 2)
}

func TestAttachmentsUploadFailure(t *testing.T) {
	store := newFakeBlobStore()
	store.err = errors.New("storage down")
	a := NewAttachments(store, 1)
	defer a.Close()

	att, err := a.Upload(context.Background(), "alice", "clip.mp3", []byte("data"), "audio/mpeg")
	assert.Nil(t, att)

	var uploadErr *models.UploadError
	require.ErrorAs(t, err, &uploadErr)
	assert.True(t, strings.HasPrefix(uploadErr.Path, "alice/"))
}

func TestAttachmentsMediaKind(t *testing.T) {
	store := newFakeBlobStore()
	a := NewAttachments(store, 1)
	defer a.Close()

	cases := []struct {
		contentType string
		want        models.MediaKind
	}{
		{"audio/ogg", models.MediaKindAudio},
		{"video/mp4", models.MediaKindVideo},
		{"application/pdf", models.MediaKindFile},
	}
	for _, tc := range cases {
		att, err := a.Upload(context.Background(), "alice", "f", []byte("x"), tc.contentType)
		require.NoError(t, err)
		assert.Equal(t, tc.want, att.MediaKind, tc.contentType)
	}
}
