package chat

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rubihq/chat-sync/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProfileFetcher struct {
	mu       sync.Mutex
	profiles map[string]*models.UserProfile
	err      error
	calls    int
}

func (f *fakeProfileFetcher) FetchProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.profiles[userID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return p, nil
}

func (f *fakeProfileFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestProfilesFetchOncePerIdentity(t *testing.T) {
	fetcher := &fakeProfileFetcher{
		profiles: map[string]*models.UserProfile{
			"alice": {UserID: "alice", DisplayName: "Alice"},
		},
	}
	p := NewProfiles(fetcher)

	for i := 0; i < 3; i++ {
		got, err := p.Get(context.Background(), "alice")
		require.NoError(t, err)
		assert.Equal(t, "Alice", got.DisplayName)
	}
	assert.Equal(t, 1, fetcher.callCount())
}

func TestProfilesCachesNotFound(t *testing.T) {
	fetcher := &fakeProfileFetcher{profiles: map[string]*models.UserProfile{}}
	p := NewProfiles(fetcher)

	_, err := p.Get(context.Background(), "ghost")
	require.ErrorIs(t, err, models.ErrNotFound)
	_, err = p.Get(context.Background(), "ghost")
	require.ErrorIs(t, err, models.ErrNotFound)

	assert.Equal(t, 1, fetcher.callCount())
}

func TestProfilesRetriesTransientFailure(t *testing.T) {
	fetcher := &fakeProfileFetcher{
		profiles: map[string]*models.UserProfile{
			"alice": {UserID: "alice", DisplayName: "Alice"},
		},
	}
	fetcher.err = errors.New("timeout")
	p := NewProfiles(fetcher)

	_, err := p.Get(context.Background(), "alice")
	require.Error(t, err)
	require.NotErrorIs(t, err, models.ErrNotFound)

	fetcher.mu.Lock()
	fetcher.err = nil
	fetcher.mu.Unlock()

	got, err := p.Get(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.DisplayName)
	assert.Equal(t, 2, fetcher.callCount())
}
