package chat

import (
	"context"
	"errors"
	"sync"

	"github.com/rubihq/chat-sync/internal/models"
	"golang.org/x/sync/singleflight"
)

// Profiles is the session-scoped author display cache: each identity is
// fetched at most once and kept for the session. Profile edits are out of
// scope, so there is no invalidation.
type Profiles struct {
	fetcher ProfileFetcher
	group   singleflight.Group

	mu    sync.Mutex
	cache map[string]*models.UserProfile // nil value = known absent
}

func NewProfiles(fetcher ProfileFetcher) *Profiles {
	return &Profiles{
		fetcher: fetcher,
		cache:   make(map[string]*models.UserProfile),
	}
}

// Get resolves a profile, hitting the remote at most once per identity.
// Not-found is cached too and keeps returning models.ErrNotFound.
func (p *Profiles) Get(ctx context.Context, userID string) (*models.UserProfile, error) {
	p.mu.Lock()
	cached, ok := p.cache[userID]
	p.mu.Unlock()
	if ok {
		if cached == nil {
			return nil, models.ErrNotFound
		}
		return cached, nil
	}

	v, err, _ := p.group.Do(userID, func() (any, error) {
		profile, err := p.fetcher.FetchProfile(ctx, userID)
		if errors.Is(err, models.ErrNotFound) {
			p.put(userID, nil)
			return nil, models.ErrNotFound
		}
		if err != nil {
			// Transient failure: leave the slot empty so a later call retries.
			return nil, err
		}
		p.put(userID, profile)
		return profile, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.UserProfile), nil
}

func (p *Profiles) put(userID string, profile *models.UserProfile) {
	p.mu.Lock()
	p.cache[userID] = profile
	p.mu.Unlock()
}
