package account

import (
	"context"
	"fmt"

	"github.com/ngtracker/ngt-desktop/api"
	"github.com/ngtracker/ngt-desktop/common"
	"github.com/ngtracker/ngt-desktop/session"
)

// Backend is the subset of the REST client used by this package.
type Backend interface {
	Login(ctx context.Context, creds api.Credentials) (string, error)
	Register(ctx context.Context, reg api.Registration) error
	Self(ctx context.Context, token string) (*common.UserProfile, error)
}

// ProfileCache persists the last fetched profile.
type ProfileCache interface {
	Save(profile *common.UserProfile) error
}

// ProfileView displays a profile.
type ProfileView interface {
	SetProfile(profile *common.UserProfile)
}

// Syncer fetches the account profile and propagates it to memory, the
// display and the on-disk cache.
type Syncer struct {
	ctx     context.Context
	loop    *session.Loop
	state   *session.State
	backend Backend
	cache   ProfileCache
	view    ProfileView
}

// NewSyncer creates a syncer. All methods must be called from loop tasks.
func NewSyncer(ctx context.Context, loop *session.Loop, state *session.State,
	backend Backend, cache ProfileCache, view ProfileView) *Syncer {
	return &Syncer{
		ctx:     ctx,
		loop:    loop,
		state:   state,
		backend: backend,
		cache:   cache,
		view:    view,
	}
}

// Sync fetches the profile in the background and calls done on the loop.
// A response without a username is reported as common.ErrNoProfile.
func (s *Syncer) Sync(done func(*common.UserProfile, error)) {
	token := s.state.Token()

	s.loop.Go(func() func() {
		profile, err := s.backend.Self(s.ctx, token)
		return func() {
			if err == nil && !profile.Usable() {
				err = fmt.Errorf("%w: empty profile", common.ErrNoProfile)
			}
			if err != nil {
				done(nil, err)
				return
			}

			s.state.Profile = profile
			s.view.SetProfile(profile)
			if err := s.cache.Save(profile); err != nil {
				common.LogWarn("Failed to save userData: %v", err)
			}
			done(profile, nil)
		}
	})
}

// Refresh re-fetches the profile, logging failures only.
func (s *Syncer) Refresh() {
	s.Sync(func(_ *common.UserProfile, err error) {
		if err != nil {
			common.LogWarn("Profile refresh failed: %v", err)
		}
	})
}
