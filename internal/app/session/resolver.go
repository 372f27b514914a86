/*
Package session resolves the authenticated identity into the User view-model.

On demand it asks the backend for the current principal, enriches it with the
profile row, and applies the display-name fallback chain. It can also watch
the backend's session-change notifications and re-run the merge whenever the
session changes (sign-in elsewhere, token refresh, sign-out).
*/
package session

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"supachat/internal/app/user"
	"supachat/internal/backend"
	"supachat/internal/pkg/errs"
	"supachat/internal/pkg/logx"
)

// watchResolveTimeout bounds the profile merge triggered by a session-change
// notification, which runs outside any caller-provided context.
const watchResolveTimeout = 10 * time.Second

// Resolver assembles User records from backend state.
type Resolver struct {
	backend *backend.Client
	logger  zerolog.Logger
}

// NewResolver constructs a Resolver on top of the backend client.
func NewResolver(b *backend.Client) *Resolver {
	return &Resolver{
		backend: b,
		logger:  logx.Logger().With().Str("component", "session").Logger(),
	}
}

// Resolve queries the backend for the currently authenticated principal and
// merges it with its profile row. It returns (nil, nil) when no session is
// present. A failed or missing profile lookup is not an error: the fallback
// display name is used instead.
func (r *Resolver) Resolve(ctx context.Context) (*user.User, error) {
	principal, err := r.backend.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}

	if principal == nil {
		return nil, nil
	}

	return r.merge(ctx, principal), nil
}

// merge joins a principal with its profile row. Profile fetch failures are
// logged under the data-error taxonomy and degrade to the fallback chain;
// nothing is surfaced to the caller.
func (r *Resolver) merge(ctx context.Context, principal *backend.Principal) *user.User {
	profileName := ""
	avatarURL := ""

	profile, err := r.backend.FetchProfile(ctx, principal.ID)
	if err != nil {
		logx.Error(err, errs.NewError(errs.ErrProfileFetchFailed).Message, "user_id", principal.ID)
	} else if profile != nil {
		profileName = profile.Username
		avatarURL = profile.AvatarURL
	}

	return &user.User{
		ID:        principal.ID,
		Email:     principal.Email,
		Username:  user.DisplayName(profileName, principal.Email),
		AvatarURL: avatarURL,
	}
}

// Watch registers a session-change listener that re-runs the profile merge on
// every change and hands the resulting user (or nil after sign-out) to fn.
// The returned stop function deregisters the listener; it must be called when
// the watching view is torn down or the subscription leaks.
func (r *Resolver) Watch(fn func(*user.User)) (stop func()) {
	unsubscribe := r.backend.OnSessionChange(func(principal *backend.Principal) {
		if principal == nil {
			fn(nil)
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), watchResolveTimeout)
		defer cancel()

		fn(r.merge(ctx, principal))
	})

	r.logger.Debug().Msg("Session watch registered")

	return func() {
		unsubscribe()
		r.logger.Debug().Msg("Session watch deregistered")
	}
}
