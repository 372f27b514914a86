package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"supachat/internal/app/user"
	"supachat/internal/backend"
	"supachat/internal/backendtest"
)

func newTestResolver(t *testing.T) (*Resolver, *backend.Client, *backendtest.Server) {
	t.Helper()

	srv := backendtest.NewServer()
	t.Cleanup(srv.Close)

	client := backend.New(srv.ClientConfig())
	return NewResolver(client), client, srv
}

func TestResolve_UnauthenticatedYieldsNil(t *testing.T) {
	resolver, _, _ := newTestResolver(t)

	u, err := resolver.Resolve(context.Background())
	require.NoError(t, err)
	require.Nil(t, u)
}

func TestResolve_MergesProfile(t *testing.T) {
	resolver, client, srv := newTestResolver(t)
	ctx := context.Background()

	principal, authErr := client.SignUp(ctx, "a@x.com", "secret123", "")
	require.Nil(t, authErr)

	srv.SeedProfile(user.Profile{ID: principal.ID, Username: "alice", AvatarURL: "https://cdn.example.com/a.png"})

	u, err := resolver.Resolve(ctx)
	require.NoError(t, err)
	require.NotNil(t, u)
	require.Equal(t, principal.ID, u.ID)
	require.Equal(t, "a@x.com", u.Email)
	require.Equal(t, "alice", u.Username)
	require.Equal(t, "https://cdn.example.com/a.png", u.AvatarURL)
}

func TestResolve_MissingProfileFallsBackToEmailLocalPart(t *testing.T) {
	resolver, client, _ := newTestResolver(t)
	ctx := context.Background()

	_, authErr := client.SignUp(ctx, "a@x.com", "secret123", "")
	require.Nil(t, authErr)

	u, err := resolver.Resolve(ctx)
	require.NoError(t, err)
	require.NotNil(t, u)
	require.Equal(t, "a", u.Username)
	require.Empty(t, u.AvatarURL)
}

func TestResolve_ProfileFetchFailureDegradesToFallback(t *testing.T) {
	resolver, client, srv := newTestResolver(t)
	ctx := context.Background()

	principal, authErr := client.SignUp(ctx, "a@x.com", "secret123", "")
	require.Nil(t, authErr)
	srv.SeedProfile(user.Profile{ID: principal.ID, Username: "alice", AvatarURL: "https://cdn.example.com/a.png"})

	srv.FailNextProfileSelect()

	// A failing profile read is logged only: the resolver still yields a
	// user, named through the fallback chain.
	u, err := resolver.Resolve(ctx)
	require.NoError(t, err)
	require.NotNil(t, u)
	require.Equal(t, "a", u.Username)
	require.Empty(t, u.AvatarURL)

	// The next resolve reads the row again.
	u, err = resolver.Resolve(ctx)
	require.NoError(t, err)
	require.Equal(t, "alice", u.Username)
}

func TestWatch_FiresOnSessionChanges(t *testing.T) {
	resolver, client, srv := newTestResolver(t)
	ctx := context.Background()

	var seen []*user.User
	stop := resolver.Watch(func(u *user.User) {
		seen = append(seen, u)
	})
	defer stop()

	principal, authErr := client.SignUp(ctx, "a@x.com", "secret123", "")
	require.Nil(t, authErr)
	srv.SeedProfile(user.Profile{ID: principal.ID, Username: "alice"})

	require.Len(t, seen, 1)
	require.NotNil(t, seen[0])
	// The profile row did not exist yet at sign-up time, so the merge used
	// the email fallback; the next change re-runs the merge.
	require.Equal(t, "a", seen[0].Username)

	require.NoError(t, client.SignOut(ctx))
	require.Len(t, seen, 2)
	require.Nil(t, seen[1])

	_, authErr = client.SignIn(ctx, "a@x.com", "secret123")
	require.Nil(t, authErr)
	require.Len(t, seen, 3)
	require.Equal(t, "alice", seen[2].Username)
}

func TestWatch_StopDeregistersListener(t *testing.T) {
	resolver, client, _ := newTestResolver(t)
	ctx := context.Background()

	calls := 0
	stop := resolver.Watch(func(*user.User) { calls++ })

	_, authErr := client.SignUp(ctx, "a@x.com", "secret123", "")
	require.Nil(t, authErr)
	require.Equal(t, 1, calls)

	stop()

	require.NoError(t, client.SignOut(ctx))
	require.Equal(t, 1, calls)
}
