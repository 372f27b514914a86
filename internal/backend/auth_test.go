package backend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"supachat/internal/backendtest"
	"supachat/internal/pkg/errs"
)

func newTestClient(t *testing.T) (*Client, *backendtest.Server) {
	t.Helper()

	srv := backendtest.NewServer()
	t.Cleanup(srv.Close)

	return New(srv.ClientConfig()), srv
}

func TestSignUp_EstablishesSession(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	principal, authErr := client.SignUp(ctx, "a@x.com", "secret123", "alice")
	require.Nil(t, authErr)
	require.NotEmpty(t, principal.ID)
	require.Equal(t, "a@x.com", principal.Email)

	session := client.CurrentSession()
	require.NotNil(t, session)
	require.NotEmpty(t, session.AccessToken)
	require.Equal(t, principal.ID, session.Principal.ID)
	require.False(t, session.ExpiresAt.IsZero())
}

func TestSignUp_DuplicateEmail(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	_, authErr := client.SignUp(ctx, "a@x.com", "secret123", "alice")
	require.Nil(t, authErr)

	_, authErr = client.SignUp(ctx, "a@x.com", "other-password", "impostor")
	require.NotNil(t, authErr)
	require.Equal(t, errs.ErrUserAlreadyExists, authErr.Code)
}

func TestSignIn_WrongPassword(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	_, authErr := client.SignUp(ctx, "a@x.com", "secret123", "alice")
	require.Nil(t, authErr)
	require.NoError(t, client.SignOut(ctx))

	_, authErr = client.SignIn(ctx, "a@x.com", "wrong-password")
	require.NotNil(t, authErr)
	require.Equal(t, errs.ErrInvalidCredentials, authErr.Code)
	require.Nil(t, client.CurrentSession())
}

func TestSignIn_UnknownAccount(t *testing.T) {
	client, _ := newTestClient(t)

	_, authErr := client.SignIn(context.Background(), "nobody@x.com", "whatever")
	require.NotNil(t, authErr)
	require.Equal(t, errs.ErrInvalidCredentials, authErr.Code)
}

func TestCurrentUser_RoundTrip(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	// Without a session there is no network call and no principal.
	principal, err := client.CurrentUser(ctx)
	require.NoError(t, err)
	require.Nil(t, principal)

	created, authErr := client.SignUp(ctx, "a@x.com", "secret123", "alice")
	require.Nil(t, authErr)

	principal, err = client.CurrentUser(ctx)
	require.NoError(t, err)
	require.NotNil(t, principal)
	require.Equal(t, created.ID, principal.ID)
	require.Equal(t, "a@x.com", principal.Email)
}

func TestSignOut_ClearsSessionAndNotifies(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	var notified []*Principal
	unsubscribe := client.OnSessionChange(func(p *Principal) {
		notified = append(notified, p)
	})
	defer unsubscribe()

	_, authErr := client.SignUp(ctx, "a@x.com", "secret123", "alice")
	require.Nil(t, authErr)
	require.Len(t, notified, 1)
	require.NotNil(t, notified[0])

	require.NoError(t, client.SignOut(ctx))
	require.Len(t, notified, 2)
	require.Nil(t, notified[1])
	require.Nil(t, client.CurrentSession())
	require.Empty(t, client.AccessToken())
}

func TestOnSessionChange_UnsubscribeStopsDelivery(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	calls := 0
	unsubscribe := client.OnSessionChange(func(*Principal) { calls++ })

	_, authErr := client.SignUp(ctx, "a@x.com", "secret123", "alice")
	require.Nil(t, authErr)
	require.Equal(t, 1, calls)

	unsubscribe()

	require.NoError(t, client.SignOut(ctx))
	require.Equal(t, 1, calls)
}
