package credential

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"supachat/internal/app/user"
	"supachat/internal/backend"
	"supachat/internal/backendtest"
	"supachat/internal/pkg/errs"
)

func newTestForm(t *testing.T) (*Form, *backend.Client, *backendtest.Server) {
	t.Helper()

	srv := backendtest.NewServer()
	t.Cleanup(srv.Close)

	client := backend.New(srv.ClientConfig())
	return NewForm(client), client, srv
}

func TestSubmit_RequiredFields(t *testing.T) {
	form, _, _ := newTestForm(t)
	ctx := context.Background()

	cases := []Input{
		{Email: "", Password: "secret123"},
		{Email: "a@x.com", Password: ""},
		{Email: "not-an-email", Password: "secret123"},
	}

	for _, input := range cases {
		_, authErr := form.Submit(ctx, ModeSignIn, input)
		require.NotNil(t, authErr)
		require.Equal(t, errs.ErrMissingFields, authErr.Code)
	}
}

func TestSubmit_UnknownMode(t *testing.T) {
	form, _, _ := newTestForm(t)

	_, authErr := form.Submit(context.Background(), Mode("delete"), Input{Email: "a@x.com", Password: "secret123"})
	require.NotNil(t, authErr)
	require.Equal(t, errs.ErrInvalidParams, authErr.Code)
}

func TestSignUp_CreatesAccountAndProfile(t *testing.T) {
	form, _, srv := newTestForm(t)

	u, authErr := form.Submit(context.Background(), ModeSignUp, Input{
		Email:    "a@x.com",
		Password: "secret123",
		Username: "alice",
	})
	require.Nil(t, authErr)
	require.Equal(t, "alice", u.Username)
	require.Equal(t, "a@x.com", u.Email)
	require.Empty(t, u.AvatarURL)

	profile, ok := srv.Profile(u.ID)
	require.True(t, ok)
	require.Equal(t, "alice", profile.Username)
}

func TestSignUp_BlankUsernameFallsBackToEmailLocalPart(t *testing.T) {
	form, _, srv := newTestForm(t)

	u, authErr := form.Submit(context.Background(), ModeSignUp, Input{
		Email:    "a@x.com",
		Password: "secret123",
		Username: "",
	})
	require.Nil(t, authErr)
	require.Equal(t, "a", u.Username)

	profile, ok := srv.Profile(u.ID)
	require.True(t, ok)
	require.Equal(t, "a", profile.Username)
}

func TestSignUp_DuplicateAccountSurfaced(t *testing.T) {
	form, _, _ := newTestForm(t)
	ctx := context.Background()

	_, authErr := form.Submit(ctx, ModeSignUp, Input{Email: "a@x.com", Password: "secret123", Username: "alice"})
	require.Nil(t, authErr)

	_, authErr = form.Submit(ctx, ModeSignUp, Input{Email: "a@x.com", Password: "secret123", Username: "alice2"})
	require.NotNil(t, authErr)
	require.Equal(t, errs.ErrUserAlreadyExists, authErr.Code)
}

func TestSignUp_ProfileWriteFailureDoesNotRollBackAccount(t *testing.T) {
	form, _, srv := newTestForm(t)
	ctx := context.Background()

	srv.FailNextProfileInsert()

	_, authErr := form.Submit(ctx, ModeSignUp, Input{Email: "b@x.com", Password: "secret123", Username: "bob"})
	require.NotNil(t, authErr)
	require.Equal(t, errs.ErrAuthFailed, authErr.Code)

	// The account survives the failed profile write: signing in works and
	// the missing profile resolves through the fallback chain.
	signedIn, submitErr := form.Submit(ctx, ModeSignIn, Input{Email: "b@x.com", Password: "secret123"})
	require.Nil(t, submitErr)
	require.Equal(t, "b", signedIn.Username)

	_, ok := srv.Profile(signedIn.ID)
	require.False(t, ok)
}

func TestSignIn_MergesProfileWithFallback(t *testing.T) {
	form, client, srv := newTestForm(t)
	ctx := context.Background()

	principal, authErr := client.SignUp(ctx, "c@x.com", "secret123", "")
	require.Nil(t, authErr)
	require.NoError(t, client.SignOut(ctx))

	// No profile row: email local part.
	u, submitErr := form.Submit(ctx, ModeSignIn, Input{Email: "c@x.com", Password: "secret123"})
	require.Nil(t, submitErr)
	require.Equal(t, "c", u.Username)

	// With a profile row the stored name wins.
	srv.SeedProfile(user.Profile{ID: principal.ID, Username: "carol", AvatarURL: "https://cdn.example.com/c.png"})
	require.NoError(t, client.SignOut(ctx))

	u, submitErr = form.Submit(ctx, ModeSignIn, Input{Email: "c@x.com", Password: "secret123"})
	require.Nil(t, submitErr)
	require.Equal(t, "carol", u.Username)
	require.Equal(t, "https://cdn.example.com/c.png", u.AvatarURL)
}

func TestSignIn_WrongPasswordSurfaced(t *testing.T) {
	form, client, _ := newTestForm(t)
	ctx := context.Background()

	_, authErr := client.SignUp(ctx, "a@x.com", "secret123", "alice")
	require.Nil(t, authErr)
	require.NoError(t, client.SignOut(ctx))

	_, submitErr := form.Submit(ctx, ModeSignIn, Input{Email: "a@x.com", Password: "nope-nope"})
	require.NotNil(t, submitErr)
	require.Equal(t, errs.ErrInvalidCredentials, submitErr.Code)
}
