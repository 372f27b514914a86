package backend

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"supachat/internal/app/user"
)

func TestFetchProfile_MissingRowIsNotAnError(t *testing.T) {
	client, _ := newTestClient(t)

	profile, err := client.FetchProfile(context.Background(), "no-such-id")
	require.NoError(t, err)
	require.Nil(t, profile)
}

func TestInsertProfile_RequiresAuthentication(t *testing.T) {
	client, _ := newTestClient(t)

	err := client.InsertProfile(context.Background(), user.Profile{ID: "p1", Username: "alice"})
	require.Error(t, err)
}

func TestInsertAndFetchProfile(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	principal, authErr := client.SignUp(ctx, "a@x.com", "secret123", "alice")
	require.Nil(t, authErr)

	written := user.Profile{ID: principal.ID, Username: "alice", AvatarURL: "https://cdn.example.com/a.png"}
	require.NoError(t, client.InsertProfile(ctx, written))

	fetched, err := client.FetchProfile(ctx, principal.ID)
	require.NoError(t, err)
	require.NotNil(t, fetched)
	require.Equal(t, written, *fetched)

	// A second insert for the same id violates the primary key.
	require.Error(t, client.InsertProfile(ctx, written))
}

func TestFetchMessages_OrderedByCreationTime(t *testing.T) {
	client, srv := newTestClient(t)

	base := time.Now().Add(-time.Hour)
	srv.SeedMessage("second", "u1", "alice", base.Add(2*time.Minute))
	srv.SeedMessage("first", "u2", "bob", base.Add(1*time.Minute))
	srv.SeedMessage("third", "u1", "alice", base.Add(3*time.Minute))

	msgs, err := client.FetchMessages(context.Background())
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	require.Equal(t, "first", msgs[0].Content)
	require.Equal(t, "second", msgs[1].Content)
	require.Equal(t, "third", msgs[2].Content)
}

func TestInsertMessage_BackendAssignsIDAndTimestamp(t *testing.T) {
	client, srv := newTestClient(t)
	ctx := context.Background()

	principal, authErr := client.SignUp(ctx, "a@x.com", "secret123", "alice")
	require.Nil(t, authErr)

	before := time.Now().Add(-time.Second)
	require.NoError(t, client.InsertMessage(ctx, NewMessage{
		Content:  "hello",
		UserID:   principal.ID,
		Username: "alice",
	}))

	stored := srv.Messages()
	require.Len(t, stored, 1)
	require.Equal(t, int64(1), stored[0].ID)
	require.Equal(t, "hello", stored[0].Content)
	require.Equal(t, principal.ID, stored[0].UserID)
	require.True(t, stored[0].CreatedAt.After(before))
}
