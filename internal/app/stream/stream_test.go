package stream

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"supachat/internal/app/user"
	"supachat/internal/backend"
	"supachat/internal/backendtest"
)

func newTestStream(t *testing.T, notify func()) (*Stream, *backend.Client, *backendtest.Server) {
	t.Helper()

	srv := backendtest.NewServer()
	t.Cleanup(srv.Close)

	client := backend.New(srv.ClientConfig())

	principal, authErr := client.SignUp(context.Background(), "a@x.com", "secret123", "alice")
	require.Nil(t, authErr)

	viewer := user.User{ID: principal.ID, Email: "a@x.com", Username: "alice"}

	s := New(client, viewer, notify)
	t.Cleanup(s.Close)

	return s, client, srv
}

func TestOpen_LoadsHistoryInAscendingOrder(t *testing.T) {
	s, _, srv := newTestStream(t, nil)

	base := time.Now().Add(-time.Hour)
	srv.SeedMessage("later", "u1", "bob", base.Add(2*time.Minute))
	srv.SeedMessage("earlier", "u2", "carol", base.Add(time.Minute))

	s.Open(context.Background())

	require.Equal(t, StateLoaded, s.State())

	msgs := s.Snapshot()
	require.Len(t, msgs, 2)
	require.Equal(t, "earlier", msgs[0].Content)
	require.Equal(t, "later", msgs[1].Content)
}

func TestOpen_EmptyHistoryYieldsEmptyState(t *testing.T) {
	s, _, _ := newTestStream(t, nil)

	require.Equal(t, StateLoading, s.State())

	s.Open(context.Background())

	require.Equal(t, StateEmpty, s.State())
	require.Empty(t, s.Snapshot())
}

func TestOpen_BackendFailureDegradesToEmpty(t *testing.T) {
	s, _, srv := newTestStream(t, nil)

	srv.SeedMessage("unreachable", "u1", "bob", time.Now().Add(-time.Hour))
	srv.Close()

	// Both the history fetch and the subscription fail against the dead
	// backend; the view degrades to an empty list, nothing is surfaced.
	s.Open(context.Background())

	require.Equal(t, StateEmpty, s.State())
	require.Empty(t, s.Snapshot())

	// A failing send is logged only as well.
	s.Send(context.Background(), "into the void")
	require.Empty(t, s.Snapshot())

	s.Close()
}

func TestSend_BlankContentIsANoOp(t *testing.T) {
	s, _, srv := newTestStream(t, nil)
	s.Open(context.Background())

	s.Send(context.Background(), "")
	s.Send(context.Background(), "   \t  ")

	require.Empty(t, srv.Messages())
}

func TestSend_AppendsExactlyOnceViaSubscription(t *testing.T) {
	appends := make(chan struct{}, 16)
	s, _, _ := newTestStream(t, func() {
		appends <- struct{}{}
	})

	s.Open(context.Background())
	<-appends // initial fetch notification

	s.Send(context.Background(), "hello there")

	// The message is not appended optimistically: it only shows up once the
	// backend fans the insert back through the subscription.
	select {
	case <-appends:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the insert event append")
	}

	msgs := s.Snapshot()
	require.Len(t, msgs, 1)
	require.Equal(t, "hello there", msgs[0].Content)
	require.Equal(t, "alice", msgs[0].Username)

	// Exactly one append per insert.
	select {
	case <-appends:
		t.Fatal("insert was appended more than once")
	case <-time.After(200 * time.Millisecond):
	}
	require.Len(t, s.Snapshot(), 1)
}

func TestSend_DenormalizesSenderAtSendTime(t *testing.T) {
	s, _, srv := newTestStream(t, nil)
	s.Open(context.Background())

	s.Send(context.Background(), "first")

	require.Eventually(t, func() bool {
		return len(srv.Messages()) == 1
	}, 5*time.Second, 10*time.Millisecond)

	stored := srv.Messages()[0]
	require.Equal(t, "alice", stored.Username)
	require.Equal(t, s.Viewer().ID, stored.UserID)
}

func TestClose_ReleasesSubscription(t *testing.T) {
	appends := make(chan struct{}, 16)
	s, client, _ := newTestStream(t, func() {
		select {
		case appends <- struct{}{}:
		default:
		}
	})
	ctx := context.Background()

	s.Open(ctx)
	<-appends

	s.Close()

	// An insert after teardown must not reach the closed stream.
	require.NoError(t, client.InsertMessage(ctx, backend.NewMessage{
		Content:  "after close",
		UserID:   s.Viewer().ID,
		Username: "alice",
	}))

	select {
	case <-appends:
		t.Fatal("received an append after the stream was closed")
	case <-time.After(300 * time.Millisecond):
	}
	require.Empty(t, s.Snapshot())

	// Close is safe to call again.
	s.Close()
}

func TestSnapshot_BreaksTimestampTiesByID(t *testing.T) {
	s, _, srv := newTestStream(t, nil)

	at := time.Now().Add(-time.Hour)
	second := srv.SeedMessage("second", "u2", "carol", at)
	first := srv.SeedMessage("first", "u1", "bob", at)
	require.Less(t, second.ID, first.ID)

	s.Open(context.Background())

	msgs := s.Snapshot()
	require.Len(t, msgs, 2)
	require.Equal(t, "second", msgs[0].Content)
	require.Equal(t, "first", msgs[1].Content)
}
