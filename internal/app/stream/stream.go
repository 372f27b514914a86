/*
Package stream maintains the in-memory message list behind the chat view.

On open it fetches the full ordered history, then consumes the realtime
insert subscription, appending events as they arrive. Send inserts a row and
deliberately does not append it locally: the sender sees their own message
only once it comes back through the backend's fan-out. Close releases exactly
the subscription; in-flight fetches are bounded by their context only.
*/
package stream

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"supachat/internal/app/user"
	"supachat/internal/backend"
	"supachat/internal/pkg/errs"
	"supachat/internal/pkg/logx"
)

// State describes the initial-fetch lifecycle of the stream.
type State int

const (
	// StateLoading means the initial history fetch has not completed.
	StateLoading State = iota

	// StateEmpty means the fetch completed and the history is empty.
	StateEmpty

	// StateLoaded means at least one message is present.
	StateLoaded
)

// MessageTable is the backend table holding chat messages.
const MessageTable = "messages"

// Stream holds the ordered message list for one mounted chat view.
type Stream struct {
	backend *backend.Client
	viewer  user.User
	logger  zerolog.Logger

	// notify is invoked after every visible change so the view can re-render.
	notify func()

	mu       sync.Mutex
	messages []user.Message
	state    State
	sub      *backend.Subscription

	wg sync.WaitGroup
}

// New constructs a Stream for the given viewer. notify may be nil.
func New(b *backend.Client, viewer user.User, notify func()) *Stream {
	if notify == nil {
		notify = func() {}
	}

	return &Stream{
		backend: b,
		viewer:  viewer,
		logger: logx.Logger().With().
			Str("component", "stream").
			Str("viewer_id", viewer.ID).
			Logger(),
		notify: notify,
		state:  StateLoading,
	}
}

// Open fetches the full message history, then opens the insert subscription
// and starts consuming it. A failed fetch is logged and the view degrades to
// an empty list; a failed subscription is logged and the view simply stops
// receiving live updates. Neither failure is surfaced.
func (s *Stream) Open(ctx context.Context) {
	history, err := s.backend.FetchMessages(ctx)
	if err != nil {
		logx.Error(err, errs.NewError(errs.ErrMessageFetchFailed).Message)
		history = nil
	}

	s.mu.Lock()
	s.messages = history
	if len(history) == 0 {
		s.state = StateEmpty
	} else {
		s.state = StateLoaded
	}
	s.mu.Unlock()

	s.notify()

	sub, err := s.backend.SubscribeInserts(ctx, MessageTable)
	if err != nil {
		logx.Error(err, errs.NewError(errs.ErrSubscribeFailed).Message)
		return
	}

	s.mu.Lock()
	s.sub = sub
	s.mu.Unlock()

	s.wg.Add(1)
	go s.consume(sub)
}

// consume appends every insert event to the list, verbatim and without
// deduplication by id, until the subscription's event channel closes.
func (s *Stream) consume(sub *backend.Subscription) {
	defer s.wg.Done()

	for msg := range sub.Events() {
		s.mu.Lock()
		s.messages = append(s.messages, msg)
		s.state = StateLoaded
		s.mu.Unlock()

		s.notify()
	}

	s.logger.Info().Msg("Insert event stream ended")
}

// Send inserts one message row carrying the viewer's current display name and
// avatar. Blank or whitespace-only content is a no-op and performs no network
// call. The inserted message is not appended locally; it arrives through the
// subscription. A failed insert is logged, never surfaced.
func (s *Stream) Send(ctx context.Context, content string) {
	if strings.TrimSpace(content) == "" {
		return
	}

	msg := backend.NewMessage{
		Content:   content,
		UserID:    s.viewer.ID,
		Username:  user.DisplayName(s.viewer.Username, s.viewer.Email),
		AvatarURL: s.viewer.AvatarURL,
	}

	if err := s.backend.InsertMessage(ctx, msg); err != nil {
		logx.Error(err, errs.NewError(errs.ErrMessageInsertFailed).Message, "user_id", s.viewer.ID)
	}
}

// Snapshot returns a copy of the message list sorted by creation time
// ascending (ties broken by id), regardless of the order in which fetch and
// subscription delivered the rows.
func (s *Stream) Snapshot() []user.Message {
	s.mu.Lock()
	snapshot := make([]user.Message, len(s.messages))
	copy(snapshot, s.messages)
	s.mu.Unlock()

	sort.SliceStable(snapshot, func(i, j int) bool {
		if snapshot[i].CreatedAt.Equal(snapshot[j].CreatedAt) {
			return snapshot[i].ID < snapshot[j].ID
		}
		return snapshot[i].CreatedAt.Before(snapshot[j].CreatedAt)
	})

	return snapshot
}

// State returns the initial-fetch state of the stream.
func (s *Stream) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Viewer returns the user this stream renders for.
func (s *Stream) Viewer() user.User {
	return s.viewer
}

// Close releases the realtime subscription and waits for the consume loop to
// drain. It is the only teardown the stream needs: the message list is plain
// memory and is garbage once the stream is dropped. Safe to call when Open
// never ran or the subscription never opened.
func (s *Stream) Close() {
	s.mu.Lock()
	sub := s.sub
	s.sub = nil
	s.mu.Unlock()

	if sub != nil {
		sub.Close()
	}

	s.wg.Wait()
}
