package websocket_test

import (
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/dom/duo-chat/internal/domain"
	"github.com/dom/duo-chat/internal/websocket"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeConn struct {
	id uuid.UUID

	mu        sync.Mutex
	messages  []*websocket.Message
	closed    bool
	closeCode int
	failSend  bool
}

func newFakeConn(id uuid.UUID) *fakeConn {
	return &fakeConn{id: id}
}

func (f *fakeConn) UserID() uuid.UUID { return f.id }

func (f *fakeConn) Send(msg *websocket.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return domain.ErrPushFailed
	}
	if f.failSend {
		return errors.New("boom")
	}
	f.messages = append(f.messages, msg)
	return nil
}

func (f *fakeConn) Close(code int, reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		f.closeCode = code
	}
}

func (f *fakeConn) isClosed() (bool, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed, f.closeCode
}

// onlineSets decodes every presence broadcast the connection received.
func (f *fakeConn) onlineSets(t *testing.T) [][]string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()

	var sets [][]string
	for _, m := range f.messages {
		if m.Type != websocket.MessageTypeOnlineUsers {
			continue
		}
		var ids []string
		require.NoError(t, json.Unmarshal(m.Payload, &ids))
		sets = append(sets, ids)
	}
	return sets
}

func (f *fakeConn) lastOnline(t *testing.T) []string {
	t.Helper()
	sets := f.onlineSets(t)
	require.NotEmpty(t, sets, "no presence broadcast received")
	return sets[len(sets)-1]
}

func TestHub_RegisterBroadcastsOnlineSet(t *testing.T) {
	hub := websocket.NewHub(zaptest.NewLogger(t))

	a := newFakeConn(uuid.New())
	b := newFakeConn(uuid.New())

	require.True(t, hub.Register(a))
	assert.Equal(t, []string{a.id.String()}, a.lastOnline(t))

	require.True(t, hub.Register(b))
	assert.ElementsMatch(t, []string{a.id.String(), b.id.String()}, a.lastOnline(t))
	assert.ElementsMatch(t, []string{a.id.String(), b.id.String()}, b.lastOnline(t))

	assert.Equal(t, 2, hub.OnlineCount())
	assert.ElementsMatch(t, []uuid.UUID{a.id, b.id}, hub.Snapshot())
}

func TestHub_SnapshotsArriveInMutationOrder(t *testing.T) {
	hub := websocket.NewHub(zaptest.NewLogger(t))

	a := newFakeConn(uuid.New())
	b := newFakeConn(uuid.New())
	c := newFakeConn(uuid.New())

	hub.Register(a)
	hub.Register(b)
	hub.Register(c)
	hub.Unregister(b)

	sets := a.onlineSets(t)
	require.Len(t, sets, 4)
	assert.Len(t, sets[0], 1)
	assert.Len(t, sets[1], 2)
	assert.Len(t, sets[2], 3)
	assert.ElementsMatch(t, []string{a.id.String(), c.id.String()}, sets[3])
}

func TestHub_RegisterSameUserReplacesConnection(t *testing.T) {
	hub := websocket.NewHub(zaptest.NewLogger(t))
	userID := uuid.New()

	first := newFakeConn(userID)
	second := newFakeConn(userID)

	hub.Register(first)
	hub.Register(second)

	assert.Equal(t, []uuid.UUID{userID}, hub.Snapshot())

	got, ok := hub.Lookup(userID)
	require.True(t, ok)
	assert.Same(t, second, got)

	closed, code := first.isClosed()
	assert.True(t, closed)
	assert.Equal(t, websocket.CloseSuperseded, code)

	t.Run("stale unregister keeps the newer connection", func(t *testing.T) {
		before := len(second.onlineSets(t))

		assert.False(t, hub.Unregister(first))

		got, ok := hub.Lookup(userID)
		require.True(t, ok)
		assert.Same(t, second, got)
		assert.Len(t, second.onlineSets(t), before, "no broadcast for a no-op unregister")
	})
}

func TestHub_UnregisterBroadcastsToRemaining(t *testing.T) {
	hub := websocket.NewHub(zaptest.NewLogger(t))

	a := newFakeConn(uuid.New())
	b := newFakeConn(uuid.New())
	hub.Register(a)
	hub.Register(b)

	require.True(t, hub.Unregister(b))

	assert.Equal(t, []string{a.id.String()}, a.lastOnline(t))
	_, ok := hub.Lookup(b.id)
	assert.False(t, ok)

	assert.False(t, hub.Unregister(b), "second unregister is a no-op")
}

func TestHub_BroadcastFailureIsIsolated(t *testing.T) {
	hub := websocket.NewHub(zaptest.NewLogger(t))

	broken := newFakeConn(uuid.New())
	broken.failSend = true
	healthy := newFakeConn(uuid.New())

	hub.Register(broken)
	hub.Register(healthy)

	assert.ElementsMatch(t, []string{broken.id.String(), healthy.id.String()}, healthy.lastOnline(t))
	assert.Equal(t, 2, hub.OnlineCount())
	assert.Empty(t, broken.onlineSets(t))
}

func TestHub_Stop(t *testing.T) {
	hub := websocket.NewHub(zaptest.NewLogger(t))

	a := newFakeConn(uuid.New())
	hub.Register(a)

	hub.Stop()

	closed, _ := a.isClosed()
	assert.True(t, closed)
	assert.Equal(t, 0, hub.OnlineCount())

	late := newFakeConn(uuid.New())
	assert.False(t, hub.Register(late))
	closed, _ = late.isClosed()
	assert.True(t, closed)
	assert.Empty(t, hub.Snapshot())

	hub.Stop()
}

func TestHub_ConcurrentRegisterUnregister(t *testing.T) {
	hub := websocket.NewHub(zaptest.NewLogger(t))

	const users = 16
	const ops = 200

	ids := make([]uuid.UUID, users)
	finalOnline := make([]bool, users)
	var wg sync.WaitGroup

	for i := 0; i < users; i++ {
		ids[i] = uuid.New()
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(int64(i)))

			var current *fakeConn
			for n := 0; n < ops; n++ {
				switch {
				case current == nil || r.Intn(2) == 0:
					current = newFakeConn(ids[i])
					hub.Register(current)
				default:
					hub.Unregister(current)
					current = nil
				}

				snap := hub.Snapshot()
				seen := make(map[uuid.UUID]bool, len(snap))
				for _, id := range snap {
					assert.False(t, seen[id], "duplicate user id in snapshot")
					seen[id] = true
				}
				if current != nil {
					assert.True(t, seen[ids[i]], "active user missing from snapshot")
				}
			}
			finalOnline[i] = current != nil
		}(i)
	}
	wg.Wait()

	var want []uuid.UUID
	for i, online := range finalOnline {
		if online {
			want = append(want, ids[i])
		}
	}
	assert.ElementsMatch(t, want, hub.Snapshot())

	for i, online := range finalOnline {
		conn, ok := hub.Lookup(ids[i])
		assert.Equal(t, online, ok)
		if ok {
			closed, _ := conn.(*fakeConn).isClosed()
			assert.False(t, closed, "registered connection must be live")
		}
	}
}
