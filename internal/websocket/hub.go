package websocket

import (
	"bytes"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Hub is the presence registry: the single in-memory table of who is online, with at
// most one connection per user id. It is created by main and shared with the gateway
// and message delivery; Stop tears it down with the process.
//
// The lock covers map mutation and the non-blocking enqueue of presence broadcasts, so
// every connection sees online-user snapshots in the order the table changed. Network
// writes happen in each client's write pump.
type Hub struct {
	mu      sync.RWMutex
	conns   map[uuid.UUID]Conn
	stopped bool
	logger  *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		conns:  make(map[uuid.UUID]Conn),
		logger: logger,
	}
}

// Register makes c the connection for its user, closing any connection it replaces,
// and broadcasts the new online set. It returns false, closing c, once the hub is
// stopped.
func (h *Hub) Register(c Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stopped {
		c.Close(websocket.CloseGoingAway, "server shutting down")
		return false
	}

	userID := c.UserID()
	if prev, ok := h.conns[userID]; ok && prev != c {
		prev.Close(CloseSuperseded, "superseded by a newer connection")
		h.logger.Info("connection superseded", zap.Stringer("user_id", userID))
	}
	h.conns[userID] = c

	if client, ok := c.(*Client); ok {
		client.setState(StateActive)
	}

	h.logger.Info("user online", zap.Stringer("user_id", userID), zap.Int("online", len(h.conns)))
	h.broadcastLocked()
	return true
}

// Unregister removes c only if it is still the registered connection for its user, so
// a late disconnect from a superseded connection never evicts its replacement.
func (h *Hub) Unregister(c Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	userID := c.UserID()
	current, ok := h.conns[userID]
	if !ok || current != c {
		return false
	}
	delete(h.conns, userID)

	h.logger.Info("user offline", zap.Stringer("user_id", userID), zap.Int("online", len(h.conns)))
	h.broadcastLocked()
	return true
}

func (h *Hub) Lookup(userID uuid.UUID) (Conn, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.conns[userID]
	return c, ok
}

// Snapshot returns the online user ids in a stable order.
func (h *Hub) Snapshot() []uuid.UUID {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.snapshotLocked()
}

func (h *Hub) OnlineCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Stop closes every connection and refuses later registrations.
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stopped {
		return
	}
	h.stopped = true

	for _, c := range h.conns {
		c.Close(websocket.CloseGoingAway, "server shutting down")
	}
	h.conns = make(map[uuid.UUID]Conn)
}

func (h *Hub) snapshotLocked() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(h.conns))
	for id := range h.conns {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b uuid.UUID) int {
		return bytes.Compare(a[:], b[:])
	})
	return ids
}

// broadcastLocked must be called with h.mu held for writing.
func (h *Hub) broadcastLocked() {
	ids := h.snapshotLocked()
	online := make([]string, len(ids))
	for i, id := range ids {
		online[i] = id.String()
	}

	msg, err := NewMessage(MessageTypeOnlineUsers, online)
	if err != nil {
		h.logger.Error("failed to build presence broadcast", zap.Error(err))
		return
	}

	for _, c := range h.conns {
		if err := c.Send(msg); err != nil {
			h.logger.Debug("presence broadcast skipped",
				zap.Stringer("user_id", c.UserID()), zap.Error(err))
		}
	}
}
