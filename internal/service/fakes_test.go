package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/dom/duo-chat/internal/domain"
	"github.com/dom/duo-chat/internal/media"
	"github.com/dom/duo-chat/internal/websocket"
	"github.com/google/uuid"
)

type fakeUploader struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (u *fakeUploader) Upload(_ context.Context, dataURI string) (*media.Asset, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.calls = append(u.calls, dataURI)
	if u.err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrUpload, u.err)
	}
	n := len(u.calls)
	return &media.Asset{
		URL:         fmt.Sprintf("https://cdn.example/%d.png", n),
		ContentType: "image/png",
		Size:        int64(len(dataURI)),
		Digest:      fmt.Sprintf("digest-%d", n),
	}, nil
}

func (u *fakeUploader) callCount() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.calls)
}

type brokenMessageRepo struct{}

func (brokenMessageRepo) Create(context.Context, *domain.Message) error {
	return fmt.Errorf("%w: %w", domain.ErrPersistence, errors.New("disk full"))
}

func (brokenMessageRepo) ListBetween(context.Context, uuid.UUID, uuid.UUID) ([]*domain.Message, error) {
	return nil, fmt.Errorf("%w: %w", domain.ErrPersistence, errors.New("disk full"))
}

// fakeConn records events pushed to a user.
type fakeConn struct {
	userID uuid.UUID
	fail   bool

	mu     sync.Mutex
	events []*websocket.Message
	closed bool
}

func newFakeConn(userID uuid.UUID) *fakeConn {
	return &fakeConn{userID: userID}
}

func (c *fakeConn) UserID() uuid.UUID { return c.userID }

func (c *fakeConn) Send(msg *websocket.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.fail {
		return fmt.Errorf("%w: connection closed", domain.ErrPushFailed)
	}
	c.events = append(c.events, msg)
	return nil
}

func (c *fakeConn) Close(int, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *fakeConn) pushed() []*domain.Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []*domain.Message
	for _, e := range c.events {
		if e.Type != websocket.MessageTypeNewMessage {
			continue
		}
		var m domain.Message
		if err := json.Unmarshal(e.Payload, &m); err == nil {
			out = append(out, &m)
		}
	}
	return out
}

func (c *fakeConn) lastOnline() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := len(c.events) - 1; i >= 0; i-- {
		if c.events[i].Type == websocket.MessageTypeOnlineUsers {
			var ids []string
			json.Unmarshal(c.events[i].Payload, &ids)
			return ids
		}
	}
	return nil
}
