package testutil

import (
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/dom/duo-chat/internal/domain"
	"github.com/dom/duo-chat/internal/session"
	"github.com/dom/duo-chat/internal/websocket"
	gorillaWS "github.com/gorilla/websocket"
)

// WSClient is a test WebSocket client
type WSClient struct {
	t        *testing.T
	conn     *gorillaWS.Conn
	messages chan *websocket.Message
	errors   chan error
	done     chan struct{}
	mu       sync.Mutex
}

// DialWS performs the realtime handshake and returns the raw result, for tests that
// expect the handshake to be refused.
func DialWS(url string, header http.Header) (*gorillaWS.Conn, *http.Response, error) {
	dialer := *gorillaWS.DefaultDialer
	dialer.HandshakeTimeout = 5 * time.Second
	return dialer.Dial(url, header)
}

// CookieHeader builds a request header carrying the session cookie.
func CookieHeader(token string) http.Header {
	return http.Header{"Cookie": []string{session.CookieName + "=" + token}}
}

// NewWSClient creates a new WebSocket test client
func NewWSClient(t *testing.T, url string, header http.Header) *WSClient {
	t.Helper()

	conn, _, err := DialWS(url, header)
	if err != nil {
		t.Fatalf("failed to connect to websocket: %v", err)
	}

	client := &WSClient{
		t:        t,
		conn:     conn,
		messages: make(chan *websocket.Message, 100),
		errors:   make(chan error, 10),
		done:     make(chan struct{}),
	}

	go client.readPump()

	t.Cleanup(func() {
		client.Close()
	})

	return client
}

// readPump reads messages from the WebSocket connection
func (c *WSClient) readPump() {
	defer close(c.messages)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			case c.errors <- err:
			}
			return
		}

		var msg websocket.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.errors <- err
			continue
		}

		select {
		case c.messages <- &msg:
		case <-c.done:
			return
		}
	}
}

// Close closes the WebSocket connection gracefully
func (c *WSClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.done:
		return
	default:
		close(c.done)
		c.conn.WriteMessage(gorillaWS.CloseMessage, gorillaWS.FormatCloseMessage(gorillaWS.CloseNormalClosure, ""))
		c.conn.Close()
	}
}

// ExpectMessage waits for a message of the specified type, skipping others
func (c *WSClient) ExpectMessage(msgType websocket.MessageType, timeout time.Duration) *websocket.Message {
	c.t.Helper()

	deadline := time.After(timeout)
	for {
		select {
		case msg := <-c.messages:
			if msg == nil {
				c.t.Fatalf("connection closed while waiting for %s", msgType)
			}
			if msg.Type == msgType {
				return msg
			}
		case err := <-c.errors:
			c.t.Fatalf("error while waiting for %s: %v", msgType, err)
		case <-deadline:
			c.t.Fatalf("timeout waiting for message type %s", msgType)
		}
	}
}

// ExpectOnlineUsers waits for and decodes a getOnlineUsers message
func (c *WSClient) ExpectOnlineUsers(timeout time.Duration) []string {
	c.t.Helper()

	msg := c.ExpectMessage(websocket.MessageTypeOnlineUsers, timeout)

	var ids []string
	if err := json.Unmarshal(msg.Payload, &ids); err != nil {
		c.t.Fatalf("failed to decode online users payload: %v", err)
	}
	return ids
}

// WaitForOnlineUsers skips presence snapshots until one has exactly want members
func (c *WSClient) WaitForOnlineUsers(want int, timeout time.Duration) []string {
	c.t.Helper()

	deadline := time.Now().Add(timeout)
	for {
		ids := c.ExpectOnlineUsers(time.Until(deadline))
		if len(ids) == want {
			return ids
		}
	}
}

// ExpectNewMessage waits for and decodes a newMessage event
func (c *WSClient) ExpectNewMessage(timeout time.Duration) *domain.Message {
	c.t.Helper()

	msg := c.ExpectMessage(websocket.MessageTypeNewMessage, timeout)

	var message domain.Message
	if err := json.Unmarshal(msg.Payload, &message); err != nil {
		c.t.Fatalf("failed to decode new message payload: %v", err)
	}
	return &message
}

// ExpectNoMessage verifies no message of msgType is received within timeout
func (c *WSClient) ExpectNoMessage(msgType websocket.MessageType, timeout time.Duration) {
	c.t.Helper()

	deadline := time.After(timeout)
	for {
		select {
		case msg := <-c.messages:
			if msg != nil && msg.Type == msgType {
				c.t.Fatalf("unexpected message received: %s", msg.Type)
			}
			if msg == nil {
				return
			}
		case <-deadline:
			return
		}
	}
}

// ExpectClose waits for the server to close the connection and returns the close code
func (c *WSClient) ExpectClose(timeout time.Duration) int {
	c.t.Helper()

	messages := c.messages
	deadline := time.After(timeout)
	for {
		select {
		case msg := <-messages:
			if msg == nil {
				messages = nil
			}
		case err := <-c.errors:
			if ce, ok := err.(*gorillaWS.CloseError); ok {
				return ce.Code
			}
			c.t.Fatalf("connection failed without a close frame: %v", err)
		case <-deadline:
			c.t.Fatal("timeout waiting for close")
		}
	}
}

// DrainMessages drains all pending messages, waiting for the channel to settle.
func (c *WSClient) DrainMessages() {
	deadline := time.After(100 * time.Millisecond)
	for {
		select {
		case msg := <-c.messages:
			if msg == nil {
				return
			}
			deadline = time.After(50 * time.Millisecond)
		case <-deadline:
			return
		case <-c.done:
			return
		}
	}
}
