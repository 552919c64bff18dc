package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dom/duo-chat/internal/websocket"
	gorillaWS "github.com/gorilla/websocket"
)

const sessionCookie = "jwt"

// APIClient handles HTTP and realtime communication with the backend
type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPIClient creates a new API client
func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Response types matching backend

type User struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

type Message struct {
	ID         string `json:"id"`
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
	Text       string `json:"text"`
	Image      string `json:"image"`
	CreatedAt  string `json:"createdAt"`
}

// SignupUser creates a new account and returns it with its session token
func (c *APIClient) SignupUser(baseName, password string) (*User, string, error) {
	suffix := time.Now().UnixNano() % 100000
	body := map[string]string{
		"fullName": fmt.Sprintf("%s %d", baseName, suffix),
		"email":    fmt.Sprintf("%s_%d@sim.local", strings.ToLower(baseName), suffix),
		"password": password,
	}

	resp, err := c.post("/api/auth/signup", body, "")
	if err != nil {
		return nil, "", fmt.Errorf("signup request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil, "", statusError("signup", resp)
	}
	return decodeSession(resp)
}

// Login authenticates an existing account
func (c *APIClient) Login(email, password string) (*User, string, error) {
	resp, err := c.post("/api/auth/login", map[string]string{"email": email, "password": password}, "")
	if err != nil {
		return nil, "", fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", statusError("login", resp)
	}
	return decodeSession(resp)
}

// SendMessage posts a text message to receiverID
func (c *APIClient) SendMessage(token, receiverID, text string) (*Message, error) {
	resp, err := c.post("/api/message/send/"+receiverID, map[string]string{"text": text}, token)
	if err != nil {
		return nil, fmt.Errorf("send request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil, statusError("send", resp)
	}

	var msg Message
	if err := json.NewDecoder(resp.Body).Decode(&msg); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &msg, nil
}

// History returns the conversation with otherID
func (c *APIClient) History(token, otherID string) ([]Message, error) {
	resp, err := c.get("/api/message/"+otherID, token)
	if err != nil {
		return nil, fmt.Errorf("history request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError("history", resp)
	}

	var messages []Message
	if err := json.NewDecoder(resp.Body).Decode(&messages); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return messages, nil
}

// Connect opens the realtime connection for token
func (c *APIClient) Connect(token string) (*gorillaWS.Conn, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/ws"

	header := http.Header{"Authorization": []string{"Bearer " + token}}
	conn, resp, err := gorillaWS.DefaultDialer.Dial(u.String(), header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("realtime handshake failed (status %d): %w", resp.StatusCode, err)
		}
		return nil, err
	}
	return conn, nil
}

// ReadEvent blocks for the next realtime envelope
func ReadEvent(conn *gorillaWS.Conn) (*websocket.Message, error) {
	_, data, err := conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	var msg websocket.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func decodeSession(resp *http.Response) (*User, string, error) {
	var user User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, "", fmt.Errorf("failed to decode response: %w", err)
	}

	for _, c := range resp.Cookies() {
		if c.Name == sessionCookie {
			return &user, c.Value, nil
		}
	}
	return nil, "", fmt.Errorf("response carried no %s cookie", sessionCookie)
}

func statusError(op string, resp *http.Response) error {
	bodyBytes, _ := io.ReadAll(resp.Body)
	return fmt.Errorf("%s failed (status %d): %s", op, resp.StatusCode, string(bodyBytes))
}

func (c *APIClient) get(path, token string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return c.httpClient.Do(req)
}

func (c *APIClient) post(path string, body interface{}, token string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.httpClient.Do(req)
}
