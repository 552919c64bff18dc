package websocket

import (
	"encoding/json"
	"net/http"

	"github.com/dom/duo-chat/internal/session"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// TokenVerifier resolves a session token to a user id.
type TokenVerifier interface {
	Verify(token string) (uuid.UUID, error)
}

// Gateway accepts realtime connections. Identity always comes from the verified
// session token; a userId query parameter is only checked against it.
type Gateway struct {
	hub      *Hub
	verifier TokenVerifier
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

func NewGateway(hub *Hub, verifier TokenVerifier, allowedOrigins []string, logger *zap.Logger) *Gateway {
	return &Gateway{
		hub:      hub,
		verifier: verifier,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		logger: logger,
	}
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := g.logger.With(zap.String("remote_addr", r.RemoteAddr))
	log.Debug("connection state changed", zap.Stringer("from", StateConnecting), zap.Stringer("to", StateAuthenticating))

	userID, err := g.verifier.Verify(session.TokenFromRequest(r, true))
	if err != nil {
		log.Info("websocket handshake refused", zap.Error(err))
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if claimed := r.URL.Query().Get("userId"); claimed != "" && claimed != userID.String() {
		log.Warn("websocket handshake user id mismatch",
			zap.String("claimed", claimed), zap.Stringer("user_id", userID))
		writeError(w, http.StatusForbidden, "User id does not match session")
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := NewClient(g.hub, conn, userID, g.logger)
	g.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}

func originChecker(allowed []string) func(r *http.Request) bool {
	origins := make(map[string]struct{}, len(allowed))
	allowAll := false
	for _, o := range allowed {
		if o == "*" {
			allowAll = true
		}
		origins[o] = struct{}{}
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || allowAll {
			return true
		}
		_, ok := origins[origin]
		return ok
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}
