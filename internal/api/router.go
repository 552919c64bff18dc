package api

import (
	"net/http"
	"strings"

	"github.com/dom/duo-chat/internal/api/handlers"
	"github.com/dom/duo-chat/internal/api/middleware"
	"github.com/dom/duo-chat/internal/config"
	"github.com/dom/duo-chat/internal/service"
	"github.com/dom/duo-chat/internal/session"
	"github.com/dom/duo-chat/internal/websocket"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

func NewRouter(services *service.Services, hub *websocket.Hub, tokens *session.Manager, cfg *config.Config, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	secureCookie := !cfg.IsDevelopment()
	authHandler := handlers.NewAuthHandler(services.Auth, tokens.TTL(), secureCookie, logger)
	messageHandler := handlers.NewMessageHandler(services.Message, logger)
	gateway := websocket.NewGateway(hub, tokens, cfg.AllowedOrigins, logger)
	requireAuth := middleware.Auth(tokens, logger)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", authHandler.Signup)
			r.Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Put("/update-profile", authHandler.UpdateProfile)
				r.Get("/check", authHandler.Check)
			})
		})

		r.Route("/message", func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/users", messageHandler.Contacts)
			r.Get("/{id}", messageHandler.History)
			r.Post("/send/{id}", messageHandler.Send)
		})
	})

	// Realtime endpoint
	r.Get("/ws", gateway.ServeHTTP)

	if cfg.MediaBackend == "local" {
		prefix := strings.TrimRight(cfg.MediaBaseURL, "/")
		if strings.HasPrefix(prefix, "/") {
			files := http.StripPrefix(prefix+"/", http.FileServer(http.Dir(cfg.MediaDir)))
			r.Get(prefix+"/*", func(w http.ResponseWriter, r *http.Request) {
				if strings.HasSuffix(r.URL.Path, "/") {
					http.NotFound(w, r)
					return
				}
				files.ServeHTTP(w, r)
			})
		}
	}

	return r
}
