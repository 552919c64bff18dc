package testutil

import (
	"context"
	"fmt"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dom/duo-chat/internal/api"
	"github.com/dom/duo-chat/internal/config"
	"github.com/dom/duo-chat/internal/media"
	"github.com/dom/duo-chat/internal/repository"
	"github.com/dom/duo-chat/internal/repository/sqlstore"
	"github.com/dom/duo-chat/internal/service"
	"github.com/dom/duo-chat/internal/session"
	"github.com/dom/duo-chat/internal/websocket"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDB manages a testcontainers PostgreSQL instance
type TestDB struct {
	Container testcontainers.Container
	DB        *gorm.DB
	DSN       string
}

// NewTestDB creates a new PostgreSQL testcontainer and returns a migrated connection
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	container, err := tcPostgres.Run(ctx,
		"postgres:15-alpine",
		tcPostgres.WithDatabase("test_duo_chat"),
		tcPostgres.WithUsername("test"),
		tcPostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	testDB := &TestDB{Container: container}
	t.Cleanup(func() {
		testDB.Cleanup()
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}
	testDB.DSN = dsn

	db, err := sqlstore.NewConnection("postgres", dsn, logger.Silent)
	if err != nil {
		t.Fatalf("failed to connect to database: %v", err)
	}
	testDB.DB = db

	return testDB
}

// NewSQLiteDB opens a migrated SQLite database in a temp dir. It needs no container.
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "duo-chat.db")
	db, err := sqlstore.NewConnection("sqlite", path, logger.Silent)
	if err != nil {
		t.Fatalf("failed to open sqlite database: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// Cleanup terminates the container
func (tdb *TestDB) Cleanup() {
	if tdb.Container != nil {
		tdb.Container.Terminate(context.Background())
	}
}

// Truncate clears all tables for test isolation
func (tdb *TestDB) Truncate(t *testing.T) {
	t.Helper()

	for _, table := range []string{"messages", "users"} {
		if err := tdb.DB.Exec(fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)).Error; err != nil {
			t.Logf("warning: failed to truncate %s: %v", table, err)
		}
	}
}

// TestConfig returns a configuration suitable for testing
func TestConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Port:           "0",
		Environment:    "development",
		AllowedOrigins: []string{"http://localhost:5173"},
		DatabaseDriver: "postgres",
		JWTSecret:      "test-jwt-secret-key-for-testing-only",
		SessionTTL:     time.Hour,
		MediaBackend:   "local",
		MediaDir:       t.TempDir(),
		MediaBaseURL:   "/media",
		MediaMaxBytes:  1 << 20,
		LogLevel:       "debug",
	}
}

// TestServer holds all components for integration testing
type TestServer struct {
	Server   *httptest.Server
	DB       *gorm.DB
	Repos    *repository.Repositories
	Services *service.Services
	Hub      *websocket.Hub
	Tokens   *session.Manager
	Config   *config.Config
}

// NewTestServer creates a complete test server backed by a PostgreSQL container
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()
	return NewTestServerWithDB(t, NewTestDB(t).DB)
}

// NewTestServerWithDB creates a complete test server on an existing database
func NewTestServerWithDB(t *testing.T, db *gorm.DB) *TestServer {
	t.Helper()

	cfg := TestConfig(t)
	log := zaptest.NewLogger(t)

	uploader, err := media.New(cfg)
	if err != nil {
		t.Fatalf("failed to create uploader: %v", err)
	}

	repos := sqlstore.NewRepositories(db)
	tokens := session.NewManager(cfg.JWTSecret, cfg.SessionTTL)
	hub := websocket.NewHub(log)

	services := service.NewServices(repos, tokens, uploader, hub, log)
	router := api.NewRouter(services, hub, tokens, cfg, log)

	server := httptest.NewServer(router)

	ts := &TestServer{
		Server:   server,
		DB:       db,
		Repos:    repos,
		Services: services,
		Hub:      hub,
		Tokens:   tokens,
		Config:   cfg,
	}

	t.Cleanup(func() {
		hub.Stop()
		server.Close()
	})

	return ts
}

// BaseURL returns the test server's base URL
func (ts *TestServer) BaseURL() string {
	return ts.Server.URL
}

// APIURL returns the full API URL for a given path
func (ts *TestServer) APIURL(path string) string {
	return fmt.Sprintf("%s/api%s", ts.Server.URL, path)
}

// WebSocketURL returns the realtime endpoint URL with an optional query token
func (ts *TestServer) WebSocketURL(token string) string {
	wsURL := "ws" + strings.TrimPrefix(ts.Server.URL, "http") + "/ws"
	if token == "" {
		return wsURL
	}
	return fmt.Sprintf("%s?token=%s", wsURL, token)
}

// Truncate clears every table the server writes to, on any driver
func (ts *TestServer) Truncate(t *testing.T) {
	t.Helper()

	for _, table := range []string{"messages", "users"} {
		if err := ts.DB.Exec(fmt.Sprintf("DELETE FROM %s", table)).Error; err != nil {
			t.Fatalf("failed to clear %s: %v", table, err)
		}
	}
}
