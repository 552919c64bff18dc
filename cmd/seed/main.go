// Command seed creates a fixed set of demo users so a fresh database has contacts.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"

	"github.com/dom/duo-chat/internal/config"
	"github.com/dom/duo-chat/internal/domain"
	"github.com/dom/duo-chat/internal/logging"
	"github.com/dom/duo-chat/internal/repository"
	"github.com/dom/duo-chat/internal/repository/sqlstore"
	"github.com/dom/duo-chat/internal/service"
	"github.com/dom/duo-chat/internal/session"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm/logger"
)

type seedUser struct {
	fullName   string
	email      string
	profilePic string
}

var seedUsers = []seedUser{
	{"Nora Lindqvist", "nora.lindqvist@example.com", "https://randomuser.me/api/portraits/women/11.jpg"},
	{"Priya Raman", "priya.raman@example.com", "https://randomuser.me/api/portraits/women/12.jpg"},
	{"Chloe Martin", "chloe.martin@example.com", "https://randomuser.me/api/portraits/women/13.jpg"},
	{"Aiko Tanaka", "aiko.tanaka@example.com", "https://randomuser.me/api/portraits/women/14.jpg"},
	{"Lucas Ferreira", "lucas.ferreira@example.com", "https://randomuser.me/api/portraits/men/11.jpg"},
	{"Omar Haddad", "omar.haddad@example.com", "https://randomuser.me/api/portraits/men/12.jpg"},
	{"Ben Okafor", "ben.okafor@example.com", "https://randomuser.me/api/portraits/men/13.jpg"},
	{"Jonas Weber", "jonas.weber@example.com", "https://randomuser.me/api/portraits/men/14.jpg"},
}

func main() {
	password := flag.String("password", "123456", "Password given to every seeded user")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("failed to load .env: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	lg, err := logging.New(cfg.LogLevel, cfg.Environment)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer lg.Sync()

	db, err := sqlstore.NewConnection(cfg.DatabaseDriver, cfg.DatabaseURL, logger.Warn)
	if err != nil {
		lg.Fatal("failed to connect to database", zap.Error(err))
	}

	repos := sqlstore.NewRepositories(db)
	auth := service.NewAuthService(repos.User, session.NewManager(cfg.JWTSecret, cfg.SessionTTL), nil, lg)

	created, err := seed(context.Background(), auth, repos.User, *password, lg)
	if err != nil {
		lg.Fatal("seeding failed", zap.Error(err))
	}
	lg.Info("seeding complete", zap.Int("created", created), zap.Int("total", len(seedUsers)))
}

// seed signs up every demo user that does not exist yet and sets its profile
// picture. It returns how many users were created.
func seed(ctx context.Context, auth *service.AuthService, users repository.UserRepository, password string, lg *zap.Logger) (int, error) {
	created := 0
	for _, u := range seedUsers {
		result, err := auth.Signup(ctx, service.SignupInput{
			FullName: u.fullName,
			Email:    u.email,
			Password: password,
		})
		if errors.Is(err, domain.ErrEmailExists) {
			lg.Info("user already seeded", zap.String("email", u.email))
			continue
		}
		if err != nil {
			return created, err
		}

		if _, err := users.UpdateProfilePic(ctx, result.User.ID, u.profilePic); err != nil {
			return created, err
		}
		created++
		lg.Info("user seeded", zap.String("email", u.email), zap.Stringer("user_id", result.User.ID))
	}
	return created, nil
}
