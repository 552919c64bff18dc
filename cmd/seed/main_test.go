package main

import (
	"context"
	"testing"

	"github.com/dom/duo-chat/internal/repository/sqlstore"
	"github.com/dom/duo-chat/internal/service"
	"github.com/dom/duo-chat/internal/session"
	"github.com/dom/duo-chat/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestSeedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewSQLiteDB(t)
	repos := sqlstore.NewRepositories(db)
	lg := zaptest.NewLogger(t)
	auth := service.NewAuthService(repos.User, session.NewManager("seed-secret", 0), nil, lg)

	created, err := seed(ctx, auth, repos.User, "123456", lg)
	require.NoError(t, err)
	assert.Equal(t, len(seedUsers), created)

	created, err = seed(ctx, auth, repos.User, "123456", lg)
	require.NoError(t, err)
	assert.Zero(t, created)

	user, err := repos.User.GetByEmail(ctx, seedUsers[0].email)
	require.NoError(t, err)
	assert.Equal(t, seedUsers[0].profilePic, user.ProfilePic)

	_, err = auth.Login(ctx, service.LoginInput{Email: seedUsers[0].email, Password: "123456"})
	assert.NoError(t, err)
}
