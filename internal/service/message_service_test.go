package service_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/dom/duo-chat/internal/domain"
	"github.com/dom/duo-chat/internal/repository"
	"github.com/dom/duo-chat/internal/repository/sqlstore"
	"github.com/dom/duo-chat/internal/service"
	"github.com/dom/duo-chat/internal/testutil"
	"github.com/dom/duo-chat/internal/websocket"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type messageFixture struct {
	db       *gorm.DB
	repos    *repository.Repositories
	uploader *fakeUploader
	hub      *websocket.Hub
	svc      *service.MessageService
	alice    *domain.User
	bob      *domain.User
}

func newMessageFixture(t *testing.T) *messageFixture {
	t.Helper()

	db := testutil.NewSQLiteDB(t)
	log := zaptest.NewLogger(t)
	repos := sqlstore.NewRepositories(db)
	uploader := &fakeUploader{}
	hub := websocket.NewHub(log)
	t.Cleanup(hub.Stop)

	alice, _ := testutil.NewUserBuilder().WithFullName("Alice").Build(t, db)
	bob, _ := testutil.NewUserBuilder().WithFullName("Bob").Build(t, db)

	return &messageFixture{
		db:       db,
		repos:    repos,
		uploader: uploader,
		hub:      hub,
		svc:      service.NewMessageService(repos.Message, repos.User, uploader, hub, log),
		alice:    alice,
		bob:      bob,
	}
}

func (f *messageFixture) history(t *testing.T) []*domain.Message {
	t.Helper()
	messages, err := f.svc.ListBetween(context.Background(), f.alice.ID, f.bob.ID)
	require.NoError(t, err)
	return messages
}

func TestMessageService_Send(t *testing.T) {
	ctx := context.Background()

	t.Run("offline receiver is stored without push", func(t *testing.T) {
		f := newMessageFixture(t)

		msg, err := f.svc.Send(ctx, f.alice.ID, f.bob.ID, service.SendMessageInput{Text: "hi"})
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, msg.ID)
		assert.False(t, msg.CreatedAt.IsZero())

		history := f.history(t)
		require.Len(t, history, 1)
		assert.Equal(t, "hi", history[0].Text)
		assert.Empty(t, history[0].Image)
		assert.Equal(t, 0, f.uploader.callCount())
	})

	t.Run("online receiver gets exactly one push", func(t *testing.T) {
		f := newMessageFixture(t)
		bobConn := newFakeConn(f.bob.ID)
		aliceConn := newFakeConn(f.alice.ID)
		f.hub.Register(bobConn)
		f.hub.Register(aliceConn)

		msg, err := f.svc.Send(ctx, f.alice.ID, f.bob.ID, service.SendMessageInput{Text: "again"})
		require.NoError(t, err)

		pushed := bobConn.pushed()
		require.Len(t, pushed, 1)
		assert.Equal(t, msg.ID, pushed[0].ID)
		assert.Equal(t, "again", pushed[0].Text)
		assert.Equal(t, f.alice.ID, pushed[0].SenderID)
		assert.Empty(t, aliceConn.pushed(), "sender must not receive its own message")
	})

	t.Run("image is uploaded before storing", func(t *testing.T) {
		f := newMessageFixture(t)

		msg, err := f.svc.Send(ctx, f.alice.ID, f.bob.ID, service.SendMessageInput{Image: testutil.PNGDataURI})
		require.NoError(t, err)
		assert.Equal(t, "https://cdn.example/1.png", msg.Image)

		var info domain.MediaInfo
		require.NoError(t, json.Unmarshal(msg.ImageMeta, &info))
		assert.Equal(t, "image/png", info.ContentType)
		assert.Equal(t, "digest-1", info.Digest)

		history := f.history(t)
		require.Len(t, history, 1)
		assert.Equal(t, msg.Image, history[0].Image)
		assert.Empty(t, history[0].Text)
	})

	t.Run("upload failure stores nothing", func(t *testing.T) {
		f := newMessageFixture(t)
		f.uploader.err = assert.AnError
		bobConn := newFakeConn(f.bob.ID)
		f.hub.Register(bobConn)

		_, err := f.svc.Send(ctx, f.alice.ID, f.bob.ID, service.SendMessageInput{Text: "look", Image: testutil.PNGDataURI})
		assert.ErrorIs(t, err, domain.ErrUpload)
		assert.Empty(t, f.history(t))
		assert.Empty(t, bobConn.pushed())
	})

	t.Run("persistence failure pushes nothing", func(t *testing.T) {
		f := newMessageFixture(t)
		bobConn := newFakeConn(f.bob.ID)
		f.hub.Register(bobConn)
		svc := service.NewMessageService(brokenMessageRepo{}, f.repos.User, f.uploader, f.hub, zaptest.NewLogger(t))

		_, err := svc.Send(ctx, f.alice.ID, f.bob.ID, service.SendMessageInput{Text: "hi"})
		assert.ErrorIs(t, err, domain.ErrPersistence)
		assert.Empty(t, bobConn.pushed())
	})

	t.Run("push failure still returns the stored message", func(t *testing.T) {
		f := newMessageFixture(t)
		bobConn := newFakeConn(f.bob.ID)
		bobConn.fail = true
		f.hub.Register(bobConn)

		msg, err := f.svc.Send(ctx, f.alice.ID, f.bob.ID, service.SendMessageInput{Text: "hi"})
		require.NoError(t, err)
		require.Len(t, f.history(t), 1)
		assert.Equal(t, msg.ID, f.history(t)[0].ID)
	})

	t.Run("validation", func(t *testing.T) {
		f := newMessageFixture(t)

		tests := []struct {
			name     string
			receiver uuid.UUID
			input    service.SendMessageInput
			wantErr  error
		}{
			{
				name:     "empty message",
				receiver: f.bob.ID,
				input:    service.SendMessageInput{Text: "   "},
				wantErr:  domain.ErrEmptyMessage,
			},
			{
				name:     "unknown receiver",
				receiver: uuid.New(),
				input:    service.SendMessageInput{Text: "hi"},
				wantErr:  domain.ErrUserNotFound,
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := f.svc.Send(ctx, f.alice.ID, tt.receiver, tt.input)
				assert.ErrorIs(t, err, tt.wantErr)
			})
		}
		assert.Empty(t, f.history(t))
	})
}

func TestMessageService_OfflineThenOnlineDelivery(t *testing.T) {
	ctx := context.Background()
	f := newMessageFixture(t)

	_, err := f.svc.Send(ctx, f.alice.ID, f.bob.ID, service.SendMessageInput{Text: "hi"})
	require.NoError(t, err)

	history := f.history(t)
	require.Len(t, history, 1)
	assert.Equal(t, "hi", history[0].Text)
	assert.Empty(t, history[0].Image)

	bobConn := newFakeConn(f.bob.ID)
	f.hub.Register(bobConn)
	assert.Contains(t, bobConn.lastOnline(), f.bob.ID.String())

	_, err = f.svc.Send(ctx, f.alice.ID, f.bob.ID, service.SendMessageInput{Text: "again"})
	require.NoError(t, err)

	// The push happened inside Send; no waiting is needed.
	pushed := bobConn.pushed()
	require.Len(t, pushed, 1)
	assert.Equal(t, "again", pushed[0].Text)

	history = f.history(t)
	require.Len(t, history, 2)
	testutil.AssertConversation(t, history, f.alice.ID, f.bob.ID)
}

func TestMessageService_ListContacts(t *testing.T) {
	f := newMessageFixture(t)
	carol, _ := testutil.NewUserBuilder().WithFullName("Carol").Build(t, f.db)

	contacts, err := f.svc.ListContacts(context.Background(), f.alice.ID)
	require.NoError(t, err)

	var names []string
	for _, u := range contacts {
		names = append(names, u.FullName)
		assert.NotEqual(t, f.alice.ID, u.ID)
	}
	assert.Equal(t, []string{"Bob", carol.FullName}, names)
}
