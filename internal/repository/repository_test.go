package repository

import (
	"testing"
	"time"

	"github.com/greenlight-server/greenlight/internal/db"
	"github.com/greenlight-server/greenlight/internal/model"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	database, err := sqlx.Connect("sqlite", ":memory:")
	require.NoError(t, err)
	// a single connection keeps the in-memory database alive and shared
	database.SetMaxOpenConns(1)

	err = db.RunMigrations(database.DB, "sqlite")
	require.NoError(t, err)

	t.Cleanup(func() { database.Close() })
	return database
}

func newLocalUser(t *testing.T, repo UserRepository, email string) *model.User {
	t.Helper()

	user := &model.User{
		Name:     "Jo Doe",
		Email:    email,
		Provider: model.ProviderGreenlight,
		UID:      model.NewUserUID(),
	}
	require.NoError(t, repo.Create(user))
	return user
}

func TestUserCreateAndByID(t *testing.T) {
	database := newTestDB(t)
	repo := NewUserRepository(database)

	user := newLocalUser(t, repo, "jo@example.com")
	require.NotEmpty(t, user.ID)
	require.False(t, user.CreatedAt.IsZero())

	got, err := repo.ByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, got.Email)
	assert.Equal(t, model.ProviderGreenlight, got.Provider)
	assert.False(t, got.EmailVerified)
	assert.Nil(t, got.RoomID)
}

func TestUserByIDNotFound(t *testing.T) {
	database := newTestDB(t)
	repo := NewUserRepository(database)

	_, err := repo.ByID("nope")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserDuplicateEmailPerProvider(t *testing.T) {
	database := newTestDB(t)
	repo := NewUserRepository(database)

	newLocalUser(t, repo, "jo@example.com")

	// same email, same provider: rejected case-insensitively
	dup := &model.User{
		Name:     "Other Jo",
		Email:    "JO@EXAMPLE.COM",
		Provider: model.ProviderGreenlight,
		UID:      model.NewUserUID(),
	}
	err := repo.Create(dup)
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	// same email under a different provider is fine
	federated := &model.User{
		Name:      "Jo Doe",
		Email:     "jo@example.com",
		Provider:  "google",
		SocialUID: "g-1",
		UID:       model.NewUserUID(),
	}
	assert.NoError(t, repo.Create(federated))
}

func TestUserEmptyEmailNotUnique(t *testing.T) {
	database := newTestDB(t)
	repo := NewUserRepository(database)

	for range 2 {
		user := &model.User{
			Name:     "No Mail",
			Provider: "ldap",
			UID:      model.NewUserUID(),
		}
		require.NoError(t, repo.Create(user))
	}
}

func TestUserByEmailAndProvider(t *testing.T) {
	database := newTestDB(t)
	repo := NewUserRepository(database)

	user := newLocalUser(t, repo, "jo@example.com")

	got, err := repo.ByEmailAndProvider("JO@example.COM", model.ProviderGreenlight)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = repo.ByEmailAndProvider("jo@example.com", "google")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserBySocialUID(t *testing.T) {
	database := newTestDB(t)
	repo := NewUserRepository(database)

	user := &model.User{
		Name:      "Fed User",
		Provider:  "google",
		SocialUID: "g-42",
		UID:       model.NewUserUID(),
	}
	require.NoError(t, repo.Create(user))

	got, err := repo.BySocialUID("g-42", "google")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = repo.BySocialUID("g-42", "twitter")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserUpdate(t *testing.T) {
	database := newTestDB(t)
	repo := NewUserRepository(database)

	user := newLocalUser(t, repo, "jo@example.com")
	user.Name = "Renamed"
	user.Email = "renamed@example.com"

	require.NoError(t, repo.Update(user))

	got, err := repo.ByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.Equal(t, "renamed@example.com", got.Email)
}

func TestUserSetResetDigest(t *testing.T) {
	database := newTestDB(t)
	repo := NewUserRepository(database)

	user := newLocalUser(t, repo, "jo@example.com")
	sentAt := time.Now()

	require.NoError(t, repo.SetResetDigest(user.ID, "some-digest", sentAt))

	got, err := repo.ByID(user.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ResetDigest)
	assert.Equal(t, "some-digest", *got.ResetDigest)
	require.NotNil(t, got.ResetSentAt)
	assert.WithinDuration(t, sentAt, *got.ResetSentAt, time.Second)

	assert.ErrorIs(t, repo.SetResetDigest("nope", "d", sentAt), ErrUserNotFound)
}

func TestUserAssignMainRoom(t *testing.T) {
	database := newTestDB(t)
	repo := NewUserRepository(database)
	rooms := NewRoomRepository(database)

	user := newLocalUser(t, repo, "jo@example.com")
	room := &model.Room{UserID: user.ID, Name: "Home Room", UID: "jo-aaaa-cccc"}

	require.NoError(t, repo.AssignMainRoom(user, room))
	require.NotNil(t, user.RoomID)
	assert.Equal(t, room.ID, *user.RoomID)

	got, err := rooms.ByID(room.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.UserID)
}

func TestUserActivateCreatesRoomTransactionally(t *testing.T) {
	database := newTestDB(t)
	repo := NewUserRepository(database)
	rooms := NewRoomRepository(database)

	user := newLocalUser(t, repo, "jo@example.com")
	room := &model.Room{UserID: user.ID, Name: "Home Room", UID: "jo-dddd-eeee"}

	require.NoError(t, repo.Activate(user, room))

	got, err := repo.ByID(user.ID)
	require.NoError(t, err)
	assert.True(t, got.EmailVerified)
	require.NotNil(t, got.ActivatedAt)
	require.NotNil(t, got.RoomID)
	assert.Equal(t, room.ID, *got.RoomID)

	_, err = rooms.ByID(room.ID)
	assert.NoError(t, err)
}

func TestUserActivateWithoutRoomKeepsExisting(t *testing.T) {
	database := newTestDB(t)
	repo := NewUserRepository(database)

	user := newLocalUser(t, repo, "jo@example.com")
	room := &model.Room{UserID: user.ID, Name: "Home Room", UID: "jo-ffff-gggg"}
	require.NoError(t, repo.AssignMainRoom(user, room))

	require.NoError(t, repo.Activate(user, nil))

	got, err := repo.ByID(user.ID)
	require.NoError(t, err)
	assert.True(t, got.EmailVerified)
	require.NotNil(t, got.RoomID)
	assert.Equal(t, room.ID, *got.RoomID)
}

func TestUserDeleteCascades(t *testing.T) {
	database := newTestDB(t)
	repo := NewUserRepository(database)
	rooms := NewRoomRepository(database)

	user := newLocalUser(t, repo, "jo@example.com")
	room := &model.Room{UserID: user.ID, Name: "Home Room", UID: "jo-hhhh-jjjj"}
	require.NoError(t, repo.AssignMainRoom(user, room))

	extra := &model.Room{UserID: user.ID, Name: "Standup", UID: "jo-kkkk-mmmm"}
	require.NoError(t, rooms.Create(extra))

	require.NoError(t, repo.Delete(user.ID))

	_, err := repo.ByID(user.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)

	owned, err := rooms.ByOwner(user.ID)
	require.NoError(t, err)
	assert.Empty(t, owned)

	assert.ErrorIs(t, repo.Delete(user.ID), ErrUserNotFound)
}

func TestRoomByOwnerStoredOrder(t *testing.T) {
	database := newTestDB(t)
	repo := NewUserRepository(database)
	rooms := NewRoomRepository(database)

	user := newLocalUser(t, repo, "jo@example.com")

	for i, name := range []string{"First", "Second", "Third"} {
		room := &model.Room{
			UserID:    user.ID,
			Name:      name,
			UID:       model.NewRoomUID(user),
			CreatedAt: time.Now().Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, rooms.Create(room))
	}

	owned, err := rooms.ByOwner(user.ID)
	require.NoError(t, err)
	require.Len(t, owned, 3)
	assert.Equal(t, "First", owned[0].Name)
	assert.Equal(t, "Second", owned[1].Name)
	assert.Equal(t, "Third", owned[2].Name)
}

func TestRoomTouchLastSession(t *testing.T) {
	database := newTestDB(t)
	repo := NewUserRepository(database)
	rooms := NewRoomRepository(database)

	user := newLocalUser(t, repo, "jo@example.com")
	room := &model.Room{UserID: user.ID, Name: "Standup", UID: "jo-nnnn-pppp"}
	require.NoError(t, rooms.Create(room))

	at := time.Now()
	require.NoError(t, rooms.TouchLastSession(room.ID, at))

	got, err := rooms.ByID(room.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastSession)
	assert.WithinDuration(t, at, *got.LastSession, time.Second)

	assert.ErrorIs(t, rooms.TouchLastSession("nope", at), ErrRoomNotFound)
}

func TestRoomByUID(t *testing.T) {
	database := newTestDB(t)
	repo := NewUserRepository(database)
	rooms := NewRoomRepository(database)

	user := newLocalUser(t, repo, "jo@example.com")
	room := &model.Room{UserID: user.ID, Name: "Standup", UID: "jo-qqqq-rrrr"}
	require.NoError(t, rooms.Create(room))

	got, err := rooms.ByUID("jo-qqqq-rrrr")
	require.NoError(t, err)
	assert.Equal(t, room.ID, got.ID)

	_, err = rooms.ByUID("nope")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}
