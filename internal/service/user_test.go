package service

import (
	"testing"
	"time"

	"github.com/greenlight-server/greenlight/internal/db"
	"github.com/greenlight-server/greenlight/internal/model"
	"github.com/greenlight-server/greenlight/internal/repository"
	"github.com/greenlight-server/greenlight/internal/validation"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"
)

type testEnv struct {
	users repository.UserRepository
	rooms repository.RoomRepository
	svc   *UserService
}

func newTestEnv(t *testing.T, requireTerms, requireEmailVerification bool) testEnv {
	t.Helper()

	database, err := sqlx.Connect("sqlite", ":memory:")
	require.NoError(t, err)
	database.SetMaxOpenConns(1)
	require.NoError(t, db.RunMigrations(database.DB, "sqlite"))
	t.Cleanup(func() { database.Close() })

	users := repository.NewUserRepository(database)
	rooms := repository.NewRoomRepository(database)
	emails := NewEmailService("", "test@example.com", "http://localhost:8080", "Greenlight", true)

	svc := NewUserService(users, rooms, emails,
		bcrypt.MinCost, requireTerms, requireEmailVerification, 2*time.Hour)

	return testEnv{users: users, rooms: rooms, svc: svc}
}

func TestRegisterWithVerificationRequired(t *testing.T) {
	env := newTestEnv(t, false, true)

	user, err := env.svc.Register("Jo Doe", "  JO@Example.COM ", "secret1", true)
	require.NoError(t, err)

	assert.Equal(t, "jo@example.com", user.Email)
	assert.Equal(t, "jo", user.Username)
	assert.Equal(t, model.ProviderGreenlight, user.Provider)
	assert.False(t, user.EmailVerified)
	assert.Nil(t, user.RoomID)

	// raw token lives only on the model, its digest in the store
	assert.NotEmpty(t, user.ActivationToken)
	require.NotNil(t, user.ActivationDigest)
	assert.NotEqual(t, user.ActivationToken, *user.ActivationDigest)

	stored, err := env.users.ByID(user.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.ActivationToken)
	require.NotNil(t, stored.ActivationDigest)
	assert.True(t, stored.Authenticated(model.DigestActivation, user.ActivationToken))
}

func TestRegisterWithoutVerificationCreatesMainRoom(t *testing.T) {
	env := newTestEnv(t, false, false)

	user, err := env.svc.Register("Jo Doe", "jo@example.com", "secret1", false)
	require.NoError(t, err)

	assert.True(t, user.EmailVerified)
	require.NotNil(t, user.RoomID)

	room, err := env.rooms.ByID(*user.RoomID)
	require.NoError(t, err)
	assert.Equal(t, MainRoomName, room.Name)
	assert.Equal(t, user.ID, room.UserID)
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t, true, true)

	tests := []struct {
		label    string
		name     string
		email    string
		password string
		terms    bool
		field    string
	}{
		{"missing name", "", "jo@example.com", "secret1", true, "name"},
		{"bad email", "Jo", "not-an-email", "secret1", true, "email"},
		{"short password", "Jo", "jo@example.com", "12345", true, "password"},
		{"terms not accepted", "Jo", "jo@example.com", "secret1", false, "accepted_terms"},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			_, err := env.svc.Register(tt.name, tt.email, tt.password, tt.terms)
			var verr *validation.Error
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t, false, true)

	_, err := env.svc.Register("Jo Doe", "jo@example.com", "secret1", true)
	require.NoError(t, err)

	_, err = env.svc.Register("Other Jo", "JO@example.com", "secret2", true)
	var verr *validation.Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "email", verr.Field)
	assert.Equal(t, "has already been taken", verr.Rule)
}

func TestVerifyActivation(t *testing.T) {
	env := newTestEnv(t, false, true)

	user, err := env.svc.Register("Jo Doe", "jo@example.com", "secret1", true)
	require.NoError(t, err)

	_, err = env.svc.VerifyActivation("jo@example.com", "wrong-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = env.svc.VerifyActivation("nobody@example.com", user.ActivationToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	activated, err := env.svc.VerifyActivation("JO@example.com", user.ActivationToken)
	require.NoError(t, err)
	assert.True(t, activated.EmailVerified)
	require.NotNil(t, activated.ActivatedAt)
	require.NotNil(t, activated.RoomID)

	room, err := env.rooms.ByID(*activated.RoomID)
	require.NoError(t, err)
	assert.Equal(t, MainRoomName, room.Name)

	// re-presenting the link is a no-op, not a second room
	again, err := env.svc.VerifyActivation("jo@example.com", user.ActivationToken)
	require.NoError(t, err)
	assert.Equal(t, *activated.RoomID, *again.RoomID)

	owned, err := env.rooms.ByOwner(user.ID)
	require.NoError(t, err)
	assert.Len(t, owned, 1)
}

func TestCreateResetDigest(t *testing.T) {
	env := newTestEnv(t, false, false)

	user, err := env.svc.Register("Jo Doe", "jo@example.com", "secret1", true)
	require.NoError(t, err)

	token, err := env.svc.CreateResetDigest(user)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	assert.False(t, env.svc.PasswordResetExpired(user))

	stored, err := env.users.ByID(user.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ResetDigest)
	assert.True(t, stored.Authenticated(model.DigestReset, token))

	past := time.Now().Add(-3 * time.Hour)
	stored.ResetSentAt = &past
	assert.True(t, env.svc.PasswordResetExpired(stored))
}

func TestResetPassword(t *testing.T) {
	env := newTestEnv(t, false, false)

	user, err := env.svc.Register("Jo Doe", "jo@example.com", "secret1", true)
	require.NoError(t, err)

	token, err := env.svc.CreateResetDigest(user)
	require.NoError(t, err)

	assert.ErrorIs(t, env.svc.ResetPassword("jo@example.com", "bogus", "newsecret"), ErrInvalidToken)
	assert.ErrorIs(t, env.svc.ResetPassword("nobody@example.com", token, "newsecret"), ErrInvalidToken)

	var verr *validation.Error
	err = env.svc.ResetPassword("jo@example.com", token, "short")
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "password", verr.Field)

	require.NoError(t, env.svc.ResetPassword("jo@example.com", token, "newsecret"))

	_, err = env.svc.Login("jo@example.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = env.svc.Login("jo@example.com", "newsecret")
	assert.NoError(t, err)

	// the link is single use
	assert.ErrorIs(t, env.svc.ResetPassword("jo@example.com", token, "another1"), ErrInvalidToken)
}

func TestResetPasswordExpiredLink(t *testing.T) {
	env := newTestEnv(t, false, false)

	user, err := env.svc.Register("Jo Doe", "jo@example.com", "secret1", true)
	require.NoError(t, err)

	token, err := env.svc.CreateResetDigest(user)
	require.NoError(t, err)

	// backdate the issuance past the two hour window
	require.NoError(t, env.users.SetResetDigest(user.ID, *user.ResetDigest, time.Now().Add(-3*time.Hour)))

	assert.ErrorIs(t, env.svc.ResetPassword("jo@example.com", token, "newsecret"), ErrInvalidToken)
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t, false, false)

	_, err := env.svc.Register("Jo Doe", "jo@example.com", "secret1", true)
	require.NoError(t, err)

	user, err := env.svc.Login("JO@Example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "jo@example.com", user.Email)

	_, err = env.svc.Login("jo@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = env.svc.Login("nobody@example.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginUnverifiedAccount(t *testing.T) {
	env := newTestEnv(t, false, true)

	_, err := env.svc.Register("Jo Doe", "jo@example.com", "secret1", true)
	require.NoError(t, err)

	_, err = env.svc.Login("jo@example.com", "secret1")
	assert.ErrorIs(t, err, ErrAccountNotVerified)
}

func TestLoginFederatedAccountHasNoPassword(t *testing.T) {
	env := newTestEnv(t, false, false)

	_, err := env.svc.FromOmniauth(model.AuthPayload{
		Provider: "google",
		UID:      "g-1",
		Info:     model.AuthInfo{Name: "Jo Doe", Email: "jo@example.com"},
	})
	require.NoError(t, err)

	_, err = env.svc.Login("jo@example.com", "anything")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestFromOmniauthCreatesVerifiedAccount(t *testing.T) {
	env := newTestEnv(t, false, true)

	user, err := env.svc.FromOmniauth(model.AuthPayload{
		Provider: "google",
		UID:      "g-1",
		Info: model.AuthInfo{
			Name:  "Jo Doe",
			Email: "Jo@Example.com",
			Image: "https://example.com/jo.png",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "google", user.Provider)
	assert.Equal(t, "g-1", user.SocialUID)
	assert.Equal(t, "jo@example.com", user.Email)
	assert.Equal(t, "Jo", user.Username)
	assert.True(t, user.EmailVerified)
	require.NotNil(t, user.RoomID)
	assert.False(t, user.HasPassword())
}

func TestFromOmniauthUpdatesExistingAccount(t *testing.T) {
	env := newTestEnv(t, false, true)

	first, err := env.svc.FromOmniauth(model.AuthPayload{
		Provider: "google",
		UID:      "g-1",
		Info:     model.AuthInfo{Name: "Jo Doe", Email: "jo@example.com"},
	})
	require.NoError(t, err)

	// simulate a locally edited display name
	first.Name = "Jo Renamed"
	require.NoError(t, env.users.Update(first))

	second, err := env.svc.FromOmniauth(model.AuthPayload{
		Provider: "google",
		UID:      "g-1",
		Info: model.AuthInfo{
			Name:  "Jo Provider",
			Email: "new@example.com",
			Image: "https://example.com/new.png",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	// name stays as edited, email and image track the provider
	assert.Equal(t, "Jo Renamed", second.Name)
	assert.Equal(t, "new@example.com", second.Email)
	assert.Equal(t, "https://example.com/new.png", second.Image)

	owned, err := env.rooms.ByOwner(first.ID)
	require.NoError(t, err)
	assert.Len(t, owned, 1)
}

func TestFromOmniauthLauncherResolvesTenant(t *testing.T) {
	env := newTestEnv(t, false, true)

	user, err := env.svc.FromOmniauth(model.AuthPayload{
		Provider: model.ProviderLauncher,
		UID:      "ldap-7",
		Info: model.AuthInfo{
			Name:     "Jo Doe",
			Username: "jdoe",
			Email:    "jo@tenant.example",
			Customer: "acme",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "acme", user.Provider)
	assert.Equal(t, "jdoe", user.Username)

	_, err = env.users.BySocialUID("ldap-7", "acme")
	assert.NoError(t, err)
}

func TestFromOmniauthMissingProvider(t *testing.T) {
	env := newTestEnv(t, false, true)

	_, err := env.svc.FromOmniauth(model.AuthPayload{UID: "x-1"})
	var verr *validation.Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "provider", verr.Field)
}

func TestSecondaryRoomsOrdering(t *testing.T) {
	env := newTestEnv(t, false, false)

	user, err := env.svc.Register("Jo Doe", "jo@example.com", "secret1", true)
	require.NoError(t, err)

	base := time.Now()
	t1 := base.Add(-2 * time.Hour)
	t2 := base.Add(-1 * time.Hour)

	add := func(name string, last *time.Time, offset time.Duration) {
		room := &model.Room{
			UserID:      user.ID,
			Name:        name,
			UID:         model.NewRoomUID(user),
			LastSession: last,
			CreatedAt:   base.Add(offset),
		}
		require.NoError(t, env.rooms.Create(room))
	}
	add("A", &t2, 1*time.Second)
	add("B", nil, 2*time.Second)
	add("C", &t1, 3*time.Second)

	secondary, err := env.svc.SecondaryRooms(user)
	require.NoError(t, err)
	require.Len(t, secondary, 3)

	// used rooms oldest session first, then never-used in stored order,
	// main room excluded
	assert.Equal(t, "C", secondary[0].Name)
	assert.Equal(t, "A", secondary[1].Name)
	assert.Equal(t, "B", secondary[2].Name)
}

func TestMainRoom(t *testing.T) {
	env := newTestEnv(t, false, false)

	user, err := env.svc.Register("Jo Doe", "jo@example.com", "secret1", true)
	require.NoError(t, err)

	room, err := env.svc.MainRoom(user)
	require.NoError(t, err)
	require.NotNil(t, room)
	assert.Equal(t, MainRoomName, room.Name)

	unassigned := &model.User{}
	room, err = env.svc.MainRoom(unassigned)
	require.NoError(t, err)
	assert.Nil(t, room)
}

func TestDeleteAccount(t *testing.T) {
	env := newTestEnv(t, false, false)

	user, err := env.svc.Register("Jo Doe", "jo@example.com", "secret1", true)
	require.NoError(t, err)

	require.NoError(t, env.svc.DeleteAccount(user.ID))

	_, err = env.users.ByID(user.ID)
	assert.ErrorIs(t, err, repository.ErrUserNotFound)

	owned, err := env.rooms.ByOwner(user.ID)
	require.NoError(t, err)
	assert.Empty(t, owned)
}
