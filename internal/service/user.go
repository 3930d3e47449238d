package service

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/greenlight-server/greenlight/internal/model"
	"github.com/greenlight-server/greenlight/internal/repository"
	"github.com/greenlight-server/greenlight/internal/validation"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountNotVerified = errors.New("email not verified")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// MainRoomName is the display name of the room every verified account gets.
const MainRoomName = "Home Room"

// UserService is the account identity and credential manager: field
// validation, token issuance and verification, federated identity
// resolution, and room bookkeeping.
type UserService struct {
	userRepository repository.UserRepository
	roomRepository repository.RoomRepository
	emailService   *EmailService

	// Environment-dependent behavior arrives as explicit configuration, not
	// ambient globals.
	hashCost                 int
	requireTerms             bool
	requireEmailVerification bool
	resetExpiry              time.Duration
}

func NewUserService(
	userRepository repository.UserRepository,
	roomRepository repository.RoomRepository,
	emailService *EmailService,
	hashCost int,
	requireTerms bool,
	requireEmailVerification bool,
	resetExpiry time.Duration,
) *UserService {
	return &UserService{
		userRepository:           userRepository,
		roomRepository:           roomRepository,
		emailService:             emailService,
		hashCost:                 hashCost,
		requireTerms:             requireTerms,
		requireEmailVerification: requireEmailVerification,
		resetExpiry:              resetExpiry,
	}
}

// validateUser enforces the persist-time field constraints. Callers must
// have normalized the email to lowercase already.
func (s *UserService) validateUser(u *model.User) error {
	err := validation.ValidateName(u.Name)
	if err != nil {
		return err
	}

	if u.Provider == "" {
		return &validation.Error{Field: "provider", Rule: "is required"}
	}

	err = validation.ValidateEmail(u.Email)
	if err != nil {
		return err
	}

	return validation.ValidateImage(u.Image)
}

// Register creates a locally managed account. The activation token+digest
// pair is generated before the first persist; the raw token is only held on
// the returned model for the current request.
func (s *UserService) Register(name, email, password string, acceptedTerms bool) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user := &model.User{
		Name:          name,
		Email:         email,
		Provider:      model.ProviderGreenlight,
		AcceptedTerms: acceptedTerms,
		UID:           model.NewUserUID(),
	}
	if local, _, found := strings.Cut(email, "@"); found {
		user.Username = local
	}

	err := s.validateUser(user)
	if err != nil {
		return nil, err
	}

	err = validation.ValidatePassword(password)
	if err != nil {
		return nil, err
	}

	if s.requireTerms && !user.AcceptedTerms {
		return nil, &validation.Error{Field: "accepted_terms", Rule: "must be accepted"}
	}

	passwordDigest, err := model.Digest(password, s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user.PasswordDigest = &passwordDigest

	err = s.createActivationDigest(user)
	if err != nil {
		return nil, err
	}

	if !s.requireEmailVerification {
		user.EmailVerified = true
	}

	err = s.userRepository.Create(user)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, &validation.Error{Field: "email", Rule: "has already been taken"}
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if user.EmailVerified {
		err = s.initializeMainRoom(user)
		if err != nil {
			return nil, err
		}
		return user, nil
	}

	// Fire-and-forget: a failed mail never rolls back the account.
	err = s.emailService.SendActivationEmail(user.Email, user.Name, user.ActivationToken)
	if err != nil {
		slog.Warn("failed to send activation email", "error", err, "user_id", user.ID)
	}

	slog.Info("user registered", "user_id", user.ID, "email", user.Email)
	return user, nil
}

// createActivationDigest generates the activation token+digest pair. Called
// before the row is first persisted.
func (s *UserService) createActivationDigest(user *model.User) error {
	token, err := model.NewToken()
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}

	digest, err := model.Digest(token, s.hashCost)
	if err != nil {
		return fmt.Errorf("failed to digest token: %w", err)
	}

	user.ActivationToken = token
	user.ActivationDigest = &digest
	return nil
}

// Activate marks the account verified, stamps the activation time, and
// creates the main room if one does not exist yet, in a single store
// transaction.
func (s *UserService) Activate(user *model.User) error {
	var room *model.Room
	if user.RoomID == nil {
		room = s.newMainRoom(user)
	}

	err := s.userRepository.Activate(user, room)
	if err != nil {
		return fmt.Errorf("failed to activate account: %w", err)
	}

	slog.Info("account activated", "user_id", user.ID)
	return nil
}

// VerifyActivation resolves the local account for the email and activates it
// when the presented token matches the stored digest.
func (s *UserService) VerifyActivation(email, token string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.userRepository.ByEmailAndProvider(email, model.ProviderGreenlight)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !user.Authenticated(model.DigestActivation, token) {
		return nil, ErrInvalidToken
	}

	if user.EmailVerified && user.RoomID != nil {
		return user, nil
	}

	err = s.Activate(user)
	if err != nil {
		return nil, err
	}

	return user, nil
}

// CreateResetDigest generates a reset token+digest pair and persists the
// digest along with the issuance time. The raw token is returned for the
// emailed link and never stored.
func (s *UserService) CreateResetDigest(user *model.User) (string, error) {
	token, err := model.NewToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	digest, err := model.Digest(token, s.hashCost)
	if err != nil {
		return "", fmt.Errorf("failed to digest token: %w", err)
	}

	sentAt := time.Now()
	err = s.userRepository.SetResetDigest(user.ID, digest, sentAt)
	if err != nil {
		return "", fmt.Errorf("failed to store reset digest: %w", err)
	}

	user.ResetToken = token
	user.ResetDigest = &digest
	user.ResetSentAt = &sentAt
	return token, nil
}

// PasswordResetExpired reports whether the account's reset link is past the
// configured lifetime. Callers must combine this with token verification.
func (s *UserService) PasswordResetExpired(user *model.User) bool {
	return user.ResetExpired(s.resetExpiry)
}

// SendPasswordReset issues a reset digest and mails the link. A missing
// account is not an error so callers can avoid revealing whether the email
// exists.
func (s *UserService) SendPasswordReset(email string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.userRepository.ByEmailAndProvider(email, model.ProviderGreenlight)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			slog.Info("password reset requested for unknown email", "email", email)
			return nil
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	token, err := s.CreateResetDigest(user)
	if err != nil {
		return err
	}

	err = s.emailService.SendPasswordResetEmail(user.Email, user.Name, token)
	if err != nil {
		return fmt.Errorf("failed to send reset email: %w", err)
	}

	slog.Info("password reset issued", "user_id", user.ID)
	return nil
}

// ResetPassword verifies the presented token against the stored reset digest
// and its expiry, then replaces the password. The digest is cleared so the
// link is single use.
func (s *UserService) ResetPassword(email, token, newPassword string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.userRepository.ByEmailAndProvider(email, model.ProviderGreenlight)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrInvalidToken
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	if !user.Authenticated(model.DigestReset, token) || s.PasswordResetExpired(user) {
		return ErrInvalidToken
	}

	err = validation.ValidatePassword(newPassword)
	if err != nil {
		return err
	}

	digest, err := model.Digest(newPassword, s.hashCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user.PasswordDigest = &digest
	user.ResetDigest = nil
	user.ResetSentAt = nil

	err = s.userRepository.Update(user)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	slog.Info("password reset completed", "user_id", user.ID)
	return nil
}

// Login authenticates a locally managed account.
func (s *UserService) Login(email, password string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.userRepository.ByEmailAndProvider(email, model.ProviderGreenlight)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !user.HasPassword() {
		return nil, ErrInvalidCredentials
	}

	err = bcrypt.CompareHashAndPassword([]byte(*user.PasswordDigest), []byte(password))
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if !user.EmailVerified {
		return nil, ErrAccountNotVerified
	}

	return user, nil
}

// FromOmniauth resolves or creates the account for a federated identity.
// Name and username are filled only when unset; email and image always track
// the payload. Federated identities arrive pre-verified.
func (s *UserService) FromOmniauth(payload model.AuthPayload) (*model.User, error) {
	provider := payload.EffectiveProvider()
	if provider == "" {
		return nil, &validation.Error{Field: "provider", Rule: "is required"}
	}

	user, err := s.userRepository.BySocialUID(payload.UID, provider)
	created := false
	if err != nil {
		if !errors.Is(err, repository.ErrUserNotFound) {
			return nil, fmt.Errorf("failed to lookup user: %w", err)
		}
		user = &model.User{
			Provider:  provider,
			SocialUID: payload.UID,
			UID:       model.NewUserUID(),
		}
		created = true
	}

	if user.Name == "" {
		user.Name = payload.AuthName()
	}
	if user.Username == "" {
		user.Username = payload.AuthUsername()
	}
	user.Email = strings.ToLower(payload.AuthEmail())
	user.Image = payload.AuthImage()
	user.EmailVerified = true

	err = s.validateUser(user)
	if err != nil {
		return nil, err
	}

	if created {
		err = s.userRepository.Create(user)
		if err != nil {
			if errors.Is(err, repository.ErrDuplicateEmail) {
				return nil, &validation.Error{Field: "email", Rule: "has already been taken"}
			}
			return nil, fmt.Errorf("failed to create user: %w", err)
		}

		err = s.initializeMainRoom(user)
		if err != nil {
			return nil, err
		}

		slog.Info("federated account created", "user_id", user.ID, "provider", provider)
		return user, nil
	}

	err = s.userRepository.Update(user)
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return user, nil
}

// SecondaryRooms returns all owned rooms except the main room: rooms with a
// recorded session first, ascending by last session time, then never-used
// rooms in stored order.
func (s *UserService) SecondaryRooms(user *model.User) ([]model.Room, error) {
	rooms, err := s.roomRepository.ByOwner(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}

	return partitionSecondary(rooms, user.RoomID), nil
}

// MainRoom loads the account's designated main room, nil when unassigned.
func (s *UserService) MainRoom(user *model.User) (*model.Room, error) {
	if user.RoomID == nil {
		return nil, nil
	}
	return s.roomRepository.ByID(*user.RoomID)
}

// ByID loads an account by row id.
func (s *UserService) ByID(id string) (*model.User, error) {
	return s.userRepository.ByID(id)
}

// DeleteAccount destroys the account and all rooms it owns.
func (s *UserService) DeleteAccount(userID string) error {
	err := s.userRepository.Delete(userID)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}

	slog.Info("account deleted", "user_id", userID)
	return nil
}

func (s *UserService) initializeMainRoom(user *model.User) error {
	room := s.newMainRoom(user)
	err := s.userRepository.AssignMainRoom(user, room)
	if err != nil {
		return fmt.Errorf("failed to create main room: %w", err)
	}
	return nil
}

func (s *UserService) newMainRoom(user *model.User) *model.Room {
	return &model.Room{
		UserID: user.ID,
		Name:   MainRoomName,
		UID:    model.NewRoomUID(user),
	}
}

func partitionSecondary(rooms []model.Room, mainRoomID *string) []model.Room {
	var withSession, noSession []model.Room
	for _, room := range rooms {
		if mainRoomID != nil && room.ID == *mainRoomID {
			continue
		}
		if room.LastSession != nil {
			withSession = append(withSession, room)
		} else {
			noSession = append(noSession, room)
		}
	}

	sort.SliceStable(withSession, func(i, j int) bool {
		return withSession[i].LastSession.Before(*withSession[j].LastSession)
	})

	return append(withSession, noSession...)
}
