package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/greenlight-server/greenlight/internal/model"
	"github.com/jmoiron/sqlx"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already exists for this provider")
	ErrRoomNotFound   = errors.New("room not found")
)

type UserRepository interface {
	Create(user *model.User) error
	ByID(id string) (*model.User, error)
	ByEmailAndProvider(email, provider string) (*model.User, error)
	BySocialUID(socialUID, provider string) (*model.User, error)
	Update(user *model.User) error
	SetResetDigest(userID, digest string, sentAt time.Time) error
	AssignMainRoom(user *model.User, room *model.Room) error
	Activate(user *model.User, mainRoom *model.Room) error
	Delete(id string) error
}

type userRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(user *model.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	query := `
		INSERT INTO users (id, name, email, username, provider, social_uid,
			password_digest, activation_digest, reset_digest, reset_sent_at,
			email_verified, activated_at, accepted_terms, image, uid, room_id,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`
	_, err := r.db.Exec(query,
		user.ID, user.Name, user.Email, user.Username, user.Provider, user.SocialUID,
		user.PasswordDigest, user.ActivationDigest, user.ResetDigest, user.ResetSentAt,
		user.EmailVerified, user.ActivatedAt, user.AcceptedTerms, user.Image, user.UID, user.RoomID,
		user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return err
	}

	return nil
}

func (r *userRepository) ByID(id string) (*model.User, error) {
	user := &model.User{}
	query := `SELECT * FROM users WHERE id = $1`

	err := r.db.Get(user, query, id)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}

	return user, err
}

func (r *userRepository) ByEmailAndProvider(email, provider string) (*model.User, error) {
	user := &model.User{}
	query := `SELECT * FROM users WHERE lower(email) = lower($1) AND provider = $2`

	err := r.db.Get(user, query, email, provider)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}

	return user, err
}

func (r *userRepository) BySocialUID(socialUID, provider string) (*model.User, error) {
	user := &model.User{}
	query := `SELECT * FROM users WHERE social_uid = $1 AND provider = $2`

	err := r.db.Get(user, query, socialUID, provider)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}

	return user, err
}

func (r *userRepository) Update(user *model.User) error {
	user.UpdatedAt = time.Now()

	query := `
		UPDATE users
		SET name = $1, email = $2, username = $3, password_digest = $4,
			reset_digest = $5, reset_sent_at = $6, email_verified = $7,
			activated_at = $8, image = $9, room_id = $10, updated_at = $11
		WHERE id = $12
	`
	result, err := r.db.Exec(query,
		user.Name, user.Email, user.Username, user.PasswordDigest,
		user.ResetDigest, user.ResetSentAt, user.EmailVerified,
		user.ActivatedAt, user.Image, user.RoomID, user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrUserNotFound
	}

	return nil
}

func (r *userRepository) SetResetDigest(userID, digest string, sentAt time.Time) error {
	query := `UPDATE users SET reset_digest = $1, reset_sent_at = $2, updated_at = $3 WHERE id = $4`

	result, err := r.db.Exec(query, digest, sentAt, time.Now(), userID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrUserNotFound
	}

	return nil
}

// AssignMainRoom inserts the room and designates it as the account's main
// room in one transaction.
func (r *userRepository) AssignMainRoom(user *model.User, room *model.Room) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	err = insertRoom(tx, room)
	if err != nil {
		return err
	}

	now := time.Now()
	_, err = tx.Exec(`UPDATE users SET room_id = $1, updated_at = $2 WHERE id = $3`,
		room.ID, now, user.ID)
	if err != nil {
		return err
	}

	err = tx.Commit()
	if err != nil {
		return err
	}

	user.RoomID = &room.ID
	user.UpdatedAt = now
	return nil
}

// Activate marks the email verified, stamps the activation time, and creates
// the main room if one is supplied. All writes share one transaction so a
// failure leaves the account unactivated rather than half-done.
func (r *userRepository) Activate(user *model.User, mainRoom *model.Room) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if mainRoom != nil {
		err = insertRoom(tx, mainRoom)
		if err != nil {
			return err
		}
	}

	now := time.Now()
	activatedAt := now
	roomID := user.RoomID
	if mainRoom != nil {
		roomID = &mainRoom.ID
	}

	result, err := tx.Exec(`
		UPDATE users
		SET email_verified = $1, activated_at = $2, room_id = $3, updated_at = $4
		WHERE id = $5`,
		true, activatedAt, roomID, now, user.ID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrUserNotFound
	}

	err = tx.Commit()
	if err != nil {
		return err
	}

	user.EmailVerified = true
	user.ActivatedAt = &activatedAt
	user.RoomID = roomID
	user.UpdatedAt = now
	return nil
}

// Delete removes the account and all rooms it owns in one transaction.
func (r *userRepository) Delete(id string) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`DELETE FROM rooms WHERE user_id = $1`, id)
	if err != nil {
		return err
	}

	result, err := tx.Exec(`DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrUserNotFound
	}

	return tx.Commit()
}

// isUniqueViolation matches constraint errors from both SQLite and PostgreSQL.
func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "constraint failed: UNIQUE") ||
		strings.Contains(msg, "duplicate key value")
}

func insertRoom(e sqlx.Ext, room *model.Room) error {
	if room.ID == "" {
		room.ID = uuid.New().String()
	}
	if room.CreatedAt.IsZero() {
		room.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO rooms (id, user_id, name, uid, last_session, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := e.Exec(query, room.ID, room.UserID, room.Name, room.UID, room.LastSession, room.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert room: %w", err)
	}
	return nil
}
