package model

import (
	"crypto/rand"
	"encoding/base64"
	mathrand "math/rand/v2"
	"time"

	"github.com/gosimple/slug"
	"golang.org/x/crypto/bcrypt"
)

// ProviderGreenlight marks accounts whose credentials are managed locally.
// Any other provider value is a federated identity.
const ProviderGreenlight = "greenlight"

// Digest kinds for token verification.
const (
	DigestActivation = "activation"
	DigestReset      = "reset"
)

type User struct {
	ID               string     `db:"id"`
	Name             string     `db:"name"`
	Email            string     `db:"email"`
	Username         string     `db:"username"`
	Provider         string     `db:"provider"`
	SocialUID        string     `db:"social_uid"`
	PasswordDigest   *string    `db:"password_digest"`
	ActivationDigest *string    `db:"activation_digest"`
	ResetDigest      *string    `db:"reset_digest"`
	ResetSentAt      *time.Time `db:"reset_sent_at"`
	EmailVerified    bool       `db:"email_verified"`
	ActivatedAt      *time.Time `db:"activated_at"`
	AcceptedTerms    bool       `db:"accepted_terms"`
	Image            string     `db:"image"`
	UID              string     `db:"uid"`
	RoomID           *string    `db:"room_id"`
	CreatedAt        time.Time  `db:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at"`

	// Raw tokens live in memory for the current request only (to build the
	// emailed link). Only their bcrypt digests are ever persisted.
	ActivationToken string `db:"-"`
	ResetToken      string `db:"-"`
}

func (u *User) GreenlightAccount() bool {
	return u.Provider == ProviderGreenlight
}

func (u *User) HasPassword() bool {
	return u.PasswordDigest != nil && *u.PasswordDigest != ""
}

// NewToken returns a URL-safe opaque token with 128 bits of entropy.
// Uniqueness is probabilistic; collisions are never checked against stored
// digests.
func NewToken() (string, error) {
	bytes := make([]byte, 16)
	_, err := rand.Read(bytes)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

// Digest computes the salted one-way hash stored in place of a raw secret.
// Cost comes from configuration: bcrypt.MinCost outside production keeps
// tests fast, bcrypt.DefaultCost otherwise.
func Digest(secret string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Authenticated reports whether the presented token matches the stored
// digest of the given kind. A missing digest is a normal "not verifiable"
// state, not an error.
func (u *User) Authenticated(kind, token string) bool {
	var digest *string
	switch kind {
	case DigestActivation:
		digest = u.ActivationDigest
	case DigestReset:
		digest = u.ResetDigest
	default:
		return false
	}
	if digest == nil || *digest == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(*digest), []byte(token)) == nil
}

// ResetExpired reports whether the reset link is past its lifetime. This is
// a query-time check only; no digest is cleared on expiry.
func (u *User) ResetExpired(ttl time.Duration) bool {
	if u.ResetSentAt == nil {
		return true
	}
	return time.Now().After(u.ResetSentAt.Add(ttl))
}

// chunkCharset drops visually confusable characters (b i l o s, 0 1 5 8) so
// generated room identifiers survive being read aloud or handwritten.
const chunkCharset = "acdefghjkmnpqrtuvwxyz234679"

// NameChunk returns a three character label seeded by the account name: the
// first characters of its URL-safe slug, padded with random characters from
// the safe alphabet when the slug comes up short.
func (u *User) NameChunk() string {
	chunk := slug.Make(u.Name)
	if len(chunk) > 3 {
		chunk = chunk[:3]
	}
	for len(chunk) < 3 {
		chunk += string(chunkCharset[mathrand.IntN(len(chunkCharset))])
	}
	return chunk
}

// NewUserUID generates the conferencing identifier assigned once at account
// creation, e.g. "gl-qhxzkfwmdcrt".
func NewUserUID() string {
	letters := make([]byte, 12)
	for i := range letters {
		letters[i] = byte('a' + mathrand.IntN(26))
	}
	return "gl-" + string(letters)
}
