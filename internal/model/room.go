package model

import (
	mathrand "math/rand/v2"
	"strings"
	"time"
)

type Room struct {
	ID          string     `db:"id"`
	UserID      string     `db:"user_id"`
	Name        string     `db:"name"`
	UID         string     `db:"uid"`
	LastSession *time.Time `db:"last_session"`
	CreatedAt   time.Time  `db:"created_at"`
}

// NewRoomUID builds the human-shareable room identifier from the owner's
// name chunk plus two random groups, e.g. "ana-k3mq-7xtw".
func NewRoomUID(owner *User) string {
	parts := []string{owner.NameChunk(), randChunk(4), randChunk(4)}
	return strings.Join(parts, "-")
}

func randChunk(n int) string {
	chars := make([]byte, n)
	for i := range chars {
		chars[i] = chunkCharset[mathrand.IntN(len(chunkCharset))]
	}
	return string(chars)
}
