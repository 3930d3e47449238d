package repository

import (
	"database/sql"
	"time"

	"github.com/greenlight-server/greenlight/internal/model"
	"github.com/jmoiron/sqlx"
)

type RoomRepository interface {
	Create(room *model.Room) error
	ByID(id string) (*model.Room, error)
	ByUID(uid string) (*model.Room, error)
	ByOwner(userID string) ([]model.Room, error)
	TouchLastSession(roomID string, at time.Time) error
	Delete(id string) error
}

type roomRepository struct {
	db *sqlx.DB
}

func NewRoomRepository(db *sqlx.DB) RoomRepository {
	return &roomRepository{db: db}
}

func (r *roomRepository) Create(room *model.Room) error {
	return insertRoom(r.db, room)
}

func (r *roomRepository) ByID(id string) (*model.Room, error) {
	room := &model.Room{}
	query := `SELECT * FROM rooms WHERE id = $1`

	err := r.db.Get(room, query, id)
	if err == sql.ErrNoRows {
		return nil, ErrRoomNotFound
	}

	return room, err
}

func (r *roomRepository) ByUID(uid string) (*model.Room, error) {
	room := &model.Room{}
	query := `SELECT * FROM rooms WHERE uid = $1`

	err := r.db.Get(room, query, uid)
	if err == sql.ErrNoRows {
		return nil, ErrRoomNotFound
	}

	return room, err
}

// ByOwner returns all rooms the account owns in stored (creation) order.
func (r *roomRepository) ByOwner(userID string) ([]model.Room, error) {
	rooms := []model.Room{}
	query := `SELECT * FROM rooms WHERE user_id = $1 ORDER BY created_at, id`

	err := r.db.Select(&rooms, query, userID)
	return rooms, err
}

func (r *roomRepository) TouchLastSession(roomID string, at time.Time) error {
	result, err := r.db.Exec(`UPDATE rooms SET last_session = $1 WHERE id = $2`, at, roomID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrRoomNotFound
	}

	return nil
}

func (r *roomRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM rooms WHERE id = $1`, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrRoomNotFound
	}

	return nil
}
