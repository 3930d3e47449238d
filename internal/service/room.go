package service

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/greenlight-server/greenlight/internal/model"
	"github.com/greenlight-server/greenlight/internal/repository"
	"github.com/greenlight-server/greenlight/internal/validation"
)

// RoomService covers the room bookkeeping the account layer needs: creating
// additional rooms and recording when a room was last used.
type RoomService struct {
	roomRepository repository.RoomRepository
}

func NewRoomService(roomRepository repository.RoomRepository) *RoomService {
	return &RoomService{roomRepository: roomRepository}
}

// Create adds a room owned by the account. The friendly uid is seeded with
// the owner's name chunk.
func (s *RoomService) Create(owner *model.User, name string) (*model.Room, error) {
	err := validation.ValidateName(name)
	if err != nil {
		return nil, err
	}

	room := &model.Room{
		UserID: owner.ID,
		Name:   name,
		UID:    model.NewRoomUID(owner),
	}

	err = s.roomRepository.Create(room)
	if err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}

	slog.Info("room created", "room_id", room.ID, "user_id", owner.ID)
	return room, nil
}

// ByUID resolves a room by its share identifier.
func (s *RoomService) ByUID(uid string) (*model.Room, error) {
	return s.roomRepository.ByUID(uid)
}

// StartSession stamps the room's last session time, which drives the
// secondary room ordering.
func (s *RoomService) StartSession(room *model.Room) error {
	now := time.Now()
	err := s.roomRepository.TouchLastSession(room.ID, now)
	if err != nil {
		return fmt.Errorf("failed to record session: %w", err)
	}

	room.LastSession = &now
	return nil
}

// Delete removes a room. The main room cannot be deleted this way; it goes
// away with the account.
func (s *RoomService) Delete(owner *model.User, roomID string) error {
	if owner.RoomID != nil && *owner.RoomID == roomID {
		return &validation.Error{Field: "room", Rule: "main room cannot be deleted"}
	}

	room, err := s.roomRepository.ByID(roomID)
	if err != nil {
		return err
	}
	if room.UserID != owner.ID {
		return repository.ErrRoomNotFound
	}

	return s.roomRepository.Delete(roomID)
}
