package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/greenlight-server/greenlight/internal/ctxkeys"
	"github.com/greenlight-server/greenlight/internal/repository"
	"github.com/greenlight-server/greenlight/internal/service"
)

type roomHandler struct {
	userService *service.UserService
	roomService *service.RoomService
}

func NewRoomHandler(userService *service.UserService, roomService *service.RoomService) *roomHandler {
	return &roomHandler{
		userService: userService,
		roomService: roomService,
	}
}

// List returns the main room plus the secondary rooms in their display
// order: recently used first, never used last.
func (h *roomHandler) List(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	main, err := h.userService.MainRoom(user)
	if err != nil && !errors.Is(err, repository.ErrRoomNotFound) {
		slog.Error("failed to load main room", "error", err, "user_id", user.ID)
		respondError(w, http.StatusInternalServerError, "could not list rooms")
		return
	}

	secondary, err := h.userService.SecondaryRooms(user)
	if err != nil {
		slog.Error("failed to list rooms", "error", err, "user_id", user.ID)
		respondError(w, http.StatusInternalServerError, "could not list rooms")
		return
	}

	resp := struct {
		MainRoom  *roomResponse  `json:"main_room,omitempty"`
		Secondary []roomResponse `json:"secondary_rooms"`
	}{
		Secondary: []roomResponse{},
	}
	if main != nil {
		mainResp := newRoomResponse(main)
		resp.MainRoom = &mainResp
	}
	for i := range secondary {
		resp.Secondary = append(resp.Secondary, newRoomResponse(&secondary[i]))
	}

	respondJSON(w, http.StatusOK, resp)
}

type createRoomRequest struct {
	Name string `json:"name"`
}

func (h *roomHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	var req createRoomRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	room, err := h.roomService.Create(user, req.Name)
	if err != nil {
		if respondValidationError(w, err) {
			return
		}
		slog.Error("failed to create room", "error", err, "user_id", user.ID)
		respondError(w, http.StatusInternalServerError, "could not create room")
		return
	}

	respondJSON(w, http.StatusCreated, newRoomResponse(room))
}

// StartSession records that a meeting started in the room.
func (h *roomHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	uid := r.PathValue("uid")

	room, err := h.roomService.ByUID(uid)
	if err != nil {
		respondError(w, http.StatusNotFound, "room not found")
		return
	}
	if room.UserID != user.ID {
		respondError(w, http.StatusNotFound, "room not found")
		return
	}

	err = h.roomService.StartSession(room)
	if err != nil {
		slog.Error("failed to start session", "error", err, "room_id", room.ID)
		respondError(w, http.StatusInternalServerError, "could not start session")
		return
	}

	respondJSON(w, http.StatusOK, newRoomResponse(room))
}

func (h *roomHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	roomID := r.PathValue("id")

	err := h.roomService.Delete(user, roomID)
	if err != nil {
		if respondValidationError(w, err) {
			return
		}
		if errors.Is(err, repository.ErrRoomNotFound) {
			respondError(w, http.StatusNotFound, "room not found")
			return
		}
		slog.Error("failed to delete room", "error", err, "room_id", roomID)
		respondError(w, http.StatusInternalServerError, "could not delete room")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
