package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/greenlight-server/greenlight/internal/model"
	"github.com/greenlight-server/greenlight/internal/validation"
)

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondValidationError translates a field validation failure to 422 with
// the failing field and rule; anything else is a 500.
func respondValidationError(w http.ResponseWriter, err error) bool {
	var vErr *validation.Error
	if errors.As(err, &vErr) {
		respondJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"error": vErr.Error(),
			"field": vErr.Field,
			"rule":  vErr.Rule,
		})
		return true
	}
	return false
}

type userResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email,omitempty"`
	Username      string `json:"username,omitempty"`
	Provider      string `json:"provider"`
	Image         string `json:"image,omitempty"`
	UID           string `json:"uid"`
	EmailVerified bool   `json:"email_verified"`
	MainRoomID    string `json:"main_room_id,omitempty"`
}

func newUserResponse(u *model.User) userResponse {
	resp := userResponse{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		Username:      u.Username,
		Provider:      u.Provider,
		Image:         u.Image,
		UID:           u.UID,
		EmailVerified: u.EmailVerified,
	}
	if u.RoomID != nil {
		resp.MainRoomID = *u.RoomID
	}
	return resp
}

type roomResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	UID         string `json:"uid"`
	LastSession string `json:"last_session,omitempty"`
}

func newRoomResponse(room *model.Room) roomResponse {
	resp := roomResponse{
		ID:   room.ID,
		Name: room.Name,
		UID:  room.UID,
	}
	if room.LastSession != nil {
		resp.LastSession = room.LastSession.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	return resp
}
