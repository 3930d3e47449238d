package handler

import (
	"log/slog"
	"net/http"

	"github.com/greenlight-server/greenlight/internal/ctxkeys"
	"github.com/greenlight-server/greenlight/internal/service"
)

type accountHandler struct {
	authService *service.AuthService
	userService *service.UserService
}

func NewAccountHandler(authService *service.AuthService, userService *service.UserService) *accountHandler {
	return &accountHandler{
		authService: authService,
		userService: userService,
	}
}

func (h *accountHandler) Show(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	respondJSON(w, http.StatusOK, newUserResponse(user))
}

// Delete destroys the account and everything it owns, then ends the session.
func (h *accountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	err := h.userService.DeleteAccount(user.ID)
	if err != nil {
		slog.Error("account deletion failed", "error", err, "user_id", user.ID)
		respondError(w, http.StatusInternalServerError, "could not delete account")
		return
	}

	h.authService.ClearJWTCookie(w)
	respondJSON(w, http.StatusOK, map[string]string{"status": "account deleted"})
}
