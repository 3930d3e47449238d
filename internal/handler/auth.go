package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/greenlight-server/greenlight/internal/model"
	"github.com/greenlight-server/greenlight/internal/service"
)

type authHandler struct {
	authService *service.AuthService
	userService *service.UserService
}

func NewAuthHandler(authService *service.AuthService, userService *service.UserService) *authHandler {
	return &authHandler{
		authService: authService,
		userService: userService,
	}
}

type signupRequest struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	Password      string `json:"password"`
	AcceptedTerms bool   `json:"accepted_terms"`
}

func (h *authHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.userService.Register(req.Name, req.Email, req.Password, req.AcceptedTerms)
	if err != nil {
		if respondValidationError(w, err) {
			return
		}
		slog.Error("signup failed", "error", err, "email", req.Email)
		respondError(w, http.StatusInternalServerError, "could not create account")
		return
	}

	respondJSON(w, http.StatusCreated, newUserResponse(user))
}

// Activate verifies the emailed activation token and signs the account in.
func (h *authHandler) Activate(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	email := r.URL.Query().Get("email")

	user, err := h.userService.VerifyActivation(email, token)
	if err != nil {
		slog.Warn("activation failed", "error", err, "email", email)
		respondError(w, http.StatusUnprocessableEntity, "invalid or expired activation link")
		return
	}

	h.signIn(w, user, func() {
		respondJSON(w, http.StatusOK, newUserResponse(user))
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *authHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.userService.Login(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrAccountNotVerified) {
			respondError(w, http.StatusForbidden, "email not verified")
			return
		}
		respondError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	h.signIn(w, user, func() {
		slog.Info("user logged in", "user_id", user.ID)
		respondJSON(w, http.StatusOK, newUserResponse(user))
	})
}

func (h *authHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.authService.ClearJWTCookie(w)
	respondJSON(w, http.StatusOK, map[string]string{"status": "signed out"})
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

func (h *authHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err = h.userService.SendPasswordReset(req.Email)
	if err != nil {
		// Logged, not surfaced: the response never reveals account existence
		slog.Warn("password reset send failed", "error", err, "email", req.Email)
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status": "if that account exists, a reset email is on its way",
	})
}

type resetPasswordRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *authHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")

	var req resetPasswordRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err = h.userService.ResetPassword(req.Email, token, req.Password)
	if err != nil {
		if respondValidationError(w, err) {
			return
		}
		slog.Warn("password reset failed", "error", err, "email", req.Email)
		respondError(w, http.StatusUnprocessableEntity, "invalid or expired reset link")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "password updated"})
}

// signIn mints the session JWT and sets its cookie before the success
// response is written.
func (h *authHandler) signIn(w http.ResponseWriter, user *model.User, onSuccess func()) {
	jwtToken, err := h.authService.GenerateJWT(user)
	if err != nil {
		slog.Error("failed to generate JWT", "error", err, "user_id", user.ID)
		respondError(w, http.StatusInternalServerError, "could not start session")
		return
	}

	h.authService.SetJWTCookie(w, jwtToken, h.authService.SessionExpiry())
	onSuccess()
}
