package handler

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/greenlight-server/greenlight/internal/config"
	"github.com/greenlight-server/greenlight/internal/ctxkeys"
	"github.com/greenlight-server/greenlight/internal/model"
	"github.com/greenlight-server/greenlight/internal/service"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"
)

// oauthHandler drives the federated login flow: provider consent, callback,
// then identity resolution through the account manager.
type oauthHandler struct {
	authService       *service.AuthService
	userService       *service.UserService
	googleOAuthConfig *oauth2.Config
	githubOAuthConfig *oauth2.Config
}

func NewOAuthHandler(authService *service.AuthService, userService *service.UserService, cfg *config.Config) *oauthHandler {
	return &oauthHandler{
		authService: authService,
		userService: userService,
		googleOAuthConfig: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.AppURL + "/auth/google/callback",
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
		githubOAuthConfig: &oauth2.Config{
			ClientID:     cfg.GitHubClientID,
			ClientSecret: cfg.GitHubClientSecret,
			RedirectURL:  cfg.AppURL + "/auth/github/callback",
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		},
	}
}

// GoogleAuth redirects to the Google consent screen.
func (h *oauthHandler) GoogleAuth(w http.ResponseWriter, r *http.Request) {
	h.redirectToConsent(w, r, h.googleOAuthConfig)
}

// GoogleCallback exchanges the code, reads the userinfo endpoint, and runs
// federated resolution.
func (h *oauthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	token, ok := h.exchange(w, r, h.googleOAuthConfig, "google")
	if !ok {
		return
	}

	client := h.googleOAuthConfig.Client(context.Background(), token)
	resp, err := client.Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		slog.Error("failed to get google user info", "error", err)
		respondError(w, http.StatusBadGateway, "oauth authentication failed")
		return
	}
	defer resp.Body.Close()

	var userInfo struct {
		ID      string `json:"id"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	err = json.NewDecoder(resp.Body).Decode(&userInfo)
	if err != nil {
		slog.Error("failed to decode google user info", "error", err)
		respondError(w, http.StatusBadGateway, "oauth authentication failed")
		return
	}

	payload := model.AuthPayload{
		Provider: "google",
		UID:      userInfo.ID,
		Info: model.AuthInfo{
			Name:  userInfo.Name,
			Email: userInfo.Email,
			Image: userInfo.Picture,
		},
	}

	h.completeOmniauth(w, payload)
}

// GitHubAuth redirects to the GitHub consent screen.
func (h *oauthHandler) GitHubAuth(w http.ResponseWriter, r *http.Request) {
	h.redirectToConsent(w, r, h.githubOAuthConfig)
}

func (h *oauthHandler) GitHubCallback(w http.ResponseWriter, r *http.Request) {
	token, ok := h.exchange(w, r, h.githubOAuthConfig, "github")
	if !ok {
		return
	}

	client := h.githubOAuthConfig.Client(context.Background(), token)
	resp, err := client.Get("https://api.github.com/user")
	if err != nil {
		slog.Error("failed to get github user info", "error", err)
		respondError(w, http.StatusBadGateway, "oauth authentication failed")
		return
	}
	defer resp.Body.Close()

	var userInfo struct {
		ID    int64  `json:"id"`
		Login string `json:"login"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	err = json.NewDecoder(resp.Body).Decode(&userInfo)
	if err != nil {
		slog.Error("failed to decode github user info", "error", err)
		respondError(w, http.StatusBadGateway, "oauth authentication failed")
		return
	}

	// GitHub avatar URLs have no file extension, so no image is carried over.
	payload := model.AuthPayload{
		Provider: "github",
		UID:      strconv.FormatInt(userInfo.ID, 10),
		Info: model.AuthInfo{
			Name:     userInfo.Name,
			Nickname: userInfo.Login,
			Email:    userInfo.Email,
		},
	}

	h.completeOmniauth(w, payload)
}

func (h *oauthHandler) completeOmniauth(w http.ResponseWriter, payload model.AuthPayload) {
	user, err := h.userService.FromOmniauth(payload)
	if err != nil {
		if respondValidationError(w, err) {
			return
		}
		slog.Error("federated resolution failed", "error", err, "provider", payload.Provider)
		respondError(w, http.StatusInternalServerError, "authentication failed")
		return
	}

	jwtToken, err := h.authService.GenerateJWT(user)
	if err != nil {
		slog.Error("failed to generate JWT", "error", err, "user_id", user.ID)
		respondError(w, http.StatusInternalServerError, "could not start session")
		return
	}

	h.authService.SetJWTCookie(w, jwtToken, h.authService.SessionExpiry())

	slog.Info("user logged in via oauth", "user_id", user.ID, "provider", payload.Provider)
	respondJSON(w, http.StatusOK, newUserResponse(user))
}

// redirectToConsent stores a CSRF state cookie and sends the browser to the
// provider.
func (h *oauthHandler) redirectToConsent(w http.ResponseWriter, r *http.Request, oauthConfig *oauth2.Config) {
	state := generateOAuthState()

	cfg := ctxkeys.Config(r.Context())
	isProduction := cfg != nil && cfg.IsProduction()

	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		Secure:   isProduction,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   600, // 10 minutes
	})

	url := oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOffline)
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

// exchange validates the state cookie and swaps the code for a token.
func (h *oauthHandler) exchange(w http.ResponseWriter, r *http.Request, oauthConfig *oauth2.Config, provider string) (*oauth2.Token, bool) {
	state := r.URL.Query().Get("state")
	cookie, err := r.Cookie("oauth_state")
	if err != nil || cookie.Value != state || state == "" {
		slog.Warn("oauth state validation failed", "error", err, "provider", provider)
		respondError(w, http.StatusBadRequest, "oauth authentication failed")
		return nil, false
	}

	http.SetCookie(w, &http.Cookie{
		Name:   "oauth_state",
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	code := r.URL.Query().Get("code")
	if code == "" {
		slog.Warn("oauth callback missing code", "provider", provider)
		respondError(w, http.StatusBadRequest, "oauth authentication failed")
		return nil, false
	}

	token, err := oauthConfig.Exchange(context.Background(), code)
	if err != nil {
		slog.Error("oauth token exchange failed", "error", err, "provider", provider)
		respondError(w, http.StatusBadGateway, "oauth authentication failed")
		return nil, false
	}

	return token, true
}

func generateOAuthState() string {
	bytes := make([]byte, 32)
	_, err := rand.Read(bytes)
	if err != nil {
		panic("failed to generate oauth state: " + err.Error())
	}
	return base64.URLEncoding.EncodeToString(bytes)
}
