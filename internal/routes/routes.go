package routes

import (
	"net/http"

	"github.com/greenlight-server/greenlight/internal/app"
	"github.com/greenlight-server/greenlight/internal/handler"
	"github.com/greenlight-server/greenlight/internal/middleware"
)

func SetupRoutes(app *app.App) http.Handler {
	auth := handler.NewAuthHandler(app.AuthService, app.UserService)
	oauth := handler.NewOAuthHandler(app.AuthService, app.UserService, app.Cfg)
	account := handler.NewAccountHandler(app.AuthService, app.UserService)
	room := handler.NewRoomHandler(app.UserService, app.RoomService)

	mux := http.NewServeMux()

	rateLimiter := middleware.RateLimitAuth()

	// Registration and session
	mux.HandleFunc("POST /signup", rateLimiter(middleware.RequireGuest(auth.Signup)))
	mux.HandleFunc("POST /login", rateLimiter(middleware.RequireGuest(auth.Login)))
	mux.HandleFunc("GET /logout", auth.Logout)

	// Token verifications (links arrive from email)
	mux.HandleFunc("GET /activate/{token}", auth.Activate)
	mux.HandleFunc("POST /forgot-password", rateLimiter(auth.ForgotPassword))
	mux.HandleFunc("POST /reset-password/{token}", rateLimiter(auth.ResetPassword))

	// OAuth
	mux.HandleFunc("GET /auth/google", rateLimiter(middleware.RequireGuest(oauth.GoogleAuth)))
	mux.HandleFunc("GET /auth/google/callback", rateLimiter(oauth.GoogleCallback))
	mux.HandleFunc("GET /auth/github", rateLimiter(middleware.RequireGuest(oauth.GitHubAuth)))
	mux.HandleFunc("GET /auth/github/callback", rateLimiter(oauth.GitHubCallback))

	// Account
	mux.HandleFunc("GET /account", middleware.RequireAuth(account.Show))
	mux.HandleFunc("DELETE /account", middleware.RequireAuth(account.Delete))

	// Rooms
	mux.HandleFunc("GET /rooms", middleware.RequireAuth(room.List))
	mux.HandleFunc("POST /rooms", middleware.RequireAuth(room.Create))
	mux.HandleFunc("POST /rooms/{uid}/start", middleware.RequireAuth(room.StartSession))
	mux.HandleFunc("DELETE /rooms/{id}", middleware.RequireAuth(room.Delete))

	return middleware.Chain(mux,
		middleware.RequestLogging,
		middleware.Config(app.Cfg),
		middleware.Auth(app.AuthService, app.UserService),
	)
}
