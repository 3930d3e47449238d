package app

import (
	"fmt"

	"github.com/greenlight-server/greenlight/internal/config"
	"github.com/greenlight-server/greenlight/internal/db"
	"github.com/greenlight-server/greenlight/internal/repository"
	"github.com/greenlight-server/greenlight/internal/service"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

type App struct {
	Cfg          *config.Config
	DB           *sqlx.DB
	AuthService  *service.AuthService
	UserService  *service.UserService
	RoomService  *service.RoomService
	EmailService *service.EmailService
}

func New(cfg *config.Config) (*App, error) {
	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %v", err)
	}

	err = db.RunMigrations(database.DB, cfg.DBDriver)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %v", err)
	}

	// Repositories
	userRepository := repository.NewUserRepository(database)
	roomRepository := repository.NewRoomRepository(database)

	// Services
	emailService := service.NewEmailService(
		cfg.ResendAPIKey,
		cfg.EmailFrom,
		cfg.AppURL,
		cfg.AppName,
		cfg.IsDevelopment(),
	)

	// Token digests take the full bcrypt work factor only in production;
	// elsewhere the minimum cost keeps signup and tests fast.
	hashCost := bcrypt.MinCost
	if cfg.IsProduction() {
		hashCost = bcrypt.DefaultCost
	}

	userService := service.NewUserService(
		userRepository,
		roomRepository,
		emailService,
		hashCost,
		cfg.RequireTermsAcceptance,
		cfg.RequireEmailVerification,
		cfg.ResetTokenExpiry,
	)
	roomService := service.NewRoomService(roomRepository)
	authService := service.NewAuthService(cfg.JWTSecret, cfg.JWTExpiry, cfg.IsProduction())

	return &App{
		Cfg:          cfg,
		DB:           database,
		AuthService:  authService,
		UserService:  userService,
		RoomService:  roomService,
		EmailService: emailService,
	}, nil
}

func (a *App) Close() error {
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}
