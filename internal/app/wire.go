// Package app assembles the hub's object graph and HTTP router.
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/plutohub/platform/internal/auth"
	"github.com/plutohub/platform/internal/contract"
	"github.com/plutohub/platform/internal/domain"
	"github.com/plutohub/platform/internal/handler"
	"github.com/plutohub/platform/internal/infra"
	"github.com/plutohub/platform/internal/lobby"
	"github.com/plutohub/platform/internal/repository"
	"github.com/plutohub/platform/internal/sweeper"
	"github.com/plutohub/platform/internal/token"
)

// Deps holds everything NewApp needs from main.
type Deps struct {
	Pool   *pgxpool.Pool
	Config *infra.Config
	Logger *slog.Logger
}

// App is the assembled service: router plus the background loops main
// starts alongside the HTTP server.
type App struct {
	Router  chi.Router
	Hub     *lobby.Hub
	Sweeper *sweeper.Sweeper
	Engine  *contract.Engine
}

// New wires repositories, engine, lobby layer, and routes.
func New(deps Deps) (*App, error) {
	pool := deps.Pool
	cfg := deps.Config
	logger := deps.Logger

	platformAccountID, err := uuid.Parse(cfg.PlatformAccountID)
	if err != nil {
		return nil, err
	}

	// Repositories
	userRepo := repository.NewUserRepository()
	ledgerRepo := repository.NewLedgerRepository()
	gameRepo := repository.NewGameRepository()
	contractRepo := repository.NewContractRepository()
	sessionRepo := repository.NewSessionRepository()
	outboxRepo := repository.NewOutboxRepository()

	// Core engine
	codec := token.NewCodec(cfg.SessionTokenSecret)
	engine := contract.NewEngine(pool, userRepo, ledgerRepo, contractRepo, sessionRepo, outboxRepo,
		codec, platformAccountID, logger)

	// Lobby layer
	hub := lobby.NewHub(logger)
	loadContract := func(ctx context.Context, id uuid.UUID) (*domain.Contract, error) {
		return contractRepo.FindByID(ctx, pool, id)
	}
	manager := lobby.NewManager(loadContract, hub, logger)

	// Auth
	verifier := auth.NewIdentityVerifier(cfg.IdentityJWTSecret, cfg.IdentityIssuer)
	provisioner := auth.NewProvisioner(pool, userRepo, outboxRepo, logger)
	gameVerifier := auth.NewGameVerifier(pool, gameRepo)

	// Background expiry
	listExpired := func(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
		return sessionRepo.ListExpired(ctx, pool, now, limit)
	}
	expireSession := func(ctx context.Context, sessionID uuid.UUID) error {
		if err := engine.Expire(ctx, sessionID); err != nil {
			return err
		}
		// Release the lobby too, or its members stay stranded in IN_GAME
		// with no handler ever closing it.
		session, err := engine.SessionByID(ctx, sessionID)
		if err == nil && session != nil {
			manager.CloseForContract(session.ContractID, "session expired")
		}
		return nil
	}
	sw := sweeper.New(listExpired, expireSession, cfg.SweepInterval, logger)

	// Handlers
	walletHandler := handler.NewWalletHandler(ledgerRepo, pool)
	contractHandler := handler.NewContractHandler(engine, manager)
	lobbyHandler := handler.NewLobbyHandler(manager, hub)

	r := chi.NewRouter()

	// Global middleware (order matters)
	r.Use(handler.Recovery(logger))
	r.Use(handler.RequestID)
	r.Use(handler.RequestLogger(logger))
	r.Use(handler.CORS(cfg.CORSAllowedOrigins))
	r.Use(handler.JSONContentType)

	r.Get("/health", handler.HealthHandler(pool))

	r.Route("/v1", func(r chi.Router) {
		// Public lobby browsing and event stream
		r.Get("/lobbies", lobbyHandler.List)
		r.Get("/lobbies/{id}/status", lobbyHandler.Status)
		r.Get("/lobbies/{id}/events", lobbyHandler.Events)

		// Player-authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(auth.AuthenticatePlayer(verifier, provisioner))

			r.Get("/me/balance", walletHandler.GetBalance)
			r.Get("/me/history", walletHandler.GetHistory)
			r.Post("/lobby/join", lobbyHandler.Join)
			r.Post("/lobby/leave", lobbyHandler.Leave)
		})

		// Game-backend routes (MAC over raw body)
		r.Group(func(r chi.Router) {
			r.Use(auth.AuthenticateGame(gameVerifier))

			r.Post("/contracts/execute", contractHandler.Execute)
			r.Post("/contracts/settle", contractHandler.Settle)
			r.Post("/contracts/cancel", contractHandler.Cancel)
			r.Get("/sessions/{id}", contractHandler.Session)
			r.Get("/sessions/{id}/audit", contractHandler.Audit)
		})
	})

	return &App{Router: r, Hub: hub, Sweeper: sw, Engine: engine}, nil
}
