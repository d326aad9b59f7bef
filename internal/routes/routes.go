package routes

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/finances-api/finances/internal/account"
	"github.com/finances-api/finances/internal/auth"
	"github.com/finances-api/finances/internal/clock"
	"github.com/finances-api/finances/internal/config"
	"github.com/finances-api/finances/internal/identity"
	"github.com/finances-api/finances/internal/ledger"
	"github.com/finances-api/finances/internal/middleware"
	"github.com/finances-api/finances/internal/movement"
	"github.com/finances-api/finances/internal/notification"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
	// Clock defaults to the system clock.
	Clock clock.Clock
	// AccessLog enables the plain console access line.
	AccessLog bool
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though config also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Clock == nil {
		d.Clock = clock.System{}
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	if d.AccessLog {
		// Plain text access log in desired format: [HH:MM:SS] 200 -  145ms METHOD /path
		app.Use(logger.New(logger.Config{
			Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
			TimeFormat: "15:04:05",
			TimeZone:   "Local",
		}))
	}
	app.Use(middleware.Audit(d.Logger))

	// Health
	RegisterHealthRoutes(app, d)

	// Stores
	var (
		ledgerBackend ledger.Ledger
		identityRepo  identity.Repository
	)
	if d.DB != nil {
		ledgerBackend = ledger.NewPostgresLedger(d.DB)
		identityRepo = identity.NewPostgresRepository(d.DB)
	} else {
		ledgerBackend = ledger.NewInMemory()
		identityRepo = identity.NewMemoryRepository()
	}

	// Services and handlers
	identitySvc := identity.NewService(identityRepo, d.Clock, d.Logger)
	tokens := auth.NewTokenService(d.Cfg.JWTSecret, d.Cfg.JWTTTL, d.Clock)
	authSvc := auth.NewService(identitySvc, tokens, d.Logger)
	accountSvc := account.NewService(ledgerBackend, identitySvc, d.Clock, d.Logger)
	notifier := notification.NewLoggerNotifier(d.Logger)
	movementSvc := movement.NewService(ledgerBackend, accountSvc, notifier, d.Clock, d.Logger)

	if d.Cfg.AdminEmail != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := identitySvc.EnsureAdmin(ctx, identity.RegisterInput{Name: d.Cfg.AdminName, Email: d.Cfg.AdminEmail, Password: d.Cfg.AdminPassword}); err != nil {
			return fmt.Errorf("bootstrap admin: %w", err)
		}
	}

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Public routes
	identityHandler := identity.NewHandler(identitySvc)
	RegisterUserRoutes(api, identityHandler)
	RegisterAuthRoutes(api, auth.NewHandler(authSvc), middleware.LoginRateLimit(d.Cache, d.Cfg.LoginMaxPerMinute))

	// Protected routes
	protected := api.Group("", middleware.JWTAuth(tokens, identitySvc))
	if d.Cache != nil {
		protected.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, false, d.Logger))
	}
	RegisterProfileRoutes(protected, identityHandler)
	RegisterAccountRoutes(protected, account.NewHandler(accountSvc))
	RegisterMovementRoutes(protected, movement.NewHandler(movementSvc))

	return nil
}
