// Package server initializes and runs the gophauth server: it selects the
// storage and lockout backends from configuration, wires the services and
// serves the HTTP API until a termination signal arrives.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/gophauth/internal/cryptox"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/identity"
	"github.com/dmitrijs2005/gophauth/internal/server/lockout"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophauth/internal/server/rest"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/redis/go-redis/v9"
)

var (
	newRepositoryManager = NewRepositoryManager
	newHasher            = cryptox.NewHasher
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	repomanager repomanager.RepositoryManager
	tracker     lockout.Tracker
	redis       redis.UniversalClient
	server      *rest.Server
}

// NewApp builds every component from c. Nothing is started yet.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)
	app := &App{config: c, logger: logger}

	m, err := newRepositoryManager(c)
	if err != nil {
		return nil, err
	}
	app.repomanager = m

	app.tracker, app.redis = NewLockoutTracker(c)

	hasher, err := newHasher(c.PasswordAlgorithm)
	if err != nil {
		app.close(ctx)
		return nil, err
	}

	authService := services.NewAuthService(m, app.tracker, hasher, logger)

	var (
		identityService rest.IdentityReconciler
		webFlow         rest.WebSignIn
	)
	if c.GoogleEnabled() {
		verifier, err := identity.NewGoogleVerifier(ctx, c.GoogleClientID, nil)
		if err != nil {
			app.close(ctx)
			return nil, err
		}
		identityService = services.NewIdentityService(m, verifier, logger)
		webFlow = identity.NewGoogleWebFlow(c.GoogleClientID, c.GoogleClientSecret, c.GoogleRedirectURL, verifier)
	} else {
		logger.Warn(ctx, "google sign-in disabled: no client id configured")
	}

	if !c.AdminEnabled() {
		logger.Info(ctx, "admin endpoints disabled: no admin token configured")
	}

	app.server = rest.NewServer(rest.Options{
		Address:         c.HTTPAddress,
		JWTSecret:       c.SecretKey,
		SessionValidity: c.SessionValidityDuration,
		FrontendURL:     c.FrontendURL,
		AdminToken:      c.AdminToken,
	}, logger, authService, identityService, webFlow)

	return app, nil
}

// NewRepositoryManager picks PostgreSQL when a DSN is configured and process
// memory otherwise.
func NewRepositoryManager(c *config.Config) (repomanager.RepositoryManager, error) {
	if c.DatabaseDSN == "" {
		return repomanager.NewMemoryRepositoryManager(), nil
	}
	m, err := repomanager.NewPostgresRepositoryManager(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	return m, nil
}

// NewLockoutTracker picks Redis when an address is configured. The returned
// client is nil for the memory tracker.
func NewLockoutTracker(c *config.Config) (lockout.Tracker, redis.UniversalClient) {
	if c.RedisAddress == "" {
		return lockout.NewMemoryTracker(c.LockoutThreshold), nil
	}
	client := redis.NewClient(&redis.Options{Addr: c.RedisAddress})
	return lockout.NewRedisTracker(client, c.RedisKeyPrefix, c.LockoutThreshold), client
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run migrates the store, checks the lockout backend and serves until ctx is
// cancelled or a termination signal arrives.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(cancelFunc)

	defer app.close(ctx)

	if err := app.repomanager.RunMigrations(ctx); err != nil {
		return err
	}

	if app.redis != nil {
		if err := app.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis unreachable: %w", err)
		}
	}

	return app.server.Run(ctx)
}

func (app *App) close(ctx context.Context) {
	if err := app.repomanager.Close(); err != nil {
		app.logger.Error(ctx, "closing store", "error", err)
	}
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error(ctx, "closing redis", "error", err)
		}
	}
}
