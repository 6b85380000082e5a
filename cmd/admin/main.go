package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/dmitrijs2005/gophauth/internal/admin"
	"github.com/dmitrijs2005/gophauth/internal/cryptox"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
)

func main() {
	if err := run(context.Background()); err != nil {
		log.Fatalf("%v", err)
	}
}

func run(ctx context.Context) error {
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := admin.CheckBackends(cfg, os.Args[1:]); err != nil {
		return err
	}

	m, err := server.NewRepositoryManager(cfg)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.RunMigrations(ctx); err != nil {
		return err
	}

	tracker, client := server.NewLockoutTracker(cfg)
	if client != nil {
		defer client.Close()
	}

	hasher, err := cryptox.NewHasher(cfg.PasswordAlgorithm)
	if err != nil {
		return err
	}

	svc := services.NewAuthService(m, tracker, hasher, logging.NewJSONLogger(os.Stderr, cfg.LogLevel))
	return admin.NewApp(admin.ServiceAccounts{Service: svc}, os.Stdin, os.Stdout).Run(ctx, os.Args[1:])
}
