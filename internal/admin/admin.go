// Package admin implements the operator command line: seeding password
// accounts and managing lockout counters directly against the configured
// store and lockout backend.
package admin

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/shared"
)

// Commands understood by Run.
const (
	CmdSeedUser      = "seed-user"
	CmdResetLockouts = "reset-lockouts"
	CmdAttempts      = "attempts"
)

var (
	ErrUsage = errors.New("usage: gophauth-admin seed-user | reset-lockouts | attempts <identifier>")

	ErrNoDatabase = errors.New("seed-user needs DATABASE_DSN, an in-memory store would be discarded on exit")
	ErrNoRedis    = errors.New("lockout commands need REDIS_ADDRESS, a running server's counters are not visible otherwise")
)

// CheckBackends rejects a command whose effect would stay inside this
// process because the configured backend is process-local.
func CheckBackends(cfg *config.Config, args []string) error {
	if len(args) == 0 {
		return ErrUsage
	}
	switch args[0] {
	case CmdSeedUser:
		if cfg.DatabaseDSN == "" {
			return ErrNoDatabase
		}
	case CmdResetLockouts, CmdAttempts:
		if cfg.RedisAddress == "" {
			return ErrNoRedis
		}
	}
	return nil
}

// Accounts is the subset of the auth service the commands use.
type Accounts interface {
	SeedUser(ctx context.Context, email, phone, password string) (string, error)
	ResetLockouts(ctx context.Context) error
	FailedAttempts(ctx context.Context, identifier string) (int, error)
}

type App struct {
	accounts Accounts
	in       *bufio.Reader
	out      io.Writer
}

func NewApp(accounts Accounts, in io.Reader, out io.Writer) *App {
	return &App{accounts: accounts, in: bufio.NewReader(in), out: out}
}

// Run executes the command named by args[0].
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return ErrUsage
	}

	switch args[0] {
	case CmdSeedUser:
		return a.seedUser(ctx)
	case CmdResetLockouts:
		if err := a.accounts.ResetLockouts(ctx); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "Attempts reset.")
		return nil
	case CmdAttempts:
		if len(args) < 2 {
			return ErrUsage
		}
		n, err := a.accounts.FailedAttempts(ctx, args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%s: %d failed attempts\n", args[1], n)
		return nil
	default:
		return ErrUsage
	}
}

func (a *App) seedUser(ctx context.Context) error {
	email, err := GetSimpleText(a.in, "Email", a.out)
	if err != nil {
		return err
	}
	phone, err := GetSimpleText(a.in, "Phone (optional)", a.out)
	if err != nil {
		return err
	}

	password, err := GetPassword(a.out, "Password")
	if err != nil {
		return err
	}
	defer shared.WipeByteArray(password)

	confirm, err := GetPassword(a.out, "Repeat password")
	if err != nil {
		return err
	}
	defer shared.WipeByteArray(confirm)

	if !bytes.Equal(password, confirm) {
		return errors.New("passwords do not match")
	}

	id, err := a.accounts.SeedUser(ctx, email, phone, string(password))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Test user seeded, id=%s\n", id)
	return nil
}
