package admin

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/server/services"
)

// ServiceAccounts adapts *services.AuthService to Accounts.
type ServiceAccounts struct {
	Service *services.AuthService
}

func (s ServiceAccounts) SeedUser(ctx context.Context, email, phone, password string) (string, error) {
	u, err := s.Service.SeedUser(ctx, email, phone, password)
	if err != nil {
		return "", err
	}
	return u.ID, nil
}

func (s ServiceAccounts) ResetLockouts(ctx context.Context) error {
	return s.Service.ResetLockouts(ctx)
}

func (s ServiceAccounts) FailedAttempts(ctx context.Context, identifier string) (int, error) {
	return s.Service.FailedAttempts(ctx, identifier)
}
