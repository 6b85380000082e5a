package users

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// Repository is the credential store. Lookups return common.ErrorNotFound
// when nothing matches; Create returns common.ErrAlreadyExists when the email
// or the phone is already taken.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	FindByIdentifier(ctx context.Context, identifier string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateExternalIdentity(ctx context.Context, email, externalID, displayName string) (*models.User, error)
}
