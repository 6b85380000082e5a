package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/identity"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// Outcome tells whether reconciliation created a user or linked an existing one.
type Outcome int

const (
	OutcomeCreated Outcome = iota + 1
	OutcomeUpdated
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeUpdated:
		return "updated"
	default:
		return "unknown"
	}
}

// Reconciliation is the result of merging an external identity into the store.
type Reconciliation struct {
	User    *models.User
	Outcome Outcome
}

// reconcileAttempts bounds retries after losing an insert race.
const reconcileAttempts = 2

// IdentityService merges verified external identities into user records
// keyed by email.
type IdentityService struct {
	repomanager repomanager.RepositoryManager
	verifier    identity.Verifier
	logger      logging.Logger
	newID       func() string
}

func NewIdentityService(m repomanager.RepositoryManager, verifier identity.Verifier, logger logging.Logger) *IdentityService {
	return &IdentityService{
		repomanager: m,
		verifier:    verifier,
		logger:      logger.With("module", "identity"),
		newID:       uuid.NewString,
	}
}

// SignInWithToken verifies a raw ID token and reconciles its claims.
func (s *IdentityService) SignInWithToken(ctx context.Context, token string) (*Reconciliation, error) {
	claims, err := s.verifier.Verify(ctx, token)
	if err != nil {
		s.logger.Info(ctx, "id token rejected", "error", err)
		return nil, common.ErrInvalidToken
	}
	return s.Reconcile(ctx, claims)
}

// Reconcile creates a user for an unseen email, or attaches the external
// subject and display name to the existing one. Password hash and phone of an
// existing user are left as they are. Repeating the call with the same claims
// leaves exactly one user.
func (s *IdentityService) Reconcile(ctx context.Context, claims *identity.Claims) (*Reconciliation, error) {
	if claims == nil || strings.TrimSpace(claims.Email) == "" {
		return nil, common.ErrMissingEmail
	}

	var (
		result *Reconciliation
		err    error
	)
	for attempt := 0; attempt < reconcileAttempts; attempt++ {
		err = s.repomanager.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
			var txErr error
			result, txErr = s.reconcile(ctx, tx, claims)
			return txErr
		})
		// A concurrent sign-in inserted the same email first; the failed
		// insert aborted the transaction, so the next attempt links instead.
		if !errors.Is(err, common.ErrAlreadyExists) {
			break
		}
	}
	if err != nil {
		if errors.Is(err, common.ErrInvalidInput) {
			return nil, err
		}
		s.logger.Error(ctx, "reconciliation failed", "error", err)
		return nil, fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}

	s.logger.Info(ctx, "external identity reconciled", "user_id", result.User.ID, "outcome", result.Outcome.String())
	return result, nil
}

func (s *IdentityService) reconcile(ctx context.Context, tx dbx.DBTX, claims *identity.Claims) (*Reconciliation, error) {
	repo := s.repomanager.Users(tx)

	existing, err := repo.FindByEmail(ctx, claims.Email)
	switch {
	case err == nil:
		if existing.ExternalID.Valid && existing.ExternalID.String != claims.Subject {
			s.logger.Warn(ctx, "external subject replaced", "user_id", existing.ID)
		}
		return s.link(ctx, tx, claims)
	case !errors.Is(err, common.ErrorNotFound):
		return nil, err
	}

	user, err := models.NewExternalUser(s.newID(), claims.Email, claims.Subject, claims.DisplayName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
	}

	created, err := repo.Create(ctx, user)
	if err != nil {
		return nil, err
	}
	return &Reconciliation{User: created, Outcome: OutcomeCreated}, nil
}

func (s *IdentityService) link(ctx context.Context, tx dbx.DBTX, claims *identity.Claims) (*Reconciliation, error) {
	updated, err := s.repomanager.Users(tx).UpdateExternalIdentity(ctx, claims.Email, claims.Subject, claims.DisplayName)
	if err != nil {
		return nil, err
	}
	return &Reconciliation{User: updated, Outcome: OutcomeUpdated}, nil
}
