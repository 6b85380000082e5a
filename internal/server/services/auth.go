// Package services contains server-side business logic. This file implements
// AuthService: password sign-in with lockout, registration and the
// administrative operations around them.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/cryptox"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/lockout"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// AuthService authenticates users by identifier (email or phone) and
// password, counting consecutive failures per identifier.
type AuthService struct {
	repomanager repomanager.RepositoryManager
	tracker     lockout.Tracker
	hasher      cryptox.Hasher
	logger      logging.Logger
	newID       func() string
}

// NewAuthService wires the service. The tracker is shared by all requests.
func NewAuthService(m repomanager.RepositoryManager, tracker lockout.Tracker, hasher cryptox.Hasher, logger logging.Logger) *AuthService {
	return &AuthService{
		repomanager: m,
		tracker:     tracker,
		hasher:      hasher,
		logger:      logger.With("module", "auth"),
		newID:       uuid.NewString,
	}
}

// Authenticate checks the password for the user matching identifier.
//
// Outcomes are reported as errors: common.ErrInvalidInput,
// common.ErrUserNotFound, common.ErrLocked and common.ErrWrongPassword.
// Backend failures wrap common.ErrStoreUnavailable or
// common.ErrLockoutUnavailable.
func (s *AuthService) Authenticate(ctx context.Context, identifier, password string) (*models.User, error) {
	if err := validateCredentials(identifier, password); err != nil {
		return nil, err
	}

	repo := s.repomanager.Users(s.repomanager.Conn())
	user, err := repo.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUserNotFound
		}
		s.logger.Error(ctx, "user lookup failed", "error", err)
		return nil, fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}

	locked, err := s.tracker.IsLocked(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if locked {
		s.logger.Info(ctx, "login rejected", "reason", "locked", "user_id", user.ID)
		return nil, common.ErrLocked
	}

	if s.checkPassword(ctx, user, password) {
		if err := s.tracker.Reset(ctx, identifier); err != nil {
			return nil, err
		}
		s.logger.Info(ctx, "login succeeded", "user_id", user.ID)
		return user, nil
	}

	count, err := s.tracker.RecordFailure(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if count >= s.tracker.Threshold() {
		s.logger.Warn(ctx, "identifier locked out", "user_id", user.ID, "failures", count)
		return nil, common.ErrLocked
	}
	s.logger.Info(ctx, "login rejected", "reason", "wrong password", "user_id", user.ID, "failures", count)
	return nil, common.ErrWrongPassword
}

// checkPassword never returns true for users without a password hash. A hash
// in an unknown encoding counts as a mismatch.
func (s *AuthService) checkPassword(ctx context.Context, user *models.User, password string) bool {
	if !user.HasPassword() {
		return false
	}
	ok, err := s.hasher.Verify(password, user.PasswordHash.String)
	if err != nil {
		s.logger.Warn(ctx, "stored password hash not verifiable", "user_id", user.ID, "error", err)
		return false
	}
	return ok
}

// Register creates a password account. Email and phone are trimmed and at
// least one of them is required. An existing account with the same email or
// phone yields common.ErrAlreadyExists.
func (s *AuthService) Register(ctx context.Context, email, phone, password string) (*models.User, error) {
	email, phone = strings.TrimSpace(email), strings.TrimSpace(phone)
	if err := validateRegistration(email, phone, password); err != nil {
		return nil, err
	}

	repo := s.repomanager.Users(s.repomanager.Conn())
	for _, identifier := range []string{email, phone} {
		if identifier == "" {
			continue
		}
		_, err := repo.FindByIdentifier(ctx, identifier)
		switch {
		case err == nil:
			return nil, common.ErrAlreadyExists
		case errors.Is(err, common.ErrorNotFound):
		default:
			s.logger.Error(ctx, "user lookup failed", "error", err)
			return nil, fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
		}
	}

	return s.createPasswordUser(ctx, email, phone, password)
}

// SeedUser inserts a password account without the duplicate pre-check. The
// store's unique constraints still apply.
func (s *AuthService) SeedUser(ctx context.Context, email, phone, password string) (*models.User, error) {
	email, phone = strings.TrimSpace(email), strings.TrimSpace(phone)
	if email == "" || password == "" {
		return nil, &InputError{Reason: "Missing email or password."}
	}
	if err := validateRegistration(email, phone, password); err != nil {
		return nil, err
	}
	return s.createPasswordUser(ctx, email, phone, password)
}

// ResetLockouts clears every lockout counter.
func (s *AuthService) ResetLockouts(ctx context.Context) error {
	if err := s.tracker.ResetAll(ctx); err != nil {
		return err
	}
	s.logger.Info(ctx, "lockout counters cleared")
	return nil
}

// FailedAttempts returns the current failure count for identifier.
func (s *AuthService) FailedAttempts(ctx context.Context, identifier string) (int, error) {
	return s.tracker.Count(ctx, identifier)
}

func (s *AuthService) createPasswordUser(ctx context.Context, email, phone, password string) (*models.User, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	user, err := models.NewPasswordUser(s.newID(), email, phone, hash)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
	}

	created, err := s.repomanager.Users(s.repomanager.Conn()).Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return nil, common.ErrAlreadyExists
		}
		s.logger.Error(ctx, "user insert failed", "error", err)
		return nil, fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}

	s.logger.Info(ctx, "user created", "user_id", created.ID)
	return created, nil
}

// InputError carries the user-facing reason a request was rejected.
type InputError struct {
	Reason string
}

func (e *InputError) Error() string { return e.Reason }

func (e *InputError) Unwrap() error { return common.ErrInvalidInput }

func validateCredentials(identifier, password string) error {
	if identifier == "" || password == "" {
		return &InputError{Reason: "Email/Phone and Password are required"}
	}
	if utf8.RuneCountInString(identifier) > common.MaxIdentifierLength {
		return &InputError{Reason: "Identifier too long"}
	}
	if utf8.RuneCountInString(password) > common.MaxPasswordLength {
		return &InputError{Reason: "Password too long"}
	}
	return nil
}

func validateRegistration(email, phone, password string) error {
	if password == "" || (email == "" && phone == "") {
		return &InputError{Reason: "Email or phone and password are required."}
	}
	if utf8.RuneCountInString(email) > common.MaxIdentifierLength ||
		utf8.RuneCountInString(phone) > common.MaxIdentifierLength {
		return &InputError{Reason: "Identifier too long"}
	}
	if utf8.RuneCountInString(password) > common.MaxPasswordLength {
		return &InputError{Reason: "Password too long"}
	}
	return nil
}
