package users

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// MemoryRepository is a process-local credential store used when no database
// DSN is configured and in tests.
type MemoryRepository struct {
	mu    sync.RWMutex
	users []*models.User
	now   func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{now: time.Now}
}

func (r *MemoryRepository) Create(_ context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if sameValue(u.Email.String, u.Email.Valid, user.Email.String, user.Email.Valid) ||
			sameValue(u.Phone.String, u.Phone.Valid, user.Phone.String, user.Phone.Valid) {
			return nil, common.ErrAlreadyExists
		}
	}

	c := *user
	c.CreatedAt = r.now().UTC()
	c.UpdatedAt = c.CreatedAt
	r.users = append(r.users, &c)

	out := c
	return &out, nil
}

func sameValue(a string, aValid bool, b string, bValid bool) bool {
	return aValid && bValid && a == b
}

func (r *MemoryRepository) FindByIdentifier(_ context.Context, identifier string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var phoneMatch *models.User
	for _, u := range r.users {
		if u.Email.Valid && u.Email.String == identifier {
			out := *u
			return &out, nil
		}
		if phoneMatch == nil && u.Phone.Valid && u.Phone.String == identifier {
			phoneMatch = u
		}
	}
	if phoneMatch != nil {
		out := *phoneMatch
		return &out, nil
	}
	return nil, common.ErrorNotFound
}

func (r *MemoryRepository) FindByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if u := r.byEmail(email); u != nil {
		out := *u
		return &out, nil
	}
	return nil, common.ErrorNotFound
}

func (r *MemoryRepository) UpdateExternalIdentity(_ context.Context, email, externalID, displayName string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u := r.byEmail(email)
	if u == nil {
		return nil, common.ErrorNotFound
	}
	u.ExternalID = models.NullString(externalID)
	u.DisplayName = models.NullString(displayName)
	u.UpdatedAt = r.now().UTC()

	out := *u
	return &out, nil
}

// Len returns the number of stored users.
func (r *MemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

func (r *MemoryRepository) byEmail(email string) *models.User {
	for _, u := range r.users {
		if u.Email.Valid && u.Email.String == email {
			return u
		}
	}
	return nil
}
