package services

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/dmitrijs2005/gophauth/internal/cryptox"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/lockout"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
	"golang.org/x/crypto/bcrypt"
)

// countingRepo records how often the store is touched and can inject errors.
type countingRepo struct {
	users.Repository

	mu    sync.Mutex
	calls int

	findErr   error
	createErr error
}

func (r *countingRepo) touch() {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
}

func (r *countingRepo) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func (r *countingRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	r.touch()
	if r.createErr != nil {
		return nil, r.createErr
	}
	return r.Repository.Create(ctx, u)
}

func (r *countingRepo) FindByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	r.touch()
	if r.findErr != nil {
		return nil, r.findErr
	}
	return r.Repository.FindByIdentifier(ctx, identifier)
}

func (r *countingRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	r.touch()
	if r.findErr != nil {
		return nil, r.findErr
	}
	return r.Repository.FindByEmail(ctx, email)
}

func (r *countingRepo) UpdateExternalIdentity(ctx context.Context, email, externalID, displayName string) (*models.User, error) {
	r.touch()
	return r.Repository.UpdateExternalIdentity(ctx, email, externalID, displayName)
}

// repoManager serves a fixed repository on top of the memory manager.
type repoManager struct {
	*repomanager.MemoryRepositoryManager
	repo users.Repository
}

func (m *repoManager) Users(dbx.DBTX) users.Repository { return m.repo }

// countingHasher counts Verify calls.
type countingHasher struct {
	cryptox.Hasher
	verifies atomic.Int64
}

func (h *countingHasher) Verify(password, hash string) (bool, error) {
	h.verifies.Add(1)
	return h.Hasher.Verify(password, hash)
}

type fixture struct {
	store   *users.MemoryRepository
	repo    *countingRepo
	tracker *lockout.MemoryTracker
	hasher  *countingHasher
	svc     *AuthService
}

func newFixture() *fixture {
	mm := repomanager.NewMemoryRepositoryManager()
	repo := &countingRepo{Repository: mm.Store()}
	tracker := lockout.NewMemoryTracker(lockout.DefaultThreshold)
	hasher := &countingHasher{Hasher: cryptox.NewBcryptHasher(bcrypt.MinCost)}

	return &fixture{
		store:   mm.Store(),
		repo:    repo,
		tracker: tracker,
		hasher:  hasher,
		svc:     NewAuthService(&repoManager{MemoryRepositoryManager: mm, repo: repo}, tracker, hasher, logging.NewNopLogger()),
	}
}
