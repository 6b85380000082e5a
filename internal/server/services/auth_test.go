package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/cryptox"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/lockout"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const goodPassword = "correct horse"

func TestAuthenticate_SuccessByEmailAndPhone(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	created, err := f.svc.Register(ctx, "a@x.com", "+15550001", goodPassword)
	require.NoError(t, err)

	u, err := f.svc.Authenticate(ctx, "a@x.com", goodPassword)
	require.NoError(t, err)
	assert.Equal(t, created.ID, u.ID)

	u, err = f.svc.Authenticate(ctx, "+15550001", goodPassword)
	require.NoError(t, err)
	assert.Equal(t, created.ID, u.ID)
}

func TestAuthenticate_LocksAfterThreshold(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "a@x.com", "", goodPassword)
	require.NoError(t, err)

	for i := 1; i < lockout.DefaultThreshold; i++ {
		_, err := f.svc.Authenticate(ctx, "a@x.com", "wrong")
		require.ErrorIs(t, err, common.ErrWrongPassword, "attempt %d", i)
	}

	_, err = f.svc.Authenticate(ctx, "a@x.com", "wrong")
	require.ErrorIs(t, err, common.ErrLocked)

	verifies := f.hasher.verifies.Load()

	_, err = f.svc.Authenticate(ctx, "a@x.com", goodPassword)
	require.ErrorIs(t, err, common.ErrLocked)
	assert.Equal(t, verifies, f.hasher.verifies.Load(), "hasher must not be consulted while locked")

	n, err := f.tracker.Count(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, lockout.DefaultThreshold, n)
}

func TestAuthenticate_SuccessResetsCounter(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "a@x.com", "", goodPassword)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := f.svc.Authenticate(ctx, "a@x.com", "wrong")
		require.ErrorIs(t, err, common.ErrWrongPassword)
	}

	_, err = f.svc.Authenticate(ctx, "a@x.com", goodPassword)
	require.NoError(t, err)

	n, err := f.tracker.Count(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAuthenticate_InputValidation(t *testing.T) {
	tests := []struct {
		name       string
		identifier string
		password   string
		reason     string
	}{
		{"empty identifier", "", goodPassword, "Email/Phone and Password are required"},
		{"empty password", "a@x.com", "", "Email/Phone and Password are required"},
		{"identifier too long", strings.Repeat("a", 256), goodPassword, "Identifier too long"},
		{"password too long", "a@x.com", strings.Repeat("p", 1001), "Password too long"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()

			_, err := f.svc.Authenticate(context.Background(), tt.identifier, tt.password)
			require.ErrorIs(t, err, common.ErrInvalidInput)

			var inputErr *InputError
			require.ErrorAs(t, err, &inputErr)
			assert.Equal(t, tt.reason, inputErr.Reason)
			assert.Zero(t, f.repo.Calls(), "store must not be queried")
		})
	}
}

func TestAuthenticate_LengthLimitsCountCharacters(t *testing.T) {
	f := newFixture()

	// 255 two-byte runes: within the limit although longer than 255 bytes.
	_, err := f.svc.Authenticate(context.Background(), strings.Repeat("é", 255), strings.Repeat("ü", 1000))
	require.ErrorIs(t, err, common.ErrUserNotFound)
	assert.Equal(t, 1, f.repo.Calls())
}

func TestAuthenticate_UserNotFoundLeavesLockoutAlone(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := f.svc.Authenticate(ctx, "ghost@x.com", "whatever")
		require.ErrorIs(t, err, common.ErrUserNotFound)
	}

	n, err := f.tracker.Count(ctx, "ghost@x.com")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAuthenticate_StoreFailureLeavesLockoutAlone(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.repo.findErr = errors.New("db error: connection refused")

	_, err := f.svc.Authenticate(ctx, "a@x.com", "wrong")
	require.ErrorIs(t, err, common.ErrStoreUnavailable)

	n, err := f.tracker.Count(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Zero(t, n)
}

type brokenTracker struct{ lockout.Tracker }

func (brokenTracker) IsLocked(context.Context, string) (bool, error) {
	return false, common.ErrLockoutUnavailable
}

func TestAuthenticate_LockoutBackendFailure(t *testing.T) {
	mm := repomanager.NewMemoryRepositoryManager()
	hasher := cryptox.NewBcryptHasher(4)
	svc := NewAuthService(mm, brokenTracker{lockout.NewMemoryTracker(0)}, hasher, logging.NewNopLogger())

	_, err := svc.Register(context.Background(), "a@x.com", "", goodPassword)
	require.NoError(t, err)

	_, err = svc.Authenticate(context.Background(), "a@x.com", goodPassword)
	require.ErrorIs(t, err, common.ErrLockoutUnavailable)
}

func TestAuthenticate_UserWithoutPasswordNeverSucceeds(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	u, err := models.NewExternalUser("u1", "g@x.com", "sub-1", "G")
	require.NoError(t, err)
	_, err = f.store.Create(ctx, u)
	require.NoError(t, err)

	_, err = f.svc.Authenticate(ctx, "g@x.com", "anything")
	require.ErrorIs(t, err, common.ErrWrongPassword)
	assert.Zero(t, f.hasher.verifies.Load())

	n, err := f.tracker.Count(ctx, "g@x.com")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestAuthenticate_IdentifiersAreNotNormalised(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "a@x.com", "", goodPassword)
	require.NoError(t, err)

	_, err = f.svc.Authenticate(ctx, "A@x.com", "wrong")
	require.ErrorIs(t, err, common.ErrUserNotFound)

	_, err = f.svc.Authenticate(ctx, "a@x.com", "wrong")
	require.ErrorIs(t, err, common.ErrWrongPassword)

	upper, _ := f.tracker.Count(ctx, "A@x.com")
	lower, _ := f.tracker.Count(ctx, "a@x.com")
	assert.Equal(t, 0, upper)
	assert.Equal(t, 1, lower)
}

func TestAuthenticate_ConcurrentFailures(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "a@x.com", "", goodPassword)
	require.NoError(t, err)

	const workers = 20
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results = map[error]int{}
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Authenticate(ctx, "a@x.com", "wrong")
			mu.Lock()
			results[err]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	// Every increment yields a distinct count, so exactly threshold-1
	// attempts see a plain wrong password.
	assert.Equal(t, lockout.DefaultThreshold-1, results[common.ErrWrongPassword])
	assert.Equal(t, workers-(lockout.DefaultThreshold-1), results[common.ErrLocked])

	n, err := f.tracker.Count(ctx, "a@x.com")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, lockout.DefaultThreshold)
	assert.LessOrEqual(t, n, workers)
}

func TestResetLockouts(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "a@x.com", "", goodPassword)
	require.NoError(t, err)
	for i := 0; i < lockout.DefaultThreshold; i++ {
		_, _ = f.svc.Authenticate(ctx, "a@x.com", "wrong")
	}

	require.NoError(t, f.svc.ResetLockouts(ctx))

	n, err := f.svc.FailedAttempts(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = f.svc.Authenticate(ctx, "a@x.com", goodPassword)
	require.NoError(t, err)
}

func TestRegister(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	u, err := f.svc.Register(ctx, "  a@x.com ", " ", goodPassword)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", u.Email.String)
	assert.False(t, u.Phone.Valid)
	assert.NotEmpty(t, u.ID)
	assert.True(t, u.HasPassword())
	assert.NotEqual(t, goodPassword, u.PasswordHash.String)

	_, err = f.svc.Register(ctx, "a@x.com", "", "other")
	require.ErrorIs(t, err, common.ErrAlreadyExists)

	_, err = f.svc.Register(ctx, "", "+1555", goodPassword)
	require.NoError(t, err)

	_, err = f.svc.Register(ctx, "b@x.com", "+1555", goodPassword)
	require.ErrorIs(t, err, common.ErrAlreadyExists)

	assert.Equal(t, 2, f.store.Len())
}

func TestRegister_Validation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "", "", goodPassword)
	require.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = f.svc.Register(ctx, "a@x.com", "", "")
	require.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = f.svc.Register(ctx, "a@x.com", "", strings.Repeat("p", 1001))
	require.ErrorIs(t, err, common.ErrInvalidInput)

	assert.Zero(t, f.store.Len())
}

func TestRegister_StoreFailure(t *testing.T) {
	f := newFixture()
	f.repo.createErr = errors.New("db error: disk full")

	_, err := f.svc.Register(context.Background(), "a@x.com", "", goodPassword)
	require.ErrorIs(t, err, common.ErrStoreUnavailable)
}

func TestSeedUser(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.SeedUser(ctx, "", "+1555", goodPassword)
	var inputErr *InputError
	require.ErrorAs(t, err, &inputErr)
	assert.Equal(t, "Missing email or password.", inputErr.Reason)

	_, err = f.svc.SeedUser(ctx, "seed@x.com", "+1555", goodPassword)
	require.NoError(t, err)

	_, err = f.svc.SeedUser(ctx, "seed@x.com", "", goodPassword)
	require.ErrorIs(t, err, common.ErrAlreadyExists)

	_, err = f.svc.Authenticate(ctx, "+1555", goodPassword)
	require.NoError(t, err)
}

func TestAuthenticate_Argon2Hashes(t *testing.T) {
	hasher, err := cryptox.NewHasher(cryptox.AlgorithmArgon2id)
	require.NoError(t, err)

	mm := repomanager.NewMemoryRepositoryManager()
	svc := NewAuthService(mm, lockout.NewMemoryTracker(0), hasher, logging.NewNopLogger())
	ctx := context.Background()

	u, err := svc.Register(ctx, "a@x.com", "", goodPassword)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(u.PasswordHash.String, "$argon2id$"))

	_, err = svc.Authenticate(ctx, "a@x.com", goodPassword)
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, "a@x.com", "wrong")
	require.ErrorIs(t, err, common.ErrWrongPassword)
}
