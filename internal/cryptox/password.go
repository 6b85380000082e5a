// Package cryptox provides one-way salted password hashing.
//
// Hashes are self-describing strings (bcrypt modular crypt format or argon2id
// PHC format), so a verifier can pick the algorithm from the stored value.
package cryptox

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Algorithm names accepted in configuration.
const (
	AlgorithmBcrypt   = "bcrypt"
	AlgorithmArgon2id = "argon2id"
)

// ErrUnsupportedHash is returned when a stored hash has an unknown encoding.
var ErrUnsupportedHash = errors.New("unsupported password hash")

// Hasher creates and verifies password hashes. Verify returns (false, nil)
// on a mismatch and an error only for malformed hashes.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) (bool, error)
}

// BcryptHasher hashes with bcrypt at the configured cost.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher returns a bcrypt hasher; cost 0 means bcrypt.DefaultCost.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt: %w", err)
	}
	return string(b), nil
}

func (h *BcryptHasher) Verify(password, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %v", ErrUnsupportedHash, err)
	}
}

func isBcrypt(hash string) bool {
	return strings.HasPrefix(hash, "$2a$") || strings.HasPrefix(hash, "$2b$") || strings.HasPrefix(hash, "$2y$")
}

func isArgon2id(hash string) bool {
	return strings.HasPrefix(hash, "$"+AlgorithmArgon2id+"$")
}

// MultiHasher hashes with a primary algorithm and verifies any hash format it
// knows, so stored bcrypt hashes keep working after switching to argon2id.
type MultiHasher struct {
	primary Hasher
	bcrypt  *BcryptHasher
	argon2  *Argon2Hasher
}

// NewHasher builds a MultiHasher whose primary algorithm is named by
// algorithm ("" selects bcrypt).
func NewHasher(algorithm string) (*MultiHasher, error) {
	m := &MultiHasher{
		bcrypt: NewBcryptHasher(0),
		argon2: NewArgon2Hasher(DefaultArgon2Params()),
	}
	switch algorithm {
	case "", AlgorithmBcrypt:
		m.primary = m.bcrypt
	case AlgorithmArgon2id:
		m.primary = m.argon2
	default:
		return nil, fmt.Errorf("unknown password algorithm %q", algorithm)
	}
	return m, nil
}

func (m *MultiHasher) Hash(password string) (string, error) {
	return m.primary.Hash(password)
}

func (m *MultiHasher) Verify(password, hash string) (bool, error) {
	switch {
	case isBcrypt(hash):
		return m.bcrypt.Verify(password, hash)
	case isArgon2id(hash):
		return m.argon2.Verify(password, hash)
	default:
		return false, ErrUnsupportedHash
	}
}
