package common

// AdminTokenHeaderName carries the shared secret that unlocks administrative
// endpoints (lockout reset, user seeding).
const AdminTokenHeaderName = "X-Admin-Token"

// Input limits enforced before any store or lockout access.
const (
	MaxIdentifierLength = 255
	MaxPasswordLength   = 1000
)
