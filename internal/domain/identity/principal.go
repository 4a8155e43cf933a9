package identity

import (
	"strings"

	"github.com/google/uuid"
)

// Principal is the authenticated identity a request acts as. It is carried
// explicitly through every authorization check; nothing reads ambient
// session state.
type Principal struct {
	ID    uuid.UUID
	Email string
	Role  Role
}

// IsAdmin returns true for the ADMIN role
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// EmailMatches compares the principal's email case-insensitively
func (p Principal) EmailMatches(email string) bool {
	return email != "" && strings.EqualFold(p.Email, email)
}
