package identity

import (
	"testing"

	"github.com/invoicely/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestUser(t *testing.T, role Role) *User {
	t.Helper()
	u, err := NewUser("jane@studio.test", "s3curePass1", "Jane Doe", role)
	require.NoError(t, err)
	return u
}

func TestNewUser(t *testing.T) {
	t.Run("valid user hashes the password", func(t *testing.T) {
		u := newTestUser(t, RoleUser)
		assert.Equal(t, "jane@studio.test", u.Email)
		assert.NotEqual(t, "s3curePass1", u.PasswordHash)
		assert.True(t, u.VerifyPassword("s3curePass1"))
		assert.False(t, u.VerifyPassword("wrong"))
		require.Len(t, u.GetDomainEvents(), 1)
		assert.Equal(t, "UserRegistered", u.GetDomainEvents()[0].EventType())
	})

	t.Run("email is normalized", func(t *testing.T) {
		u, err := NewUser("  Jane@Studio.TEST ", "s3curePass1", "Jane", RoleUser)
		require.NoError(t, err)
		assert.Equal(t, "jane@studio.test", u.Email)
	})

	tests := []struct {
		name     string
		email    string
		password string
		userName string
		role     Role
		wantCode string
	}{
		{"empty email", "", "s3curePass1", "Jane", RoleUser, "INVALID_EMAIL"},
		{"malformed email", "nope", "s3curePass1", "Jane", RoleUser, "INVALID_EMAIL"},
		{"short password", "a@b.test", "ab1", "Jane", RoleUser, "INVALID_PASSWORD"},
		{"password without digits", "a@b.test", "onlyletters", "Jane", RoleUser, "INVALID_PASSWORD"},
		{"empty name", "a@b.test", "s3curePass1", "", RoleUser, "INVALID_NAME"},
		{"unknown role", "a@b.test", "s3curePass1", "Jane", Role("ROOT"), "INVALID_ROLE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewUser(tt.email, tt.password, tt.userName, tt.role)
			require.Error(t, err)

			var domainErr *shared.DomainError
			require.ErrorAs(t, err, &domainErr)
			assert.Equal(t, tt.wantCode, domainErr.Code)
		})
	}
}

func TestUser_ChangePassword(t *testing.T) {
	u := newTestUser(t, RoleUser)

	t.Run("wrong current password is rejected", func(t *testing.T) {
		err := u.ChangePassword("wrong", "newSecret99")
		require.Error(t, err)
		assert.True(t, u.VerifyPassword("s3curePass1"))
	})

	t.Run("weak new password is rejected", func(t *testing.T) {
		err := u.ChangePassword("s3curePass1", "short")
		require.Error(t, err)
		assert.True(t, u.VerifyPassword("s3curePass1"))
	})

	t.Run("valid change replaces the hash", func(t *testing.T) {
		require.NoError(t, u.ChangePassword("s3curePass1", "newSecret99"))
		assert.True(t, u.VerifyPassword("newSecret99"))
		assert.False(t, u.VerifyPassword("s3curePass1"))
	})
}

func TestUser_ChangeRole(t *testing.T) {
	u := newTestUser(t, RoleUser)
	u.ClearDomainEvents()

	require.NoError(t, u.ChangeRole(RoleAdmin))
	assert.Equal(t, RoleAdmin, u.Role)
	require.Len(t, u.GetDomainEvents(), 1)
	assert.Equal(t, "UserRoleChanged", u.GetDomainEvents()[0].EventType())

	// same role is a no-op
	require.NoError(t, u.ChangeRole(RoleAdmin))
	assert.Len(t, u.GetDomainEvents(), 1)

	require.Error(t, u.ChangeRole(Role("ROOT")))
}

func TestUser_Principal(t *testing.T) {
	u := newTestUser(t, RoleAdmin)
	p := u.Principal()
	assert.Equal(t, u.ID, p.ID)
	assert.Equal(t, u.Email, p.Email)
	assert.Equal(t, RoleAdmin, p.Role)
	assert.True(t, p.IsAdmin())
}

func TestRole_IsValid(t *testing.T) {
	assert.True(t, RoleAdmin.IsValid())
	assert.True(t, RoleUser.IsValid())
	assert.True(t, RoleCustomer.IsValid())
	assert.False(t, Role("ROOT").IsValid())
}
