package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUser(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		username string
		password string
		wantErr  error
	}{
		{"valid", "alice", "password123", nil},
		{"valid with dash and underscore", "team_lead-2", "password123", nil},
		{"empty username", "", "password123", ErrEmptyUsername},
		{"too short username", "ab", "password123", ErrInvalidUsername},
		{"username with slash", "alice/..", "password123", ErrInvalidUsername},
		{"username with space", "alice smith", "password123", ErrInvalidUsername},
		{"empty password", "alice", "", ErrEmptyPassword},
		{"short password", "alice", "short", ErrPasswordTooShort},
		{"oversize password", "alice", string(make([]byte, 73)), ErrPasswordTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := NewUser(tt.username, tt.password, false)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, user)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.username, user.Username)
			assert.False(t, user.IsAdmin)
			assert.Empty(t, user.HashedPassword)
			assert.False(t, user.CreatedAt.IsZero())
		})
	}
}

func TestNewUserAdminFlag(t *testing.T) {
	t.Parallel()

	user, err := NewUser("admin", "password123", true)
	require.NoError(t, err)
	assert.True(t, user.IsAdmin)
}
