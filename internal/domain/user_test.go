package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRole_HasPermission(t *testing.T) {
	tests := []struct {
		role    Role
		minRole Role
		want    bool
	}{
		{RoleUser, RoleUser, true},
		{RoleUser, RoleAdmin, false},
		{RoleAdmin, RoleUser, true},
		{RoleAdmin, RoleAdmin, true},
		{Role("unknown"), RoleUser, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.role.HasPermission(tt.minRole),
			"%s against %s", tt.role, tt.minRole)
	}
}

func TestRole_IsValid(t *testing.T) {
	assert.True(t, RoleUser.IsValid())
	assert.True(t, RoleAdmin.IsValid())
	assert.False(t, Role("superuser").IsValid())
	assert.False(t, Role("").IsValid())
}

func TestUser_PublicOmitsPasswordHash(t *testing.T) {
	user := &User{
		ID:           "user-1",
		Username:     "somchai",
		PasswordHash: "$2a$10$secret",
		Role:         RoleAdmin,
	}

	data, err := json.Marshal(user.Public())
	require.NoError(t, err)

	assert.NotContains(t, string(data), "secret")
	assert.JSONEq(t, `{"id":"user-1","username":"somchai","role":"admin"}`, string(data))
}
