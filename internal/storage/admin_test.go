package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dealposter/internal/config"
)

func TestAdminStore_PlainPassword(t *testing.T) {
	store, err := NewAdminStore(config.AdminConfig{Email: "Ops@Example.com", Password: "hunter22"})
	require.NoError(t, err)
	require.True(t, store.Enabled())

	admin, err := store.Authenticate(context.Background(), "ops@example.com", "hunter22")
	require.NoError(t, err)
	require.NotNil(t, admin)
	assert.Equal(t, "ops@example.com", admin.Email)

	admin, err = store.Authenticate(context.Background(), "ops@example.com", "wrong")
	require.NoError(t, err)
	assert.Nil(t, admin)

	admin, err = store.Authenticate(context.Background(), "other@example.com", "hunter22")
	require.NoError(t, err)
	assert.Nil(t, admin)
}

func TestAdminStore_PresetHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	require.NoError(t, err)

	store, err := NewAdminStore(config.AdminConfig{Email: "a@b.c", Password: "ignored", PasswordHash: string(hash)})
	require.NoError(t, err)

	admin, err := store.Authenticate(context.Background(), "a@b.c", "pw")
	require.NoError(t, err)
	assert.NotNil(t, admin)
}

func TestAdminStore_Disabled(t *testing.T) {
	store, err := NewAdminStore(config.AdminConfig{Email: "a@b.c"})
	require.NoError(t, err)
	assert.False(t, store.Enabled())

	_, err = store.Authenticate(context.Background(), "a@b.c", "")
	assert.ErrorIs(t, err, ErrLoginDisabled)
}
