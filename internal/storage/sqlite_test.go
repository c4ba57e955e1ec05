package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) *SQLiteRegistry {
	t.Helper()
	r, err := NewSQLiteRegistry(filepath.Join(t.TempDir(), "botfarm.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestSQLiteRegistry_SecretRoundTrip(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	secret, err := r.GetSecret(ctx, "main")
	require.NoError(t, err)
	assert.Nil(t, secret, "missing secret reads as nil, not an error")

	require.NoError(t, r.SetSecret(ctx, "main", []byte("first")))
	secret, err = r.GetSecret(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), secret)

	// Upsert overwrites.
	require.NoError(t, r.SetSecret(ctx, "main", []byte("second")))
	secret, err = r.GetSecret(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), secret)
}

func TestSQLiteRegistry_SecretsAreScopedPerAccount(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, r.SetSecret(ctx, "main", []byte("main-secret")))

	secret, err := r.GetSecret(ctx, "alt")
	require.NoError(t, err)
	assert.Nil(t, secret)
}

func TestSQLiteRegistry_Acks(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	ok, err := r.GetAck(ctx, "main", "tos_v2")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, r.SetAck(ctx, "main", "tos_v2"))

	ok, err = r.GetAck(ctx, "main", "tos_v2")
	require.NoError(t, err)
	assert.True(t, ok)

	// Setting the same ack twice is idempotent.
	require.NoError(t, r.SetAck(ctx, "main", "tos_v2"))

	ok, err = r.GetAck(ctx, "alt", "tos_v2")
	require.NoError(t, err)
	assert.False(t, ok, "acks are per account")
}
