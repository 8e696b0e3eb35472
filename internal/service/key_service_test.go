package service

import (
	"context"
	"crypto/ed25519"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/badgeforge/badgeforge/internal/crypto"
	"github.com/badgeforge/badgeforge/internal/logger"
	"github.com/badgeforge/badgeforge/internal/model"
)

func newTestKeyService(t *testing.T) (*KeyService, *fakeKeyStore) {
	t.Helper()
	env, err := crypto.NewEnvelope("test-master-key")
	require.NoError(t, err)
	store := newFakeKeyStore()
	return NewKeyService(store, env, logger.New("error", "json")), store
}

func TestKeyService_GenerateKeyPair(t *testing.T) {
	svc, _ := newTestKeyService(t)

	pub, priv, err := svc.GenerateKeyPair()
	require.NoError(t, err)
	assert.Len(t, pub, ed25519.PublicKeySize)
	assert.Len(t, priv, ed25519.PrivateKeySize)

	// Pure generation: nothing persisted.
	keys, err := svc.ListKeys(context.Background())
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestKeyService_EnsureIssuerKey(t *testing.T) {
	svc, _ := newTestKeyService(t)
	ctx := context.Background()

	key, err := svc.EnsureIssuerKey(ctx, "issuer-1", "did:web:issuer-1")
	require.NoError(t, err)
	assert.Equal(t, model.KeyStatusActive, key.Status)
	assert.Equal(t, model.KeyTypeEd25519, key.KeyType)
	assert.Equal(t, "did:web:issuer-1", key.Controller)
	assert.Len(t, key.PublicKey, ed25519.PublicKeySize)
	assert.NotEmpty(t, key.EncryptedPrivateKey)

	// Second call returns the existing key, no new generation.
	again, err := svc.EnsureIssuerKey(ctx, "issuer-1", "did:web:issuer-1")
	require.NoError(t, err)
	assert.Equal(t, key.ID, again.ID)
}

func TestKeyService_EnsureIssuerKey_Concurrent(t *testing.T) {
	svc, store := newTestKeyService(t)
	ctx := context.Background()

	// Concurrent first issuances for the same owner must converge on a
	// single active key rather than each inserting one.
	const callers = 8
	ids := make([]string, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key, err := svc.EnsureIssuerKey(ctx, "issuer-1", "did:web:issuer-1")
			assert.NoError(t, err)
			if key != nil {
				ids[i] = key.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids[1:] {
		assert.Equal(t, ids[0], id)
	}
	keys, err := store.ListByOwner(ctx, "issuer-1")
	require.NoError(t, err)
	assert.Len(t, keys, 1)
}

func TestKeyService_GetIssuerPrivateKey(t *testing.T) {
	svc, store := newTestKeyService(t)
	ctx := context.Background()

	_, err := svc.GetIssuerPrivateKey(ctx, "nobody")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	key, err := svc.EnsureIssuerKey(ctx, "issuer-1", "did:web:issuer-1")
	require.NoError(t, err)

	priv, err := svc.GetIssuerPrivateKey(ctx, "issuer-1")
	require.NoError(t, err)
	require.Len(t, priv, ed25519.PrivateKeySize)

	// Decrypted private key matches the stored public key.
	msg := []byte("probe")
	assert.True(t, ed25519.Verify(ed25519.PublicKey(key.PublicKey), msg, ed25519.Sign(priv, msg)))

	// A tampered blob surfaces as an integrity failure, not a 404.
	store.tamper(key.ID)
	_, err = svc.GetIssuerPrivateKey(ctx, "issuer-1")
	assert.ErrorIs(t, err, crypto.ErrBlobTampered)
}

func TestKeyService_RotateKey(t *testing.T) {
	svc, _ := newTestKeyService(t)
	ctx := context.Background()

	old, err := svc.EnsureIssuerKey(ctx, "issuer-1", "did:web:issuer-1")
	require.NoError(t, err)

	rotated, err := svc.RotateKey(ctx, old.ID)
	require.NoError(t, err)
	require.NotNil(t, rotated.PreviousKeyID)
	assert.Equal(t, old.ID, *rotated.PreviousKeyID)
	assert.Equal(t, model.KeyStatusActive, rotated.Status)
	assert.NotEqual(t, old.ID, rotated.ID)

	oldReloaded, err := svc.store.GetByID(ctx, old.ID)
	require.NoError(t, err)
	assert.Equal(t, model.KeyStatusRotated, oldReloaded.Status)

	// The rotated key still resolves for verification.
	pub, err := svc.ResolveVerificationKey(ctx, "did:web:issuer-1#"+old.ID)
	require.NoError(t, err)
	assert.Equal(t, ed25519.PublicKey(old.PublicKey), pub)

	// Active key for the owner is now the new one.
	current, err := svc.ResolveSigningKey(ctx, "issuer-1")
	require.NoError(t, err)
	assert.Equal(t, rotated.ID, current.KeyID)

	// Rotating a non-active key is refused.
	_, err = svc.RotateKey(ctx, old.ID)
	assert.ErrorIs(t, err, ErrKeyNotActive)
}

func TestKeyService_RevokeKey(t *testing.T) {
	svc, _ := newTestKeyService(t)
	ctx := context.Background()

	key, err := svc.EnsureIssuerKey(ctx, "issuer-1", "did:web:issuer-1")
	require.NoError(t, err)

	require.NoError(t, svc.RevokeKey(ctx, key.ID, "compromised"))

	reloaded, err := svc.store.GetByID(ctx, key.ID)
	require.NoError(t, err)
	assert.Equal(t, model.KeyStatusRevoked, reloaded.Status)
	require.NotNil(t, reloaded.RevokedAt)
	require.NotNil(t, reloaded.RevocationReason)
	assert.Equal(t, "compromised", *reloaded.RevocationReason)

	// Retained for historical verification.
	_, err = svc.ResolveVerificationKey(ctx, key.ID)
	assert.NoError(t, err)

	assert.ErrorIs(t, svc.RevokeKey(ctx, "missing", "x"), ErrKeyNotFound)
}

func TestKeyService_ResolveVerificationKey(t *testing.T) {
	svc, _ := newTestKeyService(t)
	ctx := context.Background()

	key, err := svc.EnsureIssuerKey(ctx, "issuer-1", "did:web:issuer-1")
	require.NoError(t, err)

	// Both the full verification method and the bare key id resolve.
	for _, ref := range []string{"did:web:issuer-1#" + key.ID, key.ID} {
		pub, err := svc.ResolveVerificationKey(ctx, ref)
		require.NoError(t, err, ref)
		assert.Equal(t, ed25519.PublicKey(key.PublicKey), pub)
	}

	_, err = svc.ResolveVerificationKey(ctx, "did:web:issuer-1#missing")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}
