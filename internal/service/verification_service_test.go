package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/badgeforge/badgeforge/internal/config"
	"github.com/badgeforge/badgeforge/internal/logger"
	"github.com/badgeforge/badgeforge/internal/model"
)

type verifyFixture struct {
	keys       *KeyService
	signer     *SigningService
	verifier   *VerificationService
	assertions *fakeAssertionStore
}

func newVerifyFixture(t *testing.T) *verifyFixture {
	t.Helper()
	log := logger.New("error", "json")
	keys, _ := newTestKeyService(t)
	assertions := newFakeAssertionStore()
	return &verifyFixture{
		keys:       keys,
		signer:     NewSigningService(keys, config.TokenConfig{TTL: time.Hour, Issuer: "badgeforge-test"}, log),
		verifier:   NewVerificationService(keys, assertions, nil, 0, log),
		assertions: assertions,
	}
}

func (f *verifyFixture) signedCredential(t *testing.T, ownerID string, doc map[string]any) map[string]any {
	t.Helper()
	_, err := f.keys.EnsureIssuerKey(context.Background(), ownerID, "did:web:"+ownerID)
	require.NoError(t, err)
	signed, err := f.signer.SignDocument(context.Background(), ownerID, doc)
	require.NoError(t, err)
	return signed
}

func TestVerifySignature_RoundTrip(t *testing.T) {
	f := newVerifyFixture(t)
	ctx := context.Background()

	signed := f.signedCredential(t, "issuer-1", map[string]any{
		"id":   "cred-1",
		"type": []any{"VerifiableCredential"},
	})

	assert.True(t, f.verifier.VerifySignature(ctx, signed))

	proof := signed["proof"].(map[string]any)
	assert.Equal(t, "DataIntegrityProof", proof["type"])
	assert.Equal(t, "eddsa-rdfc-2022", proof["cryptosuite"])
}

func TestVerifySignature_TamperSensitivity(t *testing.T) {
	f := newVerifyFixture(t)
	ctx := context.Background()

	signed := f.signedCredential(t, "issuer-1", map[string]any{
		"id":     "cred-1",
		"type":   []any{"VerifiableCredential"},
		"issuer": "did:web:issuer-1",
		"credentialSubject": map[string]any{
			"id":          "mailto:alice@example.org",
			"achievement": "badge-1",
		},
	})
	require.True(t, f.verifier.VerifySignature(ctx, signed))

	// Mutating any field other than proofValue must fail verification.
	mutate := func(change func(doc map[string]any)) map[string]any {
		raw, err := json.Marshal(signed)
		require.NoError(t, err)
		var cp map[string]any
		require.NoError(t, json.Unmarshal(raw, &cp))
		change(cp)
		return cp
	}

	cases := map[string]map[string]any{
		"top-level field": mutate(func(d map[string]any) { d["id"] = "cred-2" }),
		"nested field": mutate(func(d map[string]any) {
			d["credentialSubject"].(map[string]any)["id"] = "mailto:eve@example.org"
		}),
		"added field":   mutate(func(d map[string]any) { d["extra"] = true }),
		"removed field": mutate(func(d map[string]any) { delete(d, "issuer") }),
		"proof created": mutate(func(d map[string]any) {
			d["proof"].(map[string]any)["created"] = "2020-01-01T00:00:00Z"
		}),
		// Members added to the proof object after signing are covered by
		// the recomputed input, not silently dropped.
		"inserted proof domain": mutate(func(d map[string]any) {
			d["proof"].(map[string]any)["domain"] = "https://evil.example.org"
		}),
		"inserted proof expires": mutate(func(d map[string]any) {
			d["proof"].(map[string]any)["expires"] = "2030-01-01T00:00:00Z"
		}),
		"removed proof member": mutate(func(d map[string]any) {
			delete(d["proof"].(map[string]any), "proofPurpose")
		}),
	}
	for name, doc := range cases {
		assert.False(t, f.verifier.VerifySignature(ctx, doc), name)
	}
}

func TestVerifySignature_DegradesToFalse(t *testing.T) {
	f := newVerifyFixture(t)
	ctx := context.Background()

	// Missing proof is "not a signed document", not an error.
	assert.False(t, f.verifier.VerifySignature(ctx, map[string]any{"id": "cred-1"}))

	// Malformed proofs of every kind degrade to false.
	signed := f.signedCredential(t, "issuer-1", map[string]any{
		"id":   "cred-1",
		"type": []any{"VerifiableCredential"},
	})
	proof := signed["proof"].(map[string]any)

	bad := map[string]any{"id": "cred-1", "type": []any{"VerifiableCredential"}}

	bad["proof"] = "not an object"
	assert.False(t, f.verifier.VerifySignature(ctx, bad))

	bad["proof"] = map[string]any{"type": "DataIntegrityProof"}
	assert.False(t, f.verifier.VerifySignature(ctx, bad))

	bad["proof"] = map[string]any{
		"type":               proof["type"],
		"cryptosuite":        proof["cryptosuite"],
		"created":            proof["created"],
		"verificationMethod": proof["verificationMethod"],
		"proofPurpose":       proof["proofPurpose"],
		"proofValue":         "!!!not-base64url!!!",
	}
	assert.False(t, f.verifier.VerifySignature(ctx, bad))

	bad["proof"] = map[string]any{
		"type":               proof["type"],
		"cryptosuite":        proof["cryptosuite"],
		"created":            proof["created"],
		"verificationMethod": "did:web:issuer-1#unknown-key",
		"proofPurpose":       proof["proofPurpose"],
		"proofValue":         proof["proofValue"],
	}
	assert.False(t, f.verifier.VerifySignature(ctx, bad))
}

func TestVerifySignature_SurvivesRotation(t *testing.T) {
	f := newVerifyFixture(t)
	ctx := context.Background()

	signed := f.signedCredential(t, "issuer-1", map[string]any{
		"id":   "cred-1",
		"type": []any{"VerifiableCredential"},
	})
	require.True(t, f.verifier.VerifySignature(ctx, signed))

	// Rotate, then revoke the old key. The historical signature still
	// verifies because the old record is retained.
	oldKey, err := f.keys.store.GetActiveByOwner(ctx, "issuer-1")
	require.NoError(t, err)
	newKey, err := f.keys.RotateKey(ctx, oldKey.ID)
	require.NoError(t, err)
	require.Equal(t, oldKey.ID, *newKey.PreviousKeyID)

	assert.True(t, f.verifier.VerifySignature(ctx, signed))

	require.NoError(t, f.keys.RevokeKey(ctx, oldKey.ID, "scheduled rotation"))
	assert.True(t, f.verifier.VerifySignature(ctx, signed))

	// New signatures use the new key and also verify.
	resigned, err := f.signer.SignDocument(ctx, "issuer-1", map[string]any{
		"id":   "cred-2",
		"type": []any{"VerifiableCredential"},
	})
	require.NoError(t, err)
	assert.True(t, f.verifier.VerifySignature(ctx, resigned))
}

func TestVerifyAssertion_SignedCredential(t *testing.T) {
	f := newVerifyFixture(t)
	ctx := context.Background()

	signed := f.signedCredential(t, "issuer-1", map[string]any{
		"id":     "asrt-1",
		"type":   []any{"VerifiableCredential", "OpenBadgeCredential"},
		"issuer": "did:web:issuer-1",
		"credentialSubject": map[string]any{
			"id":          "mailto:alice@example.org",
			"achievement": "badge-1",
		},
	})
	raw, err := json.Marshal(signed)
	require.NoError(t, err)
	f.assertions.put(&model.Assertion{ID: "asrt-1", Document: raw, IssuedAt: time.Now()})

	result, err := f.verifier.VerifyAssertion(ctx, "asrt-1")
	require.NoError(t, err)

	assert.True(t, result.Valid)
	require.NotNil(t, result.Checks.Structure)
	assert.True(t, *result.Checks.Structure)
	require.NotNil(t, result.Checks.Revocation)
	assert.True(t, *result.Checks.Revocation)
	require.NotNil(t, result.Checks.Signature, "signed credential gets a signature check")
	assert.True(t, *result.Checks.Signature)
	assert.Empty(t, result.Errors)
}

func TestVerifyAssertion_LegacyFormatSkipsSignature(t *testing.T) {
	f := newVerifyFixture(t)
	ctx := context.Background()

	doc := map[string]any{
		"id":        "asrt-2",
		"type":      "Assertion",
		"recipient": map[string]any{"identity": "alice@example.org"},
		"badge":     "https://badges.example.org/badge-1",
	}
	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	f.assertions.put(&model.Assertion{ID: "asrt-2", Document: raw, IssuedAt: time.Now()})

	result, err := f.verifier.VerifyAssertion(ctx, "asrt-2")
	require.NoError(t, err)

	assert.True(t, result.Valid)
	assert.Nil(t, result.Checks.Signature, "legacy credential gets no signature check")
}

func TestVerifyAssertion_RevocationGating(t *testing.T) {
	f := newVerifyFixture(t)
	ctx := context.Background()

	signed := f.signedCredential(t, "issuer-1", map[string]any{
		"id":     "asrt-3",
		"type":   []any{"VerifiableCredential"},
		"issuer": "did:web:issuer-1",
		"credentialSubject": map[string]any{
			"id":          "mailto:alice@example.org",
			"achievement": "badge-1",
		},
	})
	raw, err := json.Marshal(signed)
	require.NoError(t, err)
	reason := "credential issued in error"
	now := time.Now()
	f.assertions.put(&model.Assertion{
		ID:               "asrt-3",
		Document:         raw,
		Revoked:          true,
		RevocationReason: &reason,
		IssuedAt:         now,
		RevokedAt:        &now,
	})

	result, err := f.verifier.VerifyAssertion(ctx, "asrt-3")
	require.NoError(t, err)

	// Signature is fine, revocation gates validity anyway.
	require.NotNil(t, result.Checks.Signature)
	assert.True(t, *result.Checks.Signature)
	require.NotNil(t, result.Checks.Revocation)
	assert.False(t, *result.Checks.Revocation)
	assert.False(t, result.Valid)
	assert.Contains(t, result.Errors, "Credential has been revoked: credential issued in error")
}

func TestVerifyAssertion_StructureFailure(t *testing.T) {
	f := newVerifyFixture(t)
	ctx := context.Background()

	// Legacy document missing its badge reference.
	doc := map[string]any{
		"id":        "asrt-4",
		"type":      "Assertion",
		"recipient": map[string]any{"identity": "alice@example.org"},
	}
	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	f.assertions.put(&model.Assertion{ID: "asrt-4", Document: raw, IssuedAt: time.Now()})

	result, err := f.verifier.VerifyAssertion(ctx, "asrt-4")
	require.NoError(t, err)

	assert.False(t, result.Valid)
	require.NotNil(t, result.Checks.Structure)
	assert.False(t, *result.Checks.Structure)
	assert.Contains(t, result.Errors, "Missing required field: badge")
}

func TestVerifyAssertion_NotFound(t *testing.T) {
	f := newVerifyFixture(t)

	_, err := f.verifier.VerifyAssertion(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrAssertionNotFound)
}

func TestVerifyDocument_TamperedIDFailsSignature(t *testing.T) {
	f := newVerifyFixture(t)
	ctx := context.Background()

	signed := f.signedCredential(t, "issuer-1", map[string]any{
		"id":     "cred-1",
		"type":   []any{"VerifiableCredential"},
		"issuer": "did:web:issuer-1",
		"credentialSubject": map[string]any{
			"id":          "mailto:alice@example.org",
			"achievement": "badge-1",
		},
	})

	result, err := f.verifier.VerifyDocument(ctx, signed)
	require.NoError(t, err)
	assert.True(t, result.Valid)

	signed["id"] = "cred-2"
	result, err = f.verifier.VerifyDocument(ctx, signed)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	require.NotNil(t, result.Checks.Signature)
	assert.False(t, *result.Checks.Signature)
	assert.Contains(t, result.Errors, "Invalid signature - verification failed")
}
