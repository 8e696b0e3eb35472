package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/badgeforge/badgeforge/internal/config"
	"github.com/badgeforge/badgeforge/internal/logger"
	"github.com/badgeforge/badgeforge/internal/model"
)

func newTestIssuanceService(t *testing.T) (*IssuanceService, *VerificationService, *fakeAssertionStore, *fakeCache) {
	t.Helper()

	issuer := &model.Issuer{
		ID:        "iss_test",
		Name:      "Example University",
		URL:       "https://example.edu",
		CreatedAt: time.Now(),
	}
	badge := &model.BadgeClass{
		ID:          "badge_test",
		IssuerID:    issuer.ID,
		Name:        "Intro to Distributed Systems",
		Description: "Completed the distributed systems course",
		Criteria:    "Pass the final project review",
		CreatedAt:   time.Now(),
	}

	keys, _ := newTestKeyService(t)
	log := logger.New("error", "json")
	signer := NewSigningService(keys, config.TokenConfig{TTL: time.Hour, Issuer: "https://badges.example.edu"}, log)
	assertions := newFakeAssertionStore()
	cache := &fakeCache{}

	cfg := config.BadgeConfig{BaseURL: "https://badges.example.edu"}
	svc := NewIssuanceService(newFakeIssuerStore(issuer), newFakeBadgeStore(badge), assertions, keys, signer, cache, cfg, log)
	verifier := NewVerificationService(keys, assertions, nil, 0, log)
	return svc, verifier, assertions, cache
}

func TestIssuanceService_IssueAssertion(t *testing.T) {
	svc, verifier, assertions, _ := newTestIssuanceService(t)
	ctx := context.Background()

	assertion, token, err := svc.IssueAssertion(ctx, "badge_test", "mailto:student@example.edu", ModeDataIntegrity)
	require.NoError(t, err)
	assert.Empty(t, token)
	assert.True(t, strings.HasPrefix(assertion.ID, "asrt_"))
	assert.Equal(t, "badge_test", assertion.BadgeClassID)
	assert.Equal(t, "iss_test", assertion.IssuerID)
	assert.False(t, assertion.Revoked)

	// The stored document is a signed credential.
	var doc map[string]any
	require.NoError(t, json.Unmarshal(assertion.Document, &doc))
	assert.Equal(t, "https://badges.example.edu/api/v1/assertions/"+assertion.ID, doc["id"])
	require.Contains(t, doc, "proof")

	subject, ok := doc["credentialSubject"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "mailto:student@example.edu", subject["id"])
	achievement, ok := subject["achievement"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Intro to Distributed Systems", achievement["name"])

	// And it verifies through the full pipeline.
	stored, err := assertions.GetByID(ctx, assertion.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)

	result, err := verifier.VerifyAssertion(ctx, assertion.ID)
	require.NoError(t, err)
	assert.True(t, result.Valid)
	require.NotNil(t, result.Checks.Signature)
	assert.True(t, *result.Checks.Signature)
}

func TestIssuanceService_IssueAssertionCompactMode(t *testing.T) {
	svc, verifier, _, _ := newTestIssuanceService(t)
	ctx := context.Background()

	assertion, token, err := svc.IssueAssertion(ctx, "badge_test", "mailto:student@example.edu", ModeCompactToken)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.Len(t, strings.Split(token, "."), 3)

	// The stored document still carries an embedded proof so hosted
	// verification works regardless of the requested mode.
	result, err := verifier.VerifyAssertion(ctx, assertion.ID)
	require.NoError(t, err)
	assert.True(t, result.Valid)
}

func TestIssuanceService_IssueAssertionUnknownBadge(t *testing.T) {
	svc, _, _, _ := newTestIssuanceService(t)

	_, _, err := svc.IssueAssertion(context.Background(), "badge_missing", "mailto:student@example.edu", ModeDataIntegrity)
	assert.ErrorIs(t, err, ErrBadgeNotFound)
}

func TestIssuanceService_RevokeAssertion(t *testing.T) {
	svc, verifier, _, cache := newTestIssuanceService(t)
	ctx := context.Background()

	assertion, _, err := svc.IssueAssertion(ctx, "badge_test", "mailto:student@example.edu", ModeDataIntegrity)
	require.NoError(t, err)

	require.NoError(t, svc.RevokeAssertion(ctx, assertion.ID, "Awarded in error"))
	assert.Contains(t, cache.deleted, "revocation:"+assertion.ID)

	result, err := verifier.VerifyAssertion(ctx, assertion.ID)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	require.NotNil(t, result.Checks.Revocation)
	assert.False(t, *result.Checks.Revocation)
	assert.Contains(t, result.Errors, "Credential has been revoked: Awarded in error")

	// The signature itself is still intact.
	require.NotNil(t, result.Checks.Signature)
	assert.True(t, *result.Checks.Signature)
}

func TestIssuanceService_RevokeAssertionNotFound(t *testing.T) {
	svc, _, _, _ := newTestIssuanceService(t)

	err := svc.RevokeAssertion(context.Background(), "asrt_missing", "no such badge")
	assert.ErrorIs(t, err, ErrAssertionNotFound)
}

func TestIssuanceService_GetAssertion(t *testing.T) {
	svc, _, _, _ := newTestIssuanceService(t)
	ctx := context.Background()

	issued, _, err := svc.IssueAssertion(ctx, "badge_test", "mailto:student@example.edu", ModeDataIntegrity)
	require.NoError(t, err)

	got, err := svc.GetAssertion(ctx, issued.ID)
	require.NoError(t, err)
	assert.Equal(t, issued.ID, got.ID)

	_, err = svc.GetAssertion(ctx, "asrt_missing")
	assert.ErrorIs(t, err, ErrAssertionNotFound)
}
