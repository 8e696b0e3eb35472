package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/badgeforge/badgeforge/internal/config"
	"github.com/badgeforge/badgeforge/internal/logger"
	"github.com/badgeforge/badgeforge/internal/model"
	"github.com/badgeforge/badgeforge/internal/repository"
)

// Issuance errors.
var (
	ErrIssuerNotFound = errors.New("issuer not found")
	ErrBadgeNotFound  = errors.New("badge class not found")
)

// IssuerStore is the storage collaborator for issuers.
type IssuerStore interface {
	GetByID(ctx context.Context, id string) (*model.Issuer, error)
}

// BadgeStore is the storage collaborator for badge classes.
type BadgeStore interface {
	GetByID(ctx context.Context, id string) (*model.BadgeClass, error)
}

// AssertionWriteStore is the storage collaborator for issued assertions.
type AssertionWriteStore interface {
	Create(ctx context.Context, assertion *model.Assertion) error
	GetByID(ctx context.Context, id string) (*model.Assertion, error)
	Revoke(ctx context.Context, id, reason string) error
}

// CacheInvalidator drops cached revocation entries after a revocation.
// Implemented by database.Redis; may be nil.
type CacheInvalidator interface {
	Delete(ctx context.Context, keys ...string) error
}

// IssuanceService awards badges: it assembles the Open Badges credential
// document, ensures the issuer has a signing key, signs the document and
// persists the assertion.
type IssuanceService struct {
	issuers    IssuerStore
	badges     BadgeStore
	assertions AssertionWriteStore
	keys       *KeyService
	signer     *SigningService
	cache      CacheInvalidator
	cfg        config.BadgeConfig
	log        *logger.Logger
}

// NewIssuanceService creates a new IssuanceService. cache may be nil.
func NewIssuanceService(
	issuers IssuerStore,
	badges BadgeStore,
	assertions AssertionWriteStore,
	keys *KeyService,
	signer *SigningService,
	cache CacheInvalidator,
	cfg config.BadgeConfig,
	log *logger.Logger,
) *IssuanceService {
	return &IssuanceService{
		issuers:    issuers,
		badges:     badges,
		assertions: assertions,
		keys:       keys,
		signer:     signer,
		cache:      cache,
		cfg:        cfg,
		log:        log.WithComponent("issuance_service"),
	}
}

// IssueAssertion awards badgeClassID to recipientID. The stored document
// always carries a DataIntegrityProof so hosted verification works; compact
// mode additionally returns the credential as a VC-JWT.
func (s *IssuanceService) IssueAssertion(ctx context.Context, badgeClassID, recipientID string, mode SigningMode) (*model.Assertion, string, error) {
	badge, err := s.badges.GetByID(ctx, badgeClassID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", ErrBadgeNotFound
		}
		return nil, "", fmt.Errorf("failed to load badge class: %w", err)
	}
	issuer, err := s.issuers.GetByID(ctx, badge.IssuerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", ErrIssuerNotFound
		}
		return nil, "", fmt.Errorf("failed to load issuer: %w", err)
	}

	if _, err := s.keys.EnsureIssuerKey(ctx, issuer.ID, issuer.Controller()); err != nil {
		return nil, "", err
	}

	assertionID := model.NewID("asrt")
	doc := s.buildCredential(assertionID, issuer, badge, recipientID)

	signed, err := s.signer.SignDocument(ctx, issuer.ID, doc)
	if err != nil {
		return nil, "", err
	}

	var token string
	if mode == ModeCompactToken {
		token, err = s.signer.SignCompactTokenFromDocument(ctx, issuer.ID, doc)
		if err != nil {
			return nil, "", err
		}
	}

	document, err := json.Marshal(signed)
	if err != nil {
		return nil, "", fmt.Errorf("failed to serialize credential: %w", err)
	}

	assertion := &model.Assertion{
		ID:           assertionID,
		BadgeClassID: badge.ID,
		IssuerID:     issuer.ID,
		RecipientID:  recipientID,
		Document:     document,
		IssuedAt:     time.Now(),
	}
	if err := s.assertions.Create(ctx, assertion); err != nil {
		return nil, "", fmt.Errorf("failed to store assertion: %w", err)
	}

	s.log.Info().
		Str("assertion_id", assertionID).
		Str("badge_class_id", badge.ID).
		Str("issuer_id", issuer.ID).
		Msg("badge assertion issued")
	return assertion, token, nil
}

// RevokeAssertion marks an assertion revoked and drops its cached
// revocation status so verification sees the change immediately.
func (s *IssuanceService) RevokeAssertion(ctx context.Context, id, reason string) error {
	if err := s.assertions.Revoke(ctx, id, reason); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAssertionNotFound
		}
		return fmt.Errorf("failed to revoke assertion: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, revocationCacheKey(id)); err != nil {
			s.log.Warn().Err(err).Str("assertion_id", id).Msg("failed to invalidate revocation cache")
		}
	}

	s.log.Info().Str("assertion_id", id).Str("reason", reason).Msg("assertion revoked")
	return nil
}

// GetAssertion returns a stored assertion.
func (s *IssuanceService) GetAssertion(ctx context.Context, id string) (*model.Assertion, error) {
	assertion, err := s.assertions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAssertionNotFound
		}
		return nil, fmt.Errorf("failed to load assertion: %w", err)
	}
	return assertion, nil
}

func (s *IssuanceService) buildCredential(assertionID string, issuer *model.Issuer, badge *model.BadgeClass, recipientID string) map[string]any {
	achievement := map[string]any{
		"id":   s.cfg.BaseURL + "/api/v1/badges/" + badge.ID,
		"type": []any{"Achievement"},
		"name": badge.Name,
	}
	if badge.Description != "" {
		achievement["description"] = badge.Description
	}
	if badge.Criteria != "" {
		achievement["criteria"] = map[string]any{"narrative": badge.Criteria}
	}
	if badge.ImageURL != "" {
		achievement["image"] = map[string]any{"id": badge.ImageURL, "type": "Image"}
	}

	return map[string]any{
		"@context": []any{
			"https://www.w3.org/ns/credentials/v2",
			"https://purl.imsglobal.org/spec/ob/v3p0/context-3.0.3.json",
		},
		"id":   s.cfg.BaseURL + "/api/v1/assertions/" + assertionID,
		"type": []any{"VerifiableCredential", "OpenBadgeCredential"},
		"issuer": map[string]any{
			"id":   issuer.Controller(),
			"type": []any{"Profile"},
			"name": issuer.Name,
			"url":  issuer.URL,
		},
		"validFrom": time.Now().UTC().Format(time.RFC3339),
		"credentialSubject": map[string]any{
			"id":          recipientID,
			"type":        []any{"AchievementSubject"},
			"achievement": achievement,
		},
	}
}
