package service

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/badgeforge/badgeforge/internal/logger"
	"github.com/badgeforge/badgeforge/internal/model"
	"github.com/badgeforge/badgeforge/internal/repository"
)

// ErrAssertionNotFound is returned when the requested assertion has no record.
var ErrAssertionNotFound = errors.New("assertion not found")

// AssertionStore is the storage collaborator for the revocation check.
// Implemented by repository.AssertionRepository.
type AssertionStore interface {
	GetByID(ctx context.Context, id string) (*model.Assertion, error)
}

// StatusCache caches revocation-status lookups for a short window.
// Implemented by database.Redis; may be nil to disable caching.
type StatusCache interface {
	GetString(ctx context.Context, key string) (string, error)
	SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// VerificationService verifies credential signatures and composes the
// per-credential decision: structure, revocation and signature checks
// combined into one result.
type VerificationService struct {
	keys       *KeyService
	assertions AssertionStore
	cache      StatusCache
	cacheTTL   time.Duration
	log        *logger.Logger
}

// NewVerificationService creates a new VerificationService. cache may be nil.
func NewVerificationService(keys *KeyService, assertions AssertionStore, cache StatusCache, cacheTTL time.Duration, log *logger.Logger) *VerificationService {
	return &VerificationService{
		keys:       keys,
		assertions: assertions,
		cache:      cache,
		cacheTTL:   cacheTTL,
		log:        log.WithComponent("verification_service"),
	}
}

// VerifySignature checks the data-integrity proof on a document. It is a
// predicate: a missing proof, malformed fields, unknown key or failed
// signature all yield false, never an error. Any single-byte change to the
// signed document flips the canonical bytes and fails the check.
func (s *VerificationService) VerifySignature(ctx context.Context, doc map[string]any) bool {
	proof, ok := extractProof(doc)
	if !ok {
		return false
	}
	if proof.Type != model.ProofTypeDataIntegrity || proof.ProofValue == "" || proof.VerificationMethod == "" {
		return false
	}

	// The public key is resolved through the key store, never trusted
	// from the document itself.
	pub, err := s.keys.ResolveVerificationKey(ctx, proof.VerificationMethod)
	if err != nil {
		s.log.Debug().Err(err).Str("verification_method", proof.VerificationMethod).Msg("verification key not resolvable")
		return false
	}

	// The signed bytes are recomputed from the proof object exactly as it
	// appears on the document, so extra members inserted after signing
	// change the input and fail the check.
	input, err := embeddedProofSigningInput(doc)
	if err != nil {
		return false
	}

	signature, err := base64.RawURLEncoding.DecodeString(proof.ProofValue)
	if err != nil || len(signature) != ed25519.SignatureSize {
		return false
	}

	return ed25519.Verify(pub, input, signature)
}

// VerifyAssertion runs the full check sequence for a stored assertion:
// structure, revocation and (when a proof is present) signature.
func (s *VerificationService) VerifyAssertion(ctx context.Context, assertionID string) (*model.VerificationResult, error) {
	assertion, err := s.assertions.GetByID(ctx, assertionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAssertionNotFound
		}
		return nil, fmt.Errorf("failed to load assertion: %w", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(assertion.Document, &doc); err != nil {
		result := &model.VerificationResult{}
		failed := false
		result.Checks.Structure = &failed
		result.AddError("Credential document is not valid JSON")
		return result, nil
	}

	s.cacheRevocation(ctx, assertion)
	return s.verify(ctx, doc, assertion.Revoked, assertion.RevocationReason), nil
}

// VerifyDocument runs the check sequence for a submitted credential document.
// The revocation flag is looked up by the document's credential id.
func (s *VerificationService) VerifyDocument(ctx context.Context, doc map[string]any) (*model.VerificationResult, error) {
	revoked, reason, err := s.revocationStatus(ctx, credentialID(doc))
	if err != nil {
		return nil, err
	}
	return s.verify(ctx, doc, revoked, reason), nil
}

// verify is the linear check sequence. Overall validity is the AND of the
// applicable checks; the signature check only exists for documents carrying
// a proof (auto-detected, no caller-supplied format hint).
func (s *VerificationService) verify(ctx context.Context, doc map[string]any, revoked bool, revocationReason *string) *model.VerificationResult {
	result := &model.VerificationResult{}

	_, signed := doc["proof"]

	structureOK, missing := checkStructure(doc, signed)
	result.Checks.Structure = &structureOK
	for _, field := range missing {
		result.AddError("Missing required field: " + field)
	}

	revocationOK := !revoked
	result.Checks.Revocation = &revocationOK
	if revoked {
		msg := "Credential has been revoked"
		if revocationReason != nil && *revocationReason != "" {
			msg += ": " + *revocationReason
		}
		result.AddError(msg)
	}

	if signed {
		signatureOK := s.VerifySignature(ctx, doc)
		result.Checks.Signature = &signatureOK
		if !signatureOK {
			result.AddError("Invalid signature - verification failed")
		}
	}

	result.Valid = structureOK && revocationOK && (result.Checks.Signature == nil || *result.Checks.Signature)
	return result
}

// revocationStatus looks up the revocation flag for a credential id, going
// through the short-TTL cache when one is configured.
func (s *VerificationService) revocationStatus(ctx context.Context, id string) (bool, *string, error) {
	if id == "" {
		return false, nil, nil
	}

	if s.cache != nil {
		if cached, err := s.cache.GetString(ctx, revocationCacheKey(id)); err == nil {
			if reason, ok := strings.CutPrefix(cached, "revoked:"); ok {
				return true, &reason, nil
			}
			return false, nil, nil
		}
	}

	assertion, err := s.assertions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// No record means there is nothing to be revoked; the
			// signature check still decides trust.
			return false, nil, nil
		}
		return false, nil, fmt.Errorf("failed to load assertion: %w", err)
	}

	s.cacheRevocation(ctx, assertion)
	return assertion.Revoked, assertion.RevocationReason, nil
}

func (s *VerificationService) cacheRevocation(ctx context.Context, assertion *model.Assertion) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return
	}
	value := "ok"
	if assertion.Revoked {
		reason := ""
		if assertion.RevocationReason != nil {
			reason = *assertion.RevocationReason
		}
		value = "revoked:" + reason
	}
	if err := s.cache.SetWithTTL(ctx, revocationCacheKey(assertion.ID), value, s.cacheTTL); err != nil {
		s.log.Warn().Err(err).Str("assertion_id", assertion.ID).Msg("failed to cache revocation status")
	}
}

func revocationCacheKey(id string) string {
	return "revocation:" + id
}

// checkStructure validates the minimal shape for the document's format.
// Documents with a proof are the signed OB3 form; the rest are legacy OB2.
func checkStructure(doc map[string]any, signed bool) (bool, []string) {
	var required []string
	if signed {
		required = []string{"id", "type", "issuer", "credentialSubject"}
	} else {
		required = []string{"id", "type", "recipient", "badge"}
	}

	var missing []string
	for _, field := range required {
		if !hasField(doc, field) {
			missing = append(missing, field)
		}
	}
	return len(missing) == 0, missing
}

func hasField(doc map[string]any, field string) bool {
	v, ok := doc[field]
	if !ok || v == nil {
		return false
	}
	if s, ok := v.(string); ok && s == "" {
		return false
	}
	return true
}

// extractProof reads the proof object out of a document. Absence or a
// non-object proof means the document is not signed.
func extractProof(doc map[string]any) (*model.Proof, bool) {
	raw, ok := doc["proof"]
	if !ok {
		return nil, false
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, false
	}

	proof := &model.Proof{}
	proof.Type, _ = obj["type"].(string)
	proof.Cryptosuite, _ = obj["cryptosuite"].(string)
	proof.Created, _ = obj["created"].(string)
	proof.VerificationMethod, _ = obj["verificationMethod"].(string)
	proof.ProofPurpose, _ = obj["proofPurpose"].(string)
	proof.ProofValue, _ = obj["proofValue"].(string)
	return proof, true
}

// credentialID maps a document's credential id to the assertion record id.
// Hosted credential ids are URLs ending in the assertion id.
func credentialID(doc map[string]any) string {
	id, _ := doc["id"].(string)
	if i := strings.LastIndex(id, "/"); i >= 0 {
		id = id[i+1:]
	}
	return id
}
