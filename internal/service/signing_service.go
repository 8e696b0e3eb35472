package service

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/badgeforge/badgeforge/internal/config"
	"github.com/badgeforge/badgeforge/internal/crypto"
	"github.com/badgeforge/badgeforge/internal/logger"
	"github.com/badgeforge/badgeforge/internal/model"
)

// SigningMode selects how a credential is signed. The mode is caller intent,
// never inferred from the document itself.
type SigningMode string

const (
	// ModeCompactToken produces a VC-JWT: three dot-joined base64url segments.
	ModeCompactToken SigningMode = "compact"
	// ModeDataIntegrity attaches a DataIntegrityProof to the JSON document.
	ModeDataIntegrity SigningMode = "data-integrity"
)

// CredentialClaims is the claims payload of a compact-token credential.
type CredentialClaims struct {
	jwt.RegisteredClaims
	VC map[string]any `json:"vc,omitempty"`
}

// SigningService produces cryptographic proofs over credential documents
// using an issuer's resolved signing key. Key material is borrowed from the
// KeyService per operation and never retained.
type SigningService struct {
	keys *KeyService
	cfg  config.TokenConfig
	log  *logger.Logger
}

// NewSigningService creates a new SigningService.
func NewSigningService(keys *KeyService, cfg config.TokenConfig, log *logger.Logger) *SigningService {
	return &SigningService{
		keys: keys,
		cfg:  cfg,
		log:  log.WithComponent("signing_service"),
	}
}

// SignCredential signs a credential document for ownerID in the requested
// mode. Compact mode returns the token string under the "token" key of a
// one-entry map; data-integrity mode returns the document with a proof.
func (s *SigningService) SignCredential(ctx context.Context, ownerID string, mode SigningMode, doc map[string]any) (map[string]any, error) {
	switch mode {
	case ModeCompactToken:
		token, err := s.SignCompactTokenFromDocument(ctx, ownerID, doc)
		if err != nil {
			return nil, err
		}
		return map[string]any{"token": token}, nil
	case ModeDataIntegrity:
		return s.SignDocument(ctx, ownerID, doc)
	default:
		return nil, fmt.Errorf("unsupported signing mode: %q", mode)
	}
}

// SignCompactToken serializes claims into a compact three-part token signed
// with Ed25519. The signature covers header.payload exactly as produced.
func (s *SigningService) SignCompactToken(ctx context.Context, ownerID string, claims *CredentialClaims) (string, error) {
	key, err := s.keys.ResolveSigningKey(ctx, ownerID)
	if err != nil {
		return "", err
	}

	if claims.Issuer == "" {
		claims.Issuer = s.cfg.Issuer
	}
	if claims.ID == "" {
		claims.ID = uuid.New().String()
	}
	now := time.Now()
	if claims.IssuedAt == nil {
		claims.IssuedAt = jwt.NewNumericDate(now)
	}
	if claims.ExpiresAt == nil && s.cfg.TTL > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(s.cfg.TTL))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	token.Header["kid"] = key.VerificationMethod()
	return token.SignedString(key.Private)
}

// SignCompactTokenFromDocument wraps a credential document into VC-JWT claims
// and signs it.
func (s *SigningService) SignCompactTokenFromDocument(ctx context.Context, ownerID string, doc map[string]any) (string, error) {
	claims := &CredentialClaims{VC: doc}
	if id, ok := doc["id"].(string); ok {
		claims.ID = id
	}
	if subject, ok := doc["credentialSubject"].(map[string]any); ok {
		if sid, ok := subject["id"].(string); ok {
			claims.Subject = sid
		}
	}
	return s.SignCompactToken(ctx, ownerID, claims)
}

// SignDocument attaches a DataIntegrityProof to the document. The proof's
// own fields, minus proofValue, are canonicalized together with the document
// and covered by the signature.
func (s *SigningService) SignDocument(ctx context.Context, ownerID string, doc map[string]any) (map[string]any, error) {
	key, err := s.keys.ResolveSigningKey(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	proof := &model.Proof{
		Type:               model.ProofTypeDataIntegrity,
		Cryptosuite:        model.CryptosuiteEdDSARDFC,
		Created:            time.Now().UTC().Format(time.RFC3339),
		VerificationMethod: key.VerificationMethod(),
		ProofPurpose:       model.ProofPurposeAssertion,
	}

	input, err := proofSigningInput(doc, proof)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize document: %w", err)
	}

	signature := ed25519.Sign(key.Private, input)
	proof.ProofValue = base64.RawURLEncoding.EncodeToString(signature)

	signed := make(map[string]any, len(doc)+1)
	for k, v := range doc {
		signed[k] = v
	}
	signed["proof"] = map[string]any{
		"type":               proof.Type,
		"cryptosuite":        proof.Cryptosuite,
		"created":            proof.Created,
		"verificationMethod": proof.VerificationMethod,
		"proofPurpose":       proof.ProofPurpose,
		"proofValue":         proof.ProofValue,
	}

	s.log.Debug().
		Str("owner_id", ownerID).
		Str("key_id", key.KeyID).
		Msg("signed credential document")
	return signed, nil
}

// proofSigningInput computes the canonical bytes covered by a data-integrity
// signature: the document (minus any existing proof) plus the proof fields
// without proofValue. Signer and verifier must agree on these bytes exactly.
func proofSigningInput(doc map[string]any, proof *model.Proof) ([]byte, error) {
	unsigned := make(map[string]any, len(doc)+1)
	for k, v := range doc {
		if k == "proof" {
			continue
		}
		unsigned[k] = v
	}
	unsigned["proof"] = map[string]any{
		"type":               proof.Type,
		"cryptosuite":        proof.Cryptosuite,
		"created":            proof.Created,
		"verificationMethod": proof.VerificationMethod,
		"proofPurpose":       proof.ProofPurpose,
	}
	return crypto.Canonicalize(unsigned)
}

// embeddedProofSigningInput recomputes the signing input from a document's
// embedded proof object as-is, dropping only proofValue. The verifier must
// cover every member actually present in the proof, so that inserting an
// extra member (domain, challenge, expires) invalidates the signature
// instead of being silently ignored.
func embeddedProofSigningInput(doc map[string]any) ([]byte, error) {
	raw, ok := doc["proof"].(map[string]any)
	if !ok {
		return nil, errors.New("document has no proof object")
	}

	unsigned := make(map[string]any, len(doc))
	for k, v := range doc {
		if k == "proof" {
			continue
		}
		unsigned[k] = v
	}
	proof := make(map[string]any, len(raw))
	for k, v := range raw {
		if k == "proofValue" {
			continue
		}
		proof[k] = v
	}
	unsigned["proof"] = proof
	return crypto.Canonicalize(unsigned)
}
