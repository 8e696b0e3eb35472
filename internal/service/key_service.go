package service

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/badgeforge/badgeforge/internal/crypto"
	"github.com/badgeforge/badgeforge/internal/logger"
	"github.com/badgeforge/badgeforge/internal/model"
	"github.com/badgeforge/badgeforge/internal/repository"
)

// Key-related errors.
var (
	ErrKeyNotFound    = errors.New("signing key not found")
	ErrKeyNotActive   = errors.New("signing key is not active")
	ErrNoPrivateKey   = errors.New("signing key has no private key material")
	ErrBadKeyMaterial = errors.New("stored key material is invalid")
)

// KeyStore is the storage collaborator for signing keys.
// Implemented by repository.SigningKeyRepository.
type KeyStore interface {
	Create(ctx context.Context, key *model.SigningKey) error
	GetActiveByOwner(ctx context.Context, ownerID string) (*model.SigningKey, error)
	GetByID(ctx context.Context, id string) (*model.SigningKey, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*model.SigningKey, error)
	ListAll(ctx context.Context) ([]*model.SigningKey, error)
	Rotate(ctx context.Context, oldID string, newKey *model.SigningKey) error
	Revoke(ctx context.Context, id, reason string) error
}

// SignerKey is decrypted key material resolved for one signing operation.
// Callers borrow it transiently and must not retain it past the call.
type SignerKey struct {
	KeyID      string
	OwnerID    string
	Controller string
	Public     ed25519.PublicKey
	Private    ed25519.PrivateKey
}

// VerificationMethod returns the proof key identifier for this key.
func (k *SignerKey) VerificationMethod() string {
	return k.Controller + "#" + k.KeyID
}

// KeyService manages signing key lifecycle: generation, retrieval,
// rotation and revocation.
type KeyService struct {
	store    KeyStore
	envelope *crypto.Envelope
	log      *logger.Logger

	// key-creating writes are serialized per owner so two concurrent
	// callers can never both insert an active key
	ownerLocks sync.Map // ownerID -> *sync.Mutex
}

// NewKeyService creates a new KeyService.
func NewKeyService(store KeyStore, envelope *crypto.Envelope, log *logger.Logger) *KeyService {
	return &KeyService{
		store:    store,
		envelope: envelope,
		log:      log.WithComponent("key_service"),
	}
}

// GenerateKeyPair generates a new Ed25519 key pair. Pure generation,
// no side effects; the caller decides persistence.
func (s *KeyService) GenerateKeyPair() (ed25519.PublicKey, ed25519.PrivateKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate Ed25519 key: %w", err)
	}
	return pub, priv, nil
}

// EnsureIssuerKey returns the owner's active signing key, generating and
// persisting one on first use so issuance never blocks on manual key setup.
func (s *KeyService) EnsureIssuerKey(ctx context.Context, ownerID, controller string) (*model.SigningKey, error) {
	key, err := s.store.GetActiveByOwner(ctx, ownerID)
	if err == nil {
		return key, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up signing key: %w", err)
	}

	lock := s.ownerLock(ownerID)
	lock.Lock()
	defer lock.Unlock()

	// Another caller may have provisioned the key while we waited.
	key, err = s.store.GetActiveByOwner(ctx, ownerID)
	if err == nil {
		return key, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up signing key: %w", err)
	}

	key, err = s.newKeyRecord(ownerID, controller, nil)
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, key); err != nil {
		return nil, fmt.Errorf("failed to store signing key: %w", err)
	}

	s.log.KeyEvent("generated", key.ID, ownerID)
	return key, nil
}

// GetIssuerPrivateKey decrypts and returns the owner's active private key.
// Returns ErrKeyNotFound when the owner has no record, ErrNoPrivateKey when
// the record is verification-only, and propagates crypto.ErrBlobTampered
// distinctly so callers can tell "no key" apart from "tampered key".
func (s *KeyService) GetIssuerPrivateKey(ctx context.Context, ownerID string) (ed25519.PrivateKey, error) {
	key, err := s.store.GetActiveByOwner(ctx, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("failed to look up signing key: %w", err)
	}
	return s.decryptPrivateKey(key)
}

// ResolveSigningKey returns the owner's active key with decrypted private
// material, ready for a signing operation.
func (s *KeyService) ResolveSigningKey(ctx context.Context, ownerID string) (*SignerKey, error) {
	key, err := s.store.GetActiveByOwner(ctx, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("failed to look up signing key: %w", err)
	}

	priv, err := s.decryptPrivateKey(key)
	if err != nil {
		return nil, err
	}

	return &SignerKey{
		KeyID:      key.ID,
		OwnerID:    key.OwnerID,
		Controller: key.Controller,
		Public:     ed25519.PublicKey(key.PublicKey),
		Private:    priv,
	}, nil
}

// ResolveVerificationKey resolves a public key from a proof's
// verificationMethod. Rotated and revoked keys still resolve so historical
// signatures keep verifying; only the public key ever leaves this method.
func (s *KeyService) ResolveVerificationKey(ctx context.Context, verificationMethod string) (ed25519.PublicKey, error) {
	keyID := verificationMethod
	if idx := strings.LastIndex(verificationMethod, "#"); idx >= 0 {
		keyID = verificationMethod[idx+1:]
	}
	if keyID == "" {
		return nil, ErrKeyNotFound
	}

	key, err := s.store.GetByID(ctx, keyID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("failed to look up signing key: %w", err)
	}
	if len(key.PublicKey) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: public key is %d bytes", ErrBadKeyMaterial, len(key.PublicKey))
	}
	return ed25519.PublicKey(key.PublicKey), nil
}

// RotateKey supersedes oldKeyID with a freshly generated key. The old record
// is marked rotated (never deleted) and the new record links back to it via
// previousKeyId. The two writes happen in one storage transaction.
func (s *KeyService) RotateKey(ctx context.Context, oldKeyID string) (*model.SigningKey, error) {
	old, err := s.store.GetByID(ctx, oldKeyID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("failed to look up signing key: %w", err)
	}
	if old.Status != model.KeyStatusActive {
		return nil, ErrKeyNotActive
	}

	lock := s.ownerLock(old.OwnerID)
	lock.Lock()
	defer lock.Unlock()

	newKey, err := s.newKeyRecord(old.OwnerID, old.Controller, &old.ID)
	if err != nil {
		return nil, err
	}
	if err := s.store.Rotate(ctx, old.ID, newKey); err != nil {
		return nil, fmt.Errorf("failed to rotate signing key: %w", err)
	}

	s.log.KeyEvent("rotated", newKey.ID, old.OwnerID)
	return newKey, nil
}

// RevokeKey marks a key revoked with a reason. The record is retained so
// signatures made before revocation remain verifiable.
func (s *KeyService) RevokeKey(ctx context.Context, keyID, reason string) error {
	if err := s.store.Revoke(ctx, keyID, reason); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrKeyNotFound
		}
		return fmt.Errorf("failed to revoke signing key: %w", err)
	}
	s.log.KeyEvent("revoked", keyID, "")
	return nil
}

// ListKeys returns all signing keys (public info only).
func (s *KeyService) ListKeys(ctx context.Context) ([]*model.SigningKeyInfo, error) {
	keys, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	infos := make([]*model.SigningKeyInfo, len(keys))
	for i, k := range keys {
		infos[i] = k.ToInfo()
	}
	return infos, nil
}

// ListOwnerKeys returns an owner's keys (public info only).
func (s *KeyService) ListOwnerKeys(ctx context.Context, ownerID string) ([]*model.SigningKeyInfo, error) {
	keys, err := s.store.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	infos := make([]*model.SigningKeyInfo, len(keys))
	for i, k := range keys {
		infos[i] = k.ToInfo()
	}
	return infos, nil
}

// --- internal ---

func (s *KeyService) newKeyRecord(ownerID, controller string, previousKeyID *string) (*model.SigningKey, error) {
	pub, priv, err := s.GenerateKeyPair()
	if err != nil {
		return nil, err
	}

	encrypted, err := s.envelope.Encrypt(base64.StdEncoding.EncodeToString(priv))
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt private key: %w", err)
	}

	return &model.SigningKey{
		ID:                  model.NewID("key"),
		OwnerID:             ownerID,
		PublicKey:           []byte(pub),
		EncryptedPrivateKey: encrypted,
		Controller:          controller,
		KeyType:             model.KeyTypeEd25519,
		Status:              model.KeyStatusActive,
		PreviousKeyID:       previousKeyID,
		CreatedAt:           time.Now(),
	}, nil
}

func (s *KeyService) decryptPrivateKey(key *model.SigningKey) (ed25519.PrivateKey, error) {
	if key.EncryptedPrivateKey == "" {
		return nil, ErrNoPrivateKey
	}

	plaintext, err := s.envelope.Decrypt(key.EncryptedPrivateKey)
	if err != nil {
		// crypto.ErrBlobTampered and crypto.ErrBlobMalformed pass
		// through so the caller sees an integrity failure, not a 404
		return nil, err
	}

	raw, err := base64.StdEncoding.DecodeString(plaintext)
	if err != nil || len(raw) != ed25519.PrivateKeySize {
		return nil, ErrBadKeyMaterial
	}
	return ed25519.PrivateKey(raw), nil
}

func (s *KeyService) ownerLock(ownerID string) *sync.Mutex {
	lock, _ := s.ownerLocks.LoadOrStore(ownerID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}
