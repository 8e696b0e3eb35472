package model

import "time"

// Signing key lifecycle statuses.
const (
	KeyStatusActive  = "active"
	KeyStatusRotated = "rotated"
	KeyStatusRevoked = "revoked"
)

// KeyTypeEd25519 is the verification method type recorded for every key.
const KeyTypeEd25519 = "Ed25519VerificationKey2020"

// SigningKey represents an issuer signing key stored in the database.
// EncryptedPrivateKey, once written, is only ever read back for decryption;
// rotation creates a new record instead of mutating it, and revoked keys are
// retained so historical signatures stay verifiable.
type SigningKey struct {
	ID                  string     `json:"id"`
	OwnerID             string     `json:"ownerId"`
	PublicKey           []byte     `json:"-"`
	EncryptedPrivateKey string     `json:"-"`
	Controller          string     `json:"controller"`
	KeyType             string     `json:"keyType"`
	Status              string     `json:"status"`
	PreviousKeyID       *string    `json:"previousKeyId,omitempty"`
	CreatedAt           time.Time  `json:"createdAt"`
	RevokedAt           *time.Time `json:"revokedAt,omitempty"`
	RevocationReason    *string    `json:"revocationReason,omitempty"`
}

// VerificationMethod returns the key identifier embedded in proofs:
// the controller reference with the key id as fragment.
func (k *SigningKey) VerificationMethod() string {
	return k.Controller + "#" + k.ID
}

// SigningKeyInfo is the public view of a signing key (no private material).
type SigningKeyInfo struct {
	ID               string     `json:"id"`
	OwnerID          string     `json:"ownerId"`
	Controller       string     `json:"controller"`
	KeyType          string     `json:"keyType"`
	Status           string     `json:"status"`
	PreviousKeyID    *string    `json:"previousKeyId,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	RevokedAt        *time.Time `json:"revokedAt,omitempty"`
	RevocationReason *string    `json:"revocationReason,omitempty"`
}

// ToInfo converts a SigningKey to its public-safe representation.
func (k *SigningKey) ToInfo() *SigningKeyInfo {
	return &SigningKeyInfo{
		ID:               k.ID,
		OwnerID:          k.OwnerID,
		Controller:       k.Controller,
		KeyType:          k.KeyType,
		Status:           k.Status,
		PreviousKeyID:    k.PreviousKeyID,
		CreatedAt:        k.CreatedAt,
		RevokedAt:        k.RevokedAt,
		RevocationReason: k.RevocationReason,
	}
}
