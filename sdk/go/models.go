package badgeforge

import (
	"encoding/json"
	"time"
)

// CreateIssuerRequest registers a badge-issuing organization.
type CreateIssuerRequest struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Email       string `json:"email,omitempty"`
	Description string `json:"description,omitempty"`
}

// Issuer is a badge-issuing organization.
type Issuer struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	URL         string    `json:"url"`
	Email       string    `json:"email,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// IssuerKey is the publicly consumable form of an issuer's active
// verification key.
type IssuerKey struct {
	KeyID              string `json:"keyId"`
	Controller         string `json:"controller"`
	VerificationMethod string `json:"verificationMethod"`
	Type               string `json:"type"`
	PublicKeyBase64    string `json:"publicKeyBase64"`
}

// CreateBadgeClassRequest defines an achievement under an issuer.
type CreateBadgeClassRequest struct {
	IssuerID    string `json:"issuerId"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Criteria    string `json:"criteria,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
}

// BadgeClass describes an achievement that can be awarded.
type BadgeClass struct {
	ID          string    `json:"id"`
	IssuerID    string    `json:"issuerId"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Criteria    string    `json:"criteria,omitempty"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// IssueAssertionRequest awards a badge to a recipient. Mode is "compact"
// or "data-integrity"; the default is "data-integrity".
type IssueAssertionRequest struct {
	BadgeClassID string `json:"badgeClassId"`
	RecipientID  string `json:"recipientId"`
	Mode         string `json:"mode,omitempty"`
}

// Assertion is an awarded badge with its signed credential document.
type Assertion struct {
	ID               string          `json:"id"`
	BadgeClassID     string          `json:"badgeClassId"`
	IssuerID         string          `json:"issuerId"`
	RecipientID      string          `json:"recipientId"`
	Document         json.RawMessage `json:"document"`
	Revoked          bool            `json:"revoked"`
	RevocationReason *string         `json:"revocationReason,omitempty"`
	IssuedAt         time.Time       `json:"issuedAt"`
	RevokedAt        *time.Time      `json:"revokedAt,omitempty"`
}

// IssueAssertionResponse is returned after awarding a badge.
type IssueAssertionResponse struct {
	Assertion *Assertion `json:"assertion"`
	Token     string     `json:"token,omitempty"`
}

// VerificationChecks reports the outcome of each verification step. A nil
// value means the check was not applicable.
type VerificationChecks struct {
	Structure  *bool `json:"structure,omitempty"`
	Revocation *bool `json:"revocation,omitempty"`
	Signature  *bool `json:"signature,omitempty"`
}

// VerificationResult is the outcome of the verification pipeline.
type VerificationResult struct {
	Valid  bool               `json:"valid"`
	Checks VerificationChecks `json:"checks"`
	Errors []string           `json:"errors,omitempty"`
}
