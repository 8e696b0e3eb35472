package model

import (
	"encoding/json"
	"time"
)

// Assertion is an awarded badge: the credential document (signed or legacy)
// plus its revocation state. Revoking sets the flag and keeps the record.
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
