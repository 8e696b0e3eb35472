package model

import "time"

// Issuer represents a badge-issuing organization.
type Issuer struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	URL         string    `json:"url"`
	Email       string    `json:"email,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Controller returns the DID-like controller reference used in
// verification methods for keys owned by this issuer.
func (i *Issuer) Controller() string {
	return "did:web:" + i.ID
}
