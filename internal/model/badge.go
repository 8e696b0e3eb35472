package model

import "time"

// BadgeClass describes an achievement that can be awarded by an issuer.
type BadgeClass struct {
	ID          string    `json:"id"`
	IssuerID    string    `json:"issuerId"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Criteria    string    `json:"criteria,omitempty"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}
