package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/badgeforge/badgeforge/internal/database"
	"github.com/badgeforge/badgeforge/internal/model"
)

// AssertionRepository handles badge assertion persistence.
type AssertionRepository struct {
	db *database.Postgres
}

// NewAssertionRepository creates a new AssertionRepository.
func NewAssertionRepository(db *database.Postgres) *AssertionRepository {
	return &AssertionRepository{db: db}
}

const assertionColumns = `id, badge_class_id, issuer_id, recipient_id, document, revoked, revocation_reason, issued_at, revoked_at`

// Create stores a new assertion.
func (r *AssertionRepository) Create(ctx context.Context, assertion *model.Assertion) error {
	query := `
		INSERT INTO assertions (` + assertionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		assertion.ID,
		assertion.BadgeClassID,
		assertion.IssuerID,
		assertion.RecipientID,
		[]byte(assertion.Document),
		assertion.Revoked,
		assertion.RevocationReason,
		assertion.IssuedAt,
		assertion.RevokedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create assertion: %w", err)
	}
	return nil
}

// GetByID retrieves an assertion by ID.
func (r *AssertionRepository) GetByID(ctx context.Context, id string) (*model.Assertion, error) {
	query := `
		SELECT ` + assertionColumns + `
		FROM assertions
		WHERE id = $1
	`
	var assertion model.Assertion
	var document []byte
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&assertion.ID, &assertion.BadgeClassID, &assertion.IssuerID, &assertion.RecipientID,
		&document, &assertion.Revoked, &assertion.RevocationReason,
		&assertion.IssuedAt, &assertion.RevokedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan assertion: %w", err)
	}
	assertion.Document = document
	return &assertion, nil
}

// Revoke marks an assertion revoked. The record is retained.
func (r *AssertionRepository) Revoke(ctx context.Context, id, reason string) error {
	query := `
		UPDATE assertions
		SET revoked = TRUE, revocation_reason = $1, revoked_at = $2
		WHERE id = $3
	`
	result, err := r.db.ExecContext(ctx, query, reason, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to revoke assertion: %w", err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByIssuer lists assertions issued by an issuer, newest first.
func (r *AssertionRepository) ListByIssuer(ctx context.Context, issuerID string) ([]*model.Assertion, error) {
	query := `
		SELECT ` + assertionColumns + `
		FROM assertions
		WHERE issuer_id = $1
		ORDER BY issued_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, issuerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assertions: %w", err)
	}
	defer rows.Close()

	var assertions []*model.Assertion
	for rows.Next() {
		var assertion model.Assertion
		var document []byte
		if err := rows.Scan(
			&assertion.ID, &assertion.BadgeClassID, &assertion.IssuerID, &assertion.RecipientID,
			&document, &assertion.Revoked, &assertion.RevocationReason,
			&assertion.IssuedAt, &assertion.RevokedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan assertion: %w", err)
		}
		assertion.Document = document
		assertions = append(assertions, &assertion)
	}
	return assertions, rows.Err()
}
