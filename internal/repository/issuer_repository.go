package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/badgeforge/badgeforge/internal/database"
	"github.com/badgeforge/badgeforge/internal/model"
)

// IssuerRepository handles issuer persistence.
type IssuerRepository struct {
	db *database.Postgres
}

// NewIssuerRepository creates a new IssuerRepository.
func NewIssuerRepository(db *database.Postgres) *IssuerRepository {
	return &IssuerRepository{db: db}
}

// Create stores a new issuer.
func (r *IssuerRepository) Create(ctx context.Context, issuer *model.Issuer) error {
	query := `
		INSERT INTO issuers (id, name, url, email, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		issuer.ID, issuer.Name, issuer.URL, issuer.Email, issuer.Description, issuer.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create issuer: %w", err)
	}
	return nil
}

// GetByID retrieves an issuer by ID.
func (r *IssuerRepository) GetByID(ctx context.Context, id string) (*model.Issuer, error) {
	query := `
		SELECT id, name, url, email, description, created_at
		FROM issuers
		WHERE id = $1
	`
	var issuer model.Issuer
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&issuer.ID, &issuer.Name, &issuer.URL, &issuer.Email, &issuer.Description, &issuer.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan issuer: %w", err)
	}
	return &issuer, nil
}

// List lists all issuers.
func (r *IssuerRepository) List(ctx context.Context) ([]*model.Issuer, error) {
	query := `
		SELECT id, name, url, email, description, created_at
		FROM issuers
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list issuers: %w", err)
	}
	defer rows.Close()

	var issuers []*model.Issuer
	for rows.Next() {
		var issuer model.Issuer
		if err := rows.Scan(
			&issuer.ID, &issuer.Name, &issuer.URL, &issuer.Email, &issuer.Description, &issuer.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan issuer: %w", err)
		}
		issuers = append(issuers, &issuer)
	}
	return issuers, rows.Err()
}
