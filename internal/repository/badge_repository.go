package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/badgeforge/badgeforge/internal/database"
	"github.com/badgeforge/badgeforge/internal/model"
)

// BadgeClassRepository handles badge class persistence.
type BadgeClassRepository struct {
	db *database.Postgres
}

// NewBadgeClassRepository creates a new BadgeClassRepository.
func NewBadgeClassRepository(db *database.Postgres) *BadgeClassRepository {
	return &BadgeClassRepository{db: db}
}

// Create stores a new badge class.
func (r *BadgeClassRepository) Create(ctx context.Context, badge *model.BadgeClass) error {
	query := `
		INSERT INTO badge_classes (id, issuer_id, name, description, criteria, image_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		badge.ID, badge.IssuerID, badge.Name, badge.Description, badge.Criteria, badge.ImageURL, badge.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create badge class: %w", err)
	}
	return nil
}

// GetByID retrieves a badge class by ID.
func (r *BadgeClassRepository) GetByID(ctx context.Context, id string) (*model.BadgeClass, error) {
	query := `
		SELECT id, issuer_id, name, description, criteria, image_url, created_at
		FROM badge_classes
		WHERE id = $1
	`
	var badge model.BadgeClass
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&badge.ID, &badge.IssuerID, &badge.Name, &badge.Description, &badge.Criteria, &badge.ImageURL, &badge.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan badge class: %w", err)
	}
	return &badge, nil
}

// ListByIssuer lists all badge classes owned by an issuer.
func (r *BadgeClassRepository) ListByIssuer(ctx context.Context, issuerID string) ([]*model.BadgeClass, error) {
	query := `
		SELECT id, issuer_id, name, description, criteria, image_url, created_at
		FROM badge_classes
		WHERE issuer_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, issuerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list badge classes: %w", err)
	}
	defer rows.Close()

	var badges []*model.BadgeClass
	for rows.Next() {
		var badge model.BadgeClass
		if err := rows.Scan(
			&badge.ID, &badge.IssuerID, &badge.Name, &badge.Description, &badge.Criteria, &badge.ImageURL, &badge.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan badge class: %w", err)
		}
		badges = append(badges, &badge)
	}
	return badges, rows.Err()
}
