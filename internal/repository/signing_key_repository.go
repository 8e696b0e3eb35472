package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/badgeforge/badgeforge/internal/database"
	"github.com/badgeforge/badgeforge/internal/model"
)

// SigningKeyRepository handles signing key persistence.
type SigningKeyRepository struct {
	db *database.Postgres
}

// NewSigningKeyRepository creates a new SigningKeyRepository.
func NewSigningKeyRepository(db *database.Postgres) *SigningKeyRepository {
	return &SigningKeyRepository{db: db}
}

const signingKeyColumns = `id, owner_id, public_key, private_key_enc, controller, key_type, status, previous_key_id, created_at, revoked_at, revocation_reason`

// Create stores a new signing key.
func (r *SigningKeyRepository) Create(ctx context.Context, key *model.SigningKey) error {
	query := `
		INSERT INTO signing_keys (` + signingKeyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.ExecContext(ctx, query,
		key.ID,
		key.OwnerID,
		key.PublicKey,
		key.EncryptedPrivateKey,
		key.Controller,
		key.KeyType,
		key.Status,
		key.PreviousKeyID,
		key.CreatedAt,
		key.RevokedAt,
		key.RevocationReason,
	)
	if err != nil {
		return fmt.Errorf("failed to create signing key: %w", err)
	}
	return nil
}

// GetActiveByOwner retrieves the active signing key for an owner.
func (r *SigningKeyRepository) GetActiveByOwner(ctx context.Context, ownerID string) (*model.SigningKey, error) {
	query := `
		SELECT ` + signingKeyColumns + `
		FROM signing_keys
		WHERE owner_id = $1 AND status = $2
		ORDER BY created_at DESC
		LIMIT 1
	`
	return r.scanKey(r.db.QueryRowContext(ctx, query, ownerID, model.KeyStatusActive))
}

// GetByID retrieves a signing key by ID, regardless of status. Rotated and
// revoked keys stay readable so historical signatures remain verifiable.
func (r *SigningKeyRepository) GetByID(ctx context.Context, id string) (*model.SigningKey, error) {
	query := `
		SELECT ` + signingKeyColumns + `
		FROM signing_keys
		WHERE id = $1
	`
	return r.scanKey(r.db.QueryRowContext(ctx, query, id))
}

// ListByOwner lists all signing keys for an owner, newest first.
func (r *SigningKeyRepository) ListByOwner(ctx context.Context, ownerID string) ([]*model.SigningKey, error) {
	query := `
		SELECT ` + signingKeyColumns + `
		FROM signing_keys
		WHERE owner_id = $1
		ORDER BY created_at DESC
	`
	return r.queryKeys(ctx, query, ownerID)
}

// ListAll lists all signing keys.
func (r *SigningKeyRepository) ListAll(ctx context.Context) ([]*model.SigningKey, error) {
	query := `
		SELECT ` + signingKeyColumns + `
		FROM signing_keys
		ORDER BY created_at DESC
	`
	return r.queryKeys(ctx, query)
}

// Rotate atomically marks the old key rotated and inserts its replacement.
// The conditional status update means a concurrent rotation of the same key
// loses with ErrConflict instead of producing two active keys.
func (r *SigningKeyRepository) Rotate(ctx context.Context, oldID string, newKey *model.SigningKey) error {
	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin rotation transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE signing_keys SET status = $1 WHERE id = $2 AND status = $3`,
		model.KeyStatusRotated, oldID, model.KeyStatusActive,
	)
	if err != nil {
		return fmt.Errorf("failed to deactivate old signing key: %w", err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrConflict
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO signing_keys (`+signingKeyColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		newKey.ID,
		newKey.OwnerID,
		newKey.PublicKey,
		newKey.EncryptedPrivateKey,
		newKey.Controller,
		newKey.KeyType,
		newKey.Status,
		newKey.PreviousKeyID,
		newKey.CreatedAt,
		newKey.RevokedAt,
		newKey.RevocationReason,
	)
	if err != nil {
		return fmt.Errorf("failed to insert replacement signing key: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rotation: %w", err)
	}
	return nil
}

// Revoke marks a signing key revoked. The record is retained.
func (r *SigningKeyRepository) Revoke(ctx context.Context, id, reason string) error {
	query := `
		UPDATE signing_keys
		SET status = $1, revoked_at = $2, revocation_reason = $3
		WHERE id = $4 AND status != $1
	`
	result, err := r.db.ExecContext(ctx, query, model.KeyStatusRevoked, time.Now(), reason, id)
	if err != nil {
		return fmt.Errorf("failed to revoke signing key: %w", err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SigningKeyRepository) queryKeys(ctx context.Context, query string, args ...interface{}) ([]*model.SigningKey, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query signing keys: %w", err)
	}
	defer rows.Close()

	var keys []*model.SigningKey
	for rows.Next() {
		var key model.SigningKey
		if err := rows.Scan(
			&key.ID, &key.OwnerID, &key.PublicKey, &key.EncryptedPrivateKey,
			&key.Controller, &key.KeyType, &key.Status, &key.PreviousKeyID,
			&key.CreatedAt, &key.RevokedAt, &key.RevocationReason,
		); err != nil {
			return nil, fmt.Errorf("failed to scan signing key: %w", err)
		}
		keys = append(keys, &key)
	}
	return keys, rows.Err()
}

func (r *SigningKeyRepository) scanKey(row *sql.Row) (*model.SigningKey, error) {
	var key model.SigningKey
	err := row.Scan(
		&key.ID, &key.OwnerID, &key.PublicKey, &key.EncryptedPrivateKey,
		&key.Controller, &key.KeyType, &key.Status, &key.PreviousKeyID,
		&key.CreatedAt, &key.RevokedAt, &key.RevocationReason,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan signing key: %w", err)
	}
	return &key, nil
}
