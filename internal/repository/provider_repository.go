package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stockfolio/performance-backend/internal/apperrors"
)

// ProviderRepository provides data access methods for the provider_config
// table, which holds the market data provider's API token. The token column
// stores fernet ciphertext; encryption and decryption happen in the secret
// package, never here.
type ProviderRepository struct {
	db *sql.DB
}

// NewProviderRepository creates a new ProviderRepository with the provided database connection.
func NewProviderRepository(db *sql.DB) *ProviderRepository {
	return &ProviderRepository{db: db}
}

// GetEncryptedToken retrieves the stored (still encrypted) API token.
// Returns apperrors.ErrProviderConfigNotFound when no configuration exists.
func (r *ProviderRepository) GetEncryptedToken() (string, error) {
	query := `
		SELECT api_token
		FROM provider_config
		ORDER BY updated_at DESC
		LIMIT 1
	`

	var token string
	err := r.db.QueryRow(query).Scan(&token)
	if err == sql.ErrNoRows {
		return "", apperrors.ErrProviderConfigNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to query provider_config: %w", err)
	}

	return token, nil
}

// SetEncryptedToken stores an already-encrypted API token, replacing any
// previous configuration.
func (r *ProviderRepository) SetEncryptedToken(ctx context.Context, encryptedToken string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin provider_config update: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM provider_config`); err != nil {
		return fmt.Errorf("failed to clear provider_config: %w", err)
	}

	query := `
		INSERT INTO provider_config (id, api_token, updated_at)
		VALUES (?, ?, ?)
	`

	_, err = tx.ExecContext(ctx, query,
		uuid.New().String(),
		encryptedToken,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert provider_config: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit provider_config update: %w", err)
	}

	return nil
}
