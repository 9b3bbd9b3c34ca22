package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tillcore/pos/internal/domain/credential"
)

const (
	getCredentialSQL = `SELECT value FROM admin_credential WHERE key = $1`

	setCredentialSQL = `INSERT INTO admin_credential (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`
)

var _ credential.Repository = (*CredentialRepository)(nil)

// CredentialRepository stores the single administrator secret digest.
type CredentialRepository struct {
	pool *pgxpool.Pool
}

// NewCredentialRepository returns a CredentialRepository that uses the
// given pool.
func NewCredentialRepository(pool *pgxpool.Pool) *CredentialRepository {
	return &CredentialRepository{pool: pool}
}

// Get returns the stored digest, or credential.ErrNotConfigured when the
// row does not exist yet.
func (r *CredentialRepository) Get(ctx context.Context) (string, error) {
	var digest string
	err := r.pool.QueryRow(ctx, getCredentialSQL, credential.StorageKey).Scan(&digest)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", credential.ErrNotConfigured
		}
		return "", fmt.Errorf("getting credential: %w", err)
	}
	return digest, nil
}

// Set upserts the digest, replacing any prior value.
func (r *CredentialRepository) Set(ctx context.Context, digest string) error {
	if _, err := r.pool.Exec(ctx, setCredentialSQL, credential.StorageKey, digest); err != nil {
		return fmt.Errorf("storing credential: %w", err)
	}
	return nil
}
