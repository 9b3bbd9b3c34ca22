// Package credential manages the single administrator secret that gates
// destructive ledger operations. The secret is stored only as a one-way
// HMAC-SHA256 digest; plaintext is never persisted or logged.
package credential

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/go-faster/errors"
)

// StorageKey is the row key under which the digest is stored.
const StorageKey = "admin_hash"

// MinSecretLength is the minimum accepted secret length.
const MinSecretLength = 6

// Lifecycle and validation errors.
var (
	// ErrNotConfigured is returned while no administrator secret exists.
	// Guarded operations must refuse to start and redirect the caller into
	// the secret-creation path.
	ErrNotConfigured = errors.New("administrator secret not configured")

	ErrSecretTooShort  = errors.Errorf("secret must be at least %d characters", MinSecretLength)
	ErrSecretUnchanged = errors.New("new secret must differ from the current one")

	// ErrBadSecret is returned by ChangeSecret when the current secret does
	// not verify.
	ErrBadSecret = errors.New("current secret does not verify")
)

// Repository stores the zero-or-one digest value.
type Repository interface {
	// Get returns the stored digest, or ErrNotConfigured.
	Get(ctx context.Context) (string, error)
	// Set persists the digest, replacing any prior value.
	Set(ctx context.Context, digest string) error
}

// Service implements the credential lifecycle over a Repository.
type Service struct {
	repo   Repository
	pepper []byte
}

// NewService creates a credential service. The pepper is mixed into every
// digest so a leaked database alone is not enough to brute-force the secret
// offline.
func NewService(repo Repository, pepper []byte) *Service {
	return &Service{repo: repo, pepper: pepper}
}

// IsConfigured reports whether an administrator secret exists.
func (s *Service) IsConfigured(ctx context.Context) (bool, error) {
	_, err := s.repo.Get(ctx)
	if err != nil {
		if errors.Is(err, ErrNotConfigured) {
			return false, nil
		}
		return false, errors.Wrap(err, "load credential")
	}
	return true, nil
}

// SetSecret digests and persists plaintext, overwriting any prior digest.
func (s *Service) SetSecret(ctx context.Context, plaintext string) error {
	if len(plaintext) < MinSecretLength {
		return ErrSecretTooShort
	}
	if err := s.repo.Set(ctx, s.digest(plaintext)); err != nil {
		return errors.Wrap(err, "store credential")
	}
	return nil
}

// Verify reports whether plaintext matches the stored digest. Exact digest
// equality is the sole success criterion. Returns ErrNotConfigured while no
// secret exists so callers cannot mistake "no secret" for "wrong secret".
func (s *Service) Verify(ctx context.Context, plaintext string) (bool, error) {
	stored, err := s.repo.Get(ctx)
	if err != nil {
		if errors.Is(err, ErrNotConfigured) {
			return false, ErrNotConfigured
		}
		return false, errors.Wrap(err, "load credential")
	}
	return hmac.Equal([]byte(stored), []byte(s.digest(plaintext))), nil
}

// ChangeSecret replaces the secret. The current secret must verify, and the
// new one must differ from it and meet the minimum length. After a
// successful change the old secret no longer verifies.
func (s *Service) ChangeSecret(ctx context.Context, current, next string) error {
	ok, err := s.Verify(ctx, current)
	if err != nil {
		return err
	}
	if !ok {
		return ErrBadSecret
	}
	if len(next) < MinSecretLength {
		return ErrSecretTooShort
	}
	if next == current {
		return ErrSecretUnchanged
	}
	if err := s.repo.Set(ctx, s.digest(next)); err != nil {
		return errors.Wrap(err, "store credential")
	}
	return nil
}

// digest computes the hex HMAC-SHA256 of plaintext under the pepper.
func (s *Service) digest(plaintext string) string {
	mac := hmac.New(sha256.New, s.pepper)
	mac.Write([]byte(plaintext))
	return hex.EncodeToString(mac.Sum(nil))
}
