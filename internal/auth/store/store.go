package store

import (
	"context"
	"errors"
	"time"

	"github.com/kindergrid/kindergrid/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers implement this.
// Sub-repositories keep concerns tidy and testable, and make it harder to
// accidentally nest transactions.
type Store interface {
	Guardians() Guardians
	Dependents() Dependents
	Revocations() Revocations
	DependentSessions() DependentSessions

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction: rollback on error, commit on
	// nil. This is the recommended way to handle multi-step writes.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds
// Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Guardians interface {
	// GetByID returns a guardian by id.
	GetByID(ctx context.Context, id string) (domain.Guardian, error)

	// GetByUsername is used during login.
	GetByUsername(ctx context.Context, username string) (domain.Guardian, error)

	// Create inserts a new guardian (id is provided by the app via ULID).
	Create(ctx context.Context, g domain.Guardian) error

	// UpdateMFASecret sets the TOTP secret and bumps updated_at.
	UpdateMFASecret(ctx context.Context, guardianID, secret string) error
}

type Dependents interface {
	// GetByID returns a dependent profile by id.
	GetByID(ctx context.Context, id string) (domain.Dependent, error)

	// ListByGuardian returns all dependents created by a guardian.
	ListByGuardian(ctx context.Context, guardianID string) ([]domain.Dependent, error)

	// Create inserts a new dependent profile under its guardian.
	Create(ctx context.Context, d domain.Dependent) error
}

// Revocations is the shared revocation set read by every verifier. The
// implementation must be safe under arbitrary concurrent reads and writes
// from many service instances with no coordination between them.
type Revocations interface {
	// Revoke records a revocation. Write-once and idempotent: revoking an
	// already-revoked token is a no-op, not an error.
	Revoke(ctx context.Context, e domain.RevocationEntry) error

	// IsRevoked is the read path used by every Verify call.
	IsRevoked(ctx context.Context, tokenID string) (bool, error)

	// DeleteExpired removes entries whose token expired before the given
	// time. Run by housekeeping, never inline with a verification.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// DependentSessions is the best-effort index of live dependent tokens per
// guardian, used only by forced mass-logout.
type DependentSessions interface {
	// Create records a freshly issued dependent token. Failures here must
	// not fail token issuance.
	Create(ctx context.Context, s domain.DependentSession) error

	// ListActiveByGuardian returns index rows for a guardian whose tokens
	// have not yet expired.
	ListActiveByGuardian(ctx context.Context, guardianID string, now time.Time) ([]domain.DependentSession, error)

	// DeleteExpired removes rows for tokens expired before the given time.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
