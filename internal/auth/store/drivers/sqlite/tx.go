package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/kindergrid/kindergrid/internal/auth/store"
)

// storeTx is a transaction-scoped Store. Its repos run against the *sql.Tx.
type storeTx struct {
	db *sql.DB
	tx *sql.Tx
}

func newTx(db *sql.DB, tx *sql.Tx) *storeTx {
	return &storeTx{db: db, tx: tx}
}

func (t *storeTx) Guardians() store.Guardians                 { return &guardiansRepo{q: t.tx} }
func (t *storeTx) Dependents() store.Dependents               { return &dependentsRepo{q: t.tx} }
func (t *storeTx) Revocations() store.Revocations             { return &revocationsRepo{q: t.tx} }
func (t *storeTx) DependentSessions() store.DependentSessions { return &sessionsRepo{q: t.tx} }

func (t *storeTx) Commit() error { return t.tx.Commit() }

func (t *storeTx) Rollback() error {
	err := t.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

// Nested transactions are a bug; make it explicit.
func (t *storeTx) Tx(ctx context.Context) (store.Tx, error) {
	return nil, errors.New("sqlite: nested transactions are not supported")
}

func (t *storeTx) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return errors.New("sqlite: nested transactions are not supported")
}

func (t *storeTx) ApplyMigrations() error {
	return errors.New("sqlite: cannot migrate inside a transaction")
}

func (t *storeTx) Close() error { return nil }

func (t *storeTx) Ping(ctx context.Context) error {
	return t.db.PingContext(ctx)
}
