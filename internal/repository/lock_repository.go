package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"
)

// LockRepository is the cross-instance mutual-exclusion primitive. A lock is
// free once its expiry passes, whether or not the holder released it, so a
// crashed run never wedges the job permanently.
type LockRepository interface {
	Acquire(ctx context.Context, name, owner string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, name, owner string) error
}

type lockRepository struct {
	db *sql.DB
}

func NewLockRepository(db *sql.DB) LockRepository {
	return &lockRepository{db: db}
}

// Acquire takes the lock in a single atomic statement: the insert wins when
// no row exists, the conditional update wins when the existing row has
// expired. A live lock held by someone else affects zero rows.
func (r *lockRepository) Acquire(ctx context.Context, name, owner string, ttl time.Duration) (bool, error) {
	query := `
		INSERT INTO job_locks (name, owner, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE
		SET owner = EXCLUDED.owner,
			expires_at = EXCLUDED.expires_at
		WHERE job_locks.expires_at <= now()
	`
	result, err := r.db.ExecContext(ctx, query, name, owner, time.Now().Add(ttl))
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affected == 1, nil
}

// Release frees the lock early. Scoped to the owner so a slow run that
// outlived its TTL cannot release a successor's lock.
func (r *lockRepository) Release(ctx context.Context, name, owner string) error {
	query := `DELETE FROM job_locks WHERE name = $1 AND owner = $2`
	_, err := r.db.ExecContext(ctx, query, name, owner)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
