package postgres

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// IdempotencyRepo deduplicates booking submissions that carry an
// Idempotency-Key header, so a client retry does not create a second order.
type IdempotencyRepo interface {
	// CheckOrCreate returns the order id previously stored under key, or
	// records orderID under it and returns "".
	CheckOrCreate(ctx context.Context, key, orderID string) (string, error)
	CleanupExpired(ctx context.Context) (int64, error)
}

type IdempotencyRepoImpl struct {
	pool *pgxpool.Pool
}

func NewIdempotencyRepo(pool *pgxpool.Pool) *IdempotencyRepoImpl {
	return &IdempotencyRepoImpl{pool: pool}
}

func (r *IdempotencyRepoImpl) CheckOrCreate(ctx context.Context, key, orderID string) (string, error) {
	keyHash := fmt.Sprintf("%x", sha256.Sum256([]byte(key)))

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var existing string
	err := r.pool.QueryRow(ctx, `SELECT order_id FROM order_idempotency WHERE key_hash = $1`, keyHash).Scan(&existing)
	if err == nil {
		return existing, nil
	}
	if err != pgx.ErrNoRows {
		return "", err
	}

	if orderID != "" {
		const q = `
			INSERT INTO order_idempotency (key_hash, order_id, expires_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (key_hash) DO NOTHING`
		if _, err := r.pool.Exec(ctx, q, keyHash, orderID, time.Now().Add(24*time.Hour)); err != nil {
			return "", err
		}
	}
	return "", nil
}

func (r *IdempotencyRepoImpl) CleanupExpired(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `DELETE FROM order_idempotency WHERE expires_at < now()`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

var _ IdempotencyRepo = (*IdempotencyRepoImpl)(nil)
