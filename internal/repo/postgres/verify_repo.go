package postgres

import (
	"context"
	"net"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

// VerifyRepo stores the one-time codes for the admin two-step login.
type VerifyRepo interface {
	CreateLoginCode(ctx context.Context, email, codeHash string, expiresAt time.Time, ip net.IP) error
	CheckLoginCode(ctx context.Context, email, code string) (bool, error)
	DeleteExpiredCodes(ctx context.Context) (int64, error)
}

type VerifyRepoImpl struct{ pool *pgxpool.Pool }

func NewVerifyRepo(pool *pgxpool.Pool) *VerifyRepoImpl { return &VerifyRepoImpl{pool: pool} }

func (r *VerifyRepoImpl) CreateLoginCode(ctx context.Context, email, codeHash string, expiresAt time.Time, ip net.IP) error {
	const q = `
		INSERT INTO admin_login_codes(email, code_hash, expires_at, ip_created)
		VALUES($1,$2,$3,$4)
	`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.pool.Exec(ctx, q, email, codeHash, expiresAt, ip)
	return err
}

// CheckLoginCode validates the latest code issued for an email. A used or
// expired code fails; a wrong code bumps the attempt counter; a correct code
// is consumed so it cannot be replayed.
func (r *VerifyRepoImpl) CheckLoginCode(ctx context.Context, email, code string) (bool, error) {
	const q = `
		SELECT id, code_hash, expires_at, used_at, attempts
		FROM admin_login_codes
		WHERE lower(email)=lower($1)
		ORDER BY id DESC
		LIMIT 1
	`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var (
		id       int64
		hash     string
		expires  time.Time
		used     *time.Time
		attempts int
	)
	err := r.pool.QueryRow(ctx, q, email).Scan(&id, &hash, &expires, &used, &attempts)
	if err != nil {
		if err == pgx.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	if used != nil || attempts >= 5 || time.Now().After(expires) {
		return false, nil
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)); err != nil {
		_, _ = r.pool.Exec(ctx, `UPDATE admin_login_codes SET attempts=attempts+1 WHERE id=$1`, id)
		return false, nil
	}
	_, _ = r.pool.Exec(ctx, `UPDATE admin_login_codes SET used_at=now() WHERE id=$1`, id)
	return true, nil
}

func (r *VerifyRepoImpl) DeleteExpiredCodes(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `
DELETE FROM admin_login_codes
WHERE (used_at IS NOT NULL AND used_at < now() - interval '7 days')
   OR (used_at IS NULL AND expires_at < now() - interval '7 days')
`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

var _ VerifyRepo = (*VerifyRepoImpl)(nil)
