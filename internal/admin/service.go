package admin

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net"
	"time"

	"github.com/alexedwards/argon2id"
	"golang.org/x/crypto/bcrypt"

	"github.com/fareone/bookings/internal/mailer"
	"github.com/fareone/bookings/internal/repo/postgres"
	"github.com/fareone/bookings/internal/utils"
	"github.com/fareone/bookings/pkg/auth"
	"github.com/fareone/bookings/pkg/logger"
)

var (
	// ErrInvalidCredentials covers a wrong email, a wrong password and a
	// non-admin account alike; callers must not distinguish them.
	ErrInvalidCredentials = errors.New("admin: invalid credentials")
	// ErrInvalidCode covers a wrong, expired or already-used login code.
	ErrInvalidCode = errors.New("admin: invalid or expired code")
)

// Service runs the two-step admin login: password first, then a short-lived
// one-time code delivered by email. A session token is only issued after
// both steps.
type Service struct {
	users    postgres.UsersRepo
	verify   postgres.VerifyRepo
	mail     mailer.Service
	secret   string
	tokenTTL time.Duration
	codeTTL  time.Duration
}

func NewService(users postgres.UsersRepo, verify postgres.VerifyRepo, mail mailer.Service, secret string, tokenTTL, codeTTL time.Duration) *Service {
	if codeTTL <= 0 {
		codeTTL = 5 * time.Minute
	}
	return &Service{users: users, verify: verify, mail: mail, secret: secret, tokenTTL: tokenTTL, codeTTL: codeTTL}
}

// PreLogin checks the password and, on success, issues a one-time code to
// the account's email. It never says which part of a bad attempt failed.
func (s *Service) PreLogin(ctx context.Context, email, password string, ip net.IP) error {
	email = utils.NormalizeEmail(email)

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil || user.Role != "admin" {
		return ErrInvalidCredentials
	}

	match, err := argon2id.ComparePasswordAndHash(password, user.PasswordHash)
	if err != nil || !match {
		return ErrInvalidCredentials
	}

	code, err := generateCode()
	if err != nil {
		return err
	}
	hashBytes, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	if err := s.verify.CreateLoginCode(ctx, email, string(hashBytes), time.Now().Add(s.codeTTL), ip); err != nil {
		return err
	}

	if err := s.mail.SendAdminLoginCode(email, code); err != nil {
		// The code exists; delivery trouble should not leak account state.
		logger.ErrorContext(ctx, "admin login code email failed", "error", err)
	}
	return nil
}

// generateCode draws a 6-digit one-time code from crypto/rand.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// Verify consumes a code and returns a signed admin session token.
func (s *Service) Verify(ctx context.Context, email, code string) (string, int64, error) {
	email = utils.NormalizeEmail(email)

	ok, err := s.verify.CheckLoginCode(ctx, email, code)
	if err != nil {
		return "", 0, err
	}
	if !ok {
		return "", 0, ErrInvalidCode
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return "", 0, err
	}
	if user == nil || user.Role != "admin" {
		return "", 0, ErrInvalidCode
	}

	token, err := auth.NewAccessToken(user.ID, user.Email, user.Name, user.Role, s.secret, s.tokenTTL)
	if err != nil {
		return "", 0, err
	}
	return token, int64(s.tokenTTL.Seconds()), nil
}
