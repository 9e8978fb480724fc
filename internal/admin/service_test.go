package admin_test

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"
	"golang.org/x/crypto/bcrypt"

	"github.com/fareone/bookings/internal/admin"
	"github.com/fareone/bookings/internal/domain"
	"github.com/fareone/bookings/pkg/auth"
)

// ---------- Mocks ----------

type mockUsers struct {
	byEmail map[string]*domain.User
}

func (m *mockUsers) Create(context.Context, string, string, string, string) (*domain.User, error) {
	return nil, errors.New("not implemented")
}

func (m *mockUsers) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	return m.byEmail[email], nil
}

func (m *mockUsers) FindByID(context.Context, int64) (*domain.User, error) {
	return nil, errors.New("not implemented")
}

type mockVerify struct {
	lastEmail string
	lastHash  string
	expires   time.Time
	used      bool
}

func (m *mockVerify) CreateLoginCode(_ context.Context, email, codeHash string, expiresAt time.Time, _ net.IP) error {
	m.lastEmail = email
	m.lastHash = codeHash
	m.expires = expiresAt
	m.used = false
	return nil
}

func (m *mockVerify) CheckLoginCode(_ context.Context, email, code string) (bool, error) {
	if m.used || email != m.lastEmail || time.Now().After(m.expires) {
		return false, nil
	}
	if bcrypt.CompareHashAndPassword([]byte(m.lastHash), []byte(code)) != nil {
		return false, nil
	}
	m.used = true
	return true, nil
}

func (m *mockVerify) DeleteExpiredCodes(context.Context) (int64, error) { return 0, nil }

type mockMailer struct {
	lastTo   string
	lastCode string
}

func (m *mockMailer) Send(toEmail, _, _, _, _ string) (string, error) {
	m.lastTo = toEmail
	return "mock-id", nil
}

func (m *mockMailer) SendAdminLoginCode(email, code string) error {
	m.lastTo = email
	m.lastCode = code
	return nil
}

func (m *mockMailer) SendBookingConfirmation(*domain.Order) error { return nil }

const secret = "test-secret"

func newService(t *testing.T) (*admin.Service, *mockVerify, *mockMailer) {
	t.Helper()
	hash, err := argon2id.CreateHash("hunter2-but-long", argon2id.DefaultParams)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	users := &mockUsers{byEmail: map[string]*domain.User{
		"ops@fare1.co.uk": {ID: 7, Email: "ops@fare1.co.uk", Name: "Ops", PasswordHash: hash, Role: "admin"},
		"jo@example.com":  {ID: 8, Email: "jo@example.com", PasswordHash: hash, Role: "rider"},
	}}
	verify := &mockVerify{}
	mail := &mockMailer{}
	return admin.NewService(users, verify, mail, secret, 15*time.Minute, 5*time.Minute), verify, mail
}

// ---------- Tests ----------

func TestPreLoginSendsCode(t *testing.T) {
	svc, verify, mail := newService(t)

	if err := svc.PreLogin(context.Background(), "Ops@Fare1.co.uk", "hunter2-but-long", nil); err != nil {
		t.Fatalf("PreLogin: %v", err)
	}
	if verify.lastEmail != "ops@fare1.co.uk" {
		t.Errorf("code stored for %q, want normalized email", verify.lastEmail)
	}
	if len(mail.lastCode) != 6 {
		t.Errorf("code %q, want 6 digits", mail.lastCode)
	}
}

func TestLoginCodesVary(t *testing.T) {
	svc, _, mail := newService(t)

	seen := make(map[string]bool)
	for i := 0; i < 5; i++ {
		if err := svc.PreLogin(context.Background(), "ops@fare1.co.uk", "hunter2-but-long", nil); err != nil {
			t.Fatalf("PreLogin %d: %v", i, err)
		}
		seen[mail.lastCode] = true
	}
	if len(seen) < 2 {
		t.Errorf("got the same code %q across 5 logins", mail.lastCode)
	}
}

func TestPreLoginWrongPassword(t *testing.T) {
	svc, _, mail := newService(t)

	err := svc.PreLogin(context.Background(), "ops@fare1.co.uk", "wrong", nil)
	if !errors.Is(err, admin.ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
	if mail.lastCode != "" {
		t.Error("no code may be sent for a wrong password")
	}
}

func TestPreLoginNonAdmin(t *testing.T) {
	svc, _, _ := newService(t)

	err := svc.PreLogin(context.Background(), "jo@example.com", "hunter2-but-long", nil)
	if !errors.Is(err, admin.ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials for non-admin", err)
	}
}

func TestVerifyIssuesAdminToken(t *testing.T) {
	svc, _, mail := newService(t)

	if err := svc.PreLogin(context.Background(), "ops@fare1.co.uk", "hunter2-but-long", nil); err != nil {
		t.Fatalf("PreLogin: %v", err)
	}

	token, expiresIn, err := svc.Verify(context.Background(), "ops@fare1.co.uk", mail.lastCode)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if expiresIn != int64((15 * time.Minute).Seconds()) {
		t.Errorf("expiresIn = %d", expiresIn)
	}

	claims, err := auth.Parse(token, secret)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.Role != "admin" || claims.Sub != 7 {
		t.Errorf("claims = %+v", claims)
	}
}

func TestVerifyCodeSingleUse(t *testing.T) {
	svc, _, mail := newService(t)

	if err := svc.PreLogin(context.Background(), "ops@fare1.co.uk", "hunter2-but-long", nil); err != nil {
		t.Fatalf("PreLogin: %v", err)
	}
	if _, _, err := svc.Verify(context.Background(), "ops@fare1.co.uk", mail.lastCode); err != nil {
		t.Fatalf("first verify: %v", err)
	}

	_, _, err := svc.Verify(context.Background(), "ops@fare1.co.uk", mail.lastCode)
	if !errors.Is(err, admin.ErrInvalidCode) {
		t.Fatalf("err = %v, want ErrInvalidCode on replay", err)
	}
}

func TestVerifyWrongCode(t *testing.T) {
	svc, _, _ := newService(t)

	if err := svc.PreLogin(context.Background(), "ops@fare1.co.uk", "hunter2-but-long", nil); err != nil {
		t.Fatalf("PreLogin: %v", err)
	}

	_, _, err := svc.Verify(context.Background(), "ops@fare1.co.uk", "000000")
	if !errors.Is(err, admin.ErrInvalidCode) {
		t.Fatalf("err = %v, want ErrInvalidCode", err)
	}
}
