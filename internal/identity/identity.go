package identity

import (
	"net/http"
	"strings"

	"github.com/fareone/bookings/pkg/auth"
)

// Identity is the rider attached to a request, when one could be resolved.
type Identity struct {
	UserID int64
	Email  string
	Name   string
	Role   string
}

// Provider resolves the identity behind a request. Implementations must
// treat absence as normal: a nil identity with a nil error means the caller
// is anonymous and the booking flow proceeds as a guest.
type Provider interface {
	Resolve(r *http.Request) (*Identity, error)
}

// JWTProvider reads a bearer token and maps its claims to an identity. An
// absent or malformed token resolves to anonymous rather than an error, so
// the quoting and booking surfaces stay open to guests.
type JWTProvider struct {
	secret string
}

func NewJWTProvider(secret string) *JWTProvider {
	return &JWTProvider{secret: secret}
}

func (p *JWTProvider) Resolve(r *http.Request) (*Identity, error) {
	h := r.Header.Get("Authorization")
	if h == "" || !strings.HasPrefix(h, "Bearer ") {
		return nil, nil
	}
	claims, err := auth.Parse(strings.TrimPrefix(h, "Bearer "), p.secret)
	if err != nil {
		return nil, nil
	}
	return &Identity{
		UserID: claims.Sub,
		Email:  claims.Email,
		Name:   claims.Name,
		Role:   claims.Role,
	}, nil
}

// Anonymous resolves every request to no identity. It backs deployments
// without rider accounts.
type Anonymous struct{}

func (Anonymous) Resolve(*http.Request) (*Identity, error) { return nil, nil }

var (
	_ Provider = (*JWTProvider)(nil)
	_ Provider = Anonymous{}
)
