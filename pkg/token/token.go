// Package token issues and verifies the bearer tokens handed to iframe
// clients once a placement has been accepted.
package token

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"portalgate/pkg/accounts"
)

const (
	ClaimAccountID = "account_id"
	ClaimDomain    = "domain"
	ClaimMemberID  = "member_id"
)

var (
	ErrExpired         = errors.New("token expired")
	ErrInvalid         = errors.New("invalid token")
	ErrAccountNotFound = errors.New("token account not found")
)

// ClaimError is returned for a token that verified but carries claims the
// service cannot use.
type ClaimError struct {
	Claim   string
	Message string
}

func (e *ClaimError) Error() string { return fmt.Sprintf("%s claim %s", e.Claim, e.Message) }

// AccountFinder is the slice of accounts.Store the verifier needs.
type AccountFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (accounts.Account, error)
}

type Settings struct {
	Secret    string
	Algorithm string
	Issuer    string
	TTL       time.Duration
}

type Manager struct {
	alg      jwa.SignatureAlgorithm
	key      []byte
	issuer   string
	ttl      time.Duration
	accounts AccountFinder
	now      func() time.Time
}

func NewManager(s Settings, finder AccountFinder) (*Manager, error) {
	if s.Secret == "" {
		return nil, errors.New("token secret required")
	}
	var alg jwa.SignatureAlgorithm
	if err := alg.Accept(strings.ToUpper(strings.TrimSpace(s.Algorithm))); err != nil {
		return nil, fmt.Errorf("token algorithm: %w", err)
	}
	switch alg {
	case jwa.HS256, jwa.HS384, jwa.HS512:
	default:
		return nil, fmt.Errorf("token algorithm %s is not a shared-secret algorithm", alg)
	}
	ttl := s.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Manager{alg: alg, key: []byte(s.Secret), issuer: s.Issuer, ttl: ttl, accounts: finder, now: time.Now}, nil
}

// Issue signs a token bound to the account.
func (m *Manager) Issue(a accounts.Account) (string, error) {
	now := m.now().UTC()
	b := jwt.NewBuilder().
		IssuedAt(now).
		Expiration(now.Add(m.ttl)).
		Claim(ClaimAccountID, a.ID.String()).
		Claim(ClaimDomain, a.Domain).
		Claim(ClaimMemberID, a.MemberID)
	if m.issuer != "" {
		b = b.Issuer(m.issuer)
	}
	tok, err := b.Build()
	if err != nil {
		return "", err
	}
	signed, err := jwt.Sign(tok, jwt.WithKey(m.alg, m.key))
	if err != nil {
		return "", err
	}
	return string(signed), nil
}

// Verify checks signature and expiry, then maps the account_id claim to an
// existing account. Errors are ErrExpired, ErrInvalid, ErrAccountNotFound or
// *ClaimError; anything else is a lookup failure.
func (m *Manager) Verify(ctx context.Context, raw string) (accounts.Account, error) {
	opts := []jwt.ParseOption{
		jwt.WithKey(m.alg, m.key),
		jwt.WithValidate(true),
		jwt.WithClock(jwt.ClockFunc(m.now)),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}
	jt, err := jwt.Parse([]byte(strings.TrimSpace(raw)), opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired()) {
			return accounts.Account{}, ErrExpired
		}
		return accounts.Account{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	v, ok := jt.Get(ClaimAccountID)
	if !ok {
		return accounts.Account{}, &ClaimError{Claim: ClaimAccountID, Message: "is missing"}
	}
	s, _ := v.(string)
	id, err := uuid.Parse(s)
	if err != nil {
		return accounts.Account{}, &ClaimError{Claim: ClaimAccountID, Message: "is not a valid account id"}
	}

	a, err := m.accounts.FindByID(ctx, id)
	if errors.Is(err, accounts.ErrNotFound) {
		return accounts.Account{}, ErrAccountNotFound
	}
	if err != nil {
		return accounts.Account{}, err
	}
	return a, nil
}
