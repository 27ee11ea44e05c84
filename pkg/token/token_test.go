package token

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"portalgate/pkg/accounts"
)

type finder map[uuid.UUID]accounts.Account

func (f finder) FindByID(_ context.Context, id uuid.UUID) (accounts.Account, error) {
	if a, ok := f[id]; ok {
		return a, nil
	}
	return accounts.Account{}, accounts.ErrNotFound
}

func newManager(t *testing.T, f finder) *Manager {
	t.Helper()
	m, err := NewManager(Settings{Secret: "test-secret", Algorithm: "HS256", Issuer: "portalgate", TTL: time.Minute}, f)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func TestIssueAndVerify(t *testing.T) {
	acct := accounts.Account{ID: uuid.New(), Domain: "x.bitrix24.com", MemberID: "42"}
	m := newManager(t, finder{acct.ID: acct})
	raw, err := m.Issue(acct)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	got, err := m.Verify(context.Background(), raw)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got.ID != acct.ID {
		t.Fatalf("expected account %s, got %s", acct.ID, got.ID)
	}
}

func TestVerifyExpired(t *testing.T) {
	acct := accounts.Account{ID: uuid.New()}
	m := newManager(t, finder{acct.ID: acct})
	m.now = func() time.Time { return time.Now().Add(-time.Hour) }
	raw, err := m.Issue(acct)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	m.now = time.Now
	if _, err := m.Verify(context.Background(), raw); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestVerifyInvalid(t *testing.T) {
	acct := accounts.Account{ID: uuid.New()}
	m := newManager(t, finder{acct.ID: acct})
	other, err := NewManager(Settings{Secret: "other-secret", Algorithm: "HS256", Issuer: "portalgate"}, finder{})
	if err != nil {
		t.Fatal(err)
	}
	forged, _ := other.Issue(acct)
	wrongIssuer, _ := NewManager(Settings{Secret: "test-secret", Algorithm: "HS256", Issuer: "someone-else"}, finder{})
	foreign, _ := wrongIssuer.Issue(acct)

	for name, raw := range map[string]string{
		"garbage":       "not-a-jwt",
		"empty":         "",
		"bad signature": forged,
		"wrong issuer":  foreign,
	} {
		if _, err := m.Verify(context.Background(), raw); !errors.Is(err, ErrInvalid) {
			t.Errorf("%s: expected ErrInvalid, got %v", name, err)
		}
	}
}

func TestVerifyAccountNotFound(t *testing.T) {
	m := newManager(t, finder{})
	raw, _ := m.Issue(accounts.Account{ID: uuid.New()})
	if _, err := m.Verify(context.Background(), raw); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestVerifyClaimErrors(t *testing.T) {
	m := newManager(t, finder{})
	sign := func(claims map[string]any) string {
		b := jwt.NewBuilder().Issuer("portalgate").Expiration(time.Now().Add(time.Minute))
		for k, v := range claims {
			b = b.Claim(k, v)
		}
		tok, err := b.Build()
		if err != nil {
			t.Fatal(err)
		}
		out, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, []byte("test-secret")))
		if err != nil {
			t.Fatal(err)
		}
		return string(out)
	}
	for name, claims := range map[string]map[string]any{
		"missing":  {},
		"not uuid": {ClaimAccountID: "account-7"},
		"number":   {ClaimAccountID: 7},
	} {
		_, err := m.Verify(context.Background(), sign(claims))
		var ce *ClaimError
		if !errors.As(err, &ce) || ce.Claim != ClaimAccountID {
			t.Errorf("%s: expected ClaimError, got %v", name, err)
		}
	}
}

func TestNewManagerRejectsBadSettings(t *testing.T) {
	if _, err := NewManager(Settings{Algorithm: "HS256"}, finder{}); err == nil {
		t.Fatal("expected missing secret error")
	}
	if _, err := NewManager(Settings{Secret: "s", Algorithm: "RS256"}, finder{}); err == nil {
		t.Fatal("expected asymmetric algorithm to be rejected")
	}
	if _, err := NewManager(Settings{Secret: "s", Algorithm: "nope"}, finder{}); err == nil {
		t.Fatal("expected unknown algorithm error")
	}
	m, err := NewManager(Settings{Secret: "s", Algorithm: "hs512"}, finder{})
	if err != nil || m.alg != jwa.HS512 || m.ttl != time.Hour {
		t.Fatalf("unexpected manager %+v %v", m, err)
	}
}
