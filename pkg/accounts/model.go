package accounts

import (
	"time"

	"github.com/google/uuid"

	"portalgate/pkg/placement"
)

// Account represents one portal that installed the application.
// (Domain, MemberID) is unique.
type Account struct {
	ID               uuid.UUID
	Domain           string // portal host (x.bitrix24.com)
	MemberID         string // stable portal identifier issued by the platform
	Status           string // F | D | T | P | L | S
	ApplicationToken string // APP_SID from the last placement
	AccessToken      string // AUTH_ID from the last placement
	RefreshToken     string
	ClientEndpoint   string
	ExpiresAt        time.Time // zero when the placement carried no AUTH_EXPIRES
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Installation records that the application was installed on a portal.
type Installation struct {
	AccountID        uuid.UUID
	Status           string
	LicenseFamily    string
	ApplicationToken string
	UpdatedAt        time.Time
}

// apply copies the mutable placement fields onto a, stamping now.
func (a *Account) apply(d placement.Data, now time.Time) {
	a.Status = d.Status()
	a.ApplicationToken = d.ApplicationToken()
	a.AccessToken = d.AuthID()
	a.RefreshToken = d.RefreshID()
	a.ClientEndpoint = d.ClientEndpoint()
	a.ExpiresAt = expiresAt(d, now)
	a.UpdatedAt = now
}

// checkKey rejects placement data without an account key, e.g. a zero Data.
func checkKey(d placement.Data) error {
	if d.Domain() == "" {
		return &placement.ValidationError{Field: "domain", Message: "is required"}
	}
	if d.MemberID() == "" {
		return &placement.ValidationError{Field: "member_id", Message: "is required"}
	}
	return nil
}

func expiresAt(d placement.Data, now time.Time) time.Time {
	if d.AuthExpires() <= 0 {
		return time.Time{}
	}
	return now.Add(d.AuthExpires())
}
