package authgate

import (
	"net/http"
	"strings"

	"portalgate/pkg/placement"
)

// Credential is what a request presents to the gate: a BearerToken or a
// PlacementPayload.
type Credential interface {
	credential()
}

// BearerToken is the token from an "Authorization: Bearer <token>" header.
type BearerToken struct {
	Raw string
}

// PlacementPayload holds the request's merged body, query and form fields.
type PlacementPayload struct {
	Fields placement.Payload
}

func (BearerToken) credential()      {}
func (PlacementPayload) credential() {}

const bearerPrefix = "bearer "

// CredentialFrom picks the bearer header when its scheme matches, ignoring
// case, and falls back to the placement payload otherwise.
func CredentialFrom(r *http.Request) Credential {
	authz := r.Header.Get("Authorization")
	if len(authz) >= len(bearerPrefix) && strings.EqualFold(authz[:len(bearerPrefix)], bearerPrefix) {
		return BearerToken{Raw: strings.TrimSpace(authz[len(bearerPrefix):])}
	}
	return PlacementPayload{Fields: placement.Collect(r)}
}
