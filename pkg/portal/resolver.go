package portal

import (
	"context"

	"go.uber.org/zap"

	"portalgate/pkg/placement"
)

// Identity is the (domain, member_id) pair of a portal. Resolved only when
// both are set.
type Identity struct {
	Domain   string
	MemberID string
}

func (i Identity) Resolved() bool { return i.Domain != "" && i.MemberID != "" }

type Resolver struct {
	lookup Lookup
	log    *zap.SugaredLogger
}

func NewResolver(lookup Lookup, log *zap.SugaredLogger) *Resolver {
	return &Resolver{lookup: lookup, log: log}
}

// Resolve reads the portal identity from the payload. When member_id is
// absent and AUTH_ID is present, the identity is fetched from app.info
// instead. A failed lookup is logged and yields an empty Identity.
func (r *Resolver) Resolve(ctx context.Context, p placement.Payload) Identity {
	id := Identity{Domain: p.Str(placement.KeyDomain), MemberID: p.Str(placement.KeyMemberID)}
	if id.Domain == "" {
		id.Domain = p.Str(placement.KeyDomainLower)
	}
	authID := p.Str(placement.KeyAuthID)

	if id.Resolved() {
		return id
	}
	// Only a missing member_id triggers the lookup; a missing domain alone does not.
	if p[placement.KeyMemberID] != nil || authID == "" {
		return id
	}

	inst, err := r.lookup.AppInfo(ctx, authID)
	if err != nil {
		r.log.Warnw("portal app.info lookup failed", "err", err.Error())
		return Identity{}
	}
	return Identity{Domain: inst.Domain, MemberID: inst.MemberID}
}
