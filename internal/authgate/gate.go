// Package authgate attributes every inbound request to exactly one portal
// account, either from a bearer token or from an iframe placement payload.
package authgate

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"portalgate/pkg/accounts"
	"portalgate/pkg/metrics"
	"portalgate/pkg/placement"
	"portalgate/pkg/portal"
	"portalgate/pkg/token"
)

type Verifier interface {
	Verify(ctx context.Context, raw string) (accounts.Account, error)
}

type IdentityResolver interface {
	Resolve(ctx context.Context, p placement.Payload) portal.Identity
}

type Upserter interface {
	FindOrCreate(ctx context.Context, d placement.Data) (accounts.Account, error)
}

type Gate struct {
	tokens   Verifier
	identity IdentityResolver
	accounts Upserter
	log      *zap.SugaredLogger
}

func New(tokens Verifier, identity IdentityResolver, accts Upserter, log *zap.SugaredLogger) *Gate {
	return &Gate{tokens: tokens, identity: identity, accounts: accts, log: log}
}

// Resolve returns the request's account. A non-nil error is either a
// *Rejection or a fault the caller should answer with 500.
func (g *Gate) Resolve(r *http.Request) (accounts.Account, error) {
	var (
		a    accounts.Account
		err  error
		path string
	)
	switch c := CredentialFrom(r).(type) {
	case BearerToken:
		path = "bearer"
		a, err = g.verifyBearer(r.Context(), c)
	case PlacementPayload:
		path = "placement"
		a, err = g.upsertPlacement(r.Context(), c)
	}

	var rej *Rejection
	switch {
	case err == nil:
		metrics.ObserveResolution(path, "resolved")
	case errors.As(err, &rej):
		metrics.ObserveResolution(path, "rejected")
		g.log.Debugw("request rejected", "path", r.URL.Path, "credential", path, "status", rej.Status, "message", rej.Message)
	default:
		metrics.ObserveResolution(path, "error")
	}
	return a, err
}

func (g *Gate) verifyBearer(ctx context.Context, c BearerToken) (accounts.Account, error) {
	a, err := g.tokens.Verify(ctx, c.Raw)
	if err == nil {
		return a, nil
	}
	var ce *token.ClaimError
	switch {
	case errors.Is(err, token.ErrExpired):
		return accounts.Account{}, unauthorized(MsgTokenExpired)
	case errors.Is(err, token.ErrAccountNotFound), errors.Is(err, token.ErrInvalid):
		return accounts.Account{}, unauthorized(MsgInvalidToken)
	case errors.As(err, &ce):
		return accounts.Account{}, badRequest(ce.Error())
	}
	return accounts.Account{}, fmt.Errorf("verify token: %w", err)
}

func (g *Gate) upsertPlacement(ctx context.Context, c PlacementPayload) (accounts.Account, error) {
	d, rej := g.ValidatePlacement(ctx, c.Fields)
	if rej != nil {
		return accounts.Account{}, rej
	}
	a, err := g.accounts.FindOrCreate(ctx, d)
	if err != nil {
		var ve *placement.ValidationError
		if errors.As(err, &ve) {
			return accounts.Account{}, badRequest(ve.Error())
		}
		return accounts.Account{}, fmt.Errorf("upsert account: %w", err)
	}
	return a, nil
}

// ValidatePlacement checks the required fields, resolves the portal identity
// and builds the normalized placement data. The payload is not modified.
func (g *Gate) ValidatePlacement(ctx context.Context, p placement.Payload) (placement.Data, *Rejection) {
	if p.Str(placement.KeyPlacement) == "" {
		return placement.Data{}, badRequest(MsgMissingPlacement)
	}
	if p.Str(placement.KeyAuthID) == "" {
		return placement.Data{}, badRequest(MsgMissingAuthID)
	}
	id := g.identity.Resolve(ctx, p)
	if !id.Resolved() {
		return placement.Data{}, badRequest(MsgInvalidPlacement)
	}

	enriched := p.Clone()
	enriched[placement.KeyDomain] = id.Domain
	enriched[placement.KeyMemberID] = id.MemberID
	d, err := placement.FromPayload(enriched)
	if err != nil {
		return placement.Data{}, badRequest(err.Error())
	}
	return d, nil
}
