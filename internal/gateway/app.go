// Package gateway assembles the portal gateway: account store, token
// manager, portal lookup and the auth gate in front of the application
// endpoints.
package gateway

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"portalgate/internal/authgate"
	"portalgate/pkg/accounts"
	"portalgate/pkg/config"
	"portalgate/pkg/portal"
	"portalgate/pkg/token"
)

// App holds shared dependencies only; request-scoped state lives in the
// request context.
type App struct {
	cfg    config.Config
	log    *zap.SugaredLogger
	store  accounts.Store
	tokens *token.Manager
	gate   *authgate.Gate
}

// New builds the application. pool and rdb are optional: without a pool
// accounts live in memory, without rdb app.info answers are not cached.
func New(ctx context.Context, cfg config.Config, log *zap.SugaredLogger, pool *pgxpool.Pool, rdb *redis.Client) (*App, error) {
	seeds, err := accounts.LoadSeed(cfg.AccountSeedFile)
	if err != nil {
		return nil, fmt.Errorf("load account seed: %w", err)
	}

	var store accounts.Store
	if pool != nil {
		if err := accounts.EnsureSchema(ctx, pool); err != nil {
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		if err := accounts.SeedAccounts(ctx, pool, seeds); err != nil {
			log.Warnw("seed", "err", err)
		}
		store = accounts.NewPostgresStore(pool, log)
	} else {
		store = accounts.NewMemoryStore(log, seeds)
	}

	tokens, err := token.NewManager(token.Settings{
		Secret:    cfg.JWTSecret,
		Algorithm: cfg.JWTAlgorithm,
		Issuer:    cfg.JWTIssuer,
		TTL:       cfg.JWTTTL,
	}, store)
	if err != nil {
		return nil, err
	}

	lookup := portal.NewCachedLookup(portal.NewClient(cfg.PortalAuthServer, cfg.PortalTimeout), rdb, cfg.PortalLookupTTL, log)
	return &App{
		cfg:    cfg,
		log:    log,
		store:  store,
		tokens: tokens,
		gate:   authgate.New(tokens, portal.NewResolver(lookup, log), store, log),
	}, nil
}
