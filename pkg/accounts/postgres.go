// pkg/accounts/postgres.go
package accounts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"portalgate/pkg/db"
	"portalgate/pkg/placement"
)

// pgStore implements Store backed by PostgreSQL.
type pgStore struct {
	dbPool *pgxpool.Pool      // Connection pool to PostgreSQL
	log    *zap.SugaredLogger // Logger for diagnostic output
}

// NewPostgresStore constructs a PostgreSQL-backed account store.
func NewPostgresStore(dbPool *pgxpool.Pool, log *zap.SugaredLogger) Store {
	return &pgStore{dbPool: dbPool, log: log}
}

// EnsureSchema creates required tables if they do not already exist.
// Safe to call repeatedly (idempotent).
func EnsureSchema(ctx context.Context, dbPool *pgxpool.Pool) error {
	_, err := dbPool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS portal_accounts (
  id uuid PRIMARY KEY,
  domain text NOT NULL,
  member_id text NOT NULL,
  status text NOT NULL DEFAULT 'L',
  application_token text NOT NULL DEFAULT '',
  access_token text NOT NULL DEFAULT '',
  refresh_token text NOT NULL DEFAULT '',
  client_endpoint text NOT NULL DEFAULT '',
  expires_at timestamptz,
  created_at timestamptz NOT NULL DEFAULT NOW(),
  updated_at timestamptz NOT NULL DEFAULT NOW(),
  UNIQUE (domain, member_id)
);
CREATE TABLE IF NOT EXISTS application_installations (
  account_id uuid PRIMARY KEY REFERENCES portal_accounts(id) ON DELETE CASCADE,
  status text NOT NULL DEFAULT '',
  portal_license_family text NOT NULL DEFAULT '',
  application_token text NOT NULL DEFAULT '',
  updated_at timestamptz NOT NULL DEFAULT NOW()
);
`)
	return err
}

// SeedAccounts inserts seed accounts that are not present yet.
func SeedAccounts(ctx context.Context, dbPool *pgxpool.Pool, seeds []Seed) error {
	now := time.Now().UTC()
	for _, s := range seeds {
		a, err := s.account(now)
		if err != nil {
			return fmt.Errorf("seed %q: %w", s.Domain, err)
		}
		if _, err := dbPool.Exec(ctx, `INSERT INTO portal_accounts(id,domain,member_id,status,application_token)
		  VALUES ($1,$2,$3,$4,$5) ON CONFLICT DO NOTHING`,
			a.ID, a.Domain, a.MemberID, a.Status, a.ApplicationToken); err != nil {
			return err
		}
	}
	return nil
}

const accountColumns = `id,domain,member_id,status,application_token,access_token,refresh_token,client_endpoint,expires_at,created_at,updated_at`

// FindOrCreate upserts on (domain, member_id); the unique constraint makes
// concurrent first placements converge on one row.
func (p *pgStore) FindOrCreate(ctx context.Context, d placement.Data) (Account, error) {
	if err := checkKey(d); err != nil {
		return Account{}, err
	}
	now := time.Now().UTC()
	a := Account{ID: uuid.New(), Domain: d.Domain(), MemberID: d.MemberID(), CreatedAt: now}
	a.apply(d, now)
	row := p.dbPool.QueryRow(ctx, `INSERT INTO portal_accounts(`+accountColumns+`)
	  VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	  ON CONFLICT (domain, member_id) DO UPDATE SET
	    status=EXCLUDED.status,
	    application_token=EXCLUDED.application_token,
	    access_token=EXCLUDED.access_token,
	    refresh_token=EXCLUDED.refresh_token,
	    client_endpoint=EXCLUDED.client_endpoint,
	    expires_at=EXCLUDED.expires_at,
	    updated_at=EXCLUDED.updated_at
	  RETURNING `+accountColumns,
		a.ID, a.Domain, a.MemberID, a.Status, a.ApplicationToken, a.AccessToken, a.RefreshToken,
		a.ClientEndpoint, nullTime(a.ExpiresAt), a.CreatedAt, a.UpdatedAt)
	out, err := scanAccount(row)
	if err != nil {
		return Account{}, fmt.Errorf("upsert account: %w", err)
	}
	return out, nil
}

// FindByID fetches an account by its UUID.
func (p *pgStore) FindByID(ctx context.Context, id uuid.UUID) (Account, error) {
	row := p.dbPool.QueryRow(ctx, `SELECT `+accountColumns+` FROM portal_accounts WHERE id=$1`, id)
	a, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, ErrNotFound
	}
	if err != nil {
		return Account{}, fmt.Errorf("find account: %w", err)
	}
	return a, nil
}

// SaveInstallation locks the account row and upserts its installation.
func (p *pgStore) SaveInstallation(ctx context.Context, inst Installation) error {
	return db.InTx(ctx, p.dbPool, func(tx pgx.Tx) error {
		var one int
		err := tx.QueryRow(ctx, `SELECT 1 FROM portal_accounts WHERE id=$1 FOR UPDATE`, inst.AccountID).Scan(&one)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `INSERT INTO application_installations(account_id,status,portal_license_family,application_token,updated_at)
		  VALUES ($1,$2,$3,$4,NOW())
		  ON CONFLICT (account_id) DO UPDATE SET status=EXCLUDED.status,portal_license_family=EXCLUDED.portal_license_family,
		    application_token=EXCLUDED.application_token,updated_at=NOW()`,
			inst.AccountID, inst.Status, inst.LicenseFamily, inst.ApplicationToken)
		return err
	})
}

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	var expires *time.Time
	if err := row.Scan(&a.ID, &a.Domain, &a.MemberID, &a.Status, &a.ApplicationToken, &a.AccessToken,
		&a.RefreshToken, &a.ClientEndpoint, &expires, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return Account{}, err
	}
	if expires != nil {
		a.ExpiresAt = expires.UTC()
	}
	return a, nil
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
