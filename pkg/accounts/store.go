package accounts

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"portalgate/pkg/placement"
)

var ErrNotFound = errors.New("account not found")

type Store interface {
	// FindOrCreate returns the account keyed by the placement's (domain, member_id),
	// creating it when missing and refreshing its tokens/status otherwise.
	// Must be atomic under concurrent calls for the same key.
	FindOrCreate(ctx context.Context, d placement.Data) (Account, error)
	// FindByID looks up an account; ErrNotFound on miss.
	FindByID(ctx context.Context, id uuid.UUID) (Account, error)
	// SaveInstallation upserts the installation row of an account.
	SaveInstallation(ctx context.Context, inst Installation) error
}
