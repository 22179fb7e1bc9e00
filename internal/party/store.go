package party

import (
	"context"

	dErrors "padron/pkg/domain-errors"
)

// ErrNotFound keeps store-specific 404s consistent across in-memory and
// PostgreSQL implementations.
var ErrNotFound = dErrors.New(dErrors.CodeNotFound, "party not found")

// Store is the party/address repository collaborator. Implementations must
// support deactivate-without-delete for addresses and apply each Update
// atomically.
type Store interface {
	FindByID(ctx context.Context, id string) (*Party, error)
	// ListWithTaxID returns the parties carrying any tax identifier, the
	// population a census import iterates.
	ListWithTaxID(ctx context.Context) ([]*Party, error)
	// Apply commits one party's mapped registry fields, swapping the
	// active fiscal address when the update carries one.
	Apply(ctx context.Context, update Update) error
	// Addresses returns the party's address collection, newest last.
	Addresses(ctx context.Context, partyID string) ([]Address, error)
	Save(ctx context.Context, p *Party) error
}
