package comanda

import (
	"context"
	"errors"
)

var (
	// ErrOrderNotFound is returned when the referenced order does not exist.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderExists is returned when creating an order whose id is taken.
	// With generated ids this should be unreachable.
	ErrOrderExists = errors.New("order already exists")
)

// Fields is a partial order update. Nil members are left untouched, so
// applying the same Fields twice yields the same record. UpdatedAt is
// refreshed on every application.
type Fields struct {
	Status          *Status
	ReceiptLocation *string
}

// Apply mutates o in place. Shared by store implementations and test fakes.
func (f Fields) Apply(o *Order) {
	if f.Status != nil {
		o.Status = *f.Status
	}
	if f.ReceiptLocation != nil {
		o.ReceiptLocation = *f.ReceiptLocation
	}
	o.UpdatedAt = Now()
}

// OrderStore is the durable keyed storage of order records.
type OrderStore interface {
	// Create persists a new record, failing with ErrOrderExists if the id
	// is already taken.
	Create(ctx context.Context, o *Order) error
	// Get returns the record or ErrOrderNotFound.
	Get(ctx context.Context, id string) (*Order, error)
	// Update applies a partial update and returns the stored record. Safe
	// to call repeatedly with identical arguments; concurrent updates are
	// resolved last-write-wins.
	Update(ctx context.Context, id string, fields Fields) (*Order, error)
}
