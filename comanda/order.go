// Package comanda holds the table-order domain: the order record and its
// lifecycle, intake validation and the durable order store contract.
package comanda

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an order. It only moves forward:
//
//	pending -> processing -> done
//	                      -> error
//
// done and error are terminal.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusError      Status = "error"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusDone, StatusError:
		return true
	}
	return false
}

// Terminal reports whether no further transition is expected from s.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusError
}

// CanAdvanceTo reports whether the transition graph allows moving from s to
// next. Fulfillment applies transitions unconditionally (redelivery re-runs
// the pipeline), so this is a property of the data model, not a guard the
// processor enforces.
func (s Status) CanAdvanceTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusProcessing
	case StatusProcessing:
		return next == StatusDone || next == StatusError
	}
	return false
}

// Order is a customer's table order plus its lifecycle status. It is owned
// by the order store for its whole life; consumers only ever hold a
// transient snapshot.
type Order struct {
	ID              string    `json:"id"`
	Customer        string    `json:"customer"`
	Items           []string  `json:"items"`
	Table           int       `json:"table"`
	Status          Status    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	ReceiptLocation string    `json:"receipt_location,omitempty"`
}

// Draft is a normalized, validated intake payload.
type Draft struct {
	Customer string
	Items    []string
	Table    int
}

// NewOrder creates a pending order from a validated draft. Timestamps are
// UTC truncated to the second so they marshal as RFC3339 with a trailing Z
// and no fractional part.
func NewOrder(d Draft) *Order {
	now := Now()
	return &Order{
		ID:        uuid.New().String(),
		Customer:  d.Customer,
		Items:     d.Items,
		Table:     d.Table,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Now returns the store clock: UTC, second precision.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

// ProcessingRequest is the ephemeral queue message scheduling fulfillment
// of one order. The legacy "id" key is accepted as a fallback for messages
// produced by older publishers.
type ProcessingRequest struct {
	OrderID  string `json:"order_id"`
	LegacyID string `json:"id,omitempty"`
}

// ID returns the referenced order id, preferring the current key.
func (r ProcessingRequest) ID() string {
	if r.OrderID != "" {
		return r.OrderID
	}
	return r.LegacyID
}
