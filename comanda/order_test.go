package comanda

import (
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusLifecycle(t *testing.T) {
	tests := []struct {
		from, to Status
		allowed  bool
	}{
		{StatusPending, StatusProcessing, true},
		{StatusProcessing, StatusDone, true},
		{StatusProcessing, StatusError, true},
		{StatusPending, StatusDone, false},
		{StatusDone, StatusProcessing, false},
		{StatusError, StatusProcessing, false},
		{StatusDone, StatusError, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.allowed, tt.from.CanAdvanceTo(tt.to), "%s -> %s", tt.from, tt.to)
	}

	assert.True(t, StatusDone.Terminal())
	assert.True(t, StatusError.Terminal())
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusProcessing.Terminal())
	assert.False(t, Status("cooked").Valid())
}

func TestNewOrder(t *testing.T) {
	// Arrange
	draft := Draft{Customer: "Ana", Items: []string{"Pizza", "Suco"}, Table: 5}

	// Act
	o := NewOrder(draft)

	// Assert
	_, err := uuid.Parse(o.ID)
	require.NoError(t, err, "id must be a UUID")
	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, "Ana", o.Customer)
	assert.Equal(t, 5, o.Table)
	assert.Equal(t, o.CreatedAt, o.UpdatedAt)
	assert.Equal(t, time.UTC, o.CreatedAt.Location())
	assert.Zero(t, o.CreatedAt.Nanosecond())
}

func TestOrderJSONShape(t *testing.T) {
	created, err := time.Parse(time.RFC3339, "2026-08-30T12:00:05Z")
	require.NoError(t, err)

	o := Order{
		ID:        "abc",
		Customer:  "Ana",
		Items:     []string{"Pizza"},
		Table:     7,
		Status:    StatusPending,
		CreatedAt: created,
		UpdatedAt: created,
	}

	data, err := json.Marshal(o)
	require.NoError(t, err)

	// Second precision, trailing Z, no fractional seconds.
	assert.Contains(t, string(data), `"created_at":"2026-08-30T12:00:05Z"`)
	assert.Regexp(t, regexp.MustCompile(`"status":"pending"`), string(data))
	// Receipt location only appears once set.
	assert.NotContains(t, string(data), "receipt_location")

	o.ReceiptLocation = "nats-obj://scontrini/receipts/abc.pdf"
	data, err = json.Marshal(o)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"receipt_location"`)
}

func TestFieldsApplyIsIdempotent(t *testing.T) {
	o := NewOrder(Draft{Customer: "Ana", Items: []string{"Pizza"}, Table: 1})
	done := StatusDone
	loc := "nats-obj://scontrini/receipts/x.pdf"
	fields := Fields{Status: &done, ReceiptLocation: &loc}

	fields.Apply(o)
	first := *o
	fields.Apply(o)

	assert.Equal(t, first.Status, o.Status)
	assert.Equal(t, first.ReceiptLocation, o.ReceiptLocation)
	assert.Equal(t, first.Items, o.Items)
}

func TestProcessingRequestLegacyFallback(t *testing.T) {
	var req ProcessingRequest
	require.NoError(t, json.Unmarshal([]byte(`{"order_id":"new"}`), &req))
	assert.Equal(t, "new", req.ID())

	req = ProcessingRequest{}
	require.NoError(t, json.Unmarshal([]byte(`{"id":"legacy"}`), &req))
	assert.Equal(t, "legacy", req.ID())

	req = ProcessingRequest{}
	require.NoError(t, json.Unmarshal([]byte(`{"order_id":"new","id":"legacy"}`), &req))
	assert.Equal(t, "new", req.ID())
}
