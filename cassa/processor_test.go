package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trattoria/comanda"
	"trattoria/scontrino"
)

type fakeStore struct {
	orders    map[string]*comanda.Order
	getErr    error
	updateErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{orders: map[string]*comanda.Order{}}
}

func (f *fakeStore) Create(_ context.Context, o *comanda.Order) error {
	clone := *o
	f.orders[o.ID] = &clone
	return nil
}

func (f *fakeStore) Get(_ context.Context, id string) (*comanda.Order, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	o, ok := f.orders[id]
	if !ok {
		return nil, comanda.ErrOrderNotFound
	}
	clone := *o
	return &clone, nil
}

func (f *fakeStore) Update(_ context.Context, id string, fields comanda.Fields) (*comanda.Order, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	o, ok := f.orders[id]
	if !ok {
		return nil, comanda.ErrOrderNotFound
	}
	fields.Apply(o)
	clone := *o
	return &clone, nil
}

type fakeObjects struct {
	stored map[string][]byte
	types  map[string]string
	err    error
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{stored: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeObjects) Put(_ context.Context, key string, data []byte, contentType string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.stored[key] = data
	f.types[key] = contentType
	return "nats-obj://scontrini/" + key, nil
}

type fakeNotifier struct {
	notes []comanda.Notification
	err   error
}

func (f *fakeNotifier) Publish(_ context.Context, note comanda.Notification) error {
	if f.err != nil {
		return f.err
	}
	f.notes = append(f.notes, note)
	return nil
}

func newTestProcessor(t *testing.T, store *fakeStore, objects *fakeObjects, notifier *fakeNotifier) *Processor {
	t.Helper()
	p, err := NewProcessor(store, objects, notifier)
	require.NoError(t, err)
	return p
}

func seedOrder(t *testing.T, store *fakeStore) *comanda.Order {
	t.Helper()
	order := comanda.NewOrder(comanda.Draft{Customer: "Ana", Items: []string{"Pizza", "Suco"}, Table: 7})
	require.NoError(t, store.Create(context.Background(), order))
	return order
}

func TestProcess(t *testing.T) {
	// Arrange
	store := newFakeStore()
	objects := newFakeObjects()
	notifier := &fakeNotifier{}
	p := newTestProcessor(t, store, objects, notifier)
	order := seedOrder(t, store)

	// Act
	err := p.Process(context.Background(), order.ID)

	// Assert
	require.NoError(t, err)

	key := "receipts/" + order.ID + ".pdf"
	doc, ok := objects.stored[key]
	require.True(t, ok, "receipt must be stored under the order key")
	assert.True(t, bytes.HasPrefix(doc, []byte("%PDF-1.4")), "stored document must be a PDF")
	assert.Equal(t, "application/pdf", objects.types[key])

	settled := store.orders[order.ID]
	assert.Equal(t, comanda.StatusDone, settled.Status)
	assert.Equal(t, "nats-obj://scontrini/"+key, settled.ReceiptLocation)

	require.Len(t, notifier.notes, 1)
	assert.Equal(t, "Pedido Pronto!", notifier.notes[0].Subject)
	assert.Equal(t, order.ID, notifier.notes[0].OrderID)
}

func TestProcessIsIdempotent(t *testing.T) {
	store := newFakeStore()
	objects := newFakeObjects()
	notifier := &fakeNotifier{}
	p := newTestProcessor(t, store, objects, notifier)
	order := seedOrder(t, store)

	require.NoError(t, p.Process(context.Background(), order.ID))
	first := *store.orders[order.ID]

	// A redelivery replays the whole attempt against the same key.
	require.NoError(t, p.Process(context.Background(), order.ID))

	settled := store.orders[order.ID]
	assert.Equal(t, comanda.StatusDone, settled.Status)
	assert.Equal(t, first.ReceiptLocation, settled.ReceiptLocation)
	assert.Len(t, objects.stored, 1, "reprocessing overwrites the same object")
	assert.Len(t, notifier.notes, 2, "each attempt announces completion")
}

func TestProcessMissingOrder(t *testing.T) {
	store := newFakeStore()
	objects := newFakeObjects()
	notifier := &fakeNotifier{}
	p := newTestProcessor(t, store, objects, notifier)

	err := p.Process(context.Background(), "no-such-order")

	require.NoError(t, err, "a vanished order is dropped, not retried")
	assert.Empty(t, objects.stored)
	assert.Empty(t, notifier.notes)
}

func TestProcessRenderFailure(t *testing.T) {
	store := newFakeStore()
	objects := newFakeObjects()
	notifier := &fakeNotifier{}
	p := newTestProcessor(t, store, objects, notifier)
	p.render = func(scontrino.Receipt) ([]byte, error) {
		return nil, assert.AnError
	}
	order := seedOrder(t, store)

	err := p.Process(context.Background(), order.ID)

	require.Error(t, err)
	assert.Equal(t, comanda.StatusError, store.orders[order.ID].Status)
	assert.Empty(t, store.orders[order.ID].ReceiptLocation)
	assert.Empty(t, objects.stored, "no document is stored when rendering fails")
	assert.Empty(t, notifier.notes)
}

func TestProcessObjectStoreFailure(t *testing.T) {
	store := newFakeStore()
	objects := newFakeObjects()
	objects.err = assert.AnError
	notifier := &fakeNotifier{}
	p := newTestProcessor(t, store, objects, notifier)
	order := seedOrder(t, store)

	err := p.Process(context.Background(), order.ID)

	require.Error(t, err)
	assert.Equal(t, comanda.StatusError, store.orders[order.ID].Status)
	assert.Empty(t, store.orders[order.ID].ReceiptLocation)
	assert.Empty(t, notifier.notes)
}

func TestProcessNotifyFailureKeepsOrderDone(t *testing.T) {
	store := newFakeStore()
	objects := newFakeObjects()
	notifier := &fakeNotifier{err: assert.AnError}
	p := newTestProcessor(t, store, objects, notifier)
	order := seedOrder(t, store)

	err := p.Process(context.Background(), order.ID)

	require.NoError(t, err, "a lost notification never fails the order")
	settled := store.orders[order.ID]
	assert.Equal(t, comanda.StatusDone, settled.Status)
	assert.NotEmpty(t, settled.ReceiptLocation)
}

func TestProcessStoreReadFailure(t *testing.T) {
	store := newFakeStore()
	store.getErr = assert.AnError
	objects := newFakeObjects()
	notifier := &fakeNotifier{}
	p := newTestProcessor(t, store, objects, notifier)

	err := p.Process(context.Background(), "any")

	require.Error(t, err)
	assert.Empty(t, objects.stored)
	assert.Empty(t, notifier.notes)
}
