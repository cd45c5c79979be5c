package comanda

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"
)

// KVOrderStore keeps order records in a JetStream key-value bucket, one
// key per order id, value being the JSON encoding of the record.
type KVOrderStore struct {
	kv jetstream.KeyValue
}

var _ OrderStore = (*KVOrderStore)(nil)

// NewKVOrderStore binds to the bucket, creating it when absent.
func NewKVOrderStore(ctx context.Context, js jetstream.JetStream, bucket string) (*KVOrderStore, error) {
	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "table order records",
	})
	if err != nil {
		return nil, fmt.Errorf("bind order bucket %q: %w", bucket, err)
	}
	return &KVOrderStore{kv: kv}, nil
}

// Create implements OrderStore.
func (s *KVOrderStore) Create(ctx context.Context, o *Order) error {
	data, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("marshal order %s: %w", o.ID, err)
	}

	_, err = s.kv.Create(ctx, o.ID, data)
	if errors.Is(err, jetstream.ErrKeyExists) {
		return ErrOrderExists
	}
	if err != nil {
		return fmt.Errorf("store order %s: %w", o.ID, err)
	}
	return nil
}

// Get implements OrderStore.
func (s *KVOrderStore) Get(ctx context.Context, id string) (*Order, error) {
	entry, err := s.kv.Get(ctx, id)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load order %s: %w", id, err)
	}

	var o Order
	if err := json.Unmarshal(entry.Value(), &o); err != nil {
		return nil, fmt.Errorf("decode order %s: %w", id, err)
	}
	return &o, nil
}

// Update implements OrderStore. The write is an unconditional Put:
// concurrent redelivery of the same order races last-write-wins, which is
// tolerated because reprocessing an order is deterministic.
func (s *KVOrderStore) Update(ctx context.Context, id string, fields Fields) (*Order, error) {
	o, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	fields.Apply(o)

	data, err := json.Marshal(o)
	if err != nil {
		return nil, fmt.Errorf("marshal order %s: %w", id, err)
	}
	if _, err := s.kv.Put(ctx, id, data); err != nil {
		return nil, fmt.Errorf("update order %s: %w", id, err)
	}
	return o, nil
}
