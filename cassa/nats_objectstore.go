package main

import (
	"bytes"
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// NATSObjectStore keeps receipt documents in a JetStream object store
// bucket. Put overwrites by name, so reprocessing an order replaces the
// document instead of duplicating it.
type NATSObjectStore struct {
	obs    jetstream.ObjectStore
	bucket string
}

var _ ObjectStore = (*NATSObjectStore)(nil)

// NewNATSObjectStore ensures the bucket exists and binds to it.
func NewNATSObjectStore(ctx context.Context, js jetstream.JetStream, bucket string) (*NATSObjectStore, error) {
	obs, err := js.CreateOrUpdateObjectStore(ctx, jetstream.ObjectStoreConfig{
		Bucket:      bucket,
		Description: "rendered order receipts",
	})
	if err != nil {
		return nil, fmt.Errorf("ensure object store %q: %w", bucket, err)
	}
	return &NATSObjectStore{obs: obs, bucket: bucket}, nil
}

// Put implements ObjectStore.
func (s *NATSObjectStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	meta := jetstream.ObjectMeta{
		Name:    key,
		Headers: nats.Header{"Content-Type": []string{contentType}},
	}
	if _, err := s.obs.Put(ctx, meta, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("put object %q: %w", key, err)
	}
	return fmt.Sprintf("nats-obj://%s/%s", s.bucket, key), nil
}
