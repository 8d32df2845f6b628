// Package kvstore is the key-value persistence layer behind carts and cached
// role lookups.
package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound    = errors.New("kvstore: key not found")
	ErrWriteFailed = errors.New("kvstore: write failed")
	ErrConflict    = errors.New("kvstore: key changed concurrently")
)

// UpdateFunc receives the current value of a key and returns its replacement.
// Returning a nil slice deletes the key.
type UpdateFunc func(current []byte, exists bool) ([]byte, error)

// Store is implemented by Redis and Memory.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// Update applies fn as one atomic read-modify-write of key.
	Update(ctx context.Context, key string, ttl time.Duration, fn UpdateFunc) error
	Ping(ctx context.Context) error
	Close() error
}

// GetJSON reads key and unmarshals it into dest.
func GetJSON(ctx context.Context, s Store, key string, dest any) error {
	raw, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// SetJSON marshals value and stores it under key.
func SetJSON(ctx context.Context, s Store, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(ctx, key, raw, ttl)
}

// Key joins a prefix and an id the way every caller names its keys.
func Key(prefix, id string) string {
	return prefix + ":" + id
}
