package port

import (
	"context"
	"errors"
)

// ErrSlotEmpty is returned by Get when nothing has been stored under the key.
var ErrSlotEmpty = errors.New("slot empty")

type SlotRepository interface {
	// Get returns the raw bytes stored under key, or ErrSlotEmpty
	Get(ctx context.Context, key string) ([]byte, error)

	// Set overwrites the value stored under key
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key, deleting a missing key is not an error
	Delete(ctx context.Context, key string) error

	// Ping checks that the backend is reachable
	Ping(ctx context.Context) error
}
