// Package storage provides durable client-side key/value storage with a
// publish/subscribe channel per key. Readers of the same key observe writes
// made by any other reader without sharing an in-memory reference.
package storage

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "storage").Logger()
}

// SetLogger allows setting a custom logger
func SetLogger(l zerolog.Logger) {
	log = l
}

// ErrNotFound is returned by Get when the key has never been written
var ErrNotFound = errors.New("storage: key not found")

// Store is a key/value store whose writes are broadcast to subscribers of
// the written key.
type Store interface {
	// Get returns the stored value or ErrNotFound
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value and notifies subscribers of key
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes key and notifies subscribers of key
	Delete(ctx context.Context, key string) error
	// Subscribe registers fn for changes to key. The returned function
	// removes the subscription and is safe to call more than once.
	Subscribe(key string, fn func()) (unsubscribe func())
}
