package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
)

// BadgerStore keeps key-value data in a Badger directory.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadger opens or creates a Badger database at dir.
func OpenBadger(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).
		WithNumVersionsToKeep(1).
		WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		slog.Error("badger store failed to open", slog.String("path", dir), slog.Any("error", err))
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

// Load returns the value stored under key.
func (b *BadgerStore) Load(_ context.Context, key string) ([]byte, error) {
	var value []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %q: %w", key, err)
	}
	return value, nil
}

// Save replaces the value stored under key.
func (b *BadgerStore) Save(_ context.Context, key string, value []byte) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("failed to save %q: %w", key, err)
	}
	return nil
}

// Close closes the database.
func (b *BadgerStore) Close() error {
	return b.db.Close()
}

// Backend names accepted by OpenBackend.
const (
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
)

// OpenBackend opens the named backend at path.
func OpenBackend(backend, path string) (KV, error) {
	switch backend {
	case "", BackendSQLite:
		return Open(path)
	case BackendBadger:
		return OpenBadger(path)
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}
