// Package badger implements the metadata store on BadgerDB, an embedded
// key-value store with ACID transactions.
package badger

import (
	"context"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/google/uuid"

	"github.com/pkoutsias/stashfs/pkg/metadata"
)

// Store implements metadata.Store using BadgerDB for persistence.
//
// It is suitable for production deployments: the catalog survives restarts
// and crashes (WAL-based recovery), transactions are ACID, and prefixed key
// range scans serve folder listings and per-owner queries without full
// database sweeps (see keys.go for the schema).
//
// Thread Safety:
// BadgerDB transactions use MVCC with snapshot isolation. Concurrent Update
// transactions that write conflicting keys fail at commit with a conflict
// error, which the store surfaces as ErrIOFailure; callers may retry.
type Store struct {
	db *badger.DB
}

// Config holds the options for opening a BadgerDB-backed store.
type Config struct {
	// DBPath is the directory where BadgerDB keeps its files. It is
	// created on first open. Ignored when InMemory is set.
	DBPath string

	// InMemory opens BadgerDB without any on-disk state. Intended for
	// tests and ephemeral deployments.
	InMemory bool

	// BadgerOptions overrides the tuned defaults entirely when non-nil.
	BadgerOptions *badger.Options
}

// New opens (or creates) a BadgerDB-backed metadata store.
//
// Unless overridden through Config.BadgerOptions, the database is opened
// with options tuned for a metadata workload: frequent small reads and
// writes plus range scans, where compression overhead buys nothing.
func New(ctx context.Context, config Config) (*Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var opts badger.Options
	if config.BadgerOptions != nil {
		opts = *config.BadgerOptions
	} else {
		opts = badger.DefaultOptions(config.DBPath)
		opts = opts.WithInMemory(config.InMemory)
		opts = opts.WithLoggingLevel(badger.WARNING)
		opts = opts.WithCompression(options.None)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", config.DBPath, err)
	}

	return &Store{db: db}, nil
}

// Update runs fn inside a read-write BadgerDB transaction. The transaction
// commits when fn returns nil and is discarded otherwise.
func (s *Store) Update(ctx context.Context, fn func(tx metadata.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return fn(&tx{txn: txn, writable: true})
	})
	return mapBadgerError(err)
}

// View runs fn inside a read-only BadgerDB transaction.
func (s *Store) View(ctx context.Context, fn func(tx metadata.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.View(func(txn *badger.Txn) error {
		return fn(&tx{txn: txn})
	})
	return mapBadgerError(err)
}

// Close flushes and closes the underlying database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close BadgerDB: %w", err)
	}
	return nil
}

var _ metadata.Store = (*Store)(nil)

// mapBadgerError translates commit-time backend errors into the store error
// taxonomy. Errors already carrying a StoreError pass through unchanged so
// business-rule rejections keep their codes.
func mapBadgerError(err error) error {
	if err == nil {
		return nil
	}
	var storeErr *metadata.StoreError
	if errors.As(err, &storeErr) {
		return err
	}
	if errors.Is(err, badger.ErrConflict) {
		return ioFailure("transaction conflict", err)
	}
	return err
}

// tx implements metadata.Tx over a single BadgerDB transaction.
type tx struct {
	txn      *badger.Txn
	writable bool
}

var _ metadata.Tx = (*tx)(nil)

func (t *tx) requireWritable() error {
	if !t.writable {
		return metadata.Invariant("write attempted in a read-only transaction", "")
	}
	return nil
}

// get copies the value at key. Returns badger.ErrKeyNotFound untranslated;
// callers map it to the entity-specific not-found error.
func (t *tx) get(key []byte) ([]byte, error) {
	item, err := t.txn.Get(key)
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

func (t *tx) exists(key []byte) (bool, error) {
	_, err := t.txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, ioFailure("key lookup", err)
	}
	return true, nil
}

// getRecord fetches and decodes the JSON record at key, returning the given
// not-found error when the key is absent.
func (t *tx) getRecord(key []byte, v any, notFound error) error {
	data, err := t.get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return notFound
	}
	if err != nil {
		return ioFailure("record fetch", err)
	}
	return decodeJSON(data, v)
}

func (t *tx) setRecord(key []byte, v any) error {
	data, err := encodeJSON(v)
	if err != nil {
		return err
	}
	if err := t.txn.Set(key, data); err != nil {
		return ioFailure("record write", err)
	}
	return nil
}

// getIndexID resolves an index key to the UUID it points at.
func (t *tx) getIndexID(key []byte, notFound error) (uuid.UUID, error) {
	data, err := t.get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return uuid.Nil, notFound
	}
	if err != nil {
		return uuid.Nil, ioFailure("index fetch", err)
	}
	return decodeID(data)
}

// setUniqueIndex writes an index key that must not already point at a
// different record. This is the uniqueness constraint behind names: two
// transactions racing to claim the same key serialize on it, and the loser's
// commit fails with a conflict.
func (t *tx) setUniqueIndex(key []byte, id uuid.UUID, duplicate error) error {
	existing, err := t.get(key)
	if err == nil {
		current, derr := decodeID(existing)
		if derr != nil {
			return derr
		}
		if current != id {
			return duplicate
		}
	} else if !errors.Is(err, badger.ErrKeyNotFound) {
		return ioFailure("index fetch", err)
	}
	if err := t.txn.Set(key, encodeID(id)); err != nil {
		return ioFailure("index write", err)
	}
	return nil
}

func (t *tx) setFlag(key []byte) error {
	if err := t.txn.Set(key, nil); err != nil {
		return ioFailure("index write", err)
	}
	return nil
}

func (t *tx) deleteKey(key []byte) error {
	if err := t.txn.Delete(key); err != nil {
		return ioFailure("key delete", err)
	}
	return nil
}

// scan iterates every key with the given prefix, invoking visit with the
// full key and a copy of the value. Returning false stops the scan.
func (t *tx) scan(prefix []byte, visit func(key, value []byte) (bool, error)) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := t.txn.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		item := it.Item()
		value, err := item.ValueCopy(nil)
		if err != nil {
			return ioFailure("scan value", err)
		}
		cont, err := visit(item.KeyCopy(nil), value)
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
	return nil
}

// scanIDs iterates an owner or membership index, yielding the UUID that
// terminates each key.
func (t *tx) scanIDs(prefix []byte, visit func(id uuid.UUID) error) error {
	return t.scan(prefix, func(key, _ []byte) (bool, error) {
		id, err := trailingUUID(key)
		if err != nil {
			return false, err
		}
		return true, visit(id)
	})
}
