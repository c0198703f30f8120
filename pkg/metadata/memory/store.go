// Package memory implements the metadata store on in-memory maps.
//
// The backend is suitable for tests, development environments and ephemeral
// deployments where persistence is not required. It implements the same
// transactional contract as the persistent backends: a transaction sees its
// own writes and commits atomically or not at all.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/pkoutsias/stashfs/pkg/metadata"
)

// Store implements metadata.Store using in-memory storage.
//
// Thread Safety:
// Transactions are serialized by a single read-write mutex: Update holds the
// write lock for the whole transaction, View holds the read lock. This
// coarse-grained locking keeps the implementation simple and makes every
// committed transaction fully serializable, at the cost of throughput that
// does not matter for the backend's intended uses.
//
// Storage Model:
// Each entity kind lives in one map keyed by UUID. Secondary lookups
// (child by name, records by owner, nonce by value) are answered by scanning
// the relevant map, which is acceptable at in-memory scale and avoids
// maintaining index structures that can drift out of sync.
type Store struct {
	mu sync.RWMutex

	users   map[uuid.UUID]*metadata.User
	classes map[uuid.UUID]*metadata.UserClass
	folders map[uuid.UUID]*metadata.Folder
	files   map[uuid.UUID]*metadata.FileHeader
	groups  map[uuid.UUID]*metadata.Group
	nonces  map[uuid.UUID]*metadata.Nonce

	closed bool
}

// New creates an empty in-memory metadata store.
func New() *Store {
	return &Store{
		users:   make(map[uuid.UUID]*metadata.User),
		classes: make(map[uuid.UUID]*metadata.UserClass),
		folders: make(map[uuid.UUID]*metadata.Folder),
		files:   make(map[uuid.UUID]*metadata.FileHeader),
		groups:  make(map[uuid.UUID]*metadata.Group),
		nonces:  make(map[uuid.UUID]*metadata.Nonce),
	}
}

// Update runs fn inside a read-write transaction. Writes are staged in the
// transaction and applied to the store's maps only when fn returns nil.
func (s *Store) Update(ctx context.Context, fn func(tx metadata.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return metadata.Invariant("store is closed", "")
	}

	t := newTx(s, true)
	if err := fn(t); err != nil {
		return err
	}
	t.commit()
	return nil
}

// View runs fn inside a read-only transaction.
func (s *Store) View(ctx context.Context, fn func(tx metadata.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return metadata.Invariant("store is closed", "")
	}

	return fn(newTx(s, false))
}

// Close marks the store closed. Further transactions fail.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

var _ metadata.Store = (*Store)(nil)

// record constrains table entries to types that can deep-copy themselves.
// Reads hand out copies so callers can mutate freely and persist changes
// only through an explicit save.
type record[T any] interface {
	Clone() T
}

// table is one entity kind's view inside a transaction: the store's base map
// plus the writes staged so far. Staged state shadows base state, which gives
// the transaction read-your-writes semantics without touching the store until
// commit.
type table[T record[T]] struct {
	base    map[uuid.UUID]T
	staged  map[uuid.UUID]T
	deleted map[uuid.UUID]bool
}

func newTable[T record[T]](base map[uuid.UUID]T) *table[T] {
	return &table[T]{
		base:    base,
		staged:  make(map[uuid.UUID]T),
		deleted: make(map[uuid.UUID]bool),
	}
}

func (t *table[T]) get(id uuid.UUID) (T, bool) {
	var zero T
	if t.deleted[id] {
		return zero, false
	}
	if v, ok := t.staged[id]; ok {
		return v.Clone(), true
	}
	if v, ok := t.base[id]; ok {
		return v.Clone(), true
	}
	return zero, false
}

func (t *table[T]) put(id uuid.UUID, v T) {
	delete(t.deleted, id)
	t.staged[id] = v.Clone()
}

func (t *table[T]) del(id uuid.UUID) {
	delete(t.staged, id)
	t.deleted[id] = true
}

// each visits every effective record, staged writes shadowing base state.
// Visited values are copies. Returning false stops the scan.
func (t *table[T]) each(visit func(id uuid.UUID, v T) bool) {
	for id, v := range t.staged {
		if !visit(id, v.Clone()) {
			return
		}
	}
	for id, v := range t.base {
		if t.deleted[id] {
			continue
		}
		if _, shadowed := t.staged[id]; shadowed {
			continue
		}
		if !visit(id, v.Clone()) {
			return
		}
	}
}

func (t *table[T]) commit() {
	for id := range t.deleted {
		delete(t.base, id)
	}
	for id, v := range t.staged {
		t.base[id] = v
	}
}

// tx implements metadata.Tx over staged tables.
type tx struct {
	writable bool

	users   *table[*metadata.User]
	classes *table[*metadata.UserClass]
	folders *table[*metadata.Folder]
	files   *table[*metadata.FileHeader]
	groups  *table[*metadata.Group]
	nonces  *table[*metadata.Nonce]
}

func newTx(s *Store, writable bool) *tx {
	return &tx{
		writable: writable,
		users:    newTable(s.users),
		classes:  newTable(s.classes),
		folders:  newTable(s.folders),
		files:    newTable(s.files),
		groups:   newTable(s.groups),
		nonces:   newTable(s.nonces),
	}
}

func (t *tx) commit() {
	t.users.commit()
	t.classes.commit()
	t.folders.commit()
	t.files.commit()
	t.groups.commit()
	t.nonces.commit()
}

// requireWritable gates every mutation; View transactions stay read-only.
func (t *tx) requireWritable() error {
	if !t.writable {
		return metadata.Invariant("write attempted in a read-only transaction", "")
	}
	return nil
}

var _ metadata.Tx = (*tx)(nil)
