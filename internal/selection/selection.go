// Package selection tracks which products are currently selected and keeps
// the set persisted locally.
package selection

import (
	"log/slog"
	"sync"

	"github.com/mfierros/routina/internal/catalog"
	"github.com/mfierros/routina/internal/localstore"
)

// Persister saves and restores the selected product ids. Implementations
// may fail (storage quota, unwritable disk); the store logs and swallows
// those failures so the in-memory operation always succeeds.
type Persister interface {
	SaveSelectedIDs(ids []int) error
	LoadSelectedIDs() ([]int, error)
}

// Store is the selection set: product ids mapped to their products, with
// insertion order kept for deterministic display and serialization. Safe
// for concurrent use: the TUI can toggle products while a routine command
// snapshots the selection from its own goroutine.
type Store struct {
	persister Persister
	logger    *slog.Logger

	mu    sync.RWMutex
	order []int
	items map[int]catalog.Product
}

// New creates an empty selection store.
func New(persister Persister, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		persister: persister,
		logger:    logger,
		items:     make(map[int]catalog.Product),
	}
}

// Toggle removes id when present, inserts product otherwise, and persists
// either way. Returns whether the product is selected afterwards.
func (s *Store) Toggle(id int, product catalog.Product) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	selected := false
	if _, ok := s.items[id]; ok {
		delete(s.items, id)
		for i, existing := range s.order {
			if existing == id {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	} else {
		s.items[id] = product
		s.order = append(s.order, id)
		selected = true
	}
	s.persist(s.serializeLocked())
	return selected
}

// Clear empties the set and persists. Interactive callers gate this behind
// an explicit confirmation; the store itself does not prompt.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.order = nil
	s.items = make(map[int]catalog.Product)
	s.persist(s.serializeLocked())
}

// Restore loads the persisted ids and resolves each against the catalog.
// Ids that no longer resolve are dropped silently. Does not persist.
func (s *Store) Restore(products []catalog.Product) {
	if s.persister == nil {
		return
	}
	ids, err := s.persister.LoadSelectedIDs()
	if err != nil {
		s.logger.Warn("could not read selected products from storage", "error", err)
		return
	}

	byID := make(map[int]catalog.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		p, ok := byID[id]
		if !ok {
			continue
		}
		if _, dup := s.items[id]; dup {
			continue
		}
		s.items[id] = p
		s.order = append(s.order, id)
	}
}

// Serialize returns the selected ids in insertion order.
func (s *Store) Serialize() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.serializeLocked()
}

// serializeLocked copies the ids. Caller must hold the lock.
func (s *Store) serializeLocked() []int {
	ids := make([]int, len(s.order))
	copy(ids, s.order)
	return ids
}

// Products returns the selected products in insertion order.
func (s *Store) Products() []catalog.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	products := make([]catalog.Product, 0, len(s.order))
	for _, id := range s.order {
		products = append(products, s.items[id])
	}
	return products
}

// Contains reports whether id is selected.
func (s *Store) Contains(id int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.items[id]
	return ok
}

// Len returns the number of selected products.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// persist writes the given ids. Failures are logged, never propagated:
// persistence must not block the in-memory mutation it follows. Caller
// holds the lock, which keeps persisted snapshots in mutation order.
func (s *Store) persist(ids []int) {
	if s.persister == nil {
		return
	}
	if err := s.persister.SaveSelectedIDs(ids); err != nil {
		s.logger.Warn("could not save selected products", "error", err)
	}
}

// LocalPersister persists selected ids through a localstore.Store under the
// fixed key.
type LocalPersister struct {
	Store *localstore.Store
}

func (p LocalPersister) SaveSelectedIDs(ids []int) error {
	return p.Store.Set(localstore.KeySelectedIDs, ids)
}

func (p LocalPersister) LoadSelectedIDs() ([]int, error) {
	var ids []int
	if _, err := p.Store.Get(localstore.KeySelectedIDs, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}
