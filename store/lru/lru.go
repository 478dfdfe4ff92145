// Package lru implements an entry store that acts as a least-recently-used cache for a nested entry store.
package lru

import (
	"context"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"

	"github.com/bobg/ledger"
	"github.com/bobg/ledger/store"
)

var _ ledger.Store = &Store{}

// Store implements a memory-based least-recently-used cache for an entry store.
// It caches slots that have been read.
// Commits pass through to the underlying store
// and evict every address they touch,
// whether or not the commit succeeds.
type Store struct {
	c *lru.Cache // Address->Slot
	s ledger.Store
}

// New produces a new Store backed by `s` and caching up to `size` slots.
func New(s ledger.Store, size int) (*Store, error) {
	c, err := lru.New(size)
	return &Store{s: s, c: c}, err
}

// Read gets the slot at addr.
func (s *Store) Read(ctx context.Context, addr ledger.Address) (ledger.Slot, error) {
	if got, ok := s.c.Get(addr); ok {
		return cloneSlot(got.(ledger.Slot)), nil
	}
	slot, err := s.s.Read(ctx, addr)
	if err != nil {
		return ledger.Slot{}, err
	}
	s.c.Add(addr, cloneSlot(slot))
	return slot, nil
}

// Commit commits tx to the nested store.
func (s *Store) Commit(ctx context.Context, tx *ledger.Tx) error {
	defer func() {
		for _, addr := range tx.Touched() {
			s.c.Remove(addr)
		}
	}()
	return s.s.Commit(ctx, tx)
}

// Each delegates to the nested store.
func (s *Store) Each(ctx context.Context, f func(ledger.Address, ledger.Slot) error) error {
	return s.s.Each(ctx, f)
}

func cloneSlot(slot ledger.Slot) ledger.Slot {
	data := make([]byte, len(slot.Data))
	copy(data, slot.Data)
	return ledger.Slot{Layout: slot.Layout, Data: data}
}

func init() {
	store.Register("lru", func(ctx context.Context, conf map[string]interface{}) (ledger.Store, error) {
		size, ok := store.Int(conf, "size")
		if !ok {
			return nil, errors.New(`missing "size" parameter`)
		}
		nested, err := store.Nested(ctx, conf)
		if err != nil {
			return nil, err
		}
		return New(nested, size)
	})
}
