// Package mem implements an in-memory entry store.
package mem

import (
	"context"
	"sort"
	"sync"

	"github.com/bobg/ledger"
	"github.com/bobg/ledger/store"
)

var _ ledger.Store = &Store{}

// Store is a memory-based implementation of an entry store.
type Store struct {
	mu    sync.Mutex
	slots map[ledger.Address]ledger.Slot
}

// New produces a new Store.
func New() *Store {
	return &Store{
		slots: make(map[ledger.Address]ledger.Slot),
	}
}

// Read gets the slot at addr.
func (s *Store) Read(_ context.Context, addr ledger.Address) (ledger.Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.slots[addr]
	if !ok {
		return ledger.Slot{}, ledger.ErrNotFound
	}
	return copySlot(slot), nil
}

// Commit applies tx atomically.
func (s *Store) Commit(_ context.Context, tx *ledger.Tx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := tx.Check(func(addr ledger.Address) (bool, error) {
		_, ok := s.slots[addr]
		return ok, nil
	})
	if err != nil {
		return err
	}

	for _, op := range tx.Ops {
		switch op.Kind {
		case ledger.OpAllocate, ledger.OpWrite:
			s.slots[op.Addr] = copySlot(op.Slot)
		case ledger.OpFree:
			delete(s.slots, op.Addr)
		}
	}
	return nil
}

// Each calls f for each occupied address, in lexicographic order.
func (s *Store) Each(ctx context.Context, f func(ledger.Address, ledger.Slot) error) error {
	s.mu.Lock()
	addrs := make([]ledger.Address, 0, len(s.slots))
	for addr := range s.slots {
		addrs = append(addrs, addr)
	}
	s.mu.Unlock()

	sort.Slice(addrs, func(i, j int) bool { return addrs[i].Less(addrs[j]) })

	for _, addr := range addrs {
		s.mu.Lock()
		slot, ok := s.slots[addr]
		s.mu.Unlock()
		if !ok {
			continue
		}
		if err := f(addr, copySlot(slot)); err != nil {
			return err
		}
	}
	return nil
}

// Len is the number of occupied addresses.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.slots)
}

func copySlot(slot ledger.Slot) ledger.Slot {
	data := make([]byte, len(slot.Data))
	copy(data, slot.Data)
	return ledger.Slot{Layout: slot.Layout, Data: data}
}

func init() {
	store.Register("mem", func(context.Context, map[string]interface{}) (ledger.Store, error) {
		return New(), nil
	})
}
