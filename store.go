package ledger

import "context"

// Slot is the contents of one entry in a Store:
// an encoded record and the layout it was encoded with.
type Slot struct {
	Layout Layout
	Data   []byte
}

// Getter is a read-only Store (qv).
type Getter interface {
	// Read gets the slot at addr.
	// It returns ErrNotFound if the address is free.
	Read(context.Context, Address) (Slot, error)
}

// Store is an entry store.
// It holds one slot per occupied address
// and changes only by committing a Tx.
type Store interface {
	Getter

	// Commit applies every op in tx, or none of them.
	// Allocating an occupied address fails with ErrAlreadyExists;
	// writing or freeing a free address fails with ErrNotFound.
	// Ops are checked in order against the state left by the ops before them.
	Commit(context.Context, *Tx) error

	// Each calls a function for each occupied address in the store,
	// in lexicographic order of address.
	// It is meant for administration and debugging;
	// the ledger never enumerates entries.
	//
	// If the callback function returns an error,
	// Each exits with that error.
	Each(context.Context, func(Address, Slot) error) error
}
