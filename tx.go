package ledger

import (
	"fmt"

	"github.com/pkg/errors"
)

// OpKind is the kind of a staged Op.
type OpKind int

const (
	OpAllocate OpKind = iota + 1
	OpWrite
	OpFree
)

func (k OpKind) String() string {
	switch k {
	case OpAllocate:
		return "allocate"
	case OpWrite:
		return "write"
	case OpFree:
		return "free"
	}
	return fmt.Sprintf("op(%d)", int(k))
}

// Op is one staged change to a Store.
type Op struct {
	Kind OpKind
	Addr Address
	Slot Slot // unused for OpFree
}

// Tx is a set of staged changes that a Store applies all at once.
// Building a Tx touches no state; only Store.Commit does.
type Tx struct {
	Ops []Op
}

// ErrSlotOverflow is the error produced when staging a record
// larger than its layout's slot.
var ErrSlotOverflow = errors.New("record exceeds slot capacity")

// Allocate stages the creation of a new entry at addr.
func (tx *Tx) Allocate(addr Address, r Record) error {
	slot, err := encodeForSlot(r)
	if err != nil {
		return err
	}
	tx.Ops = append(tx.Ops, Op{Kind: OpAllocate, Addr: addr, Slot: slot})
	return nil
}

// Write stages replacing the contents of the existing entry at addr.
func (tx *Tx) Write(addr Address, r Record) error {
	slot, err := encodeForSlot(r)
	if err != nil {
		return err
	}
	tx.Ops = append(tx.Ops, Op{Kind: OpWrite, Addr: addr, Slot: slot})
	return nil
}

// Free stages the release of the entry at addr.
func (tx *Tx) Free(addr Address) {
	tx.Ops = append(tx.Ops, Op{Kind: OpFree, Addr: addr})
}

func encodeForSlot(r Record) (Slot, error) {
	slot := Encode(r)
	if capacity := slot.Layout.Capacity(); len(slot.Data) > capacity {
		return Slot{}, errors.Wrapf(ErrSlotOverflow, "%s is %d bytes, capacity %d", slot.Layout, len(slot.Data), capacity)
	}
	return slot, nil
}

// Check verifies that tx can be applied to a state in which
// exactly the addresses for which occupied returns true are in use.
// Store implementations call it under whatever lock or transaction
// makes occupied consistent with the subsequent apply.
func (tx *Tx) Check(occupied func(Address) (bool, error)) error {
	overlay := make(map[Address]bool)
	for i, op := range tx.Ops {
		present, ok := overlay[op.Addr]
		if !ok {
			var err error
			present, err = occupied(op.Addr)
			if err != nil {
				return errors.Wrapf(err, "checking op %d (%s %s)", i, op.Kind, op.Addr)
			}
		}
		switch op.Kind {
		case OpAllocate:
			if present {
				return errors.Wrapf(ErrAlreadyExists, "allocating %s", op.Addr)
			}
			overlay[op.Addr] = true

		case OpWrite:
			if !present {
				return errors.Wrapf(ErrNotFound, "writing %s", op.Addr)
			}

		case OpFree:
			if !present {
				return errors.Wrapf(ErrNotFound, "freeing %s", op.Addr)
			}
			overlay[op.Addr] = false

		default:
			return fmt.Errorf("op %d: unknown kind %s", i, op.Kind)
		}
	}
	return nil
}

// Touched returns the distinct addresses tx changes.
func (tx *Tx) Touched() []Address {
	var (
		seen   = make(map[Address]bool)
		result []Address
	)
	for _, op := range tx.Ops {
		if !seen[op.Addr] {
			seen[op.Addr] = true
			result = append(result, op.Addr)
		}
	}
	return result
}
