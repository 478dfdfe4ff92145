package ledger

import "math"

// Parent counters change only in the same Tx
// that allocates or frees the child they count.

func increment(n *uint64) error {
	if *n == math.MaxUint64 {
		return ErrOverflow
	}
	*n++
	return nil
}

func decrement(n *uint64) error {
	if *n == 0 {
		return ErrUnderflow
	}
	*n--
	return nil
}

// stageChild stages the allocation of a child entry
// together with the parent whose counter has been bumped to account for it.
func stageChild(tx *Tx, childAddr Address, child Record, parentAddr Address, parent Record, counter *uint64) error {
	if err := increment(counter); err != nil {
		return err
	}
	if err := tx.Allocate(childAddr, child); err != nil {
		return err
	}
	return tx.Write(parentAddr, parent)
}

// stageRelease stages freeing a child entry
// together with the parent whose counter has been dropped to account for it.
func stageRelease(tx *Tx, childAddr Address, parentAddr Address, parent Record, counter *uint64) error {
	if err := decrement(counter); err != nil {
		return err
	}
	tx.Free(childAddr)
	return tx.Write(parentAddr, parent)
}
