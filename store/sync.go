package store

import (
	"context"
	"sort"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/bobg/ledger"
)

// Sync synchronizes two or more stores.
// It runs Each on all input stores.
// When an address is found to be occupied in some but not all stores,
// its slot is allocated in the stores where it's missing,
// copied from the earliest store in the list that has it.
// Addresses occupied in every store are left alone,
// even if their contents differ.
//
// Each store receives its missing slots in a single Commit,
// after all the listings are done.
func Sync(ctx context.Context, stores []ledger.Store) error {
	if len(stores) < 2 {
		return nil
	}

	type entry struct {
		addr ledger.Address
		slot ledger.Slot
	}

	type tuple struct {
		n   int
		s   ledger.Store
		ch  <-chan entry
		cur *entry
		tx  ledger.Tx
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	eg, ctx2 := errgroup.WithContext(ctx)

	tuples := make([]*tuple, 0, len(stores))
	for i, s := range stores {
		i, s := i, s
		ch := make(chan entry)
		eg.Go(func() error {
			defer close(ch)
			err := s.Each(ctx2, func(addr ledger.Address, slot ledger.Slot) error {
				select {
				case <-ctx2.Done():
					return ctx2.Err()
				case ch <- entry{addr: addr, slot: slot}:
				}
				return nil
			})
			return errors.Wrapf(err, "listing store %d", i)
		})
		tuples = append(tuples, &tuple{n: i, s: s, ch: ch})
	}

	advance := func(tup *tuple) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e, ok := <-tup.ch:
			if ok {
				tup.cur = &e
			} else {
				tup.cur = nil
			}
		}
		return nil
	}

	for _, tup := range tuples {
		if err := advance(tup); err != nil {
			return err
		}
	}

	for {
		// Lowest address first; among equal addresses, earliest store first.
		sort.Slice(tuples, func(i, j int) bool {
			ci, cj := tuples[i].cur, tuples[j].cur
			switch {
			case ci == nil:
				return false
			case cj == nil:
				return true
			case ci.addr != cj.addr:
				return ci.addr.Less(cj.addr)
			default:
				return tuples[i].n < tuples[j].n
			}
		})

		if tuples[0].cur == nil {
			// End of input on all channels.
			break
		}

		e := *tuples[0].cur

		var havers, needers []*tuple
		for _, tup := range tuples {
			if tup.cur != nil && tup.cur.addr == e.addr {
				havers = append(havers, tup)
			} else {
				needers = append(needers, tup)
			}
		}

		for _, tup := range needers {
			tup.tx.Ops = append(tup.tx.Ops, ledger.Op{Kind: ledger.OpAllocate, Addr: e.addr, Slot: e.slot})
		}
		for _, tup := range havers {
			if err := advance(tup); err != nil {
				return err
			}
		}
	}

	if err := eg.Wait(); err != nil {
		return err
	}

	eg, ctx = errgroup.WithContext(ctx)
	for _, tup := range tuples {
		tup := tup
		if len(tup.tx.Ops) == 0 {
			continue
		}
		eg.Go(func() error {
			return errors.Wrapf(tup.s.Commit(ctx, &tup.tx), "committing %d slot(s) to store %d", len(tup.tx.Ops), tup.n)
		})
	}
	return eg.Wait()
}
