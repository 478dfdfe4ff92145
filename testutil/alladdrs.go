package testutil

import (
	"context"
	"sort"
	"testing"
	"testing/quick"

	"github.com/google/go-cmp/cmp"

	"github.com/bobg/ledger"
)

// AllAddrs allocates a random set of entries in an empty store
// and makes sure that the right set of addresses comes back,
// in order,
// in a call to Each.
func AllAddrs(ctx context.Context, t *testing.T, storeFactory func() ledger.Store) {
	if err := quick.Check(allAddrsHelper(ctx, t, storeFactory), &quick.Config{MaxCount: 20}); err != nil {
		t.Error(err)
	}
}

func allAddrsHelper(ctx context.Context, t *testing.T, storeFactory func() ledger.Store) func([]ledger.Address) bool {
	return func(addrs []ledger.Address) bool {
		var (
			store = storeFactory()
			seen  = make(map[ledger.Address]bool)
			want  []ledger.Address
			tx    ledger.Tx
		)
		for _, addr := range addrs {
			if seen[addr] {
				continue
			}
			seen[addr] = true
			want = append(want, addr)
			if err := tx.Allocate(addr, &ledger.Comment{BlogPost: addr, Content: addr.String()}); err != nil {
				t.Fatal(err)
			}
		}
		if err := store.Commit(ctx, &tx); err != nil {
			t.Fatal(err)
		}

		var got []ledger.Address
		err := store.Each(ctx, func(addr ledger.Address, slot ledger.Slot) error {
			var c ledger.Comment
			if err := ledger.Decode(slot, &c); err != nil {
				return err
			}
			if c.BlogPost != addr {
				t.Errorf("slot at %s holds comment on %s", addr, c.BlogPost)
			}
			got = append(got, addr)
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}

		sort.Slice(want, func(i, j int) bool { return want[i].Less(want[j]) })

		if diff := cmp.Diff(want, got); diff != "" {
			t.Logf("mismatch (-want +got):\n%s", diff)
			return false
		}
		return true
	}
}
