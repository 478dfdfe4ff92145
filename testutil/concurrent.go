package testutil

import (
	"context"
	"fmt"
	"testing"

	"golang.org/x/sync/errgroup"

	"github.com/bobg/ledger"
)

// Concurrent commits to disjoint addresses from many goroutines at once
// and checks that every commit landed.
func Concurrent(ctx context.Context, t *testing.T, store ledger.Store) {
	const n = 32

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			addr := ledger.Address{0xc0, byte(i)}
			var tx ledger.Tx
			if err := tx.Allocate(addr, &ledger.Blog{Title: fmt.Sprintf("blog %d", i)}); err != nil {
				return err
			}
			if err := store.Commit(gctx, &tx); err != nil {
				return err
			}
			tx = ledger.Tx{}
			if err := tx.Write(addr, &ledger.Blog{Title: fmt.Sprintf("blog %d", i), NumberOfPosts: uint64(i)}); err != nil {
				return err
			}
			return store.Commit(gctx, &tx)
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < n; i++ {
		checkBlog(ctx, t, store, ledger.Address{0xc0, byte(i)}, &ledger.Blog{Title: fmt.Sprintf("blog %d", i), NumberOfPosts: uint64(i)})
	}
}
