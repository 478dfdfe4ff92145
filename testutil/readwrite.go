package testutil

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bobg/ledger"
)

// ReadWrite permits testing a Store implementation
// by allocating, rewriting, and freeing entries,
// checking after each commit that reads see exactly what was committed.
func ReadWrite(ctx context.Context, t *testing.T, store ledger.Store) {
	var (
		addr = ledger.Address{0x01}
		blog = &ledger.Blog{
			Owner:       ledger.Principal{0xaa},
			Title:       "Yub Nub",
			Description: "Ewok victory song",
			CreatedAt:   236966400,
			Bump:        254,
		}
	)

	_, err := store.Read(ctx, addr)
	if !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("got error %v reading empty address, want ErrNotFound", err)
	}

	var tx ledger.Tx
	if err = tx.Allocate(addr, blog); err != nil {
		t.Fatal(err)
	}
	if err = store.Commit(ctx, &tx); err != nil {
		t.Fatal(err)
	}
	checkBlog(ctx, t, store, addr, blog)

	if err = store.Commit(ctx, &tx); !errors.Is(err, ledger.ErrAlreadyExists) {
		t.Fatalf("got error %v reallocating, want ErrAlreadyExists", err)
	}

	blog.NumberOfPosts = 7
	tx = ledger.Tx{}
	if err = tx.Write(addr, blog); err != nil {
		t.Fatal(err)
	}
	if err = store.Commit(ctx, &tx); err != nil {
		t.Fatal(err)
	}
	checkBlog(ctx, t, store, addr, blog)

	tx = ledger.Tx{}
	tx.Free(addr)
	if err = store.Commit(ctx, &tx); err != nil {
		t.Fatal(err)
	}
	if _, err = store.Read(ctx, addr); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("got error %v reading freed address, want ErrNotFound", err)
	}
	if err = store.Commit(ctx, &tx); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("got error %v freeing free address, want ErrNotFound", err)
	}

	tx = ledger.Tx{}
	if err = tx.Write(addr, blog); err != nil {
		t.Fatal(err)
	}
	if err = store.Commit(ctx, &tx); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("got error %v writing free address, want ErrNotFound", err)
	}

	// A freed address can be allocated again.
	tx = ledger.Tx{}
	if err = tx.Allocate(addr, blog); err != nil {
		t.Fatal(err)
	}
	if err = store.Commit(ctx, &tx); err != nil {
		t.Fatal(err)
	}
	checkBlog(ctx, t, store, addr, blog)
}

func checkBlog(ctx context.Context, t *testing.T, store ledger.Getter, addr ledger.Address, want *ledger.Blog) {
	t.Helper()

	slot, err := store.Read(ctx, addr)
	if err != nil {
		t.Fatal(err)
	}
	var got ledger.Blog
	if err = ledger.Decode(slot, &got); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, &got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}
