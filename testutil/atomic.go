package testutil

import (
	"context"
	"errors"
	"testing"

	"github.com/bobg/ledger"
)

// Atomic checks that a Store applies all of a Tx or none of it.
func Atomic(ctx context.Context, t *testing.T, store ledger.Store) {
	var (
		a1 = ledger.Address{0xa1}
		a2 = ledger.Address{0xa2}
		a3 = ledger.Address{0xa3}

		blog = &ledger.Blog{Title: "before", NumberOfPosts: 1}
	)

	var tx ledger.Tx
	if err := tx.Allocate(a1, blog); err != nil {
		t.Fatal(err)
	}
	if err := store.Commit(ctx, &tx); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name  string
		stage func(*ledger.Tx) error
		want  error
	}{
		{
			name: "late allocate conflict",
			stage: func(tx *ledger.Tx) error {
				if err := tx.Allocate(a2, &ledger.Post{Title: "p"}); err != nil {
					return err
				}
				if err := tx.Write(a1, &ledger.Blog{Title: "after", NumberOfPosts: 2}); err != nil {
					return err
				}
				return tx.Allocate(a1, &ledger.Blog{Title: "again"})
			},
			want: ledger.ErrAlreadyExists,
		},
		{
			name: "late free of missing entry",
			stage: func(tx *ledger.Tx) error {
				if err := tx.Allocate(a2, &ledger.Post{Title: "p"}); err != nil {
					return err
				}
				tx.Free(a1)
				tx.Free(a3)
				return nil
			},
			want: ledger.ErrNotFound,
		},
		{
			name: "write after free in same tx",
			stage: func(tx *ledger.Tx) error {
				tx.Free(a1)
				return tx.Write(a1, blog)
			},
			want: ledger.ErrNotFound,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			var tx ledger.Tx
			if err := c.stage(&tx); err != nil {
				t.Fatal(err)
			}
			err := store.Commit(ctx, &tx)
			if !errors.Is(err, c.want) {
				t.Fatalf("got error %v, want %v", err, c.want)
			}

			checkBlog(ctx, t, store, a1, blog)
			if _, err = store.Read(ctx, a2); !errors.Is(err, ledger.ErrNotFound) {
				t.Errorf("got error %v reading %s, want ErrNotFound", err, a2)
			}
		})
	}

	// Ops see the effects of earlier ops in the same Tx.
	tx = ledger.Tx{}
	tx.Free(a1)
	if err := tx.Allocate(a1, &ledger.Blog{Title: "reborn"}); err != nil {
		t.Fatal(err)
	}
	if err := store.Commit(ctx, &tx); err != nil {
		t.Fatal(err)
	}
	checkBlog(ctx, t, store, a1, &ledger.Blog{Title: "reborn"})
}
