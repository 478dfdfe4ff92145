package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/bobg/ledger"
	"github.com/bobg/ledger/store/sqlite3"
)

func runLedger(t *testing.T, args ...string) {
	t.Helper()
	if err := run(context.Background(), args); err != nil {
		t.Fatalf("ledger %v: %s", args, err)
	}
}

func writeConfig(t *testing.T, config, dbfile string) {
	t.Helper()
	err := os.WriteFile(config, []byte(fmt.Sprintf("type = \"sqlite3\"\nconn = %q\n", dbfile)), 0644)
	if err != nil {
		t.Fatal(err)
	}
}

func openProgram(ctx context.Context, t *testing.T, dbfile string) (*ledger.Program, *sql.DB) {
	t.Helper()
	db, err := sql.Open("sqlite3", dbfile)
	if err != nil {
		t.Fatal(err)
	}
	s, err := sqlite3.New(ctx, db)
	if err != nil {
		db.Close()
		t.Fatal(err)
	}
	return ledger.New(s), db
}

func TestCommands(t *testing.T) {
	var (
		ctx = context.Background()
		dir = t.TempDir()

		config  = filepath.Join(dir, "ledger.toml")
		dbfile  = filepath.Join(dir, "ledger.db")
		config2 = filepath.Join(dir, "replica.toml")
		dbfile2 = filepath.Join(dir, "replica.db")
		key     = filepath.Join(dir, "ledger.key")
	)
	writeConfig(t, config, dbfile)
	writeConfig(t, config2, dbfile2)

	runLedger(t, "keygen", "-o", key)
	_, owner, err := readKey(key)
	if err != nil {
		t.Fatal(err)
	}

	runLedger(t, "-config", config, "init-blog", "-key", key, "-title", "Notes", "-description", "things I noticed")

	p := ledger.New(nil)
	blogAddr, _, err := p.BlogAddress("Notes", owner)
	if err != nil {
		t.Fatal(err)
	}
	postAddr, _, err := p.PostAddress("First", owner)
	if err != nil {
		t.Fatal(err)
	}

	runLedger(t, "-config", config, "create-post", "-key", key, "-blog", blogAddr.String(), "-title", "First", "-content", "hello")
	runLedger(t, "-config", config, "update-post", "-key", key, "-blog", blogAddr.String(), "-title", "First", "-content", "hello again")
	runLedger(t, "-config", config, "add-comment", "-key", key, "-post", postAddr.String(), "-content", "nice")
	runLedger(t, "-config", config, "get", postAddr.String())
	runLedger(t, "-config", config, "address", "post", "First", owner.String())
	runLedger(t, "-config", config, "sync", config2)

	for _, f := range []string{dbfile, dbfile2} {
		p, db := openProgram(ctx, t, f)

		blog, err := p.Blog(ctx, blogAddr)
		if err != nil {
			db.Close()
			t.Fatalf("%s: %s", f, err)
		}
		if blog.NumberOfPosts != 1 {
			t.Errorf("%s: got %d posts, want 1", f, blog.NumberOfPosts)
		}
		post, err := p.Post(ctx, postAddr)
		if err != nil {
			db.Close()
			t.Fatalf("%s: %s", f, err)
		}
		if post.Content != "hello again" {
			t.Errorf("%s: got content %q, want %q", f, post.Content, "hello again")
		}
		if post.NumberOfComments != 1 {
			t.Errorf("%s: got %d comments, want 1", f, post.NumberOfComments)
		}

		db.Close()
	}

	runLedger(t, "-config", config, "delete-comment", "-key", key, "-post", postAddr.String())
	runLedger(t, "-config", config, "delete-post", "-key", key, "-blog", blogAddr.String(), "-title", "First")
	runLedger(t, "-config", config, "ls")

	p, db := openProgram(ctx, t, dbfile)
	defer db.Close()
	blog, err := p.Blog(ctx, blogAddr)
	if err != nil {
		t.Fatal(err)
	}
	if blog.NumberOfPosts != 0 {
		t.Errorf("got %d posts after delete, want 0", blog.NumberOfPosts)
	}
}

func TestBadArgs(t *testing.T) {
	var (
		ctx    = context.Background()
		dir    = t.TempDir()
		config = filepath.Join(dir, "ledger.toml")
	)
	writeConfig(t, config, filepath.Join(dir, "ledger.db"))

	cases := [][]string{
		{"-config", config, "nonesuch"},
		{"-config", config, "create-post", "-title", "x"},
		{"-config", config, "create-post", "-blog", "zz", "-title", "x"},
		{"-config", config, "get"},
		{"-config", config, "sync"},
		{"-config", config, "address", "blog", "only-a-title"},
		{"-program", "zz", "address", "blog", "t", ledger.Principal{}.String()},
	}
	for _, args := range cases {
		if err := run(ctx, args); err == nil {
			t.Errorf("ledger %v: got no error", args)
		}
	}
}

func TestDecodeSlot(t *testing.T) {
	blog := &ledger.Blog{Title: "t", Description: "d"}
	r, err := decodeSlot(ledger.Encode(blog))
	if err != nil {
		t.Fatal(err)
	}
	got, ok := r.(*ledger.Blog)
	if !ok {
		t.Fatalf("got %T, want *ledger.Blog", r)
	}
	if got.Title != "t" || got.Description != "d" {
		t.Errorf("got %+v", got)
	}

	if _, err = decodeSlot(ledger.Slot{Layout: 99}); err == nil {
		t.Error("got no error for unknown layout")
	}
}
