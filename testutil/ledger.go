package testutil

import (
	"context"
	"crypto/ed25519"
	"errors"
	"testing"
	"time"

	"github.com/bobg/ledger"
)

// Ledger runs a blog through its life
// (posts created and deleted, comments added and moderated)
// on top of the given Store.
func Ledger(ctx context.Context, t *testing.T, store ledger.Store) {
	var (
		owner   = NewPrincipal(t)
		reader  = NewPrincipal(t)
		clock   = time.Date(1983, 5, 25, 0, 0, 0, 0, time.UTC)
		program = ledger.New(store, ledger.WithClock(func() time.Time { return clock }))
	)

	blogAddr, err := program.InitializeBlog(ctx, ledger.Signers(owner), ledger.InitializeBlogRequest{
		Owner:       owner,
		Title:       "T",
		Description: "D",
	})
	if err != nil {
		t.Fatal(err)
	}

	postAddr, err := program.CreatePost(ctx, ledger.Signers(owner), ledger.CreatePostRequest{
		Blog:    blogAddr,
		Title:   "P",
		Content: "C",
	})
	if err != nil {
		t.Fatal(err)
	}
	expectCounts(ctx, t, program, blogAddr, 1, postAddr, 0)

	commentAddr, err := program.AddComment(ctx, ledger.Signers(reader), ledger.AddCommentRequest{
		Post:    postAddr,
		Author:  reader,
		Content: "first",
	})
	if err != nil {
		t.Fatal(err)
	}
	expectCounts(ctx, t, program, blogAddr, 1, postAddr, 1)

	comment, err := program.Comment(ctx, commentAddr)
	if err != nil {
		t.Fatal(err)
	}
	if comment.CommentAuthor != reader || comment.BlogPost != postAddr || comment.Blog != blogAddr {
		t.Errorf("got comment %+v", comment)
	}

	err = program.DeleteComment(ctx, ledger.Signers(owner), ledger.DeleteCommentRequest{Post: postAddr, Author: reader})
	if err != nil {
		t.Fatal(err)
	}
	expectCounts(ctx, t, program, blogAddr, 1, postAddr, 0)

	err = program.DeletePost(ctx, ledger.Signers(owner), ledger.DeletePostRequest{Blog: blogAddr, Title: "P"})
	if err != nil {
		t.Fatal(err)
	}
	blog, err := program.Blog(ctx, blogAddr)
	if err != nil {
		t.Fatal(err)
	}
	if blog.NumberOfPosts != 0 {
		t.Errorf("got %d posts, want 0", blog.NumberOfPosts)
	}
	if _, err = program.Post(ctx, postAddr); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("got error %v reading deleted post, want ErrNotFound", err)
	}
}

func expectCounts(ctx context.Context, t *testing.T, program *ledger.Program, blogAddr ledger.Address, posts uint64, postAddr ledger.Address, comments uint64) {
	t.Helper()

	blog, err := program.Blog(ctx, blogAddr)
	if err != nil {
		t.Fatal(err)
	}
	if blog.NumberOfPosts != posts {
		t.Errorf("got %d posts, want %d", blog.NumberOfPosts, posts)
	}
	post, err := program.Post(ctx, postAddr)
	if err != nil {
		t.Fatal(err)
	}
	if post.NumberOfComments != comments {
		t.Errorf("got %d comments, want %d", post.NumberOfComments, comments)
	}
}

// NewPrincipal generates a fresh principal.
func NewPrincipal(t *testing.T) ledger.Principal {
	p, _ := NewKey(t)
	return p
}

// NewKey generates a fresh principal and its private key.
func NewKey(t *testing.T) (ledger.Principal, ed25519.PrivateKey) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatal(err)
	}
	p, err := ledger.PrincipalFromKey(pub)
	if err != nil {
		t.Fatal(err)
	}
	return p, priv
}
