package ledger_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"
	"testing/quick"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/bobg/ledger"
	"github.com/bobg/ledger/store/mem"
	"github.com/bobg/ledger/testutil"
)

var epoch = time.Date(1977, 5, 25, 12, 0, 0, 0, time.UTC)

func newProgram() (*ledger.Program, *mem.Store) {
	s := mem.New()
	return ledger.New(s, ledger.WithClock(func() time.Time { return epoch })), s
}

func initBlog(ctx context.Context, t *testing.T, p *ledger.Program, owner ledger.Principal, title string) ledger.Address {
	t.Helper()
	addr, err := p.InitializeBlog(ctx, ledger.Signers(owner), ledger.InitializeBlogRequest{Owner: owner, Title: title, Description: "about " + title})
	if err != nil {
		t.Fatal(err)
	}
	return addr
}

func createPost(ctx context.Context, t *testing.T, p *ledger.Program, owner ledger.Principal, blog ledger.Address, title string) ledger.Address {
	t.Helper()
	addr, err := p.CreatePost(ctx, ledger.Signers(owner), ledger.CreatePostRequest{Blog: blog, Title: title, Content: "content of " + title})
	if err != nil {
		t.Fatal(err)
	}
	return addr
}

func TestInitializeBlog(t *testing.T) {
	ctx := context.Background()

	f := func(title, description string) bool {
		if len(title) == 0 || len(title) > ledger.MaxBlogTitleLen || len(description) > ledger.MaxBlogDescriptionLen {
			return true
		}
		var (
			p, _  = newProgram()
			owner = testutil.NewPrincipal(t)
		)
		addr, err := p.InitializeBlog(ctx, ledger.Signers(owner), ledger.InitializeBlogRequest{Owner: owner, Title: title, Description: description})
		if err != nil {
			t.Log(err)
			return false
		}
		wantAddr, bump, err := p.BlogAddress(title, owner)
		if err != nil || wantAddr != addr {
			return false
		}
		got, err := p.Blog(ctx, addr)
		if err != nil {
			t.Log(err)
			return false
		}
		want := &ledger.Blog{Owner: owner, Title: title, Description: description, CreatedAt: epoch.Unix(), Bump: bump}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Logf("mismatch (-want +got):\n%s", diff)
			return false
		}
		return true
	}
	if err := quick.Check(f, nil); err != nil {
		t.Error(err)
	}
}

func TestInitializeBlogTwice(t *testing.T) {
	var (
		ctx   = context.Background()
		p, s  = newProgram()
		owner = testutil.NewPrincipal(t)
		other = testutil.NewPrincipal(t)
	)
	initBlog(ctx, t, p, owner, "T")

	for _, desc := range []string{"", "D", "something else"} {
		_, err := p.InitializeBlog(ctx, ledger.Signers(owner), ledger.InitializeBlogRequest{Owner: owner, Title: "T", Description: desc})
		if !errors.Is(err, ledger.ErrAlreadyExists) {
			t.Errorf("description %q: got %v, want ErrAlreadyExists", desc, err)
		}
	}

	// Same title, different owner: a different blog.
	initBlog(ctx, t, p, other, "T")
	if s.Len() != 2 {
		t.Errorf("got %d entries, want 2", s.Len())
	}
}

func TestInitializeBlogUnauthorized(t *testing.T) {
	var (
		ctx   = context.Background()
		p, s  = newProgram()
		owner = testutil.NewPrincipal(t)
		other = testutil.NewPrincipal(t)
	)
	_, err := p.InitializeBlog(ctx, ledger.Signers(other), ledger.InitializeBlogRequest{Owner: owner, Title: "T"})
	if !errors.Is(err, ledger.ErrUnauthorized) {
		t.Errorf("got %v, want ErrUnauthorized", err)
	}
	if s.Len() != 0 {
		t.Errorf("got %d entries, want 0", s.Len())
	}
}

func TestValidation(t *testing.T) {
	var (
		ctx    = context.Background()
		p, s   = newProgram()
		owner  = testutil.NewPrincipal(t)
		reader = testutil.NewPrincipal(t)
		blog   = initBlog(ctx, t, p, owner, "T")
		post   = createPost(ctx, t, p, owner, blog, "P")
		long   = func(n int) string { return strings.Repeat("x", n+1) }
	)

	cases := []struct {
		name  string
		field string
		limit int
		run   func() error
	}{
		{
			name: "blog title", field: "title", limit: ledger.MaxBlogTitleLen,
			run: func() error {
				_, err := p.InitializeBlog(ctx, ledger.Signers(owner), ledger.InitializeBlogRequest{Owner: owner, Title: long(ledger.MaxBlogTitleLen)})
				return err
			},
		},
		{
			name: "empty blog title", field: "title", limit: ledger.MaxBlogTitleLen,
			run: func() error {
				_, err := p.InitializeBlog(ctx, ledger.Signers(owner), ledger.InitializeBlogRequest{Owner: owner})
				return err
			},
		},
		{
			name: "blog description", field: "description", limit: ledger.MaxBlogDescriptionLen,
			run: func() error {
				_, err := p.InitializeBlog(ctx, ledger.Signers(owner), ledger.InitializeBlogRequest{Owner: owner, Title: "U", Description: long(ledger.MaxBlogDescriptionLen)})
				return err
			},
		},
		{
			name: "post title", field: "title", limit: ledger.MaxPostTitleLen,
			run: func() error {
				_, err := p.CreatePost(ctx, ledger.Signers(owner), ledger.CreatePostRequest{Blog: blog, Title: long(ledger.MaxPostTitleLen)})
				return err
			},
		},
		{
			name: "post content", field: "content", limit: ledger.MaxPostContentLen,
			run: func() error {
				_, err := p.CreatePost(ctx, ledger.Signers(owner), ledger.CreatePostRequest{Blog: blog, Title: "Q", Content: long(ledger.MaxPostContentLen)})
				return err
			},
		},
		{
			name: "updated post content", field: "content", limit: ledger.MaxPostContentLen,
			run: func() error {
				return p.UpdatePost(ctx, ledger.Signers(owner), ledger.UpdatePostRequest{Blog: blog, Title: "P", Content: long(ledger.MaxPostContentLen)})
			},
		},
		{
			name: "comment content", field: "content", limit: ledger.MaxCommentContentLen,
			run: func() error {
				_, err := p.AddComment(ctx, ledger.Signers(reader), ledger.AddCommentRequest{Post: post, Author: reader, Content: long(ledger.MaxCommentContentLen)})
				return err
			},
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			before := snapshot(ctx, t, s)

			err := c.run()
			var verr *ledger.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("got %v, want ValidationError", err)
			}
			if verr.Field != c.field || verr.Limit != c.limit {
				t.Errorf("got %+v, want field %s limit %d", verr, c.field, c.limit)
			}

			if diff := cmp.Diff(before, snapshot(ctx, t, s)); diff != "" {
				t.Errorf("state changed (-before +after):\n%s", diff)
			}
		})
	}
}

func snapshot(ctx context.Context, t *testing.T, s ledger.Store) map[ledger.Address]ledger.Slot {
	t.Helper()
	result := make(map[ledger.Address]ledger.Slot)
	err := s.Each(ctx, func(addr ledger.Address, slot ledger.Slot) error {
		result[addr] = slot
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	return result
}

func TestPostCount(t *testing.T) {
	f := func(n, m uint8) bool {
		n %= 20
		if n == 0 {
			return true
		}
		m %= n + 1

		var (
			ctx   = context.Background()
			p, _  = newProgram()
			owner = testutil.NewPrincipal(t)
			blog  = initBlog(ctx, t, p, owner, "counted")
		)
		for i := 0; i < int(n); i++ {
			createPost(ctx, t, p, owner, blog, fmt.Sprintf("post %d", i))
		}
		for i := 0; i < int(m); i++ {
			err := p.DeletePost(ctx, ledger.Signers(owner), ledger.DeletePostRequest{Blog: blog, Title: fmt.Sprintf("post %d", i)})
			if err != nil {
				t.Log(err)
				return false
			}
		}
		b, err := p.Blog(ctx, blog)
		if err != nil {
			t.Log(err)
			return false
		}
		return b.NumberOfPosts == uint64(n-m)
	}
	if err := quick.Check(f, &quick.Config{MaxCount: 30}); err != nil {
		t.Error(err)
	}
}

func TestCreatePost(t *testing.T) {
	var (
		ctx      = context.Background()
		p, s     = newProgram()
		owner    = testutil.NewPrincipal(t)
		stranger = testutil.NewPrincipal(t)
		blog     = initBlog(ctx, t, p, owner, "T")
		blog2    = initBlog(ctx, t, p, owner, "T2")
	)

	_, err := p.CreatePost(ctx, ledger.Signers(stranger), ledger.CreatePostRequest{Blog: blog, Title: "P"})
	if !errors.Is(err, ledger.ErrUnauthorized) {
		t.Errorf("got %v, want ErrUnauthorized", err)
	}

	_, err = p.CreatePost(ctx, ledger.Signers(owner), ledger.CreatePostRequest{Blog: ledger.Address{9}, Title: "P"})
	if !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}

	addr := createPost(ctx, t, p, owner, blog, "P")
	post, err := p.Post(ctx, addr)
	if err != nil {
		t.Fatal(err)
	}
	wantAddr, bump, err := p.PostAddress("P", owner)
	if err != nil {
		t.Fatal(err)
	}
	want := &ledger.Post{
		Owner:     owner,
		Blog:      blog,
		Title:     "P",
		Content:   "content of P",
		CreatedAt: epoch.Unix(),
		UpdatedAt: epoch.Unix(),
		Bump:      bump,
	}
	if addr != wantAddr {
		t.Errorf("got address %s, want %s", addr, wantAddr)
	}
	if diff := cmp.Diff(want, post); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	_, err = p.CreatePost(ctx, ledger.Signers(owner), ledger.CreatePostRequest{Blog: blog, Title: "P"})
	if !errors.Is(err, ledger.ErrAlreadyExists) {
		t.Errorf("got %v, want ErrAlreadyExists", err)
	}

	// Post identity ignores the blog: the same owner can't reuse a title in another blog.
	before := snapshot(ctx, t, s)
	_, err = p.CreatePost(ctx, ledger.Signers(owner), ledger.CreatePostRequest{Blog: blog2, Title: "P"})
	if !errors.Is(err, ledger.ErrAlreadyExists) {
		t.Errorf("got %v, want ErrAlreadyExists", err)
	}
	if diff := cmp.Diff(before, snapshot(ctx, t, s)); diff != "" {
		t.Errorf("state changed (-before +after):\n%s", diff)
	}
}

func TestUpdatePost(t *testing.T) {
	var (
		ctx    = context.Background()
		p, s   = newProgram()
		owner  = testutil.NewPrincipal(t)
		reader = testutil.NewPrincipal(t)
		blog   = initBlog(ctx, t, p, owner, "T")
		blog2  = initBlog(ctx, t, p, owner, "T2")
		addr   = createPost(ctx, t, p, owner, blog, "P")
	)
	if _, err := p.AddComment(ctx, ledger.Signers(reader), ledger.AddCommentRequest{Post: addr, Author: reader, Content: "hi"}); err != nil {
		t.Fatal(err)
	}
	before, err := p.Post(ctx, addr)
	if err != nil {
		t.Fatal(err)
	}

	later := epoch.Add(time.Hour)
	p2 := ledger.New(s, ledger.WithClock(func() time.Time { return later }))

	err = p2.UpdatePost(ctx, ledger.Signers(owner), ledger.UpdatePostRequest{Blog: blog, Title: "P", Content: "new content"})
	if err != nil {
		t.Fatal(err)
	}
	after, err := p.Post(ctx, addr)
	if err != nil {
		t.Fatal(err)
	}
	want := *before
	want.Content = "new content"
	want.UpdatedAt = later.Unix()
	if diff := cmp.Diff(&want, after); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	cases := []struct {
		name    string
		signers ledger.SignerSet
		req     ledger.UpdatePostRequest
		want    error
	}{
		{"stranger", ledger.Signers(reader), ledger.UpdatePostRequest{Blog: blog, Title: "P"}, ledger.ErrUnauthorized},
		{"no such post", ledger.Signers(owner), ledger.UpdatePostRequest{Blog: blog, Title: "Q"}, ledger.ErrNotFound},
		{"no such blog", ledger.Signers(owner), ledger.UpdatePostRequest{Blog: ledger.Address{1}, Title: "P"}, ledger.ErrNotFound},
		{"wrong blog", ledger.Signers(owner), ledger.UpdatePostRequest{Blog: blog2, Title: "P"}, ledger.ErrNotFound},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if err := p.UpdatePost(ctx, c.signers, c.req); !errors.Is(err, c.want) {
				t.Errorf("got %v, want %v", err, c.want)
			}
		})
	}
}

func TestDeletePost(t *testing.T) {
	var (
		ctx   = context.Background()
		p, _  = newProgram()
		owner = testutil.NewPrincipal(t)
		other = testutil.NewPrincipal(t)
		blog  = initBlog(ctx, t, p, owner, "T")
		addr  = createPost(ctx, t, p, owner, blog, "P")
	)

	err := p.DeletePost(ctx, ledger.Signers(other), ledger.DeletePostRequest{Blog: blog, Title: "P"})
	if !errors.Is(err, ledger.ErrUnauthorized) {
		t.Errorf("got %v, want ErrUnauthorized", err)
	}

	if err = p.DeletePost(ctx, ledger.Signers(owner), ledger.DeletePostRequest{Blog: blog, Title: "P"}); err != nil {
		t.Fatal(err)
	}
	if _, err = p.Post(ctx, addr); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
	err = p.DeletePost(ctx, ledger.Signers(owner), ledger.DeletePostRequest{Blog: blog, Title: "P"})
	if !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}

	// The freed address is available again.
	if again := createPost(ctx, t, p, owner, blog, "P"); again != addr {
		t.Errorf("recreated post at %s, want %s", again, addr)
	}
}

func TestComments(t *testing.T) {
	var (
		ctx       = context.Background()
		p, s      = newProgram()
		owner     = testutil.NewPrincipal(t)
		author    = testutil.NewPrincipal(t)
		bystander = testutil.NewPrincipal(t)
		blog      = initBlog(ctx, t, p, owner, "T")
		post      = createPost(ctx, t, p, owner, blog, "P")
	)

	_, err := p.AddComment(ctx, ledger.Signers(bystander), ledger.AddCommentRequest{Post: post, Author: author, Content: "forged"})
	if !errors.Is(err, ledger.ErrUnauthorized) {
		t.Errorf("got %v, want ErrUnauthorized", err)
	}
	_, err = p.AddComment(ctx, ledger.Signers(author), ledger.AddCommentRequest{Post: ledger.Address{3}, Author: author})
	if !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}

	addr, err := p.AddComment(ctx, ledger.Signers(author), ledger.AddCommentRequest{Post: post, Author: author, Content: "hello"})
	if err != nil {
		t.Fatal(err)
	}
	wantAddr, bump, err := p.CommentAddress(post, author)
	if err != nil {
		t.Fatal(err)
	}
	if addr != wantAddr {
		t.Errorf("got address %s, want %s", addr, wantAddr)
	}
	comment, err := p.Comment(ctx, addr)
	if err != nil {
		t.Fatal(err)
	}
	want := &ledger.Comment{CommentAuthor: author, BlogPost: post, Blog: blog, Content: "hello", CreatedAt: epoch.Unix(), Bump: bump}
	if diff := cmp.Diff(want, comment); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	// One live comment per author per post.
	before := snapshot(ctx, t, s)
	_, err = p.AddComment(ctx, ledger.Signers(author), ledger.AddCommentRequest{Post: post, Author: author, Content: "again"})
	if !errors.Is(err, ledger.ErrAlreadyExists) {
		t.Errorf("got %v, want ErrAlreadyExists", err)
	}
	if diff := cmp.Diff(before, snapshot(ctx, t, s)); diff != "" {
		t.Errorf("state changed (-before +after):\n%s", diff)
	}

	if _, err = p.AddComment(ctx, ledger.Signers(bystander), ledger.AddCommentRequest{Post: post, Author: bystander}); err != nil {
		t.Fatal(err)
	}
	expectComments(ctx, t, p, post, 2)

	err = p.DeleteComment(ctx, ledger.Signers(bystander), ledger.DeleteCommentRequest{Post: post, Author: author})
	if !errors.Is(err, ledger.ErrUnauthorized) {
		t.Errorf("got %v, want ErrUnauthorized", err)
	}

	// The blog owner moderates.
	if err = p.DeleteComment(ctx, ledger.Signers(owner), ledger.DeleteCommentRequest{Post: post, Author: author}); err != nil {
		t.Fatal(err)
	}
	expectComments(ctx, t, p, post, 1)

	// Authors delete their own.
	if err = p.DeleteComment(ctx, ledger.Signers(bystander), ledger.DeleteCommentRequest{Post: post, Author: bystander}); err != nil {
		t.Fatal(err)
	}
	expectComments(ctx, t, p, post, 0)

	err = p.DeleteComment(ctx, ledger.Signers(author), ledger.DeleteCommentRequest{Post: post, Author: author})
	if !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}

	// After deletion the author may comment again.
	if _, err = p.AddComment(ctx, ledger.Signers(author), ledger.AddCommentRequest{Post: post, Author: author, Content: "back"}); err != nil {
		t.Fatal(err)
	}
	expectComments(ctx, t, p, post, 1)
}

func expectComments(ctx context.Context, t *testing.T, p *ledger.Program, post ledger.Address, want uint64) {
	t.Helper()
	got, err := p.Post(ctx, post)
	if err != nil {
		t.Fatal(err)
	}
	if got.NumberOfComments != want {
		t.Errorf("got %d comments, want %d", got.NumberOfComments, want)
	}
}

func TestCounterOverflow(t *testing.T) {
	var (
		ctx   = context.Background()
		p, s  = newProgram()
		owner = testutil.NewPrincipal(t)
		blog  = initBlog(ctx, t, p, owner, "full")
	)

	b, err := p.Blog(ctx, blog)
	if err != nil {
		t.Fatal(err)
	}
	b.NumberOfPosts = math.MaxUint64
	var tx ledger.Tx
	if err = tx.Write(blog, b); err != nil {
		t.Fatal(err)
	}
	if err = s.Commit(ctx, &tx); err != nil {
		t.Fatal(err)
	}

	_, err = p.CreatePost(ctx, ledger.Signers(owner), ledger.CreatePostRequest{Blog: blog, Title: "one too many"})
	if !errors.Is(err, ledger.ErrOverflow) {
		t.Errorf("got %v, want ErrOverflow", err)
	}
	if s.Len() != 1 {
		t.Errorf("got %d entries, want 1", s.Len())
	}
}

func TestCounterUnderflow(t *testing.T) {
	var (
		ctx    = context.Background()
		p, s   = newProgram()
		owner  = testutil.NewPrincipal(t)
		author = testutil.NewPrincipal(t)
		blog   = initBlog(ctx, t, p, owner, "empty")
		post   = createPost(ctx, t, p, owner, blog, "P")
	)

	if _, err := p.AddComment(ctx, ledger.Signers(author), ledger.AddCommentRequest{Post: post, Author: author, Content: "hi"}); err != nil {
		t.Fatal(err)
	}

	// Zero both counters behind the program's back.
	b, err := p.Blog(ctx, blog)
	if err != nil {
		t.Fatal(err)
	}
	b.NumberOfPosts = 0
	pp, err := p.Post(ctx, post)
	if err != nil {
		t.Fatal(err)
	}
	pp.NumberOfComments = 0

	var tx ledger.Tx
	if err = tx.Write(blog, b); err != nil {
		t.Fatal(err)
	}
	if err = tx.Write(post, pp); err != nil {
		t.Fatal(err)
	}
	if err = s.Commit(ctx, &tx); err != nil {
		t.Fatal(err)
	}

	before := snapshot(ctx, t, s)

	err = p.DeleteComment(ctx, ledger.Signers(author), ledger.DeleteCommentRequest{Post: post, Author: author})
	if !errors.Is(err, ledger.ErrUnderflow) {
		t.Errorf("deleting comment: got %v, want ErrUnderflow", err)
	}
	err = p.DeletePost(ctx, ledger.Signers(owner), ledger.DeletePostRequest{Blog: blog, Title: "P"})
	if !errors.Is(err, ledger.ErrUnderflow) {
		t.Errorf("deleting post: got %v, want ErrUnderflow", err)
	}

	if diff := cmp.Diff(before, snapshot(ctx, t, s)); diff != "" {
		t.Errorf("state changed (-before +after):\n%s", diff)
	}
	if s.Len() != 3 {
		t.Errorf("got %d entries, want 3", s.Len())
	}
}

func TestExample(t *testing.T) {
	var (
		ctx   = context.Background()
		p, _  = newProgram()
		owner = testutil.NewPrincipal(t)
	)

	blogAddr, err := p.InitializeBlog(ctx, ledger.Signers(owner), ledger.InitializeBlogRequest{Owner: owner, Title: "T", Description: "D"})
	if err != nil {
		t.Fatal(err)
	}
	blog, err := p.Blog(ctx, blogAddr)
	if err != nil {
		t.Fatal(err)
	}
	if blog.Title != "T" || blog.Description != "D" || blog.NumberOfPosts != 0 {
		t.Errorf("got blog %+v", blog)
	}

	postAddr, err := p.CreatePost(ctx, ledger.Signers(owner), ledger.CreatePostRequest{Blog: blogAddr, Title: "P", Content: "C"})
	if err != nil {
		t.Fatal(err)
	}
	post, err := p.Post(ctx, postAddr)
	if err != nil {
		t.Fatal(err)
	}
	if post.Title != "P" || post.Content != "C" || post.NumberOfComments != 0 {
		t.Errorf("got post %+v", post)
	}
	if blog, err = p.Blog(ctx, blogAddr); err != nil {
		t.Fatal(err)
	}
	if blog.NumberOfPosts != 1 {
		t.Errorf("got %d posts, want 1", blog.NumberOfPosts)
	}

	if err = p.DeletePost(ctx, ledger.Signers(owner), ledger.DeletePostRequest{Blog: blogAddr, Title: "P"}); err != nil {
		t.Fatal(err)
	}
	if blog, err = p.Blog(ctx, blogAddr); err != nil {
		t.Fatal(err)
	}
	if blog.NumberOfPosts != 0 {
		t.Errorf("got %d posts, want 0", blog.NumberOfPosts)
	}
	if _, err = p.Post(ctx, postAddr); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}
