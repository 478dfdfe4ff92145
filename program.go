package ledger

import (
	"context"
	"crypto/sha256"
	"time"

	"github.com/pkg/errors"
)

// DefaultProgramID is the namespace under which addresses are derived
// unless WithProgramID says otherwise.
var DefaultProgramID = Address(sha256.Sum256([]byte("github.com/bobg/ledger")))

// Program executes ledger operations against a Store.
// Each operation reads what it needs, stages its writes in a Tx,
// and commits the Tx in one call,
// so a failed operation leaves the store unchanged.
//
// Program does no locking.
// Callers must not run two operations touching the same addresses concurrently.
type Program struct {
	id  Address
	s   Store
	now func() time.Time
}

// Option configures a Program.
type Option func(*Program)

// WithProgramID sets the namespace for address derivation.
func WithProgramID(id Address) Option {
	return func(p *Program) { p.id = id }
}

// WithClock sets the source of creation and update timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Program) { p.now = now }
}

// New produces a new Program operating on s.
func New(s Store, opts ...Option) *Program {
	p := &Program{id: DefaultProgramID, s: s, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ID is the program's derivation namespace.
func (p *Program) ID() Address { return p.id }

// BlogAddress derives the address of the blog with the given title and owner.
// The title is used as is.
// A title too long to be valid still has an address;
// InitializeBlog rejects it before deriving.
func (p *Program) BlogAddress(title string, owner Principal) (Address, uint8, error) {
	return FindAddress(p.id, []byte(title), owner[:])
}

// PostAddress derives the address of the post with the given title and owner.
// The blog the post belongs to plays no part.
func (p *Program) PostAddress(title string, owner Principal) (Address, uint8, error) {
	h := HashTitle(title)
	return FindAddress(p.id, h[:], owner[:])
}

// CommentAddress derives the address of author's comment on the given post.
func (p *Program) CommentAddress(post Address, author Principal) (Address, uint8, error) {
	return FindAddress(p.id, []byte("comment"), post[:], author[:])
}

// Blog reads the blog at addr.
func (p *Program) Blog(ctx context.Context, addr Address) (*Blog, error) {
	var b Blog
	return &b, p.load(ctx, addr, &b)
}

// Post reads the post at addr.
func (p *Program) Post(ctx context.Context, addr Address) (*Post, error) {
	var post Post
	return &post, p.load(ctx, addr, &post)
}

// Comment reads the comment at addr.
func (p *Program) Comment(ctx context.Context, addr Address) (*Comment, error) {
	var c Comment
	return &c, p.load(ctx, addr, &c)
}

func (p *Program) load(ctx context.Context, addr Address, r Record) error {
	slot, err := p.s.Read(ctx, addr)
	if err != nil {
		return errors.Wrapf(err, "reading %s %s", r.Layout(), addr)
	}
	return Decode(slot, r)
}

// InitializeBlog creates a blog owned by req.Owner,
// who must be among the signers.
// It returns the blog's address.
func (p *Program) InitializeBlog(ctx context.Context, signers SignerSet, req InitializeBlogRequest) (Address, error) {
	if err := validateBlog(req.Title, req.Description); err != nil {
		return Zero, err
	}
	if err := (Capability{req.Owner}).Authorize(signers); err != nil {
		return Zero, err
	}
	addr, bump, err := p.BlogAddress(req.Title, req.Owner)
	if err != nil {
		return Zero, errors.Wrap(err, "deriving blog address")
	}

	blog := &Blog{
		Owner:       req.Owner,
		Title:       req.Title,
		Description: req.Description,
		CreatedAt:   p.now().Unix(),
		Bump:        bump,
	}

	var tx Tx
	if err = tx.Allocate(addr, blog); err != nil {
		return Zero, err
	}
	if err = p.s.Commit(ctx, &tx); err != nil {
		return Zero, errors.Wrapf(err, "initializing blog %s", addr)
	}
	return addr, nil
}

// CreatePost adds a post to the blog at req.Blog.
// The blog's owner must be among the signers,
// and becomes the owner of the post.
// It returns the post's address.
func (p *Program) CreatePost(ctx context.Context, signers SignerSet, req CreatePostRequest) (Address, error) {
	if err := validatePostTitle(req.Title); err != nil {
		return Zero, err
	}
	if err := validatePostContent(req.Content); err != nil {
		return Zero, err
	}

	blog, err := p.Blog(ctx, req.Blog)
	if err != nil {
		return Zero, err
	}
	if err = (Capability{blog.Owner}).Authorize(signers); err != nil {
		return Zero, err
	}

	addr, bump, err := p.PostAddress(req.Title, blog.Owner)
	if err != nil {
		return Zero, errors.Wrap(err, "deriving post address")
	}

	now := p.now().Unix()
	post := &Post{
		Owner:     blog.Owner,
		Blog:      req.Blog,
		Title:     req.Title,
		Content:   req.Content,
		CreatedAt: now,
		UpdatedAt: now,
		Bump:      bump,
	}

	var tx Tx
	if err = stageChild(&tx, addr, post, req.Blog, blog, &blog.NumberOfPosts); err != nil {
		return Zero, err
	}
	if err = p.s.Commit(ctx, &tx); err != nil {
		return Zero, errors.Wrapf(err, "creating post %s", addr)
	}
	return addr, nil
}

// ownedPost loads the blog at blogAddr and the post titled title in it,
// after checking that the blog's owner signed.
func (p *Program) ownedPost(ctx context.Context, signers SignerSet, blogAddr Address, title string) (*Blog, Address, *Post, error) {
	blog, err := p.Blog(ctx, blogAddr)
	if err != nil {
		return nil, Zero, nil, err
	}
	if err = (Capability{blog.Owner}).Authorize(signers); err != nil {
		return nil, Zero, nil, err
	}
	addr, _, err := p.PostAddress(title, blog.Owner)
	if err != nil {
		return nil, Zero, nil, errors.Wrap(err, "deriving post address")
	}
	post, err := p.Post(ctx, addr)
	if err != nil {
		return nil, Zero, nil, err
	}
	if post.Blog != blogAddr {
		return nil, Zero, nil, errors.Wrapf(ErrNotFound, "post %s belongs to blog %s, not %s", addr, post.Blog, blogAddr)
	}
	return blog, addr, post, nil
}

// UpdatePost replaces the content of a post.
// Title, owner, blog, and comment count are unchanged.
func (p *Program) UpdatePost(ctx context.Context, signers SignerSet, req UpdatePostRequest) error {
	if err := validatePostContent(req.Content); err != nil {
		return err
	}
	_, addr, post, err := p.ownedPost(ctx, signers, req.Blog, req.Title)
	if err != nil {
		return err
	}

	post.Content = req.Content
	post.UpdatedAt = p.now().Unix()

	var tx Tx
	if err = tx.Write(addr, post); err != nil {
		return err
	}
	return errors.Wrapf(p.s.Commit(ctx, &tx), "updating post %s", addr)
}

// DeletePost frees a post and drops its blog's post count.
func (p *Program) DeletePost(ctx context.Context, signers SignerSet, req DeletePostRequest) error {
	blog, addr, _, err := p.ownedPost(ctx, signers, req.Blog, req.Title)
	if err != nil {
		return err
	}

	var tx Tx
	if err = stageRelease(&tx, addr, req.Blog, blog, &blog.NumberOfPosts); err != nil {
		return err
	}
	return errors.Wrapf(p.s.Commit(ctx, &tx), "deleting post %s", addr)
}

// AddComment adds req.Author's comment to the post at req.Post.
// The author must be among the signers.
// It returns the comment's address.
func (p *Program) AddComment(ctx context.Context, signers SignerSet, req AddCommentRequest) (Address, error) {
	if err := validateComment(req.Content); err != nil {
		return Zero, err
	}
	if err := (Capability{req.Author}).Authorize(signers); err != nil {
		return Zero, err
	}

	post, err := p.Post(ctx, req.Post)
	if err != nil {
		return Zero, err
	}
	blog, err := p.Blog(ctx, post.Blog)
	if err != nil {
		return Zero, err
	}
	if blog.Owner != post.Owner {
		return Zero, errors.Wrapf(ErrUnauthorized, "post %s is not owned by its blog's owner", req.Post)
	}

	addr, bump, err := p.CommentAddress(req.Post, req.Author)
	if err != nil {
		return Zero, errors.Wrap(err, "deriving comment address")
	}

	comment := &Comment{
		CommentAuthor: req.Author,
		BlogPost:      req.Post,
		Blog:          post.Blog,
		Content:       req.Content,
		CreatedAt:     p.now().Unix(),
		Bump:          bump,
	}

	var tx Tx
	if err = stageChild(&tx, addr, comment, req.Post, post, &post.NumberOfComments); err != nil {
		return Zero, err
	}
	if err = p.s.Commit(ctx, &tx); err != nil {
		return Zero, errors.Wrapf(err, "adding comment %s", addr)
	}
	return addr, nil
}

// DeleteComment frees req.Author's comment on the post at req.Post
// and drops the post's comment count.
// Either the comment's author or the owner of the blog containing the post
// must be among the signers.
func (p *Program) DeleteComment(ctx context.Context, signers SignerSet, req DeleteCommentRequest) error {
	addr, _, err := p.CommentAddress(req.Post, req.Author)
	if err != nil {
		return errors.Wrap(err, "deriving comment address")
	}
	comment, err := p.Comment(ctx, addr)
	if err != nil {
		return err
	}
	post, err := p.Post(ctx, comment.BlogPost)
	if err != nil {
		return err
	}
	blog, err := p.Blog(ctx, post.Blog)
	if err != nil {
		return err
	}
	if err = (Capability{comment.CommentAuthor, blog.Owner}).Authorize(signers); err != nil {
		return err
	}

	var tx Tx
	if err = stageRelease(&tx, addr, comment.BlogPost, post, &post.NumberOfComments); err != nil {
		return err
	}
	return errors.Wrapf(p.s.Commit(ctx, &tx), "deleting comment %s", addr)
}
