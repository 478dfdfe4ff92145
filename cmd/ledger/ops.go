package main

import (
	"context"
	"flag"
	"io/ioutil"
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/bobg/ledger"
)

// content returns s, or all of stdin if s is "-".
func content(s string) (string, error) {
	if s != "-" {
		return s, nil
	}
	b, err := ioutil.ReadAll(os.Stdin)
	return string(b), errors.Wrap(err, "reading stdin")
}

func parseAddr(name, s string) (ledger.Address, error) {
	if s == "" {
		return ledger.Zero, errors.Errorf("missing -%s", name)
	}
	addr, err := ledger.AddressFromHex(s)
	return addr, errors.Wrapf(err, "parsing -%s", name)
}

func (c maincmd) initBlog(ctx context.Context, fs *flag.FlagSet, args []string) error {
	var (
		key         = fs.String("key", "ledger.key", "signing key file")
		title       = fs.String("title", "", "blog title")
		description = fs.String("description", "", "blog description")
	)
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}

	p, err := c.program(ctx)
	if err != nil {
		return err
	}
	_, owner, err := readKey(*key)
	if err != nil {
		return err
	}
	req := ledger.InitializeBlogRequest{Owner: owner, Title: *title, Description: *description}
	signers, _, err := sign(*key, req.Message(p.ID()))
	if err != nil {
		return err
	}
	addr, err := p.InitializeBlog(ctx, signers, req)
	if err != nil {
		return errors.Wrapf(err, "initializing blog %q", *title)
	}
	log.WithFields(log.Fields{"owner": owner, "title": *title}).Debug("blog initialized")
	printAddr("blog", addr)
	return nil
}

func (c maincmd) createPost(ctx context.Context, fs *flag.FlagSet, args []string) error {
	var (
		key   = fs.String("key", "ledger.key", "signing key file")
		blog  = fs.String("blog", "", "blog address")
		title = fs.String("title", "", "post title")
		body  = fs.String("content", "-", `post content ("-" for stdin)`)
	)
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}

	blogAddr, err := parseAddr("blog", *blog)
	if err != nil {
		return err
	}
	p, err := c.program(ctx)
	if err != nil {
		return err
	}
	text, err := content(*body)
	if err != nil {
		return err
	}
	req := ledger.CreatePostRequest{Blog: blogAddr, Title: *title, Content: text}
	signers, _, err := sign(*key, req.Message(p.ID()))
	if err != nil {
		return err
	}
	addr, err := p.CreatePost(ctx, signers, req)
	if err != nil {
		return errors.Wrapf(err, "creating post %q", *title)
	}
	printAddr("post", addr)
	return nil
}

func (c maincmd) updatePost(ctx context.Context, fs *flag.FlagSet, args []string) error {
	var (
		key   = fs.String("key", "ledger.key", "signing key file")
		blog  = fs.String("blog", "", "blog address")
		title = fs.String("title", "", "post title")
		body  = fs.String("content", "-", `new post content ("-" for stdin)`)
	)
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}

	blogAddr, err := parseAddr("blog", *blog)
	if err != nil {
		return err
	}
	p, err := c.program(ctx)
	if err != nil {
		return err
	}
	text, err := content(*body)
	if err != nil {
		return err
	}
	req := ledger.UpdatePostRequest{Blog: blogAddr, Title: *title, Content: text}
	signers, _, err := sign(*key, req.Message(p.ID()))
	if err != nil {
		return err
	}
	return errors.Wrapf(p.UpdatePost(ctx, signers, req), "updating post %q", *title)
}

func (c maincmd) deletePost(ctx context.Context, fs *flag.FlagSet, args []string) error {
	var (
		key   = fs.String("key", "ledger.key", "signing key file")
		blog  = fs.String("blog", "", "blog address")
		title = fs.String("title", "", "post title")
	)
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}

	blogAddr, err := parseAddr("blog", *blog)
	if err != nil {
		return err
	}
	p, err := c.program(ctx)
	if err != nil {
		return err
	}
	req := ledger.DeletePostRequest{Blog: blogAddr, Title: *title}
	signers, _, err := sign(*key, req.Message(p.ID()))
	if err != nil {
		return err
	}
	return errors.Wrapf(p.DeletePost(ctx, signers, req), "deleting post %q", *title)
}

func (c maincmd) addComment(ctx context.Context, fs *flag.FlagSet, args []string) error {
	var (
		key  = fs.String("key", "ledger.key", "signing key file")
		post = fs.String("post", "", "post address")
		body = fs.String("content", "-", `comment content ("-" for stdin)`)
	)
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}

	postAddr, err := parseAddr("post", *post)
	if err != nil {
		return err
	}
	p, err := c.program(ctx)
	if err != nil {
		return err
	}
	_, author, err := readKey(*key)
	if err != nil {
		return err
	}
	text, err := content(*body)
	if err != nil {
		return err
	}
	req := ledger.AddCommentRequest{Post: postAddr, Author: author, Content: text}
	signers, _, err := sign(*key, req.Message(p.ID()))
	if err != nil {
		return err
	}
	addr, err := p.AddComment(ctx, signers, req)
	if err != nil {
		return errors.Wrap(err, "adding comment")
	}
	printAddr("comment", addr)
	return nil
}

func (c maincmd) deleteComment(ctx context.Context, fs *flag.FlagSet, args []string) error {
	var (
		key    = fs.String("key", "ledger.key", "signing key file")
		post   = fs.String("post", "", "post address")
		author = fs.String("author", "", "comment author's principal (default: the signer)")
	)
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}

	postAddr, err := parseAddr("post", *post)
	if err != nil {
		return err
	}
	p, err := c.program(ctx)
	if err != nil {
		return err
	}
	_, commentAuthor, err := readKey(*key)
	if err != nil {
		return err
	}
	if *author != "" {
		commentAuthor, err = ledger.PrincipalFromHex(*author)
		if err != nil {
			return errors.Wrap(err, "parsing -author")
		}
	}
	req := ledger.DeleteCommentRequest{Post: postAddr, Author: commentAuthor}
	signers, _, err := sign(*key, req.Message(p.ID()))
	if err != nil {
		return err
	}
	return errors.Wrap(p.DeleteComment(ctx, signers, req), "deleting comment")
}
