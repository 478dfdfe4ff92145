package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/bobg/subcmd"
	"github.com/pkg/errors"

	"github.com/bobg/ledger"
	"github.com/bobg/ledger/store"
)

// addresscmd holds the "address" subcommands.
// Derivation needs only the program ID, not a store.
type addresscmd struct {
	p *ledger.Program
}

func (c maincmd) address(ctx context.Context, _ *flag.FlagSet, args []string) error {
	return subcmd.Run(ctx, addresscmd{p: ledger.New(nil, c.popts...)}, args)
}

func (c addresscmd) Subcmds() map[string]subcmd.Subcmd {
	return map[string]subcmd.Subcmd{
		"blog":    c.blog,
		"post":    c.post,
		"comment": c.comment,
	}
}

// twoArgs parses fs and returns its two positional arguments.
func twoArgs(fs *flag.FlagSet, args []string, usage string) (string, string, error) {
	if err := fs.Parse(args); err != nil {
		return "", "", errors.Wrap(err, "parsing args")
	}
	if fs.NArg() != 2 {
		return "", "", fmt.Errorf("usage: %s", usage)
	}
	return fs.Arg(0), fs.Arg(1), nil
}

func (c addresscmd) blog(_ context.Context, fs *flag.FlagSet, args []string) error {
	title, ownerStr, err := twoArgs(fs, args, "address blog TITLE OWNER")
	if err != nil {
		return err
	}
	owner, err := ledger.PrincipalFromHex(ownerStr)
	if err != nil {
		return errors.Wrap(err, "parsing owner")
	}
	addr, bump, err := c.p.BlogAddress(title, owner)
	if err != nil {
		return err
	}
	fmt.Printf("blog %s bump %d\n", addr, bump)
	return nil
}

func (c addresscmd) post(_ context.Context, fs *flag.FlagSet, args []string) error {
	title, ownerStr, err := twoArgs(fs, args, "address post TITLE OWNER")
	if err != nil {
		return err
	}
	owner, err := ledger.PrincipalFromHex(ownerStr)
	if err != nil {
		return errors.Wrap(err, "parsing owner")
	}
	addr, bump, err := c.p.PostAddress(title, owner)
	if err != nil {
		return err
	}
	fmt.Printf("post %s bump %d\n", addr, bump)
	return nil
}

func (c addresscmd) comment(_ context.Context, fs *flag.FlagSet, args []string) error {
	postStr, authorStr, err := twoArgs(fs, args, "address comment POST AUTHOR")
	if err != nil {
		return err
	}
	post, err := ledger.AddressFromHex(postStr)
	if err != nil {
		return errors.Wrap(err, "parsing post")
	}
	author, err := ledger.PrincipalFromHex(authorStr)
	if err != nil {
		return errors.Wrap(err, "parsing author")
	}
	addr, bump, err := c.p.CommentAddress(post, author)
	if err != nil {
		return err
	}
	fmt.Printf("comment %s bump %d\n", addr, bump)
	return nil
}

// get prints the record at an address as JSON.
func (c maincmd) get(ctx context.Context, fs *flag.FlagSet, args []string) error {
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}
	if fs.NArg() != 1 {
		return errors.New("usage: get ADDR")
	}
	addr, err := ledger.AddressFromHex(fs.Arg(0))
	if err != nil {
		return errors.Wrap(err, "parsing address")
	}

	s, err := c.store(ctx)
	if err != nil {
		return err
	}
	slot, err := s.Read(ctx, addr)
	if err != nil {
		return errors.Wrapf(err, "reading %s", addr)
	}
	r, err := decodeSlot(slot)
	if err != nil {
		return errors.Wrapf(err, "decoding %s", addr)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// ls lists every occupied address with its layout and size.
func (c maincmd) ls(ctx context.Context, fs *flag.FlagSet, args []string) error {
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}
	s, err := c.store(ctx)
	if err != nil {
		return err
	}
	return s.Each(ctx, func(addr ledger.Address, slot ledger.Slot) error {
		fmt.Printf("%s %s %d\n", addr, slot.Layout, len(slot.Data))
		return nil
	})
}

// sync copies slots missing from any of the stores named by config files
// (the -config store plus the ones on the command line) into it.
func (c maincmd) sync(ctx context.Context, fs *flag.FlagSet, args []string) error {
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}
	if fs.NArg() == 0 {
		return errors.New("usage: sync CONFIG...")
	}

	filenames := append([]string{c.config}, fs.Args()...)
	stores := make([]ledger.Store, 0, len(filenames))
	for _, filename := range filenames {
		s, err := storeFromConfig(ctx, filename)
		if err != nil {
			return err
		}
		stores = append(stores, s)
	}
	return errors.Wrap(store.Sync(ctx, stores), "syncing")
}

func decodeSlot(slot ledger.Slot) (ledger.Record, error) {
	var r ledger.Record
	switch slot.Layout {
	case ledger.LayoutBlog:
		r = new(ledger.Blog)
	case ledger.LayoutPost:
		r = new(ledger.Post)
	case ledger.LayoutComment:
		r = new(ledger.Comment)
	default:
		return nil, fmt.Errorf("unknown layout %d", slot.Layout)
	}
	return r, ledger.Decode(slot, r)
}
