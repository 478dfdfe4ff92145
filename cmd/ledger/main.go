// Command ledger is a CLI for a content-publishing ledger.
//
// It reads a TOML config file describing the entry store, e.g.:
//
//	type = "logging"
//	level = "info"
//
//	[nested]
//	type = "sqlite3"
//	conn = "ledger.db"
//
// and performs one ledger operation per invocation,
// signing it with an ed25519 key created by "ledger keygen".
//
// Usage:
//
//	ledger [-config FILE] [-program HEX] [-v] SUBCOMMAND [ARGS]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/bobg/subcmd"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/bobg/ledger"
	"github.com/bobg/ledger/store"
	_ "github.com/bobg/ledger/store/logging"
	_ "github.com/bobg/ledger/store/lru"
	_ "github.com/bobg/ledger/store/mem"
	_ "github.com/bobg/ledger/store/pg"
	_ "github.com/bobg/ledger/store/sqlite3"
)

type maincmd struct {
	config string
	popts  []ledger.Option
}

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, args []string) error {
	var (
		fs      = flag.NewFlagSet("ledger", flag.ContinueOnError)
		config  = fs.String("config", "ledger.toml", "path to config file")
		program = fs.String("program", "", "program ID in hex (default: the built-in one)")
		verbose = fs.Bool("v", false, "verbose output")
	)
	if err := fs.Parse(args); err != nil {
		return errors.Wrap(err, "parsing args")
	}

	if *config == "" {
		return errors.New("config value not set")
	}
	if *verbose {
		log.SetLevel(log.DebugLevel)
	}

	c := maincmd{config: *config}
	if *program != "" {
		id, err := ledger.AddressFromHex(*program)
		if err != nil {
			return errors.Wrap(err, "parsing -program")
		}
		c.popts = append(c.popts, ledger.WithProgramID(id))
	}

	return subcmd.Run(ctx, c, fs.Args())
}

func (c maincmd) Subcmds() map[string]subcmd.Subcmd {
	return map[string]subcmd.Subcmd{
		"keygen":         c.keygen,
		"address":        c.address,
		"init-blog":      c.initBlog,
		"create-post":    c.createPost,
		"update-post":    c.updatePost,
		"delete-post":    c.deletePost,
		"add-comment":    c.addComment,
		"delete-comment": c.deleteComment,
		"get":            c.get,
		"ls":             c.ls,
		"sync":           c.sync,
	}
}

func loadConfig(filename string) (map[string]interface{}, error) {
	var conf map[string]interface{}
	if _, err := toml.DecodeFile(filename, &conf); err != nil {
		return nil, errors.Wrapf(err, "decoding config file %s", filename)
	}
	return conf, nil
}

func storeFromConfig(ctx context.Context, filename string) (ledger.Store, error) {
	conf, err := loadConfig(filename)
	if err != nil {
		return nil, err
	}
	typ, ok := conf["type"].(string)
	if !ok {
		return nil, fmt.Errorf("config file %s missing `type` parameter", filename)
	}
	log.WithFields(log.Fields{"config": filename, "type": typ}).Debug("creating store")
	s, err := store.Create(ctx, typ, conf)
	return s, errors.Wrapf(err, "creating %s-type store", typ)
}

// store is the Store named by the config file.
// Subcommands that touch no entries never open it.
func (c maincmd) store(ctx context.Context) (ledger.Store, error) {
	return storeFromConfig(ctx, c.config)
}

func (c maincmd) program(ctx context.Context) (*ledger.Program, error) {
	s, err := c.store(ctx)
	if err != nil {
		return nil, err
	}
	return ledger.New(s, c.popts...), nil
}

func printAddr(kind string, addr ledger.Address) {
	fmt.Fprintf(os.Stdout, "%s %s\n", kind, addr)
}
