package main

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/bobg/ledger"
)

func (c maincmd) keygen(_ context.Context, fs *flag.FlagSet, args []string) error {
	out := fs.String("o", "ledger.key", "file to write the key to")
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}

	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return errors.Wrap(err, "generating key")
	}
	err = os.WriteFile(*out, []byte(hex.EncodeToString(priv.Seed())+"\n"), 0600)
	if err != nil {
		return errors.Wrapf(err, "writing %s", *out)
	}
	p, err := ledger.PrincipalFromKey(pub)
	if err != nil {
		return err
	}
	fmt.Println(p)
	return nil
}

// readKey reads a key file written by keygen.
func readKey(filename string) (ed25519.PrivateKey, ledger.Principal, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, ledger.Principal{}, errors.Wrapf(err, "reading key file %s", filename)
	}
	seed, err := hex.DecodeString(strings.TrimSpace(string(b)))
	if err != nil {
		return nil, ledger.Principal{}, errors.Wrapf(err, "decoding key file %s", filename)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, ledger.Principal{}, fmt.Errorf("key file %s holds %d bytes, want %d", filename, len(seed), ed25519.SeedSize)
	}
	priv := ed25519.NewKeyFromSeed(seed)
	p, err := ledger.PrincipalFromKey(priv.Public().(ed25519.PublicKey))
	return priv, p, err
}

// sign signs msg with the key in filename
// and authenticates the result the way a transaction executor would.
func sign(filename string, msg []byte) (ledger.SignerSet, ledger.Principal, error) {
	priv, p, err := readKey(filename)
	if err != nil {
		return nil, p, err
	}
	sig, err := ledger.Sign(priv, msg)
	if err != nil {
		return nil, p, errors.Wrap(err, "signing request")
	}
	signers, err := ledger.Authenticate(msg, []ledger.Signature{sig})
	return signers, p, err
}
