package ledger

import (
	"bytes"
	"crypto/ed25519"
	"crypto/sha256"
	"database/sql/driver"
	"encoding/hex"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

type (
	// Address is the location of an entry in a Store.
	// Entry addresses are derived from identifying fields with FindAddress
	// and are never points on the ed25519 curve,
	// so no principal can hold the private key for one.
	Address [sha256.Size]byte

	// Principal is an identity that can authorize an operation by signing it:
	// an ed25519 public key.
	Principal [ed25519.PublicKeySize]byte
)

// Zero is the zero value of an Address.
var Zero Address

const (
	// MaxSeeds is the most seeds FindAddress accepts.
	MaxSeeds = 16

	derivationMarker = "ProgramDerivedAddress"
)

var (
	ErrTooManySeeds = errors.New("too many seeds")

	// ErrNoBump is returned by FindAddress in the astronomically unlikely case
	// that every bump value yields an on-curve point.
	ErrNoBump = errors.New("no viable bump seed")

	// ErrOnCurve is returned by CreateAddress when the given seeds and bump
	// produce a valid curve point.
	ErrOnCurve = errors.New("derived address is on the ed25519 curve")
)

// CreateAddress computes the address for the given seeds and bump under program.
// Seeds may be any length.
// Each is hashed behind its length,
// so distinct seed lists never present the same bytes to the hash.
func CreateAddress(program Address, bump uint8, seeds ...[]byte) (Address, error) {
	if len(seeds) > MaxSeeds {
		return Zero, ErrTooManySeeds
	}
	h := sha256.New()
	for _, seed := range seeds {
		h.Write(protowire.AppendVarint(nil, uint64(len(seed))))
		h.Write(seed)
	}
	h.Write([]byte{bump})
	h.Write(program[:])
	h.Write([]byte(derivationMarker))

	var out Address
	h.Sum(out[:0])
	if onCurve(out[:]) {
		return Zero, ErrOnCurve
	}
	return out, nil
}

// FindAddress derives the address for seeds under program.
// It tries bump values from 255 downward
// and returns the first address that is off the ed25519 curve,
// together with the bump that produced it.
// Identical inputs always produce the same result.
func FindAddress(program Address, seeds ...[]byte) (Address, uint8, error) {
	for bump := 255; bump >= 0; bump-- {
		addr, err := CreateAddress(program, uint8(bump), seeds...)
		if errors.Is(err, ErrOnCurve) {
			continue
		}
		if err != nil {
			return Zero, 0, err
		}
		return addr, uint8(bump), nil
	}
	return Zero, 0, ErrNoBump
}

func onCurve(b []byte) bool {
	_, err := new(edwards25519.Point).SetBytes(b)
	return err == nil
}

// HashTitle is the fixed-width seed used in place of a post title.
func HashTitle(title string) [sha256.Size]byte {
	return sha256.Sum256([]byte(title))
}

func (a Address) String() string {
	return hex.EncodeToString(a[:])
}

func (a Address) Less(other Address) bool {
	return bytes.Compare(a[:], other[:]) < 0
}

func (a *Address) FromHex(s string) error {
	if len(s) != 2*len(a) {
		return errors.New("wrong length")
	}
	_, err := hex.Decode(a[:], []byte(s))
	return err
}

// AddressFromHex parses the hex form of an address produced by Address.String.
func AddressFromHex(s string) (Address, error) {
	var out Address
	err := out.FromHex(s)
	return out, err
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	return a.FromHex(string(text))
}

// Scan implements sql.Scanner.
func (a *Address) Scan(src interface{}) error {
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into Address", src)
	}
	if len(b) != len(a) {
		return fmt.Errorf("cannot scan %d bytes into Address", len(b))
	}
	copy(a[:], b)
	return nil
}

// Value implements driver.Valuer.
func (a Address) Value() (driver.Value, error) {
	return a[:], nil
}

// PrincipalFromKey converts an ed25519 public key to a Principal.
func PrincipalFromKey(pub ed25519.PublicKey) (Principal, error) {
	var p Principal
	if len(pub) != len(p) {
		return p, fmt.Errorf("public key is %d bytes, want %d", len(pub), len(p))
	}
	copy(p[:], pub)
	return p, nil
}

func (p Principal) String() string {
	return hex.EncodeToString(p[:])
}

// Key returns p as an ed25519 public key.
func (p Principal) Key() ed25519.PublicKey {
	return ed25519.PublicKey(p[:])
}

func (p Principal) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Principal) UnmarshalText(text []byte) error {
	got, err := PrincipalFromHex(string(text))
	if err != nil {
		return err
	}
	*p = got
	return nil
}

// PrincipalFromHex parses the hex form of a principal.
func PrincipalFromHex(s string) (Principal, error) {
	var p Principal
	if len(s) != 2*len(p) {
		return p, errors.New("wrong length")
	}
	_, err := hex.Decode(p[:], []byte(s))
	return p, err
}
