package ledger

import (
	"crypto/ed25519"

	"github.com/pkg/errors"
)

// SignerSet is the set of principals that authenticated a request.
type SignerSet map[Principal]struct{}

// Signers produces a SignerSet from a list of already-authenticated principals.
func Signers(ps ...Principal) SignerSet {
	s := make(SignerSet, len(ps))
	for _, p := range ps {
		s[p] = struct{}{}
	}
	return s
}

// Has tells whether p is in the set.
func (s SignerSet) Has(p Principal) bool {
	_, ok := s[p]
	return ok
}

// Capability is the set of principals allowed to perform one operation
// on particular entries.
type Capability []Principal

// Authorize returns ErrUnauthorized unless at least one principal in c signed.
func (c Capability) Authorize(signers SignerSet) error {
	for _, p := range c {
		if signers.Has(p) {
			return nil
		}
	}
	return ErrUnauthorized
}

// Signature is a principal's ed25519 signature over a request message.
type Signature struct {
	Signer Principal
	Sig    []byte
}

// Sign signs msg with priv.
func Sign(priv ed25519.PrivateKey, msg []byte) (Signature, error) {
	signer, err := PrincipalFromKey(priv.Public().(ed25519.PublicKey))
	if err != nil {
		return Signature{}, err
	}
	return Signature{Signer: signer, Sig: ed25519.Sign(priv, msg)}, nil
}

// Authenticate verifies every signature over msg
// and returns the set of principals that produced them.
// Any signature that fails to verify fails the whole request.
func Authenticate(msg []byte, sigs []Signature) (SignerSet, error) {
	result := make(SignerSet, len(sigs))
	for _, s := range sigs {
		if !ed25519.Verify(s.Signer.Key(), msg, s.Sig) {
			return nil, errors.Wrapf(ErrBadSignature, "signer %s", s.Signer)
		}
		result[s.Signer] = struct{}{}
	}
	return result, nil
}
