/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package crypto

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/go-jose/go-jose/v3"
	"github.com/mr-tron/base58"

	"github.com/trustbloc/edge-attest/pkg/codec"
	"github.com/trustbloc/edge-attest/pkg/vc"
)

// Ed25519PublicKey identifies an issuer by a base58 ed25519 public key.
const Ed25519PublicKey = "ed25519:publickey"

type ed25519Backend struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

func newEd25519Backend(seed []byte) (*ed25519Backend, error) {
	if seed == nil {
		return &ed25519Backend{}, nil
	}

	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("ed25519 seed must be %d bytes", ed25519.SeedSize)
	}

	priv := ed25519.NewKeyFromSeed(seed)

	return &ed25519Backend{priv: priv, pub: priv.Public().(ed25519.PublicKey)}, nil
}

func (b *ed25519Backend) issuer() vc.Identifier {
	if b.pub == nil {
		return vc.Identifier{Type: Ed25519PublicKey}
	}

	return vc.Identifier{Type: Ed25519PublicKey, Key: base58.Encode(b.pub)}
}

// sha256Digest hashes each primitive prefixed with its 4-byte big-endian length.
func sha256Digest(primitives []codec.Primitive) ([]byte, error) {
	h := sha256.New()

	var length [4]byte

	for i, p := range primitives {
		b, err := p.Bytes()
		if err != nil {
			return nil, fmt.Errorf("primitive %d: %w", i, err)
		}

		binary.BigEndian.PutUint32(length[:], uint32(len(b)))

		h.Write(length[:]) //nolint:errcheck
		h.Write(b)         //nolint:errcheck
	}

	return h.Sum(nil), nil
}

func (b *ed25519Backend) sign(primitives []codec.Primitive) (string, error) {
	digest, err := sha256Digest(primitives)
	if err != nil {
		return "", err
	}

	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.EdDSA, Key: b.priv}, nil)
	if err != nil {
		return "", fmt.Errorf("new jws signer: %w", err)
	}

	jws, err := signer.Sign(digest)
	if err != nil {
		return "", fmt.Errorf("sign jws: %w", err)
	}

	return jws.DetachedCompactSerialize()
}

func (b *ed25519Backend) verify(primitives []codec.Primitive, signature string, issuer vc.Identifier) (bool, error) {
	if issuer.Type != Ed25519PublicKey {
		return false, fmt.Errorf("issuer type %s", issuer.Type)
	}

	pub, err := base58.Decode(issuer.Key)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return false, fmt.Errorf("invalid issuer key %s", issuer.Key)
	}

	digest, err := sha256Digest(primitives)
	if err != nil {
		return false, err
	}

	jws, err := jose.ParseDetached(signature, digest)
	if err != nil {
		return false, fmt.Errorf("parse detached jws: %w", err)
	}

	if len(jws.Signatures) != 1 || jws.Signatures[0].Header.Algorithm != string(jose.EdDSA) {
		return false, fmt.Errorf("unexpected jws header")
	}

	if _, err = jws.Verify(ed25519.PublicKey(pub)); err != nil {
		return false, fmt.Errorf("jws: %w", err)
	}

	return true, nil
}
