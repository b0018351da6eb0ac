/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package crypto

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
	"github.com/consensys/gnark-crypto/ecc/bn254/twistededwards/eddsa"
	"github.com/multiformats/go-multibase"

	"github.com/trustbloc/edge-attest/pkg/codec"
	"github.com/trustbloc/edge-attest/pkg/vc"
)

// BN254PublicKey identifies an issuer by a hex compressed twisted-Edwards public key.
const BN254PublicKey = "bn254:publickey"

type bn254Backend struct {
	priv *eddsa.PrivateKey
}

func newBN254Backend(seed []byte) (*bn254Backend, error) {
	if seed == nil {
		return &bn254Backend{}, nil
	}

	if len(seed) != 32 { //nolint:gomnd
		return nil, fmt.Errorf("bn254 seed must be 32 bytes")
	}

	priv, err := eddsa.GenerateKey(bytes.NewReader(seed))
	if err != nil {
		return nil, fmt.Errorf("generate bn254 key: %w", err)
	}

	return &bn254Backend{priv: priv}, nil
}

func (b *bn254Backend) issuer() vc.Identifier {
	if b.priv == nil {
		return vc.Identifier{Type: BN254PublicKey}
	}

	return vc.Identifier{Type: BN254PublicKey, Key: hex.EncodeToString(b.priv.PublicKey.Bytes())}
}

// mimcDigest hashes the sequence, which must consist of field elements only.
func mimcDigest(primitives []codec.Primitive) ([]byte, error) {
	h := mimc.NewMiMC()

	for i, p := range primitives {
		e, ok := p.Value.(fr.Element)
		if p.Type != codec.TypeField || !ok {
			return nil, fmt.Errorf("primitive %d is %s, want %s", i, p.Type, codec.TypeField)
		}

		b := e.Bytes()

		h.Write(b[:]) //nolint:errcheck
	}

	return h.Sum(nil), nil
}

func (b *bn254Backend) sign(primitives []codec.Primitive) (string, error) {
	digest, err := mimcDigest(primitives)
	if err != nil {
		return "", err
	}

	sig, err := b.priv.Sign(digest, mimc.NewMiMC())
	if err != nil {
		return "", fmt.Errorf("eddsa sign: %w", err)
	}

	return multibase.Encode(multibase.Base58BTC, sig)
}

func (b *bn254Backend) verify(primitives []codec.Primitive, signature string, issuer vc.Identifier) (bool, error) {
	if issuer.Type != BN254PublicKey {
		return false, fmt.Errorf("issuer type %s", issuer.Type)
	}

	keyBytes, err := hex.DecodeString(issuer.Key)
	if err != nil {
		return false, fmt.Errorf("decode issuer key: %w", err)
	}

	var pub eddsa.PublicKey

	if _, err = pub.SetBytes(keyBytes); err != nil {
		return false, fmt.Errorf("parse issuer key: %w", err)
	}

	_, sig, err := multibase.Decode(signature)
	if err != nil {
		return false, fmt.Errorf("decode signature: %w", err)
	}

	digest, err := mimcDigest(primitives)
	if err != nil {
		return false, err
	}

	return pub.Verify(sig, digest, mimc.NewMiMC())
}
