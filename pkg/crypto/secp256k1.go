/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package crypto

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec"

	"github.com/trustbloc/edge-attest/pkg/codec"
	"github.com/trustbloc/edge-attest/pkg/identity"
	"github.com/trustbloc/edge-attest/pkg/vc"
)

type secp256k1Backend struct {
	priv    *btcec.PrivateKey
	address string
}

func newSecp256k1Backend(seed []byte) (*secp256k1Backend, error) {
	if seed == nil {
		return &secp256k1Backend{}, nil
	}

	if len(seed) != 32 { //nolint:gomnd
		return nil, fmt.Errorf("secp256k1 seed must be 32 bytes")
	}

	priv, pub := btcec.PrivKeyFromBytes(btcec.S256(), seed)

	return &secp256k1Backend{priv: priv, address: identity.AddressFromPublicKey(pub)}, nil
}

func (b *secp256k1Backend) issuer() vc.Identifier {
	return vc.Identifier{Type: identity.EthereumAddress, Key: b.address}
}

// keccakDigest packs the sequence into 32-byte words, hashing variable-length primitives
// first, and returns keccak256 of the packed words.
func keccakDigest(primitives []codec.Primitive) ([]byte, error) {
	words := make([][]byte, 0, len(primitives))

	for i, p := range primitives {
		b, err := p.Bytes()
		if err != nil {
			return nil, fmt.Errorf("primitive %d: %w", i, err)
		}

		switch p.Type {
		case codec.TypeBigInt, codec.TypeField:
			words = append(words, b)
		case codec.TypeBoolean:
			word := make([]byte, 32) //nolint:gomnd
			word[31] = b[0]
			words = append(words, word)
		default:
			words = append(words, identity.Keccak256(b))
		}
	}

	return identity.Keccak256(words...), nil
}

func (b *secp256k1Backend) sign(primitives []codec.Primitive) (string, error) {
	digest, err := keccakDigest(primitives)
	if err != nil {
		return "", err
	}

	sig, err := identity.SignHashRSV(b.priv, digest)
	if err != nil {
		return "", err
	}

	return "0x" + hex.EncodeToString(sig), nil
}

func (b *secp256k1Backend) verify(primitives []codec.Primitive, signature string, issuer vc.Identifier) (bool, error) {
	if issuer.Type != identity.EthereumAddress {
		return false, fmt.Errorf("issuer type %s", issuer.Type)
	}

	sig, err := hex.DecodeString(strings.TrimPrefix(signature, "0x"))
	if err != nil {
		return false, fmt.Errorf("decode signature: %w", err)
	}

	digest, err := keccakDigest(primitives)
	if err != nil {
		return false, err
	}

	addr, err := identity.RecoverAddress(digest, sig)
	if err != nil {
		return false, err
	}

	return strings.EqualFold(addr, issuer.Key), nil
}
