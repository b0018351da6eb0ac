/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package identity

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcec"
	"golang.org/x/crypto/sha3"

	"github.com/trustbloc/edge-attest/pkg/vc"
)

const (
	// EthereumAddress identifies an account by its 20-byte address.
	EthereumAddress = "ethereum:address"

	personalMessagePrefix = "\x19Ethereum Signed Message:\n"
	compactSignatureLen   = 65
	// compact signatures carry 27 + recovery id (+4 when the key is compressed).
	compactHeaderBase = 27
)

// Keccak256 hashes the concatenation of data.
func Keccak256(data ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()

	for _, d := range data {
		h.Write(d) //nolint:errcheck
	}

	return h.Sum(nil)
}

// AddressFromPublicKey returns the 0x-prefixed lowercase ethereum address of pub.
func AddressFromPublicKey(pub *btcec.PublicKey) string {
	uncompressed := pub.SerializeUncompressed()

	return "0x" + hex.EncodeToString(Keccak256(uncompressed[1:])[12:])
}

// PersonalMessageHash is the EIP-191 hash signed by personal_sign.
func PersonalMessageHash(message []byte) []byte {
	prefix := personalMessagePrefix + strconv.Itoa(len(message))

	return Keccak256([]byte(prefix), message)
}

// SignPersonal produces an [r|s|v] personal_sign signature, v in {27,28}.
func SignPersonal(priv *btcec.PrivateKey, message []byte) ([]byte, error) {
	return SignHashRSV(priv, PersonalMessageHash(message))
}

// SignHashRSV signs a 32-byte hash and returns the ethereum [r|s|v] layout.
func SignHashRSV(priv *btcec.PrivateKey, hash []byte) ([]byte, error) {
	compact, err := btcec.SignCompact(btcec.S256(), priv, hash, false)
	if err != nil {
		return nil, fmt.Errorf("sign hash: %w", err)
	}

	// btcec layout is [v|r|s]
	return append(compact[1:], compact[0]), nil
}

// RecoverAddress returns the address that produced an [r|s|v] signature over hash.
func RecoverAddress(hash, rsv []byte) (string, error) {
	if len(rsv) != compactSignatureLen {
		return "", fmt.Errorf("signature must be %d bytes, got %d", compactSignatureLen, len(rsv))
	}

	v := rsv[compactSignatureLen-1]
	if v < compactHeaderBase {
		// some wallets emit the raw recovery id
		v += compactHeaderBase
	}

	if v != compactHeaderBase && v != compactHeaderBase+1 {
		return "", errors.New("invalid recovery id")
	}

	compact := append([]byte{v}, rsv[:compactSignatureLen-1]...)

	pub, _, err := btcec.RecoverCompact(btcec.S256(), compact, hash)
	if err != nil {
		return "", fmt.Errorf("recover public key: %w", err)
	}

	return AddressFromPublicKey(pub), nil
}

type ethereumVerifier struct{}

func (ethereumVerifier) Validate(id vc.Identifier) error {
	b, err := hex.DecodeString(strings.TrimPrefix(strings.ToLower(id.Key), "0x"))
	if err != nil || len(b) != 20 { //nolint:gomnd
		return fmt.Errorf("invalid ethereum address %s", id.Key)
	}

	return nil
}

func (ethereumVerifier) Verify(id vc.Identifier, message []byte, signature string) error {
	sig, err := hex.DecodeString(strings.TrimPrefix(signature, "0x"))
	if err != nil {
		return fmt.Errorf("decode signature: %w", err)
	}

	addr, err := RecoverAddress(PersonalMessageHash(message), sig)
	if err != nil {
		return err
	}

	if !strings.EqualFold(addr, id.Key) {
		return fmt.Errorf("signature recovers to %s", addr)
	}

	return nil
}
