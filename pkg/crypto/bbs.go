/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package crypto

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"

	bbs "github.com/hyperledger/aries-framework-go/component/kmscrypto/crypto/primitive/bbs12381g2pub"
	"github.com/mr-tron/base58"
	"github.com/multiformats/go-multibase"

	"github.com/trustbloc/edge-attest/pkg/codec"
	"github.com/trustbloc/edge-attest/pkg/preparator"
	"github.com/trustbloc/edge-attest/pkg/transform"
	"github.com/trustbloc/edge-attest/pkg/vc"
)

const (
	// BLS12381G2PublicKey identifies an issuer by a base58 BLS12-381 G2 public key.
	BLS12381G2PublicKey = "bls12381g2:publickey"

	// BBSDerivedProofType is the type of a selective-disclosure proof derived from a BBS+ signature.
	BBSDerivedProofType = "BbsBls12381G2SignatureProof2023"
)

// DerivedProof discloses a subset of a credential's attributes with a zero-knowledge proof of
// the issuer's BBS+ signature over the full sequence.
type DerivedProof struct {
	Type               string                 `json:"type"`
	Issuer             vc.Issuer              `json:"issuer"`
	Schema             map[string]interface{} `json:"schema"`
	Nonce              string                 `json:"nonce"`
	Proof              string                 `json:"proof"`
	RevealedAttributes map[string]interface{} `json:"revealedAttributes"`
	RevealedIndexes    []int                  `json:"revealedIndexes"`
}

type bbsBackend struct {
	priv []byte
	pub  []byte
}

func newBBSBackend(seed []byte) (*bbsBackend, error) {
	if seed == nil {
		return &bbsBackend{}, nil
	}

	if len(seed) != 32 { //nolint:gomnd
		return nil, errors.New("bbs seed must be 32 bytes")
	}

	pub, priv, err := bbs.GenerateKeyPair(sha256.New, seed)
	if err != nil {
		return nil, fmt.Errorf("generate bbs key pair: %w", err)
	}

	privBytes, err := priv.Marshal()
	if err != nil {
		return nil, fmt.Errorf("marshal bbs private key: %w", err)
	}

	pubBytes, err := pub.Marshal()
	if err != nil {
		return nil, fmt.Errorf("marshal bbs public key: %w", err)
	}

	return &bbsBackend{priv: privBytes, pub: pubBytes}, nil
}

func (b *bbsBackend) issuer() vc.Identifier {
	if b.pub == nil {
		return vc.Identifier{Type: BLS12381G2PublicKey}
	}

	return vc.Identifier{Type: BLS12381G2PublicKey, Key: base58.Encode(b.pub)}
}

func (b *bbsBackend) sign(primitives []codec.Primitive) (string, error) {
	messages, err := preparator.Bytes(primitives)
	if err != nil {
		return "", err
	}

	if len(messages) == 0 {
		return "", errors.New("nothing to sign")
	}

	sig, err := bbs.New().Sign(messages, b.priv)
	if err != nil {
		return "", fmt.Errorf("bbs sign: %w", err)
	}

	return multibase.Encode(multibase.Base58BTC, sig)
}

func (b *bbsBackend) verify(primitives []codec.Primitive, signature string, issuer vc.Identifier) (bool, error) {
	pub, err := bbsIssuerKey(issuer)
	if err != nil {
		return false, err
	}

	messages, err := preparator.Bytes(primitives)
	if err != nil {
		return false, err
	}

	_, sig, err := multibase.Decode(signature)
	if err != nil {
		return false, fmt.Errorf("decode signature: %w", err)
	}

	if err = bbs.New().Verify(messages, sig, pub); err != nil {
		return false, fmt.Errorf("bbs verify: %w", err)
	}

	return true, nil
}

func bbsIssuerKey(issuer vc.Identifier) ([]byte, error) {
	if issuer.Type != BLS12381G2PublicKey {
		return nil, fmt.Errorf("issuer type %s", issuer.Type)
	}

	pub, err := base58.Decode(issuer.Key)
	if err != nil {
		return nil, fmt.Errorf("decode issuer key: %w", err)
	}

	return pub, nil
}

// BBSSuite is the BBS+ suite. Besides signing and verifying full credentials it derives
// selective-disclosure proofs.
type BBSSuite struct {
	*suite
	bbs *bbsBackend
}

// DeriveProof proves knowledge of the selected BBS+ proof while revealing only the attributes
// under revealPaths (dot-separated attribute paths, e.g. subject.id).
func (s *BBSSuite) DeriveProof(cred *vc.Credential, selector string, revealPaths []string,
	nonce []byte) (*DerivedProof, error) {
	proof, err := SelectProof(cred, selector)
	if err != nil {
		return nil, err
	}

	if proof.Type != string(BBSBls12381) {
		return nil, fmt.Errorf("%w: cannot derive from %s", ErrUnsupportedProofType, proof.Type)
	}

	pub, err := bbsIssuerKey(proof.Issuer.ID)
	if err != nil {
		return nil, err
	}

	linear, err := s.prep.PrepareEntries(cred.Attributes, proof.Schema)
	if err != nil {
		return nil, fmt.Errorf("derive proof: %w", err)
	}

	messages, err := preparator.Bytes(linear.Primitives)
	if err != nil {
		return nil, err
	}

	indexes, revealed, err := revealEntries(cred.Attributes, linear.Entries, revealPaths)
	if err != nil {
		return nil, err
	}

	_, sig, err := multibase.Decode(proof.Signature)
	if err != nil {
		return nil, fmt.Errorf("decode signature: %w", err)
	}

	derived, err := bbs.New().DeriveProof(messages, sig, nonce, pub, indexes)
	if err != nil {
		return nil, fmt.Errorf("bbs derive proof: %w", err)
	}

	encodedProof, err := multibase.Encode(multibase.Base58BTC, derived)
	if err != nil {
		return nil, err
	}

	encodedNonce, err := multibase.Encode(multibase.Base58BTC, nonce)
	if err != nil {
		return nil, err
	}

	return &DerivedProof{
		Type:               BBSDerivedProofType,
		Issuer:             proof.Issuer,
		Schema:             proof.Schema,
		Nonce:              encodedNonce,
		Proof:              encodedProof,
		RevealedAttributes: revealed,
		RevealedIndexes:    indexes,
	}, nil
}

// VerifyDerived checks a derived proof against its revealed attributes.
func (s *BBSSuite) VerifyDerived(d *DerivedProof) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Debugf("derived proof verification panicked: %v", r)

			ok = false
		}
	}()

	if err := s.verifyDerived(d); err != nil {
		logger.Debugf("verify derived proof: %s", err)

		return false
	}

	return true
}

func (s *BBSSuite) verifyDerived(d *DerivedProof) error {
	if d == nil || d.Type != BBSDerivedProofType {
		return errors.New("not a derived bbs proof")
	}

	pub, err := bbsIssuerKey(d.Issuer.ID)
	if err != nil {
		return err
	}

	linear, err := s.prep.PrepareEntries(d.RevealedAttributes, d.Schema)
	if err != nil {
		return err
	}

	if len(linear.Primitives) != len(d.RevealedIndexes) {
		return fmt.Errorf("%d revealed messages for %d indexes", len(linear.Primitives), len(d.RevealedIndexes))
	}

	messages, err := preparator.Bytes(linear.Primitives)
	if err != nil {
		return err
	}

	_, proof, err := multibase.Decode(d.Proof)
	if err != nil {
		return fmt.Errorf("decode proof: %w", err)
	}

	_, nonce, err := multibase.Decode(d.Nonce)
	if err != nil {
		return fmt.Errorf("decode nonce: %w", err)
	}

	return bbs.New().VerifyProof(messages, proof, nonce, pub)
}

// revealEntries returns the message indexes under the given paths, in sequence order, and the
// attribute subtree holding exactly those leaves.
func revealEntries(attributes map[string]interface{}, entries []transform.Entry,
	paths []string) ([]int, map[string]interface{}, error) {
	var indexes []int

	revealed := map[string]interface{}{}

	for _, e := range entries {
		if !underAny(e.Path, paths) {
			continue
		}

		for i := 0; i < e.Count; i++ {
			indexes = append(indexes, e.Index+i)
		}

		if err := copyLeaf(attributes, revealed, strings.Split(e.Path, ".")); err != nil {
			return nil, nil, err
		}
	}

	if len(indexes) == 0 {
		return nil, nil, errors.New("reveal paths select no attributes")
	}

	return indexes, revealed, nil
}

func underAny(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if path == p || strings.HasPrefix(path, p+".") {
			return true
		}
	}

	return false
}

// copyLeaf copies the value at path from src into dst, creating intermediate objects. Arrays
// in src are copied as index-keyed objects, which order identically.
func copyLeaf(src, dst map[string]interface{}, path []string) error {
	var cur interface{} = src

	for i, key := range path {
		value, err := child(cur, key)
		if err != nil {
			return fmt.Errorf("reveal %s: %w", strings.Join(path, "."), err)
		}

		if i == len(path)-1 {
			dst[key] = value

			return nil
		}

		next, ok := dst[key].(map[string]interface{})
		if !ok {
			next = map[string]interface{}{}
			dst[key] = next
		}

		dst = next
		cur = value
	}

	return nil
}

func child(v interface{}, key string) (interface{}, error) {
	switch node := v.(type) {
	case map[string]interface{}:
		value, ok := node[key]
		if !ok {
			return nil, fmt.Errorf("missing key %s", key)
		}

		return value, nil
	case []interface{}:
		var i int

		if _, err := fmt.Sscanf(key, "%d", &i); err != nil || i < 0 || i >= len(node) {
			return nil, fmt.Errorf("bad index %s", key)
		}

		return node[i], nil
	default:
		return nil, fmt.Errorf("cannot descend into %T", v)
	}
}
