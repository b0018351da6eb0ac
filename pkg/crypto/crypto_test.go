/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package crypto

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trustbloc/edge-attest/pkg/preparator"
	"github.com/trustbloc/edge-attest/pkg/vc"
)

func TestSuites(t *testing.T) {
	t.Parallel()

	for _, proofType := range ProofTypes() {
		proofType := proofType

		t.Run(string(proofType), func(t *testing.T) {
			t.Parallel()

			s := newSuite(t, proofType, 1)
			cred := sign(t, s)

			t.Run("verifies", func(t *testing.T) {
				require.True(t, s.Verify(cred, string(proofType)))
			})

			t.Run("verifies after json round trip", func(t *testing.T) {
				require.True(t, s.Verify(roundTrip(t, cred), string(proofType)))
			})

			t.Run("verify-only suite", func(t *testing.T) {
				verifier, err := NewSuite(proofType, prep(t), nil)
				require.NoError(t, err)
				require.True(t, verifier.Verify(cred, string(proofType)))

				_, err = verifier.SignAttributes(attributes(), schemaFor(proofType))
				require.ErrorIs(t, err, ErrVerifyOnly)
			})

			t.Run("mutated leaf fails", func(t *testing.T) {
				mutated := roundTrip(t, cred)
				mutated.Attributes["name"] = "mallory"

				require.False(t, s.Verify(mutated, string(proofType)))
			})

			t.Run("added attribute fails", func(t *testing.T) {
				mutated := roundTrip(t, cred)
				mutated.Attributes["extra"] = "value"

				require.False(t, s.Verify(mutated, string(proofType)))
			})

			t.Run("other issuer key fails", func(t *testing.T) {
				other := newSuite(t, proofType, 2)

				mutated := roundTrip(t, cred)
				mutated.Proofs[string(proofType)].Issuer.ID = other.Issuer()

				require.False(t, s.Verify(mutated, string(proofType)))
			})

			t.Run("garbage signature fails", func(t *testing.T) {
				mutated := roundTrip(t, cred)
				mutated.Proofs[string(proofType)].Signature = "zzz"

				require.False(t, s.Verify(mutated, string(proofType)))
			})

			t.Run("missing proof fails", func(t *testing.T) {
				require.False(t, s.Verify(cred, "unknown"))
			})
		})
	}
}

func TestSignAttributes(t *testing.T) {
	t.Parallel()

	t.Run("issuer identifiers", func(t *testing.T) {
		t.Parallel()

		require.Equal(t, Ed25519PublicKey, newSuite(t, Ed25519Sha256, 1).Issuer().Type)
		require.Equal(t, "ethereum:address", newSuite(t, Secp256k1Keccak256, 1).Issuer().Type)
		require.Equal(t, BN254PublicKey, newSuite(t, BN254MiMC, 1).Issuer().Type)
		require.Equal(t, BLS12381G2PublicKey, newSuite(t, BBSBls12381, 1).Issuer().Type)
	})

	t.Run("deterministic key from seed", func(t *testing.T) {
		t.Parallel()

		require.Equal(t, newSuite(t, Secp256k1Keccak256, 3).Issuer(), newSuite(t, Secp256k1Keccak256, 3).Issuer())
	})

	t.Run("schema path missing", func(t *testing.T) {
		t.Parallel()

		s := newSuite(t, Ed25519Sha256, 1)

		_, err := s.SignAttributes(attributes(), map[string]interface{}{"name": []string{"utf8-bytes"}})
		require.ErrorIs(t, err, preparator.ErrSchemaPathMissing)
	})

	t.Run("bn254 requires field elements", func(t *testing.T) {
		t.Parallel()

		s := newSuite(t, BN254MiMC, 1)

		_, err := s.SignAttributes(attributes(), schemaFor(Ed25519Sha256))
		require.Error(t, err)
		require.Contains(t, err.Error(), "want bn254.field")
	})

	t.Run("bad seed", func(t *testing.T) {
		t.Parallel()

		for _, proofType := range ProofTypes() {
			_, err := NewSuite(proofType, prep(t), []byte{1, 2, 3})
			require.Error(t, err)
		}
	})

	t.Run("unsupported proof type", func(t *testing.T) {
		t.Parallel()

		_, err := NewSuite("RsaSignature2018", prep(t), nil)
		require.ErrorIs(t, err, ErrUnsupportedProofType)
	})
}

func TestSelectProof(t *testing.T) {
	t.Parallel()

	s := newSuite(t, Ed25519Sha256, 1)
	cred := sign(t, s)

	t.Run("empty selector with one proof", func(t *testing.T) {
		t.Parallel()

		p, err := SelectProof(cred, "")
		require.NoError(t, err)
		require.Equal(t, string(Ed25519Sha256), p.Type)
	})

	t.Run("json path", func(t *testing.T) {
		t.Parallel()

		p, err := SelectProof(cred, "$."+string(Ed25519Sha256))
		require.NoError(t, err)
		require.Equal(t, cred.Proofs[string(Ed25519Sha256)].Signature, p.Signature)
		require.Equal(t, s.Issuer(), p.Issuer.ID)

		require.True(t, s.Verify(cred, "$.*"))
	})

	t.Run("json path without match", func(t *testing.T) {
		t.Parallel()

		_, err := SelectProof(cred, "$.missing")
		require.ErrorIs(t, err, ErrProofNotFound)
	})

	t.Run("ref key", func(t *testing.T) {
		t.Parallel()

		withRef := cred.WithProof(vc.ProofKey(string(Ed25519Sha256), "backup"), cred.Proofs[string(Ed25519Sha256)])

		_, err := SelectProof(withRef, "")
		require.ErrorIs(t, err, ErrProofNotFound)

		require.True(t, s.Verify(withRef, "Ed25519Sha256Signature2023#backup"))
		require.Len(t, cred.Proofs, 1)
	})

	t.Run("no proofs", func(t *testing.T) {
		t.Parallel()

		_, err := SelectProof(vc.NewCredential(attributes(), nil), "")
		require.ErrorIs(t, err, ErrProofNotFound)
	})
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	r := NewRegistry(prep(t))

	ed := newSuite(t, Ed25519Sha256, 1)
	r.Register(ed)

	bbsSuite := newSuite(t, BBSBls12381, 1)
	r.Register(bbsSuite)

	verifyOnly, err := NewSuite(Secp256k1Keccak256, prep(t), nil)
	require.NoError(t, err)
	r.Register(verifyOnly)

	signers := r.Signers()
	require.Len(t, signers, 2)
	require.Equal(t, Ed25519Sha256, signers[0].Type())
	require.Equal(t, BBSBls12381, signers[1].Type())

	cred := sign(t, ed)
	require.True(t, r.Verify(cred, string(Ed25519Sha256)))

	// proofs of unregistered types fall back to a built-in verifier
	bn := newSuite(t, BN254MiMC, 1)
	proof, err := bn.SignAttributes(attributes(), schemaFor(BN254MiMC))
	require.NoError(t, err)

	cred = cred.WithProof(string(BN254MiMC), proof)
	require.True(t, r.Verify(cred, string(BN254MiMC)))
	require.False(t, r.Verify(cred, ""))
}

func TestBBSDeriveProof(t *testing.T) {
	t.Parallel()

	s, ok := newSuite(t, BBSBls12381, 1).(*BBSSuite)
	require.True(t, ok)

	cred := sign(t, s)
	nonce := []byte("verifier nonce")

	t.Run("reveals selected attributes", func(t *testing.T) {
		t.Parallel()

		derived, err := s.DeriveProof(cred, string(BBSBls12381), []string{"subject.id", "tags"}, nonce)
		require.NoError(t, err)
		require.Equal(t, BBSDerivedProofType, derived.Type)
		require.NotContains(t, derived.RevealedAttributes, "name")
		require.Contains(t, derived.RevealedAttributes, "subject")
		require.Len(t, derived.RevealedIndexes, 4)

		require.True(t, s.VerifyDerived(derived))

		var decoded DerivedProof

		raw, err := json.Marshal(derived)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, &decoded))
		require.True(t, s.VerifyDerived(&decoded))
	})

	t.Run("tampered revealed value fails", func(t *testing.T) {
		t.Parallel()

		derived, err := s.DeriveProof(cred, string(BBSBls12381), []string{"name"}, nonce)
		require.NoError(t, err)

		derived.RevealedAttributes["name"] = "mallory"
		require.False(t, s.VerifyDerived(derived))
	})

	t.Run("nothing revealed", func(t *testing.T) {
		t.Parallel()

		_, err := s.DeriveProof(cred, string(BBSBls12381), []string{"unknown"}, nonce)
		require.Error(t, err)
	})

	t.Run("wrong proof type", func(t *testing.T) {
		t.Parallel()

		ed := sign(t, newSuite(t, Ed25519Sha256, 1))

		_, err := s.DeriveProof(ed, "", []string{"name"}, nonce)
		require.ErrorIs(t, err, ErrUnsupportedProofType)
	})

	t.Run("nil proof", func(t *testing.T) {
		t.Parallel()

		require.False(t, s.VerifyDerived(nil))
	})
}

func prep(t *testing.T) *preparator.Preparator {
	t.Helper()

	p, err := preparator.NewDefault()
	require.NoError(t, err)

	return p
}

func newSuite(t *testing.T, proofType ProofType, seedByte byte) Suite {
	t.Helper()

	s, err := NewSuite(proofType, prep(t), bytes.Repeat([]byte{seedByte}, 32))
	require.NoError(t, err)

	return s
}

func sign(t *testing.T, s Suite) *vc.Credential {
	t.Helper()

	proof, err := s.SignAttributes(attributes(), schemaFor(s.Type()))
	require.NoError(t, err)
	require.Equal(t, string(s.Type()), proof.Type)
	require.Equal(t, s.Issuer(), proof.Issuer.ID)
	require.NotEmpty(t, proof.Created)

	return vc.NewCredential(attributes(), nil).WithProof(string(s.Type()), proof)
}

func roundTrip(t *testing.T, cred *vc.Credential) *vc.Credential {
	t.Helper()

	raw, err := json.Marshal(cred)
	require.NoError(t, err)

	var out vc.Credential

	require.NoError(t, json.Unmarshal(raw, &out))

	return &out
}

func attributes() map[string]interface{} {
	return map[string]interface{}{
		"name": "alice",
		"age":  30,
		"tags": []interface{}{"a", "b"},
		"subject": map[string]interface{}{
			"id": map[string]interface{}{"type": "ethereum:address", "key": "0x5b38da6a701c568545dcfcb03fcb875f56beddc4"},
		},
	}
}

func schemaFor(proofType ProofType) map[string]interface{} {
	if proofType == BN254MiMC {
		text := []string{"utf8-bytes", "bytes-bn254fields"}

		return map[string]interface{}{
			"name":    text,
			"age":     []string{"number-bigint", "bigint-bn254field"},
			"tags":    []interface{}{text, text},
			"extra":   text,
			"subject": map[string]interface{}{"id": map[string]interface{}{"type": text, "key": text}},
		}
	}

	text := []string{"utf8-bytes"}

	return map[string]interface{}{
		"name":    text,
		"age":     []string{"number-bigint"},
		"tags":    []interface{}{text, text},
		"extra":   text,
		"subject": map[string]interface{}{"id": map[string]interface{}{"type": text, "key": text}},
	}
}
