/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package crypto

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/trustbloc/edge-attest/pkg/codec"
	"github.com/trustbloc/edge-attest/pkg/preparator"
	"github.com/trustbloc/edge-attest/pkg/vc"
)

// ProofType names a proof suite.
type ProofType string

const (
	// Ed25519Sha256 signs the sha-256 digest of the sequence with a detached EdDSA JWS.
	Ed25519Sha256 ProofType = "Ed25519Sha256Signature2023"

	// Secp256k1Keccak256 signs the keccak256 digest of 32-byte words with a recoverable signature.
	Secp256k1Keccak256 ProofType = "EcdsaSecp256k1Keccak256Signature2023"

	// BN254MiMC signs the MiMC digest of field elements with twisted-Edwards EdDSA.
	BN254MiMC ProofType = "EddsaBn254MiMCSignature2023"

	// BBSBls12381 signs every primitive as its own BBS+ message.
	BBSBls12381 ProofType = "BbsBls12381G2Signature2023"
)

// ErrUnsupportedProofType is returned for proof types without a suite.
var ErrUnsupportedProofType = errors.New("unsupported proof type")

// ErrVerifyOnly is returned when a suite built without key material is asked to sign.
var ErrVerifyOnly = errors.New("suite has no signing key")

var logger = log.New("edge-attest/crypto")

// ProofTypes lists the built-in proof types.
func ProofTypes() []ProofType {
	return []ProofType{Ed25519Sha256, Secp256k1Keccak256, BN254MiMC, BBSBls12381}
}

// Suite produces and verifies proofs of one type.
type Suite interface {
	Type() ProofType
	Issuer() vc.Identifier
	SignAttributes(attributes, schema map[string]interface{}) (*vc.Proof, error)
	Verify(cred *vc.Credential, selector string) bool
}

// backend is the signature primitive behind a suite.
type backend interface {
	issuer() vc.Identifier
	sign(primitives []codec.Primitive) (string, error)
	verify(primitives []codec.Primitive, signature string, issuer vc.Identifier) (bool, error)
}

// NewSuite returns the suite for proofType keyed by a 32-byte seed. A nil seed returns a
// verify-only suite.
func NewSuite(proofType ProofType, prep *preparator.Preparator, seed []byte) (Suite, error) {
	var (
		b   backend
		err error
	)

	switch proofType {
	case Ed25519Sha256:
		b, err = newEd25519Backend(seed)
	case Secp256k1Keccak256:
		b, err = newSecp256k1Backend(seed)
	case BN254MiMC:
		b, err = newBN254Backend(seed)
	case BBSBls12381:
		bb, bbsErr := newBBSBackend(seed)
		if bbsErr != nil {
			return nil, fmt.Errorf("new %s suite: %w", proofType, bbsErr)
		}

		return &BBSSuite{suite: &suite{proofType: proofType, prep: prep, backend: bb}, bbs: bb}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProofType, proofType)
	}

	if err != nil {
		return nil, fmt.Errorf("new %s suite: %w", proofType, err)
	}

	return &suite{proofType: proofType, prep: prep, backend: b}, nil
}

type suite struct {
	proofType ProofType
	prep      *preparator.Preparator
	backend   backend
}

func (s *suite) Type() ProofType {
	return s.proofType
}

func (s *suite) Issuer() vc.Identifier {
	return s.backend.issuer()
}

// SignAttributes prepares attributes under schema and signs the resulting sequence. Preparation
// errors are returned before any key material is used.
func (s *suite) SignAttributes(attributes, schema map[string]interface{}) (*vc.Proof, error) {
	issuer := s.backend.issuer()
	if issuer.Key == "" {
		return nil, ErrVerifyOnly
	}

	primitives, err := s.prep.Prepare(attributes, schema)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.proofType, err)
	}

	signature, err := s.backend.sign(primitives)
	if err != nil {
		return nil, fmt.Errorf("%s: sign: %w", s.proofType, err)
	}

	return &vc.Proof{
		Type:      string(s.proofType),
		Issuer:    vc.Issuer{ID: issuer},
		Created:   time.Now().UTC().Format(time.RFC3339),
		Signature: signature,
		Schema:    schema,
	}, nil
}

// Verify checks the proof selected from cred. It never returns an error; every failure,
// including a panic inside the signature library, is logged and reported as false.
func (s *suite) Verify(cred *vc.Credential, selector string) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Debugf("%s verification panicked: %v", s.proofType, r)

			ok = false
		}
	}()

	proof, err := SelectProof(cred, selector)
	if err != nil {
		logger.Debugf("%s: select proof: %s", s.proofType, err)

		return false
	}

	return s.verifyProof(cred.Attributes, proof)
}

func (s *suite) verifyProof(attributes map[string]interface{}, proof *vc.Proof) bool {
	if proof.Type != string(s.proofType) {
		logger.Debugf("%s: proof has type %s", s.proofType, proof.Type)

		return false
	}

	primitives, err := s.prep.Prepare(attributes, proof.Schema)
	if err != nil {
		logger.Debugf("%s: prepare attributes: %s", s.proofType, err)

		return false
	}

	valid, err := s.backend.verify(primitives, proof.Signature, proof.Issuer.ID)
	if err != nil {
		logger.Debugf("%s: verify signature: %s", s.proofType, err)

		return false
	}

	return valid
}

// Registry holds suites by proof type. Verification picks the suite matching the selected
// proof's type and falls back to a verify-only built-in suite.
type Registry struct {
	mu     sync.RWMutex
	prep   *preparator.Preparator
	suites map[ProofType]Suite
}

// NewRegistry returns an empty registry.
func NewRegistry(prep *preparator.Preparator) *Registry {
	return &Registry{prep: prep, suites: map[ProofType]Suite{}}
}

// Preparator returns the preparator verify-only suites are built with.
func (r *Registry) Preparator() *preparator.Preparator {
	return r.prep
}

// Register adds a suite, replacing any suite of the same type.
func (r *Registry) Register(s Suite) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.suites[s.Type()] = s
}

// Get returns the suite registered for proofType.
func (r *Registry) Get(proofType ProofType) (Suite, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.suites[proofType]

	return s, ok
}

// Signers returns the registered suites holding key material, in built-in type order first.
func (r *Registry) Signers() []Suite {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Suite

	seen := map[ProofType]bool{}

	for _, t := range ProofTypes() {
		if s, ok := r.suites[t]; ok && s.Issuer().Key != "" {
			out = append(out, s)
		}

		seen[t] = true
	}

	for t, s := range r.suites {
		if !seen[t] && s.Issuer().Key != "" {
			out = append(out, s)
		}
	}

	return out
}

// Verify selects a proof from cred and checks it with the suite of the proof's type.
func (r *Registry) Verify(cred *vc.Credential, selector string) bool {
	proof, err := SelectProof(cred, selector)
	if err != nil {
		logger.Debugf("select proof: %s", err)

		return false
	}

	s, ok := r.Get(ProofType(proof.Type))
	if !ok {
		s, err = NewSuite(ProofType(proof.Type), r.prep, nil)
		if err != nil {
			logger.Debugf("verify: %s", err)

			return false
		}
	}

	return s.Verify(cred, selector)
}
