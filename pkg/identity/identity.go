/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package identity verifies that a subject identifier signed a challenge message.
package identity

import (
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"

	"github.com/trustbloc/edge-attest/pkg/vc"
)

// SolanaAddress identifies an account by its base58 ed25519 public key.
const SolanaAddress = "solana:address"

// ErrUnsupportedIdentifier is returned for identifier types without a verifier.
var ErrUnsupportedIdentifier = errors.New("unsupported identifier type")

// Verifier checks challenge signatures for one identifier type.
type Verifier interface {
	Validate(id vc.Identifier) error
	Verify(id vc.Identifier, message []byte, signature string) error
}

// Registry maps identifier types to verifiers.
type Registry struct {
	verifiers map[string]Verifier
}

// NewRegistry returns a registry holding the ethereum and solana verifiers.
func NewRegistry() *Registry {
	return &Registry{verifiers: map[string]Verifier{
		EthereumAddress: ethereumVerifier{},
		SolanaAddress:   solanaVerifier{},
	}}
}

// Register adds or replaces the verifier for an identifier type.
func (r *Registry) Register(identifierType string, v Verifier) {
	r.verifiers[identifierType] = v
}

// Validate checks the identifier is well formed and supported.
func (r *Registry) Validate(id vc.Identifier) error {
	if err := id.Validate(); err != nil {
		return err
	}

	v, ok := r.verifiers[id.Type]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedIdentifier, id.Type)
	}

	return v.Validate(id)
}

// Verify checks that signature over message was produced by id.
func (r *Registry) Verify(id vc.Identifier, message []byte, signature string) error {
	v, ok := r.verifiers[id.Type]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedIdentifier, id.Type)
	}

	return v.Verify(id, message, signature)
}

type solanaVerifier struct{}

func (solanaVerifier) Validate(id vc.Identifier) error {
	_, err := solanaKey(id.Key)

	return err
}

func (solanaVerifier) Verify(id vc.Identifier, message []byte, signature string) error {
	pub, err := solanaKey(id.Key)
	if err != nil {
		return err
	}

	sig, err := base58.Decode(signature)
	if err != nil {
		return fmt.Errorf("decode signature: %w", err)
	}

	if !ed25519.Verify(pub, message, sig) {
		return errors.New("ed25519 signature check failed")
	}

	return nil
}

func solanaKey(key string) (ed25519.PublicKey, error) {
	b, err := base58.Decode(key)
	if err != nil || len(b) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("invalid solana address %s", key)
	}

	return b, nil
}
