/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package zk verifies zero-knowledge proofs against circuits compiled from declarative programs.
package zk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"

	"github.com/trustbloc/edge-attest/pkg/codec"
)

// ErrCompilation wraps failures reported by the compiler.
var ErrCompilation = errors.New("circuit compilation failed")

// Program is the structured form of a proof program.
type Program map[string]interface{}

// Canonicalize returns the program as JSON with object keys sorted at every level.
func Canonicalize(p Program) ([]byte, error) {
	if len(p) == 0 {
		return nil, errors.New("empty program")
	}

	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("canonicalize program: %w", err)
	}

	return b, nil
}

// ProgramID content-addresses a canonicalized program as a CIDv1 (raw, sha2-256).
func ProgramID(canonical []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(canonical, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, fmt.Errorf("hash program: %w", err)
	}

	return cid.NewCidV1(cid.Raw, sum), nil
}

// Circuit checks proofs for one compiled program.
type Circuit interface {
	Verify(verificationKey, proof []byte, publicInputs []codec.Primitive) (bool, error)
}

// Compiled is a compiler's output.
type Compiled struct {
	Circuit         Circuit
	VerificationKey []byte
}

// Compiler turns a canonicalized program into a circuit.
type Compiler interface {
	Compile(ctx context.Context, canonicalProgram []byte) (*Compiled, error)
}

// Loader is implemented by compilers that can rebuild a circuit from a previously persisted
// verification key without recompiling.
type Loader interface {
	Load(ctx context.Context, canonicalProgram, verificationKey []byte) (Circuit, error)
}
