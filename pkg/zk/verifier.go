/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package zk

import (
	"context"

	"github.com/trustbloc/edge-attest/pkg/preparator"
)

// ProvingResult is a proof over the public part of a credential.
type ProvingResult struct {
	Program          Program                `json:"program"`
	Proof            []byte                 `json:"proof"`
	PublicAttributes map[string]interface{} `json:"publicAttributes"`
	PublicSchema     map[string]interface{} `json:"publicSchema"`
}

// Verifier checks proving results against cached circuits.
type Verifier struct {
	cache *Cache
	prep  *preparator.Preparator
}

// NewVerifier returns a verifier.
func NewVerifier(cache *Cache, prep *preparator.Preparator) *Verifier {
	return &Verifier{cache: cache, prep: prep}
}

// Verify re-derives the public inputs from the public attributes and checks the proof. Any
// failure is logged and reported as false.
func (v *Verifier) Verify(ctx context.Context, result *ProvingResult) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Debugf("zk verification panicked: %v", r)

			ok = false
		}
	}()

	if result == nil || len(result.Proof) == 0 {
		logger.Debugf("zk verification: empty proving result")

		return false
	}

	inputs, err := v.prep.Prepare(result.PublicAttributes, result.PublicSchema)
	if err != nil {
		logger.Debugf("zk verification: prepare public inputs: %s", err)

		return false
	}

	compiled, err := v.cache.Get(ctx, result.Program)
	if err != nil {
		logger.Debugf("zk verification: %s", err)

		return false
	}

	valid, err := compiled.Circuit.Verify(compiled.VerificationKey, result.Proof, inputs)
	if err != nil {
		logger.Debugf("zk verification: %s", err)

		return false
	}

	return valid
}
