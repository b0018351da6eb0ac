/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package crypto

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"github.com/mitchellh/mapstructure"

	"github.com/trustbloc/edge-attest/pkg/vc"
)

// ErrProofNotFound is returned when a selector matches no proof.
var ErrProofNotFound = errors.New("proof not found")

// SelectProof picks one proof from cred. The selector is either a proof key (type or
// type#ref) or a JSONPath expression starting with $ evaluated over the proofs map.
// An empty selector picks the only proof of a single-proof credential.
func SelectProof(cred *vc.Credential, selector string) (*vc.Proof, error) {
	if cred == nil || len(cred.Proofs) == 0 {
		return nil, fmt.Errorf("%w: credential has no proofs", ErrProofNotFound)
	}

	switch {
	case selector == "":
		if len(cred.Proofs) != 1 {
			return nil, fmt.Errorf("%w: selector required for %d proofs", ErrProofNotFound, len(cred.Proofs))
		}

		for _, p := range cred.Proofs {
			if p != nil {
				return p, nil
			}
		}

		return nil, ErrProofNotFound
	case strings.HasPrefix(selector, "$"):
		return selectByPath(cred, selector)
	default:
		p, ok := cred.Proof(selector)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrProofNotFound, selector)
		}

		return p, nil
	}
}

func selectByPath(cred *vc.Credential, path string) (*vc.Proof, error) {
	raw, err := json.Marshal(cred.Proofs)
	if err != nil {
		return nil, fmt.Errorf("marshal proofs: %w", err)
	}

	var doc interface{}

	if err = json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal proofs: %w", err)
	}

	result, err := jsonpath.Get(path, doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %s", ErrProofNotFound, path, err.Error())
	}

	if list, ok := result.([]interface{}); ok {
		if len(list) != 1 {
			return nil, fmt.Errorf("%w: %s matched %d values", ErrProofNotFound, path, len(list))
		}

		result = list[0]
	}

	if _, ok := result.(map[string]interface{}); !ok {
		return nil, fmt.Errorf("%w: %s does not select a proof", ErrProofNotFound, path)
	}

	proof := &vc.Proof{}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{TagName: "json", Result: proof})
	if err != nil {
		return nil, fmt.Errorf("new proof decoder: %w", err)
	}

	if err = decoder.Decode(result); err != nil {
		return nil, fmt.Errorf("decode selected proof: %w", err)
	}

	return proof, nil
}
