/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package vc

import (
	"errors"
	"fmt"
	"strings"
)

// Identifier is a tagged reference to a public identity, e.g. {ethereum:address, 0xabc...}.
type Identifier struct {
	Type string `json:"type"`
	Key  string `json:"key"`
}

// String returns type:key.
func (i Identifier) String() string {
	return i.Type + ":" + i.Key
}

// Validate checks both parts are present.
func (i Identifier) Validate() error {
	if i.Type == "" {
		return errors.New("identifier type mandatory")
	}

	if i.Key == "" {
		return errors.New("identifier key mandatory")
	}

	return nil
}

// Attribute returns the identifier as an attribute subtree.
func (i Identifier) Attribute() map[string]interface{} {
	return map[string]interface{}{"type": i.Type, "key": i.Key}
}

// Issuer identifies who produced a proof.
type Issuer struct {
	ID Identifier `json:"id"`
}

// Proof is an attestation over the primitive sequence derived from a credential's attributes.
// The embedded schema is the one the signature was produced with.
type Proof struct {
	Type      string                 `json:"type"`
	Issuer    Issuer                 `json:"issuer"`
	Created   string                 `json:"created,omitempty"`
	Signature string                 `json:"signature"`
	Schema    map[string]interface{} `json:"schema"`
}

// Credential is an attribute tree plus the proofs issued over it. Values are never modified
// after construction; WithProof returns a new credential.
type Credential struct {
	Attributes     map[string]interface{} `json:"attributes"`
	Proofs         map[string]*Proof      `json:"proofs"`
	IssuerMetadata map[string]interface{} `json:"issuerMetadata,omitempty"`
}

// NewCredential returns a credential without proofs.
func NewCredential(attributes, issuerMetadata map[string]interface{}) *Credential {
	return &Credential{
		Attributes:     attributes,
		Proofs:         map[string]*Proof{},
		IssuerMetadata: issuerMetadata,
	}
}

// WithProof returns a copy of c carrying proof under the given key.
func (c *Credential) WithProof(key string, proof *Proof) *Credential {
	proofs := make(map[string]*Proof, len(c.Proofs)+1)

	for k, p := range c.Proofs {
		proofs[k] = p
	}

	proofs[key] = proof

	return &Credential{
		Attributes:     c.Attributes,
		Proofs:         proofs,
		IssuerMetadata: c.IssuerMetadata,
	}
}

// Proof returns the proof stored under key.
func (c *Credential) Proof(key string) (*Proof, bool) {
	if c == nil || c.Proofs == nil {
		return nil, false
	}

	p, ok := c.Proofs[key]

	return p, ok && p != nil
}

// SubjectID reads attributes.subject.id.
func (c *Credential) SubjectID() (Identifier, error) {
	return SubjectID(c.Attributes)
}

// SubjectID reads subject.id from an attribute tree.
func SubjectID(attributes map[string]interface{}) (Identifier, error) {
	subject, ok := attributes[SubjectAttribute].(map[string]interface{})
	if !ok {
		return Identifier{}, fmt.Errorf("attributes have no %s", SubjectAttribute)
	}

	id, ok := subject[IDAttribute].(map[string]interface{})
	if !ok {
		return Identifier{}, fmt.Errorf("attributes have no %s.%s", SubjectAttribute, IDAttribute)
	}

	t, _ := id["type"].(string) //nolint:errcheck
	k, _ := id["key"].(string)  //nolint:errcheck

	identifier := Identifier{Type: t, Key: k}

	return identifier, identifier.Validate()
}

// ProofKey returns the key a proof is stored under: the proof type, optionally with #ref.
func ProofKey(proofType, ref string) string {
	if ref == "" {
		return proofType
	}

	return proofType + "#" + ref
}

// SplitProofKey is the inverse of ProofKey.
func SplitProofKey(key string) (proofType, ref string) {
	parts := strings.SplitN(key, "#", 2) //nolint:gomnd
	if len(parts) == 1 {
		return parts[0], ""
	}

	return parts[0], parts[1]
}
