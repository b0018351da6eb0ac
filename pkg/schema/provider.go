/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package schema stores transform schemas by credential type, proof type and identifier type.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"

	"github.com/hyperledger/aries-framework-go/spi/storage"

	"github.com/trustbloc/edge-attest/pkg/transform"
)

const (
	keyPrefix = "schema"

	storeName = "transformschema"
)

// ErrSchemaNotFound is returned when no schema is stored for a key.
var ErrSchemaNotFound = errors.New("schema not found")

// Key selects a schema.
type Key struct {
	CredentialType string `json:"credentialType"`
	ProofType      string `json:"proofType"`
	IdentifierType string `json:"identifierType"`
}

func (k Key) validate() error {
	if k.CredentialType == "" {
		return fmt.Errorf("credential type mandatory")
	}

	if k.ProofType == "" {
		return fmt.Errorf("proof type mandatory")
	}

	if k.IdentifierType == "" {
		return fmt.Errorf("identifier type mandatory")
	}

	return nil
}

// dbKey escapes each part as a path segment, so no part can spill into the next.
func (k Key) dbKey() string {
	return keyPrefix + "/" + url.PathEscape(k.CredentialType) + "/" + url.PathEscape(k.ProofType) + "/" +
		url.PathEscape(k.IdentifierType)
}

// Document is the file layout: credential type -> proof type -> identifier type -> schema.
type Document map[string]map[string]map[string]map[string]interface{}

// Provider validates schemas against a transformation graph and stores them.
type Provider struct {
	store storage.Store
	graph *transform.Graph
}

// New returns a provider backed by the given storage.
func New(provider storage.Provider, graph *transform.Graph) (*Provider, error) {
	store, err := provider.OpenStore(storeName)
	if err != nil {
		return nil, fmt.Errorf("failed to open store %s: %w", storeName, err)
	}

	return &Provider{store: store, graph: graph}, nil
}

// Load saves every schema of a JSON document.
func (p *Provider) Load(r io.Reader) error {
	var doc Document

	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return fmt.Errorf("failed to decode schema file: %w", err)
	}

	for credType, byProof := range doc {
		for proofType, byIdentifier := range byProof {
			for identifierType, s := range byIdentifier {
				key := Key{CredentialType: credType, ProofType: proofType, IdentifierType: identifierType}

				if err := p.Save(key, s); err != nil {
					return err
				}
			}
		}
	}

	return nil
}

// Save validates schema and stores it under key, replacing any previous schema.
func (p *Provider) Save(key Key, s map[string]interface{}) error {
	if err := key.validate(); err != nil {
		return fmt.Errorf("schema key is invalid: %w", err)
	}

	if err := p.Validate(s); err != nil {
		return fmt.Errorf("schema %s is invalid: %w", key.dbKey(), err)
	}

	bytes, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("schema save - marshalling error: %w", err)
	}

	return p.store.Put(key.dbKey(), bytes) // nolint:wrapcheck // reduce cyclo
}

// Get returns the schema stored under key.
func (p *Provider) Get(key Key) (map[string]interface{}, error) {
	bytes, err := p.store.Get(key.dbKey())
	if errors.Is(err, storage.ErrDataNotFound) {
		return nil, fmt.Errorf("%w: %s/%s/%s", ErrSchemaNotFound, key.CredentialType, key.ProofType, key.IdentifierType)
	}

	if err != nil {
		return nil, fmt.Errorf("get schema : %w", err)
	}

	s := map[string]interface{}{}

	if err = json.Unmarshal(bytes, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schema: %w", err)
	}

	return s, nil
}

// Validate compiles every chain of the schema.
func (p *Provider) Validate(s map[string]interface{}) error {
	if len(s) == 0 {
		return errors.New("empty schema")
	}

	tree, err := transform.Sort(s, true)
	if err != nil {
		return err
	}

	return p.compile(tree)
}

func (p *Provider) compile(t *transform.Tree) error {
	if t.Leaf {
		chain, ok := t.Value.([]string)
		if !ok {
			return fmt.Errorf("%s is not a codec chain", t.Key)
		}

		_, err := p.graph.Compile(chain)

		return err
	}

	for _, c := range t.Children {
		if err := p.compile(c); err != nil {
			return err
		}
	}

	return nil
}
