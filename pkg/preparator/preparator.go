/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package preparator canonicalizes a credential's attribute tree into the flat primitive sequence
// that proof suites sign and verify.
package preparator

import (
	"errors"
	"fmt"

	"github.com/trustbloc/edge-attest/pkg/codec"
	"github.com/trustbloc/edge-attest/pkg/transform"
)

// ErrSchemaPathMissing is returned when an attribute has no codec chain in the schema.
var ErrSchemaPathMissing = transform.ErrSchemaPathMissing

// Preparator turns attribute trees into primitive sequences according to a transform schema.
// It holds no mutable state and is safe for concurrent use.
type Preparator struct {
	graph *transform.Graph
}

// New returns a preparator over the given transformation graph.
func New(graph *transform.Graph) *Preparator {
	return &Preparator{graph: graph}
}

// NewDefault returns a preparator over the built-in codecs.
func NewDefault() (*Preparator, error) {
	reg, err := codec.NewDefaultRegistry()
	if err != nil {
		return nil, err
	}

	return New(transform.New(reg)), nil
}

// Graph returns the transformation graph.
func (p *Preparator) Graph() *transform.Graph {
	return p.graph
}

// Prepare returns the canonical primitive sequence for attributes under schema. The result does
// not depend on key insertion order at any level.
func (p *Preparator) Prepare(attributes, schema map[string]interface{}) ([]codec.Primitive, error) {
	linear, err := p.PrepareEntries(attributes, schema)
	if err != nil {
		return nil, err
	}

	return linear.Primitives, nil
}

// PrepareEntries is Prepare that also reports the attribute path behind each slice of the
// sequence.
func (p *Preparator) PrepareEntries(attributes, schema map[string]interface{}) (*transform.Linear, error) {
	if attributes == nil {
		return nil, errors.New("attributes are mandatory")
	}

	if schema == nil {
		return nil, fmt.Errorf("%w: empty schema", ErrSchemaPathMissing)
	}

	attrTree, schemaTree, err := DeepSort(attributes, schema)
	if err != nil {
		return nil, err
	}

	linear, err := p.graph.Walk(attrTree, schemaTree)
	if err != nil {
		return nil, fmt.Errorf("prepare attributes: %w", err)
	}

	return linear, nil
}

// PrepareBytes returns the canonical byte form of every primitive of the sequence.
func (p *Preparator) PrepareBytes(attributes, schema map[string]interface{}) ([][]byte, error) {
	primitives, err := p.Prepare(attributes, schema)
	if err != nil {
		return nil, err
	}

	return Bytes(primitives)
}

// DeepSort orders both trees by key at every level.
func DeepSort(attributes, schema map[string]interface{}) (*transform.Tree, *transform.Tree, error) {
	attrTree, err := transform.Sort(attributes, false)
	if err != nil {
		return nil, nil, fmt.Errorf("sort attributes: %w", err)
	}

	schemaTree, err := transform.Sort(schema, true)
	if err != nil {
		return nil, nil, fmt.Errorf("sort schema: %w", err)
	}

	return attrTree, schemaTree, nil
}

// Bytes converts primitives to their canonical byte forms.
func Bytes(primitives []codec.Primitive) ([][]byte, error) {
	out := make([][]byte, 0, len(primitives))

	for i, prim := range primitives {
		b, err := prim.Bytes()
		if err != nil {
			return nil, fmt.Errorf("primitive %d: %w", i, err)
		}

		out = append(out, b)
	}

	return out, nil
}
