/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package transform composes codec chains into type-checked functions and applies them to
// attribute values.
package transform

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/trustbloc/edge-attest/pkg/codec"
)

var (
	// ErrBrokenChain is returned when adjacent codecs disagree on types.
	ErrBrokenChain = errors.New("broken chain")

	// ErrUnsupportedValue is returned when an attribute value has no codec type.
	ErrUnsupportedValue = errors.New("unsupported value")
)

// Output is the result of applying a chain. Spread is set when any node in the chain
// produced multiple primitives.
type Output struct {
	Values []codec.Primitive
	Spread bool
}

// Chain is a resolved and type-checked sequence of codec nodes.
type Chain struct {
	names []string
	nodes []*codec.Node
}

// Input returns the type the chain accepts, or "" for an empty chain.
func (c *Chain) Input() codec.Type {
	if len(c.nodes) == 0 {
		return ""
	}

	return c.nodes[0].Input
}

// Output returns the type of the chain's elements, or "" for an empty chain.
func (c *Chain) Output() codec.Type {
	if len(c.nodes) == 0 {
		return ""
	}

	return c.nodes[len(c.nodes)-1].Output
}

// Spread reports whether the chain yields multiple primitives.
func (c *Chain) Spread() bool {
	for _, n := range c.nodes {
		if n.Spread {
			return true
		}
	}

	return false
}

// Apply runs the chain on a value of the chain's input type. Nodes following a spread node
// are applied to each element.
func (c *Chain) Apply(t codec.Type, value interface{}) (*Output, error) {
	if len(c.nodes) == 0 {
		return &Output{Values: []codec.Primitive{{Type: t, Value: value}}}, nil
	}

	if t != c.Input() {
		return nil, fmt.Errorf("%w: value of type %s fed to %s expecting %s",
			ErrBrokenChain, t, c.nodes[0].Name, c.Input())
	}

	current := []interface{}{value}
	spread := false

	for _, node := range c.nodes {
		var next []interface{}

		for _, v := range current {
			if err := codec.Check(node.Input, v); err != nil {
				return nil, fmt.Errorf("%w: codec %s: %s", ErrBrokenChain, node.Name, err.Error())
			}

			out, err := node.Transform(v)
			if err != nil {
				return nil, fmt.Errorf("codec %s: %w", node.Name, err)
			}

			if !node.Spread {
				next = append(next, out)

				continue
			}

			items, ok := out.([]interface{})
			if !ok {
				return nil, fmt.Errorf("%w: spread codec %s returned %T", ErrBrokenChain, node.Name, out)
			}

			next = append(next, items...)
		}

		spread = spread || node.Spread
		current = next
	}

	result := &Output{Spread: spread, Values: make([]codec.Primitive, 0, len(current))}

	outType := c.Output()

	for _, v := range current {
		if err := codec.Check(outType, v); err != nil {
			return nil, fmt.Errorf("%w: chain %s: %s", ErrBrokenChain, strings.Join(c.names, ","), err.Error())
		}

		result.Values = append(result.Values, codec.Primitive{Type: outType, Value: v})
	}

	return result, nil
}

// Graph resolves chains of codec names against a registry.
type Graph struct {
	registry *codec.Registry
	chains   sync.Map
}

// New returns a graph over the given registry.
func New(registry *codec.Registry) *Graph {
	return &Graph{registry: registry}
}

// Registry returns the registry backing the graph.
func (g *Graph) Registry() *codec.Registry {
	return g.registry
}

// Compile resolves and type-checks a chain. Compiled chains are memoized.
func (g *Graph) Compile(names []string) (*Chain, error) {
	key := strings.Join(names, "\x00")

	if c, ok := g.chains.Load(key); ok {
		return c.(*Chain), nil
	}

	chain := &Chain{names: append([]string(nil), names...)}

	for i, name := range names {
		node, err := g.registry.Resolve(name)
		if err != nil {
			return nil, err
		}

		if i > 0 {
			prev := chain.nodes[i-1]
			if prev.Output != node.Input {
				return nil, fmt.Errorf("%w: %s outputs %s but %s expects %s",
					ErrBrokenChain, prev.Name, prev.Output, node.Name, node.Input)
			}
		}

		chain.nodes = append(chain.nodes, node)
	}

	g.chains.Store(key, chain)

	return chain, nil
}

// Transform applies the named chain to a raw attribute value.
func (g *Graph) Transform(value interface{}, names []string) (*Output, error) {
	chain, err := g.Compile(names)
	if err != nil {
		return nil, err
	}

	t, v, err := codec.Infer(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedValue, err.Error())
	}

	return chain.Apply(t, v)
}
