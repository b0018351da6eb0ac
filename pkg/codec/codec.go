/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package codec holds the registry of named, typed unary transforms used to reduce credential
// attribute values to cryptographic primitives.
package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// Type names the kind of value flowing between codec nodes.
type Type string

const (
	// TypeText is a UTF-8 string.
	TypeText Type = "text"
	// TypeBytes is a raw byte slice.
	TypeBytes Type = "bytes"
	// TypeBigInt is a non-negative arbitrary precision integer (*big.Int).
	TypeBigInt Type = "bigint"
	// TypeNumber is a JSON number (float64, json.Number or a Go integer).
	TypeNumber Type = "number"
	// TypeBoolean is a bool.
	TypeBoolean Type = "boolean"
	// TypeField is an element of the BN254 scalar field (fr.Element).
	TypeField Type = "bn254.field"
)

const wordSize = 32

// ErrUnknownCodec is returned when a codec name is not registered.
var ErrUnknownCodec = errors.New("unknown codec")

// Transform converts a value of the node's input type into its output type.
// Spread nodes return a []interface{} whose elements are of the output type.
type Transform func(in interface{}) (interface{}, error)

// Node is a named pure conversion between two typed values.
type Node struct {
	Name      string
	Input     Type
	Output    Type
	Spread    bool
	Transform Transform
}

// Primitive is a single typed element of a prepared attribute sequence.
type Primitive struct {
	Type  Type
	Value interface{}
}

// Bytes returns the canonical byte form of the primitive. Integers and field elements are
// encoded as 32-byte big-endian words.
func (p Primitive) Bytes() ([]byte, error) {
	switch p.Type {
	case TypeText:
		s, ok := p.Value.(string)
		if !ok {
			return nil, fmt.Errorf("text primitive holds %T", p.Value)
		}

		return []byte(s), nil
	case TypeBytes:
		b, ok := p.Value.([]byte)
		if !ok {
			return nil, fmt.Errorf("bytes primitive holds %T", p.Value)
		}

		return b, nil
	case TypeBigInt:
		n, ok := p.Value.(*big.Int)
		if !ok {
			return nil, fmt.Errorf("bigint primitive holds %T", p.Value)
		}

		return Word(n)
	case TypeField:
		e, ok := p.Value.(fr.Element)
		if !ok {
			return nil, fmt.Errorf("field primitive holds %T", p.Value)
		}

		b := e.Bytes()

		return b[:], nil
	case TypeBoolean:
		v, ok := p.Value.(bool)
		if !ok {
			return nil, fmt.Errorf("boolean primitive holds %T", p.Value)
		}

		if v {
			return []byte{1}, nil
		}

		return []byte{0}, nil
	default:
		return nil, fmt.Errorf("primitive of type %s has no canonical byte form", p.Type)
	}
}

// Word encodes n as a 32-byte big-endian word.
func Word(n *big.Int) ([]byte, error) {
	if n.Sign() < 0 {
		return nil, fmt.Errorf("negative integer %s cannot be encoded", n)
	}

	if n.BitLen() > wordSize*8 {
		return nil, fmt.Errorf("integer exceeds %d bits", wordSize*8)
	}

	out := make([]byte, wordSize)

	return n.FillBytes(out), nil
}

// Registry holds codec nodes by name. It is built once at startup and shared read-only.
type Registry struct {
	mu    sync.RWMutex
	nodes map[string]*Node
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{nodes: map[string]*Node{}}
}

// Register adds a node. Names are unique.
func (r *Registry) Register(node *Node) error {
	if node == nil || node.Name == "" {
		return errors.New("codec node name is mandatory")
	}

	if node.Input == "" || node.Output == "" {
		return fmt.Errorf("codec %s must declare input and output types", node.Name)
	}

	if node.Transform == nil {
		return fmt.Errorf("codec %s has no transform", node.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.nodes[node.Name]; exists {
		return fmt.Errorf("codec %s already registered", node.Name)
	}

	r.nodes[node.Name] = node

	return nil
}

// Resolve returns the node registered under name.
func (r *Registry) Resolve(name string) (*Node, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	node, ok := r.nodes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCodec, name)
	}

	return node, nil
}

// Names returns the registered codec names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.nodes))
	for name := range r.nodes {
		names = append(names, name)
	}

	return names
}

// NewDefaultRegistry returns a registry holding the built-in codecs.
func NewDefaultRegistry() (*Registry, error) {
	r := NewRegistry()

	if err := RegisterBuiltins(r); err != nil {
		return nil, err
	}

	return r, nil
}

// Infer returns the codec type of a raw attribute value. Go integers are numbers so that a tree
// and its JSON round trip infer identically.
func Infer(v interface{}) (Type, interface{}, error) {
	switch val := v.(type) {
	case string:
		return TypeText, val, nil
	case []byte:
		return TypeBytes, val, nil
	case bool:
		return TypeBoolean, val, nil
	case float64, float32, json.Number, int, int64, uint64:
		return TypeNumber, val, nil
	case *big.Int:
		return TypeBigInt, val, nil
	case fr.Element:
		return TypeField, val, nil
	default:
		return "", nil, fmt.Errorf("unsupported attribute value of type %T", v)
	}
}

// Check reports whether v holds the Go representation of t.
func Check(t Type, v interface{}) error {
	ok := false

	switch t {
	case TypeText:
		_, ok = v.(string)
	case TypeBytes:
		_, ok = v.([]byte)
	case TypeBigInt:
		n, isInt := v.(*big.Int)
		ok = isInt && n != nil
	case TypeNumber:
		switch v.(type) {
		case float64, float32, json.Number, int, int64, uint64:
			ok = true
		}
	case TypeBoolean:
		_, ok = v.(bool)
	case TypeField:
		_, ok = v.(fr.Element)
	default:
		// custom types registered by extensions carry any representation.
		ok = v != nil
	}

	if !ok {
		return fmt.Errorf("value of type %T is not a valid %s", v, t)
	}

	return nil
}
