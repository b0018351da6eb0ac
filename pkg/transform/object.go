/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package transform

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/trustbloc/edge-attest/pkg/codec"
)

// ErrSchemaPathMissing is returned when an attribute leaf has no chain at the same schema path.
var ErrSchemaPathMissing = errors.New("schema path missing")

// maxArrayIndex bounds keys treated as array indexes, matching 32-bit array index semantics.
const maxArrayIndex = 1<<32 - 2

// Tree is a key-ordered view of an attribute or schema tree.
type Tree struct {
	Key      string
	Leaf     bool
	Value    interface{}
	Children []*Tree
}

// Child returns the child with the given key.
func (t *Tree) Child(key string) (*Tree, bool) {
	i := sort.Search(len(t.Children), func(i int) bool {
		return !lessKey(t.Children[i].Key, key)
	})

	if i < len(t.Children) && t.Children[i].Key == key {
		return t.Children[i], true
	}

	return nil, false
}

// Entry records which slice of the linear sequence a leaf produced.
type Entry struct {
	Path  string
	Index int
	Count int
}

// Linear is the flattened primitive sequence of an object transform.
type Linear struct {
	Primitives []codec.Primitive
	Entries    []Entry
}

// Sort builds a key-ordered tree from nested maps and slices. Slices become index-keyed nodes.
// With chainLeaves set, a slice of strings is kept as a leaf (a codec chain in a schema).
func Sort(v interface{}, chainLeaves bool) (*Tree, error) {
	return sortValue("", v, chainLeaves)
}

func sortValue(key string, v interface{}, chainLeaves bool) (*Tree, error) {
	if chainLeaves {
		if chain, ok := asChain(v); ok {
			return &Tree{Key: key, Leaf: true, Value: chain}, nil
		}
	}

	rv := reflect.ValueOf(v)

	switch {
	case v == nil:
		return nil, fmt.Errorf("%w: null value at %q", ErrUnsupportedValue, key)
	case rv.Kind() == reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("%w: map with %s keys at %q", ErrUnsupportedValue, rv.Type().Key(), key)
		}

		node := &Tree{Key: key}

		iter := rv.MapRange()
		for iter.Next() {
			child, err := sortValue(iter.Key().String(), iter.Value().Interface(), chainLeaves)
			if err != nil {
				return nil, err
			}

			node.Children = append(node.Children, child)
		}

		sort.Slice(node.Children, func(i, j int) bool {
			return lessKey(node.Children[i].Key, node.Children[j].Key)
		})

		return node, nil
	case (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) && rv.Type().Elem().Kind() != reflect.Uint8:
		node := &Tree{Key: key}

		for i := 0; i < rv.Len(); i++ {
			child, err := sortValue(strconv.Itoa(i), rv.Index(i).Interface(), chainLeaves)
			if err != nil {
				return nil, err
			}

			node.Children = append(node.Children, child)
		}

		return node, nil
	default:
		return &Tree{Key: key, Leaf: true, Value: v}, nil
	}
}

func asChain(v interface{}) ([]string, bool) {
	switch chain := v.(type) {
	case []string:
		return chain, true
	case []interface{}:
		names := make([]string, 0, len(chain))

		for _, item := range chain {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}

			names = append(names, s)
		}

		return names, true
	default:
		return nil, false
	}
}

// lessKey orders array-index keys numerically before all other keys, which sort bytewise.
func lessKey(a, b string) bool {
	ai, aIndex := arrayIndex(a)
	bi, bIndex := arrayIndex(b)

	switch {
	case aIndex && bIndex:
		return ai < bi
	case aIndex:
		return true
	case bIndex:
		return false
	default:
		return a < b
	}
}

func arrayIndex(k string) (uint64, bool) {
	if k == "" || (len(k) > 1 && k[0] == '0') {
		return 0, false
	}

	n, err := strconv.ParseUint(k, 10, 64)
	if err != nil || n > maxArrayIndex {
		return 0, false
	}

	return n, true
}

// ObjectTransform walks an attribute tree and a schema tree in lock-step and returns the flat
// primitive sequence. Schema entries without a matching attribute are ignored.
func (g *Graph) ObjectTransform(attributes, schema interface{}) (*Linear, error) {
	attrTree, err := Sort(attributes, false)
	if err != nil {
		return nil, err
	}

	schemaTree, err := Sort(schema, true)
	if err != nil {
		return nil, err
	}

	return g.Walk(attrTree, schemaTree)
}

// Walk flattens already sorted trees.
func (g *Graph) Walk(attributes, schema *Tree) (*Linear, error) {
	out := &Linear{}

	if err := g.walk(attributes, schema, nil, out); err != nil {
		return nil, err
	}

	return out, nil
}

func (g *Graph) walk(attr, schema *Tree, path []string, out *Linear) error {
	if !attr.Leaf {
		if len(attr.Children) == 0 {
			return nil
		}

		if schema.Leaf {
			return fmt.Errorf("%w: %s is an object in the attributes but a chain in the schema",
				ErrSchemaPathMissing, joinPath(path))
		}

		for _, child := range attr.Children {
			if !child.Leaf && len(child.Children) == 0 {
				continue
			}

			childPath := append(append([]string(nil), path...), child.Key)

			childSchema, ok := schema.Child(child.Key)
			if !ok {
				return fmt.Errorf("%w: %s", ErrSchemaPathMissing, joinPath(childPath))
			}

			if err := g.walk(child, childSchema, childPath, out); err != nil {
				return err
			}
		}

		return nil
	}

	if !schema.Leaf {
		return fmt.Errorf("%w: no chain for leaf %s", ErrSchemaPathMissing, joinPath(path))
	}

	chain, _ := schema.Value.([]string) //nolint:errcheck

	result, err := g.Transform(attr.Value, chain)
	if err != nil {
		return fmt.Errorf("transform %s: %w", joinPath(path), err)
	}

	out.Entries = append(out.Entries, Entry{
		Path:  joinPath(path),
		Index: len(out.Primitives),
		Count: len(result.Values),
	})

	out.Primitives = append(out.Primitives, result.Values...)

	return nil
}

func joinPath(path []string) string {
	return strings.Join(path, ".")
}
