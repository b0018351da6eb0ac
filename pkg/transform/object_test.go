/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package transform

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trustbloc/edge-attest/pkg/codec"
)

func TestSort(t *testing.T) {
	t.Parallel()

	t.Run("index keys first in numeric order", func(t *testing.T) {
		t.Parallel()

		tree, err := Sort(map[string]interface{}{
			"b": 1, "10": 1, "a": 1, "2": 1, "01": 1, "4294967295": 1, "B": 1,
		}, false)
		require.NoError(t, err)

		var keys []string
		for _, c := range tree.Children {
			keys = append(keys, c.Key)
		}

		require.Equal(t, []string{"2", "10", "01", "4294967295", "B", "a", "b"}, keys)
	})

	t.Run("arrays become index keyed", func(t *testing.T) {
		t.Parallel()

		tree, err := Sort([]interface{}{"x", map[string]interface{}{"k": "v"}}, false)
		require.NoError(t, err)
		require.Len(t, tree.Children, 2)
		require.Equal(t, "1", tree.Children[1].Key)

		child, ok := tree.Children[1].Child("k")
		require.True(t, ok)
		require.True(t, child.Leaf)
	})

	t.Run("bytes stay leaves", func(t *testing.T) {
		t.Parallel()

		tree, err := Sort(map[string]interface{}{"raw": []byte{1, 2}}, false)
		require.NoError(t, err)
		require.True(t, tree.Children[0].Leaf)
	})

	t.Run("chains stay leaves in schemas", func(t *testing.T) {
		t.Parallel()

		tree, err := Sort(map[string]interface{}{"a": []interface{}{"utf8-bytes"}, "b": []interface{}{}}, true)
		require.NoError(t, err)
		require.Equal(t, []string{"utf8-bytes"}, tree.Children[0].Value)
		require.True(t, tree.Children[1].Leaf)
	})

	t.Run("null rejected", func(t *testing.T) {
		t.Parallel()

		_, err := Sort(map[string]interface{}{"a": nil}, false)
		require.ErrorIs(t, err, ErrUnsupportedValue)
	})
}

func TestObjectTransform(t *testing.T) {
	t.Parallel()

	g := newGraph(t)

	schema := map[string]interface{}{
		"name":   []string{codec.UTF8ToBytes},
		"age":    []string{codec.NumberToBigInt},
		"unused": []string{codec.UTF8ToBytes},
		"nested": map[string]interface{}{
			"list": []interface{}{[]string{codec.DecimalToBigInt}, []string{codec.DecimalToBigInt}},
		},
	}

	t.Run("flattens in canonical order", func(t *testing.T) {
		t.Parallel()

		out, err := g.ObjectTransform(map[string]interface{}{
			"name":   "alice",
			"nested": map[string]interface{}{"list": []interface{}{"1", "2"}},
			"age":    30,
		}, schema)
		require.NoError(t, err)
		require.Len(t, out.Primitives, 4)

		var paths []string
		for _, e := range out.Entries {
			paths = append(paths, e.Path)
		}

		require.Equal(t, []string{"age", "name", "nested.list.0", "nested.list.1"}, paths)
		require.Equal(t, codec.TypeBytes, out.Primitives[1].Type)
	})

	t.Run("missing schema path", func(t *testing.T) {
		t.Parallel()

		_, err := g.ObjectTransform(map[string]interface{}{"email": "a@b.c"}, schema)
		require.ErrorIs(t, err, ErrSchemaPathMissing)
	})

	t.Run("object where schema has a chain", func(t *testing.T) {
		t.Parallel()

		_, err := g.ObjectTransform(map[string]interface{}{"name": map[string]interface{}{"first": "a"}}, schema)
		require.ErrorIs(t, err, ErrSchemaPathMissing)
	})

	t.Run("leaf where schema has an object", func(t *testing.T) {
		t.Parallel()

		_, err := g.ObjectTransform(map[string]interface{}{"nested": "flat"}, schema)
		require.ErrorIs(t, err, ErrSchemaPathMissing)
	})

	t.Run("spread entries record their width", func(t *testing.T) {
		t.Parallel()

		out, err := g.ObjectTransform(
			map[string]interface{}{"a": "x", "b": "y"},
			map[string]interface{}{
				"a": []string{codec.UTF8ToBytes, codec.BytesToFields},
				"b": []string{codec.UTF8ToBytes},
			})
		require.NoError(t, err)
		require.Equal(t, []Entry{{Path: "a", Index: 0, Count: 2}, {Path: "b", Index: 2, Count: 1}}, out.Entries)
	})

	t.Run("empty containers contribute nothing", func(t *testing.T) {
		t.Parallel()

		out, err := g.ObjectTransform(map[string]interface{}{"tags": []interface{}{}}, map[string]interface{}{})
		require.NoError(t, err)
		require.Empty(t, out.Primitives)
	})
}
