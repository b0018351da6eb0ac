/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package transform

import (
	"math/big"
	"sync"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/stretchr/testify/require"

	"github.com/trustbloc/edge-attest/pkg/codec"
)

func newGraph(t *testing.T) *Graph {
	t.Helper()

	reg, err := codec.NewDefaultRegistry()
	require.NoError(t, err)

	return New(reg)
}

func TestCompile(t *testing.T) {
	t.Parallel()

	t.Run("memoized", func(t *testing.T) {
		t.Parallel()

		g := newGraph(t)

		first, err := g.Compile([]string{codec.UTF8ToBytes, codec.SHA256})
		require.NoError(t, err)

		second, err := g.Compile([]string{codec.UTF8ToBytes, codec.SHA256})
		require.NoError(t, err)
		require.Same(t, first, second)
		require.Equal(t, codec.TypeText, first.Input())
		require.Equal(t, codec.TypeBytes, first.Output())
		require.False(t, first.Spread())
	})

	t.Run("concurrent compiles agree", func(t *testing.T) {
		t.Parallel()

		g := newGraph(t)

		var wg sync.WaitGroup

		for i := 0; i < 10; i++ {
			wg.Add(1)

			go func() {
				defer wg.Done()

				c, err := g.Compile([]string{codec.DecimalToBigInt, codec.BigIntToField})
				require.NoError(t, err)
				require.Equal(t, codec.TypeField, c.Output())
			}()
		}

		wg.Wait()
	})

	t.Run("broken chain", func(t *testing.T) {
		t.Parallel()

		_, err := newGraph(t).Compile([]string{codec.UTF8ToBytes, codec.DecimalToBigInt})
		require.ErrorIs(t, err, ErrBrokenChain)
	})

	t.Run("unknown codec", func(t *testing.T) {
		t.Parallel()

		_, err := newGraph(t).Compile([]string{"rot13"})
		require.ErrorIs(t, err, codec.ErrUnknownCodec)
	})

	t.Run("empty chain is identity", func(t *testing.T) {
		t.Parallel()

		c, err := newGraph(t).Compile(nil)
		require.NoError(t, err)
		require.Equal(t, codec.Type(""), c.Input())
	})
}

func TestTransform(t *testing.T) {
	t.Parallel()

	g := newGraph(t)

	t.Run("single value", func(t *testing.T) {
		t.Parallel()

		out, err := g.Transform("42", []string{codec.DecimalToBigInt})
		require.NoError(t, err)
		require.False(t, out.Spread)
		require.Equal(t, []codec.Primitive{{Type: codec.TypeBigInt, Value: big.NewInt(42)}}, out.Values)
	})

	t.Run("identity keeps inferred type", func(t *testing.T) {
		t.Parallel()

		out, err := g.Transform(true, nil)
		require.NoError(t, err)
		require.Equal(t, []codec.Primitive{{Type: codec.TypeBoolean, Value: true}}, out.Values)
	})

	t.Run("nodes after a spread apply element-wise", func(t *testing.T) {
		t.Parallel()

		out, err := g.Transform("hello", []string{codec.UTF8ToBytes, codec.BytesToFields, codec.FieldToBigInt})
		require.NoError(t, err)
		require.True(t, out.Spread)
		require.Len(t, out.Values, 2)
		require.Equal(t, codec.TypeBigInt, out.Values[0].Type)
		require.Equal(t, big.NewInt(5), out.Values[0].Value)
	})

	t.Run("spread arity follows input length", func(t *testing.T) {
		t.Parallel()

		long := make([]byte, 63)

		out, err := g.Transform(long, []string{codec.BytesToFields})
		require.NoError(t, err)
		require.Len(t, out.Values, 4)

		for _, v := range out.Values {
			_, ok := v.Value.(fr.Element)
			require.True(t, ok)
		}
	})

	t.Run("input type mismatch", func(t *testing.T) {
		t.Parallel()

		_, err := g.Transform(12, []string{codec.UTF8ToBytes})
		require.ErrorIs(t, err, ErrBrokenChain)
	})

	t.Run("unsupported value", func(t *testing.T) {
		t.Parallel()

		_, err := g.Transform(struct{}{}, []string{codec.UTF8ToBytes})
		require.ErrorIs(t, err, ErrUnsupportedValue)
	})

	t.Run("codec failure", func(t *testing.T) {
		t.Parallel()

		_, err := g.Transform("not-a-number", []string{codec.DecimalToBigInt})
		require.Error(t, err)
		require.Contains(t, err.Error(), codec.DecimalToBigInt)
	})

	t.Run("codec returning the wrong type", func(t *testing.T) {
		t.Parallel()

		reg := codec.NewRegistry()
		require.NoError(t, reg.Register(&codec.Node{
			Name: "liar", Input: codec.TypeText, Output: codec.TypeBytes,
			Transform: func(in interface{}) (interface{}, error) { return in, nil },
		}))

		_, err := New(reg).Transform("x", []string{"liar"})
		require.ErrorIs(t, err, ErrBrokenChain)
	})
}
