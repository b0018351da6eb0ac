/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package adapterutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStringsContains(t *testing.T) {
	words := []string{"Hello", "World"}

	require.True(t, StringsContains("World", words))
	require.False(t, StringsContains("Hi", words))
}

func TestValidHTTPURL(t *testing.T) {
	require.True(t, ValidHTTPURL("https://wallet.example.com/done"))
	require.True(t, ValidHTTPURL("http://localhost:8080"))
	require.False(t, ValidHTTPURL("ftp://wallet.example.com"))
	require.False(t, ValidHTTPURL("https://"))
	require.False(t, ValidHTTPURL("::"))
}

func TestSplitKeyValue(t *testing.T) {
	t.Run("test split - success", func(t *testing.T) {
		kv, ok := SplitKeyValue([]string{"Ed25519Sha256Signature2023=abc", "empty="})
		require.True(t, ok)
		require.Equal(t, map[string]string{"Ed25519Sha256Signature2023": "abc", "empty": ""}, kv)
	})

	t.Run("test split - failure", func(t *testing.T) {
		_, ok := SplitKeyValue([]string{"novalue"})
		require.False(t, ok)

		_, ok = SplitKeyValue([]string{"=value"})
		require.False(t, ok)
	})
}
