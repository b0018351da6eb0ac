/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package preparator

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	attributesDoc = `{
		"subject": {"id": {"type": "ethereum:address", "key": "0x5b38da6a701c568545dcfcb03fcb875f56beddc4"}},
		"issuanceDate": "2023-05-01T10:00:00Z",
		"name": "Alice",
		"scores": [10, 20, 30]
	}`

	reorderedDoc = `{
		"scores": [10, 20, 30],
		"name": "Alice",
		"issuanceDate": "2023-05-01T10:00:00Z",
		"subject": {"id": {"key": "0x5b38da6a701c568545dcfcb03fcb875f56beddc4", "type": "ethereum:address"}}
	}`

	schemaDoc = `{
		"subject": {"id": {"type": ["utf8-bytes"], "key": ["ethereum-address-bytes"]}},
		"issuanceDate": ["date-timestamp"],
		"expirationDate": ["date-timestamp"],
		"name": ["utf8-bytes", "keccak256"],
		"scores": [["number-bigint"], ["number-bigint"], ["number-bigint"]]
	}`
)

func decode(t *testing.T, doc string) map[string]interface{} {
	t.Helper()

	var m map[string]interface{}

	require.NoError(t, json.Unmarshal([]byte(doc), &m))

	return m
}

func TestPrepare(t *testing.T) {
	t.Parallel()

	p, err := NewDefault()
	require.NoError(t, err)

	t.Run("independent of key order", func(t *testing.T) {
		t.Parallel()

		first, err := p.PrepareBytes(decode(t, attributesDoc), decode(t, schemaDoc))
		require.NoError(t, err)

		second, err := p.PrepareBytes(decode(t, reorderedDoc), decode(t, schemaDoc))
		require.NoError(t, err)

		require.Equal(t, first, second)
		require.Len(t, first, 7)
	})

	t.Run("entries follow canonical order", func(t *testing.T) {
		t.Parallel()

		linear, err := p.PrepareEntries(decode(t, attributesDoc), decode(t, schemaDoc))
		require.NoError(t, err)

		var paths []string
		for _, e := range linear.Entries {
			paths = append(paths, e.Path)
		}

		require.Equal(t, []string{
			"issuanceDate", "name", "scores.0", "scores.1", "scores.2", "subject.id.key", "subject.id.type",
		}, paths)
	})

	t.Run("go values and json values agree", func(t *testing.T) {
		t.Parallel()

		native := map[string]interface{}{
			"subject": map[string]interface{}{
				"id": map[string]interface{}{"type": "ethereum:address", "key": "0x5b38da6a701c568545dcfcb03fcb875f56beddc4"},
			},
			"issuanceDate": "2023-05-01T10:00:00Z",
			"name":         "Alice",
			"scores":       []int{10, 20, 30},
		}

		first, err := p.PrepareBytes(native, decode(t, schemaDoc))
		require.NoError(t, err)

		second, err := p.PrepareBytes(decode(t, attributesDoc), decode(t, schemaDoc))
		require.NoError(t, err)

		require.Equal(t, first, second)
	})

	t.Run("changed leaf changes the sequence", func(t *testing.T) {
		t.Parallel()

		attrs := decode(t, attributesDoc)

		first, err := p.PrepareBytes(attrs, decode(t, schemaDoc))
		require.NoError(t, err)

		attrs["name"] = "Bob"

		second, err := p.PrepareBytes(attrs, decode(t, schemaDoc))
		require.NoError(t, err)
		require.NotEqual(t, first, second)
	})

	t.Run("missing schema path", func(t *testing.T) {
		t.Parallel()

		attrs := decode(t, attributesDoc)
		attrs["email"] = "alice@example.com"

		_, err := p.Prepare(attrs, decode(t, schemaDoc))
		require.ErrorIs(t, err, ErrSchemaPathMissing)
	})

	t.Run("mandatory inputs", func(t *testing.T) {
		t.Parallel()

		_, err := p.Prepare(nil, decode(t, schemaDoc))
		require.Error(t, err)

		_, err = p.Prepare(decode(t, attributesDoc), nil)
		require.ErrorIs(t, err, ErrSchemaPathMissing)
	})

	t.Run("number without codec has no byte form", func(t *testing.T) {
		t.Parallel()

		_, err := p.PrepareBytes(map[string]interface{}{"n": 1.0}, map[string]interface{}{"n": []interface{}{}})
		require.Error(t, err)
	})
}
