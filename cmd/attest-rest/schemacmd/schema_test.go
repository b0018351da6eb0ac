/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package schemacmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trustbloc/edge-attest/cmd/attest-rest/startcmd"
)

const schemas = `{
	"accountOwnership": {
		"EcdsaSecp256k1Keccak256Signature2023": {
			"ethereum:address": {
				"subject": {"id": {"type": ["utf8-bytes"], "key": ["ethereum-address-bytes"]}},
				"type": ["utf8-bytes"],
				"issuanceDate": ["date-timestamp"]
			}
		}
	}
}`

func writeFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "schemas.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestSchemaCmd(t *testing.T) {
	t.Run("test import - success", func(t *testing.T) {
		cmd := GetSchemaCmd()
		cmd.SetArgs([]string{
			"--" + startcmd.DatasourceNameFlagName, "leveldb://" + t.TempDir(),
			"--" + startcmd.DatasourceTimeoutFlagName, "1",
			"--" + startcmd.SchemaFileFlagName, writeFile(t, schemas),
		})

		require.NoError(t, cmd.Execute())
	})

	t.Run("test import - unknown codec", func(t *testing.T) {
		cmd := GetSchemaCmd()
		cmd.SetArgs([]string{
			"--" + startcmd.DatasourceNameFlagName, "mem://test",
			"--" + startcmd.DatasourceTimeoutFlagName, "1",
			"--" + startcmd.SchemaFileFlagName,
			writeFile(t, `{"a": {"b": {"c": {"name": ["no-such-codec"]}}}}`),
		})

		err := cmd.Execute()
		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to load schemas")
	})

	t.Run("test import - missing file flag", func(t *testing.T) {
		cmd := GetSchemaCmd()
		cmd.SetArgs([]string{"--" + startcmd.DatasourceNameFlagName, "mem://test"})

		err := cmd.Execute()
		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to build configuration")
	})

	t.Run("test import - missing dsn", func(t *testing.T) {
		cmd := GetSchemaCmd()
		cmd.SetArgs([]string{"--" + startcmd.SchemaFileFlagName, "schemas.json"})

		err := cmd.Execute()
		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to configure dsn")
	})
}
