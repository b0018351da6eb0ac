/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/trustbloc/edge-attest/cmd/attest-rest/schemacmd"
	"github.com/trustbloc/edge-attest/cmd/attest-rest/startcmd"
)

func main() {
	rootCmd := &cobra.Command{
		Use: "attest-rest",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.HelpFunc()(cmd, args)
		},
	}

	rootCmd.AddCommand(startcmd.GetStartCmd(&startcmd.HTTPServer{}))
	rootCmd.AddCommand(schemacmd.GetSchemaCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("failed to run attest-rest: %s", err.Error())
	}
}
