// Copyright 2024 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(initCmd, serveCmd, checkCmd)
}

var rootCmd = &cobra.Command{
	Use:   "observability-dashboard",
	Short: "Monitors the health of the Bulwark services across environments",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("Command failed")
	}
}
