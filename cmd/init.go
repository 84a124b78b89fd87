// Copyright 2024 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"observability-dashboard/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Writes the default configuration to config.yml",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Initialize(); err != nil {
			return err
		}
		log.Info().Msg("Default configuration written to config.yml")
		return nil
	},
}
