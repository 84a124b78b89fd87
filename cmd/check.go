// Copyright 2024 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"github.com/spf13/cobra"
	"observability-dashboard/internal/verify"
)

var errUnhealthy = errors.New("end-to-end verification found unhealthy components")

var checkEnvironment string

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Runs a one-shot end-to-end verification and prints the result as JSON",
	RunE:  runCheck,

	SilenceUsage: true,
}

func init() {
	checkCmd.Flags().StringVarP(&checkEnvironment, "env", "e", "", "environment to verify, all environments if empty")
}

func runCheck(cmd *cobra.Command, args []string) error {
	initialize()

	var ctx = context.Background()
	c, err := buildComponents(ctx)
	if err != nil {
		return err
	}
	defer c.close()

	var results map[string]verify.Result
	if checkEnvironment == "" {
		results = c.verifier.EndToEndAll(ctx)
	} else {
		result, err := c.verifier.EndToEnd(ctx, checkEnvironment)
		if err != nil {
			return err
		}
		results = map[string]verify.Result{result.Environment: result}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(results); err != nil {
		return err
	}

	for _, result := range results {
		if !result.Summary.AllHealthy {
			return errUnhealthy
		}
	}
	return nil
}
