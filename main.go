// Copyright 2024 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"observability-dashboard/cmd"
	"observability-dashboard/internal/config"
	"observability-dashboard/internal/log"
)

func init() {
	log.SetLogLevel(config.Current.LogLevel)
}

func main() {
	cmd.Execute()
}
