// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package cmd

import (
	"context"
	"io"

	"github.com/featurebasedb/empstats/ctl"
	"github.com/featurebasedb/empstats/server"
	"github.com/spf13/cobra"
)

func newConfigCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	conf := ctl.NewConfigCommand(stdin, stdout, stderr)
	srv := server.NewCommand(stdin, stdout, stderr)
	conf.Config = srv.Config
	confCmd := &cobra.Command{
		Use:   "config",
		Short: "Print the current configuration.",
		Long: `config prints the current configuration to stdout.

It takes the same flags, environment variables and configuration
file as the server command.
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return conf.Run(context.Background())
		},
	}

	// Attach flags to the command.
	ctl.BuildServerFlags(confCmd, srv)
	return confCmd
}
