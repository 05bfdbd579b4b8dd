// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package cmd

import (
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/featurebasedb/empstats/ctl"
	"github.com/featurebasedb/empstats/server"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// Server is global so that tests can control and verify it.
var Server *server.Command

// newServeCmd creates a command which runs the empstats server.
func newServeCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	Server = server.NewCommand(stdin, stdout, stderr)
	serveCmd := &cobra.Command{
		Use:   "server",
		Short: "Run empstats.",
		Long: `empstats server runs the empstats HTTP API.

It loads the configured dataset, failing if it can't be read,
and starts listening for client connections on the configured port.
SIGHUP reopens the log file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Execute the program.
			if err := Server.Run(); err != nil {
				return errors.Wrap(err, "running server")
			}

			// First SIGINT or SIGTERM causes server to shut down gracefully.
			c := make(chan os.Signal, 2)
			signal.Notify(c, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(c)

			errc := make(chan error, 1)
			go func() { errc <- Server.Wait() }()

			select {
			case sig := <-c:
				Server.Logger().Infof("Received %s; gracefully shutting down...", sig.String())

				// Second signal causes a hard shutdown.
				go func() { <-c; os.Exit(1) }()

				if err := Server.Close(); err != nil {
					return err
				}
			case err := <-errc:
				if cerr := Server.Close(); err == nil {
					err = cerr
				}
				if err != nil {
					return errors.Wrap(err, "serving")
				}
				Server.Logger().Infof("Server closed externally")
			}
			return nil
		},
	}

	// Attach flags to the command.
	ctl.BuildServerFlags(serveCmd, Server)
	return serveCmd
}
