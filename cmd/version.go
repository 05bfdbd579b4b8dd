// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package cmd

import (
	"fmt"
	"io"

	"github.com/featurebasedb/empstats"
	"github.com/spf13/cobra"
)

func newVersionCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version.",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(stdout, empstats.VersionInfo())
			return nil
		},
	}
}
