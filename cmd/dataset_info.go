// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package cmd

import (
	"context"
	"io"

	"github.com/featurebasedb/empstats/ctl"
	"github.com/spf13/cobra"
)

func newDatasetInfoCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	info := ctl.NewDatasetInfoCommand(stdin, stdout, stderr)
	infoCmd := &cobra.Command{
		Use:   "dataset-info <path>",
		Short: "Display the schema and a sample of a parquet or arrow dataset.",
		Long: `dataset-info reads a parquet or arrow IPC dataset file and prints
its schema, number of rows and a sample of rows.
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info.Path = args[0]
			return info.Run(context.Background())
		},
	}

	infoCmd.Flags().IntVar(&info.Sample, "sample", info.Sample, "Maximum number of sample rows to print.")
	return infoCmd
}
