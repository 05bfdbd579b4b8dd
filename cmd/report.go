// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package cmd

import (
	"context"
	"io"

	"github.com/featurebasedb/empstats/ctl"
	"github.com/spf13/cobra"
)

func newReportCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	report := ctl.NewReportCommand(stdin, stdout, stderr)
	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Print statistics from a running server.",
		Long: `report queries a running empstats server and prints its
summary, descriptive statistics, distributions, top earners and
correlations as tables.
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return report.Run(context.Background())
		},
	}

	flags := reportCmd.Flags()
	flags.StringVar(&report.Host, "host", report.Host, "Address of the empstats server.")
	flags.StringVar(&report.Industry, "industry", report.Industry, "Restrict salary and experience statistics to one industry.")
	flags.IntVar(&report.TopN, "top-n", report.TopN, "Number of industries and top earners to show.")
	flags.DurationVar(&report.Timeout, "timeout", report.Timeout, "Timeout of each request.")
	flags.IntVar(&report.Retries, "retries", report.Retries, "Number of times a failed request is retried.")
	ctl.SetTLSConfig(flags, &report.TLS, false)
	return reportCmd
}
