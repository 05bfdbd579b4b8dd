// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package ctl

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/featurebasedb/empstats"
	"github.com/featurebasedb/empstats/client"
	"github.com/featurebasedb/empstats/server"
	"github.com/jedib0t/go-pretty/table"
	"github.com/jedib0t/go-pretty/text"
	"github.com/pkg/errors"
)

// nullValue is printed in place of missing values.
const nullValue = "NULL"

// ReportCommand queries a running server and prints its statistics as
// tables.
type ReportCommand struct {
	// Host is the server address.
	Host string

	// Industry restricts the salary and experience statistics.
	Industry string

	// TopN is the number of industries and top earners shown.
	TopN int

	// Timeout bounds each request to the server.
	Timeout time.Duration

	// Retries is how many times a failed request is retried.
	Retries int

	// TLS configures connections to an https server.
	TLS server.TLSConfig

	*empstats.CmdIO
}

// NewReportCommand returns a new instance of ReportCommand.
func NewReportCommand(stdin io.Reader, stdout, stderr io.Writer) *ReportCommand {
	return &ReportCommand{
		Host:    client.DefaultHost,
		TopN:    5,
		Timeout: 30 * time.Second,
		Retries: 3,
		CmdIO:   empstats.NewCmdIO(stdin, stdout, stderr),
	}
}

// Run fetches each statistic and writes the tables to stdout.
func (cmd *ReportCommand) Run(ctx context.Context) error {
	if cmd.TopN < 1 {
		return errors.Errorf("top-n must be at least 1, got %d", cmd.TopN)
	}
	tlsConf, err := server.GetClientTLSConfig(cmd.TLS)
	if err != nil {
		return errors.Wrap(err, "getting TLS config")
	}
	host := cmd.Host
	if tlsConf != nil && !strings.Contains(host, "://") {
		host = "https://" + host
	}
	c, err := client.NewClient(host,
		client.OptClientTimeout(cmd.Timeout),
		client.OptClientRetries(cmd.Retries),
		client.OptClientLogger(cmd.Logger()),
		client.OptClientTLS(tlsConf),
	)
	if err != nil {
		return errors.Wrap(err, "creating client")
	}

	summary, err := c.Summary(ctx)
	if err != nil {
		return errors.Wrap(err, "getting summary")
	}
	cmd.section(fmt.Sprintf("Summary (%d records)", summary.RecordCount), table.Row{"field", "missing"}, countRows(summary.MissingValues))

	salary, err := c.SalaryStats(ctx, cmd.Industry)
	if err != nil {
		return errors.Wrap(err, "getting salary stats")
	}
	experience, err := c.ExperienceStats(ctx, cmd.Industry)
	if err != nil {
		return errors.Wrap(err, "getting experience stats")
	}
	age, err := c.AgeDistribution(ctx)
	if err != nil {
		return errors.Wrap(err, "getting age distribution")
	}
	title := "Statistics"
	if cmd.Industry != "" {
		title += " (" + cmd.Industry + ")"
	}
	cmd.section(title,
		table.Row{"", "count", "mean", "std", "min", "25%", "50%", "75%", "max"},
		[]table.Row{
			statsRow("salary", salary),
			statsRow("years_of_experience", experience),
			statsRow("age", age),
		})

	industries, err := c.IndustryDistribution(ctx, cmd.TopN)
	if err != nil {
		return errors.Wrap(err, "getting industry distribution")
	}
	cmd.section("Industries", table.Row{"industry", "employees"}, countRows(industries))

	genders, err := c.GenderDistribution(ctx)
	if err != nil {
		return errors.Wrap(err, "getting gender distribution")
	}
	cmd.section("Genders", table.Row{"gender", "employees"}, countRows(genders))

	earners, err := c.TopEarners(ctx, cmd.TopN)
	if err != nil {
		return errors.Wrap(err, "getting top earners")
	}
	rows := make([]table.Row, 0, len(earners))
	for _, p := range earners {
		rows = append(rows, table.Row{str(p.FirstName), str(p.LastName), num(p.Salary), str(p.Industry)})
	}
	cmd.section("Top earners", table.Row{"first_name", "last_name", "salary", "industry"}, rows)

	corr, err := c.Correlations(ctx)
	if err != nil {
		return errors.Wrap(err, "getting correlations")
	}
	cmd.section("Correlations", table.Row{"pair", "pearson"}, []table.Row{
		{"salary_vs_experience", num(corr.SalaryVsExperience)},
		{"experience_vs_age", num(corr.ExperienceVsAge)},
	})
	return nil
}

// section writes a titled table followed by a blank line.
func (cmd *ReportCommand) section(title string, header table.Row, rows []table.Row) {
	fmt.Fprintln(cmd.Stdout, title)

	t := table.NewWriter()
	t.SetOutputMirror(cmd.Stdout)

	// Don't uppercase the header values.
	t.Style().Format.Header = text.FormatDefault

	t.AppendHeader(header)
	for _, row := range rows {
		t.AppendRow(row)
	}
	t.Render()
	fmt.Fprintln(cmd.Stdout)
}

func countRows(counts empstats.Counts) []table.Row {
	rows := make([]table.Row, 0, len(counts))
	for _, c := range counts {
		rows = append(rows, table.Row{c.Key, c.Count})
	}
	return rows
}

func statsRow(name string, s *empstats.StatsResponse) table.Row {
	return table.Row{name, s.Count, num(s.Mean), num(s.Std), num(s.Min), num(s.P25), num(s.P50), num(s.P75), num(s.Max)}
}

// go-pretty doesn't expect nil pointers in the data values.
func str(s *string) interface{} {
	if s == nil {
		return nullValue
	}
	return *s
}

func num(f *float64) interface{} {
	if f == nil {
		return nullValue
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}
