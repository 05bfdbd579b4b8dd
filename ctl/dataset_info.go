// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package ctl

import (
	"context"
	"fmt"
	"io"

	"github.com/apache/arrow/go/v10/arrow/array"
	"github.com/apache/arrow/go/v10/arrow/memory"
	"github.com/featurebasedb/empstats"
	"github.com/featurebasedb/empstats/dataset"
	"github.com/jedib0t/go-pretty/table"
	"github.com/jedib0t/go-pretty/text"
	"github.com/pkg/errors"
)

// DatasetInfoCommand displays the schema and a sample of a parquet or arrow
// dataset file.
type DatasetInfoCommand struct {
	// Path to the dataset file.
	Path string

	// Sample is the maximum number of rows printed.
	Sample int

	*empstats.CmdIO
}

// NewDatasetInfoCommand returns a new instance of DatasetInfoCommand.
func NewDatasetInfoCommand(stdin io.Reader, stdout, stderr io.Writer) *DatasetInfoCommand {
	return &DatasetInfoCommand{
		Sample: 10,
		CmdIO:  empstats.NewCmdIO(stdin, stdout, stderr),
	}
}

// Run prints the file's schema, row count and sample rows.
func (cmd *DatasetInfoCommand) Run(ctx context.Context) error {
	if cmd.Path == "" {
		return errors.New("path required")
	}
	if cmd.Sample < 0 {
		return errors.Errorf("sample must not be negative, got %d", cmd.Sample)
	}

	mem := memory.NewGoAllocator()
	tbl, err := dataset.ReadTable(ctx, cmd.Path, mem)
	if err != nil {
		return errors.Wrapf(err, "reading %s", cmd.Path)
	}
	defer tbl.Release()

	fmt.Fprintf(cmd.Stdout, "Name: %s\n\n", cmd.Path)

	schema := tbl.Schema()
	fields := schema.Fields()
	st := cmd.newTable(table.Row{"#", "name", "type", "nullable", "expected"})
	for i, field := range fields {
		st.AppendRow(table.Row{i, field.Name, field.Type, field.Nullable, isSourceField(field.Name)})
	}
	st.Render()
	for _, name := range dataset.SourceFields {
		if len(schema.FieldIndices(name)) == 0 {
			cmd.Logger().Warnf("%s has no %s column", cmd.Path, name)
		}
	}

	fmt.Fprintf(cmd.Stdout, "\nNumber of rows: %d\n", tbl.NumRows())
	if cmd.Sample == 0 || tbl.NumRows() == 0 {
		return nil
	}

	header := make(table.Row, len(fields))
	for i, field := range fields {
		header[i] = field.Name
	}
	sample := cmd.newTable(header)
	tr := array.NewTableReader(tbl, int64(cmd.Sample))
	defer tr.Release()
	if tr.Next() {
		rec := tr.Record()
		for i := 0; i < int(rec.NumRows()); i++ {
			row := make(table.Row, rec.NumCols())
			for j := range row {
				v := dataset.ArrowValue(rec.Column(j), i)
				if b, ok := v.([]byte); ok {
					v = string(b)
				}
				if v == nil {
					v = nullValue
				}
				row[j] = v
			}
			sample.AppendRow(row)
		}
	}
	fmt.Fprintln(cmd.Stdout, "Sample:")
	sample.Render()
	return nil
}

func (cmd *DatasetInfoCommand) newTable(header table.Row) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.Stdout)
	t.Style().Format.Header = text.FormatDefault
	t.AppendHeader(header)
	return t
}

func isSourceField(name string) bool {
	for _, f := range dataset.SourceFields {
		if f == name {
			return true
		}
	}
	return false
}
