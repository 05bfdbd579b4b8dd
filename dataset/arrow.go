// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package dataset

import (
	"context"
	"os"

	"github.com/apache/arrow/go/v10/arrow"
	"github.com/apache/arrow/go/v10/arrow/array"
	"github.com/apache/arrow/go/v10/arrow/ipc"
	"github.com/apache/arrow/go/v10/arrow/memory"
	"github.com/apache/arrow/go/v10/parquet/file"
	"github.com/apache/arrow/go/v10/parquet/pqarrow"
	"github.com/featurebasedb/empstats/errors"
)

// ReadTable reads a parquet or arrow IPC source into an arrow table. The
// caller must Release the table.
func ReadTable(ctx context.Context, path string, mem memory.Allocator) (arrow.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening source")
	}
	defer f.Close()

	switch format := FormatOf(path); format {
	case FormatParquet:
		pf, err := file.NewParquetReader(f)
		if err != nil {
			return nil, errors.New(errors.ErrSourceInvalid, "opening parquet file: "+err.Error())
		}
		reader, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{}, mem)
		if err != nil {
			return nil, errors.New(errors.ErrSourceInvalid, "reading parquet schema: "+err.Error())
		}
		table, err := reader.ReadTable(ctx)
		if err != nil {
			return nil, errors.New(errors.ErrSourceInvalid, "reading parquet file: "+err.Error())
		}
		return table, nil
	case FormatArrow:
		reader, err := ipc.NewFileReader(f, ipc.WithAllocator(mem))
		if err != nil {
			return nil, errors.New(errors.ErrSourceInvalid, "opening arrow file: "+err.Error())
		}
		defer reader.Close()

		recs := make([]arrow.Record, 0, reader.NumRecords())
		defer func() {
			for _, rec := range recs {
				rec.Release()
			}
		}()
		for i := 0; i < reader.NumRecords(); i++ {
			rec, err := reader.Record(i)
			if err != nil {
				return nil, errors.Newf(errors.ErrSourceInvalid, "reading arrow record batch %d: %v", i, err)
			}
			// The reader reuses rec on the next call.
			rec.Retain()
			recs = append(recs, rec)
		}
		return array.NewTableFromRecords(reader.Schema(), recs), nil
	default:
		return nil, errors.Newf(errors.ErrInvalidArgument, "%s sources can't be read as a table", format)
	}
}

// readArrow reads every row of an arrow IPC file as a column-name keyed map.
func readArrow(path string) ([]rawRecord, error) {
	mem := memory.NewGoAllocator()
	table, err := ReadTable(context.Background(), path, mem)
	if err != nil {
		return nil, err
	}
	defer table.Release()

	out := make([]rawRecord, 0, table.NumRows())
	tr := array.NewTableReader(table, 1024)
	defer tr.Release()
	for tr.Next() {
		rec := tr.Record()
		for i := 0; i < int(rec.NumRows()); i++ {
			raw := make(rawRecord, rec.NumCols())
			for j := 0; j < int(rec.NumCols()); j++ {
				raw[rec.ColumnName(j)] = ArrowValue(rec.Column(j), i)
			}
			out = append(out, raw)
		}
	}
	return out, nil
}

// ArrowValue returns the i-th value of arr as a Go value, or nil when it is
// null or of a type records can't hold.
func ArrowValue(arr arrow.Array, i int) interface{} {
	if arr.IsNull(i) {
		return nil
	}
	switch a := arr.(type) {
	case *array.String:
		return a.Value(i)
	case *array.Binary:
		return a.Value(i)
	case *array.Boolean:
		return a.Value(i)
	case *array.Float64:
		return a.Value(i)
	case *array.Float32:
		return a.Value(i)
	case *array.Int64:
		return a.Value(i)
	case *array.Int32:
		return a.Value(i)
	case *array.Int16:
		return int32(a.Value(i))
	case *array.Int8:
		return int32(a.Value(i))
	case *array.Uint64:
		return a.Value(i)
	case *array.Uint32:
		return a.Value(i)
	}
	return nil
}
