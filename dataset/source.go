// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package dataset

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/featurebasedb/empstats/errors"
	"github.com/parquet-go/parquet-go"
)

// Source formats, selected by file extension.
const (
	FormatJSON    = "json"
	FormatCSV     = "csv"
	FormatParquet = "parquet"
	FormatArrow   = "arrow"
)

// FormatOf returns the source format for path. Anything that isn't .csv,
// .parquet or an arrow IPC file is read as JSON.
func FormatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV
	case ".parquet", ".pq":
		return FormatParquet
	case ".arrow", ".feather", ".ipc":
		return FormatArrow
	}
	return FormatJSON
}

// readSource reads every raw record from the file at path.
func readSource(path string) ([]rawRecord, error) {
	switch FormatOf(path) {
	case FormatCSV:
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrap(err, "opening source")
		}
		defer f.Close()
		return decodeCSV(f)
	case FormatParquet:
		return readParquet(path)
	case FormatArrow:
		return readArrow(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading source")
	}
	return decodeJSON(data)
}

// decodeJSON decodes a JSON array of flat objects.
func decodeJSON(data []byte) ([]rawRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var items []json.RawMessage
	if err := dec.Decode(&items); err != nil {
		return nil, errors.New(errors.ErrSourceInvalid, "expected a JSON array of records: "+err.Error())
	}
	if dec.More() {
		return nil, errors.New(errors.ErrSourceInvalid, "unexpected data after the JSON array of records")
	}
	if items == nil {
		return nil, errors.New(errors.ErrSourceInvalid, "expected a JSON array of records, got null")
	}

	out := make([]rawRecord, 0, len(items))
	for i, item := range items {
		d := json.NewDecoder(bytes.NewReader(item))
		d.UseNumber()
		var raw rawRecord
		if err := d.Decode(&raw); err != nil || raw == nil {
			return nil, errors.Newf(errors.ErrSourceInvalid, "record %d is not a JSON object", i)
		}
		out = append(out, raw)
	}
	return out, nil
}

// decodeCSV decodes a header row followed by records. Empty cells are
// missing values.
func decodeCSV(r io.Reader) ([]rawRecord, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New(errors.ErrSourceInvalid, "CSV source has no header row")
	} else if err != nil {
		return nil, errors.New(errors.ErrSourceInvalid, "reading CSV header: "+err.Error())
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var out []rawRecord
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, errors.Newf(errors.ErrSourceInvalid, "reading CSV line %d: %v", line, err)
		}
		raw := make(rawRecord, len(header))
		for i, name := range header {
			if row[i] == "" {
				raw[name] = nil
				continue
			}
			raw[name] = row[i]
		}
		out = append(out, raw)
	}
	return out, nil
}

// readParquet reads every row of a parquet file as a column-name keyed map.
func readParquet(path string) ([]rawRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening source")
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, errors.Wrap(err, "stat source")
	}
	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		return nil, errors.New(errors.ErrSourceInvalid, "opening parquet file: "+err.Error())
	}

	reader := parquet.NewReader(pf)
	defer reader.Close()

	out := make([]rawRecord, 0, pf.NumRows())
	for {
		row := make(map[string]interface{})
		if err := reader.Read(&row); err == io.EOF {
			break
		} else if err != nil {
			return nil, errors.New(errors.ErrSourceInvalid, "reading parquet row: "+err.Error())
		}
		out = append(out, rawRecord(row))
	}
	return out, nil
}
