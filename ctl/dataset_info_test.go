// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package ctl

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/featurebasedb/empstats/dataset"
	"github.com/featurebasedb/empstats/errors"
	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// infoEmployee has no industry column.
type infoEmployee struct {
	FirstName string   `parquet:"first_name"`
	LastName  string   `parquet:"last_name"`
	Salary    *float64 `parquet:"salary,optional"`
}

func TestDatasetInfoCommand_Run(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.parquet")
	salary := 105000.0
	require.NoError(t, parquet.WriteFile(path, []infoEmployee{
		{FirstName: "Mary", LastName: "Jackson", Salary: &salary},
		{FirstName: "Katherine", LastName: "Johnson"},
		{FirstName: "Dorothy", LastName: "Vaughan"},
	}))

	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	cm := NewDatasetInfoCommand(strings.NewReader(""), stdout, stderr)
	cm.Path = path
	cm.Sample = 2
	require.NoError(t, cm.Run(context.Background()))

	out := stdout.String()
	for _, exp := range []string{"Name: " + path, "first_name", "float64", "Number of rows: 3", "Sample:", "Jackson", "105000", nullValue} {
		assert.Contains(t, out, exp)
	}
	// Only Sample rows are printed.
	assert.NotContains(t, out, "Vaughan")
	assert.Contains(t, stderr.String(), "has no "+dataset.FieldIndustry+" column")
}

func TestDatasetInfoCommand_Errors(t *testing.T) {
	cm := NewDatasetInfoCommand(strings.NewReader(""), &bytes.Buffer{}, &bytes.Buffer{})
	assert.Error(t, cm.Run(context.Background()))

	cm.Path = filepath.Join(t.TempDir(), "data.json")
	err := cm.Run(context.Background())
	require.Error(t, err)

	cm.Path = filepath.Join(t.TempDir(), "missing.parquet")
	err = cm.Run(context.Background())
	require.Error(t, err)
	assert.False(t, errors.Is(err, errors.ErrInvalidArgument))

	cm.Path = "data.arrow"
	cm.Sample = -1
	assert.Error(t, cm.Run(context.Background()))
}
