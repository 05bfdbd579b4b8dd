// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package cmd_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/featurebasedb/empstats/cmd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execRootCommand executes the root command with args and returns its
// combined output.
func execRootCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	rc := cmd.NewRootCommand(strings.NewReader(""), buf, buf)
	rc.SetArgs(args)
	err := rc.Execute()
	return buf.String(), err
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "empstats.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestRootCommand(t *testing.T) {
	out, err := execRootCommand(t, "--help")
	require.NoError(t, err)
	for _, exp := range []string{"Usage:", "Available Commands:", "--help", "server", "report", "dataset-info"} {
		assert.Contains(t, out, exp)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execRootCommand(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "v0.0.0-dev")
}

func TestGenerateConfigCommand(t *testing.T) {
	out, err := execRootCommand(t, "generate-config")
	require.NoError(t, err)
	assert.Contains(t, out, `bind = ":8000"`)
}

func TestConfigCommand(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		out, err := execRootCommand(t, "config")
		require.NoError(t, err)
		assert.Contains(t, out, `bind = ":8000"`)
		assert.Contains(t, out, `data-path = "data/data.json"`)
	})

	t.Run("File", func(t *testing.T) {
		path := writeConfig(t, `
bind = "localhost:7777"
long-query-time = "2s"

[handler]
allowed-origins = ["http://a.example.com", "http://b.example.com"]

[tracing]
sampler-type = "const"
sampler-param = 1.0
`)
		out, err := execRootCommand(t, "config", "--config", path)
		require.NoError(t, err)
		assert.Contains(t, out, `bind = "localhost:7777"`)
		assert.Contains(t, out, `long-query-time = "2s"`)
		assert.Contains(t, out, "http://b.example.com")
		assert.Contains(t, out, `sampler-type = "const"`)
	})

	t.Run("Priority", func(t *testing.T) {
		path := writeConfig(t, `
bind = "localhost:7777"
data-path = "from-file.json"
verbose = true
`)
		t.Setenv("EMPSTATS_DATA_PATH", "from-env.csv")
		t.Setenv("EMPSTATS_METRIC_ENABLED", "false")
		out, err := execRootCommand(t, "config", "--config", path, "--bind", "localhost:8888")
		require.NoError(t, err)
		// flag > env > file
		assert.Contains(t, out, `bind = "localhost:8888"`)
		assert.Contains(t, out, `data-path = "from-env.csv"`)
		assert.Contains(t, out, "verbose = true")
		assert.Contains(t, out, "enabled = false")
	})

	t.Run("InvalidOption", func(t *testing.T) {
		path := writeConfig(t, "bogus = 1\n")
		_, err := execRootCommand(t, "config", "--config", path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid option in configuration file: bogus")
	})

	t.Run("InvalidValue", func(t *testing.T) {
		path := writeConfig(t, "long-query-time = \"soon\"\n")
		_, err := execRootCommand(t, "config", "--config", path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "long-query-time")
	})

	t.Run("MissingFile", func(t *testing.T) {
		_, err := execRootCommand(t, "config", "--config", filepath.Join(t.TempDir(), "nope.toml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "error reading configuration file")
	})

	t.Run("DryRun", func(t *testing.T) {
		_, err := execRootCommand(t, "config", "--dry-run")
		require.Error(t, err)
		assert.Equal(t, "dry run", err.Error())
	})
}
