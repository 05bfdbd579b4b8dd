// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package ctl

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/featurebasedb/empstats/server"
	"github.com/spf13/cobra"
)

func TestBuildServerFlags(t *testing.T) {
	cm := &cobra.Command{}
	srv := server.NewCommand(strings.NewReader(""), os.Stdout, os.Stderr)
	BuildServerFlags(cm, srv)
	for _, name := range []string{
		"bind", "data-path", "log-path", "verbose", "log-level", "long-query-time", "close-timeout", "max-connections",
		"tls.certificate", "tls.key", "tls.ca-certificate", "tls.skip-verify", "tls.enable-client-verification",
		"handler.allowed-origins", "metric.enabled",
		"tracing.agent-host-port", "tracing.sampler-type", "tracing.sampler-param",
	} {
		if cm.Flags().Lookup(name) == nil {
			t.Fatalf("%s flag is required", name)
		}
	}

	if err := cm.Flags().Parse([]string{"-b", ":9999", "--long-query-time", "250ms", "--metric.enabled=false"}); err != nil {
		t.Fatalf("parsing flags: %v", err)
	}
	if srv.Config.Bind != ":9999" {
		t.Fatalf("unexpected bind: %s", srv.Config.Bind)
	}
	if srv.Config.LongQueryTime.Std() != 250*time.Millisecond {
		t.Fatalf("unexpected long-query-time: %v", srv.Config.LongQueryTime)
	}
	if srv.Config.Metric.Enabled {
		t.Fatal("expected metrics to be disabled")
	}
}
