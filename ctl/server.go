// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package ctl

import (
	"github.com/featurebasedb/empstats/server"
	"github.com/spf13/cobra"
)

// BuildServerFlags attaches a set of flags to the command for a server instance.
func BuildServerFlags(cmd *cobra.Command, srv *server.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&srv.Config.Bind, "bind", "b", srv.Config.Bind, "Address on which the HTTP API should listen.")
	flags.StringVarP(&srv.Config.DataPath, "data-path", "d", srv.Config.DataPath, "Employee dataset file (.json, .csv or .parquet).")
	flags.StringVar(&srv.Config.LogPath, "log-path", srv.Config.LogPath, "Log path")
	flags.BoolVar(&srv.Config.Verbose, "verbose", srv.Config.Verbose, "Enable verbose logging")
	flags.StringVar(&srv.Config.LogLevel, "log-level", srv.Config.LogLevel, "Least severe level logged: debug, info, warn or error.")
	flags.Var(&srv.Config.LongQueryTime, "long-query-time", "Duration that will trigger log messages for slow requests. Zero to disable.")
	flags.Var(&srv.Config.CloseTimeout, "close-timeout", "How long to wait for in-flight requests on shutdown.")
	flags.IntVar(&srv.Config.MaxConnections, "max-connections", srv.Config.MaxConnections, "Maximum number of open client connections. Zero for no limit.")

	// TLS
	SetTLSConfig(flags, &srv.Config.TLS, true)

	// Handler
	flags.StringSliceVar(&srv.Config.Handler.AllowedOrigins, "handler.allowed-origins", []string{}, "Comma separated list of allowed origin URIs (for CORS).")

	// Metric
	flags.BoolVar(&srv.Config.Metric.Enabled, "metric.enabled", srv.Config.Metric.Enabled, "Collect request metrics and serve them at /metrics.")

	// Tracing
	flags.StringVar(&srv.Config.Tracing.AgentHostPort, "tracing.agent-host-port", srv.Config.Tracing.AgentHostPort, "Jaeger agent host:port.")
	flags.StringVar(&srv.Config.Tracing.SamplerType, "tracing.sampler-type", srv.Config.Tracing.SamplerType, "Jaeger sampler type (remote, const, probabilistic, ratelimiting) or 'off' to disable tracing completely.")
	flags.Float64Var(&srv.Config.Tracing.SamplerParam, "tracing.sampler-param", srv.Config.Tracing.SamplerParam, "Jaeger sampler parameter.")
}
