// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package server

import (
	"strings"
	"time"

	"github.com/featurebasedb/empstats/errors"
	"github.com/featurebasedb/empstats/logger"
	fbopentracing "github.com/featurebasedb/empstats/tracing/opentracing"
	"github.com/featurebasedb/empstats/toml"
)

const (
	// DefaultBind is the default address the server listens on.
	DefaultBind = ":8000"

	// DefaultDataPath is the default dataset source file.
	DefaultDataPath = "data/data.json"
)

// Config represents the configuration for the empstats server command.
type Config struct {
	// Bind is the host:port on which the HTTP API listens.
	Bind string `toml:"bind"`

	// DataPath is the dataset source file. Its extension picks the format.
	DataPath string `toml:"data-path"`

	// LogPath configures where log output will be written. Logs go to
	// stderr when it is empty.
	LogPath string `toml:"log-path"`

	// Verbose toggles verbose logging which can be useful for debugging.
	// It overrides LogLevel.
	Verbose bool `toml:"verbose"`

	// LogLevel is the least severe level logged: debug, info, warn or error.
	LogLevel string `toml:"log-level"`

	// LongQueryTime is the request duration past which a request is logged
	// as slow. Zero disables slow request logging.
	LongQueryTime toml.Duration `toml:"long-query-time"`

	// CloseTimeout is how long to wait for in-flight requests on shutdown.
	CloseTimeout toml.Duration `toml:"close-timeout"`

	// MaxConnections caps the number of open client connections. Zero means
	// no limit.
	MaxConnections int `toml:"max-connections"`

	// TLS
	TLS TLSConfig `toml:"tls"`

	Handler struct {
		AllowedOrigins []string `toml:"allowed-origins"`
	} `toml:"handler"`

	Metric struct {
		// Enabled turns on request metrics and the /metrics endpoint.
		Enabled bool `toml:"enabled"`
	} `toml:"metric"`

	Tracing struct {
		// SamplerType is the type of sampler to use, or "off".
		SamplerType string `toml:"sampler-type"`
		// SamplerParam is the parameter passed to the tracing sampler.
		// Its meaning is dependent on the type of sampler.
		SamplerParam float64 `toml:"sampler-param"`
		// AgentHostPort is the host:port of the local agent.
		AgentHostPort string `toml:"agent-host-port"`
	} `toml:"tracing"`
}

// NewConfig returns an instance of Config with default options.
func NewConfig() *Config {
	c := &Config{
		Bind:          DefaultBind,
		DataPath:      DefaultDataPath,
		LogLevel:      logger.LevelInfo.String(),
		LongQueryTime: toml.Duration(time.Second),
		CloseTimeout:  toml.Duration(30 * time.Second),
	}
	c.Handler.AllowedOrigins = []string{}
	c.Metric.Enabled = true
	c.Tracing.SamplerType = fbopentracing.SamplerOff
	c.Tracing.SamplerParam = 0.001
	return c
}

// validate checks the configuration for values the server can't start with.
func (c *Config) validate() error {
	if strings.TrimSpace(c.Bind) == "" {
		return errors.New(errors.ErrInvalidArgument, "bind must not be empty")
	}
	if strings.TrimSpace(c.DataPath) == "" {
		return errors.New(errors.ErrInvalidArgument, "data-path must not be empty")
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return errors.New(errors.ErrInvalidArgument, err.Error())
	}
	if c.LongQueryTime < 0 {
		return errors.Newf(errors.ErrInvalidArgument, "long-query-time must not be negative, got %v", c.LongQueryTime)
	}
	if c.MaxConnections < 0 {
		return errors.Newf(errors.ErrInvalidArgument, "max-connections must not be negative, got %d", c.MaxConnections)
	}
	if c.CloseTimeout < 0 {
		return errors.Newf(errors.ErrInvalidArgument, "close-timeout must not be negative, got %v", c.CloseTimeout)
	}
	return nil
}
