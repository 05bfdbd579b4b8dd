// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package server contains the `empstats server` subcommand which runs the
// HTTP service. The purpose of this package is to define an easily tested
// Command object which handles interpreting configuration and setting up all
// the objects the service needs.
package server

import (
	"context"
	"crypto/tls"
	"io"
	"net"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/featurebasedb/empstats"
	"github.com/featurebasedb/empstats/dataset"
	"github.com/featurebasedb/empstats/logger"
	"github.com/featurebasedb/empstats/tracing"
	fbopentracing "github.com/featurebasedb/empstats/tracing/opentracing"
	"github.com/pkg/errors"
)

// Command represents the state of the empstats server command.
type Command struct {
	API     *empstats.API
	Handler *empstats.Handler

	// Configuration.
	Config *Config

	// Standard input/output
	*empstats.CmdIO

	loader    *dataset.Loader
	ln        net.Listener
	logOutput io.Writer
	logFile   *logger.FileWriter
	keypair   *keypairReloader
	tracer    io.Closer
	hup       chan os.Signal

	serveErr chan error

	// Started will be closed once Command.Run is finished.
	Started chan struct{}
	// Done will be closed when Command.Close() is called
	Done chan struct{}

	closeOnce sync.Once
}

// NewCommand returns a new instance of Command.
func NewCommand(stdin io.Reader, stdout, stderr io.Writer) *Command {
	return &Command{
		Config: NewConfig(),

		CmdIO: empstats.NewCmdIO(stdin, stdout, stderr),

		serveErr: make(chan error, 1),
		Started:  make(chan struct{}),
		Done:     make(chan struct{}),
	}
}

// Run loads the dataset and starts serving. It returns once the listener is
// open; the dataset is loaded before that, so a bad source file stops the
// server from starting.
func (m *Command) Run(args ...string) (err error) {
	defer close(m.Started)

	if err := m.Config.validate(); err != nil {
		return errors.Wrap(err, "validating config")
	}
	if err := m.setupLogger(); err != nil {
		return errors.Wrap(err, "setting up logger")
	}
	if err := m.setupTracing(); err != nil {
		return errors.Wrap(err, "setting up tracing")
	}
	if err := m.SetupServer(); err != nil {
		return err
	}
	m.handleSignals()

	go func() {
		m.serveErr <- m.Handler.Serve()
	}()

	m.Logger().Infof("%s listening as %s", empstats.VersionInfo(), m.URL())
	return nil
}

// SetupServer loads the dataset and builds the API, listener and handler.
func (m *Command) SetupServer() error {
	m.loader = dataset.NewLoader(m.Config.DataPath,
		dataset.OptLoaderLogger(m.Logger().WithPrefix("dataset: ")),
		dataset.OptLoaderObserver(empstats.ObserveDatasetLoad),
	)
	if _, err := m.loader.Load(context.Background()); err != nil {
		return errors.Wrap(err, "loading dataset")
	}

	api, err := empstats.NewAPI(
		empstats.OptAPILoader(m.loader),
		empstats.OptAPILogger(m.Logger()),
	)
	if err != nil {
		return errors.Wrap(err, "new api")
	}
	m.API = api

	var tlsConf *tls.Config
	tlsConf, m.keypair, err = GetTLSConfig(m.Config.TLS)
	if err != nil {
		return errors.Wrap(err, "getting TLS config")
	}

	m.ln, err = net.Listen("tcp", m.Config.Bind)
	if err != nil {
		return errors.Wrapf(err, "listening on %s", m.Config.Bind)
	}
	scheme := "http"
	if tlsConf != nil {
		m.ln = tls.NewListener(m.ln, tlsConf)
		scheme = "https"
	}
	if m.Config.MaxConnections > 0 {
		m.ln = empstats.NewBoundListener(m.ln, m.Config.MaxConnections)
	}

	m.Handler, err = empstats.NewHandler(
		empstats.OptHandlerAPI(m.API),
		empstats.OptHandlerLogger(m.Logger()),
		empstats.OptHandlerListener(m.ln, scheme+"://"+m.ln.Addr().String()),
		empstats.OptHandlerAllowedOrigins(m.Config.Handler.AllowedOrigins),
		empstats.OptHandlerCloseTimeout(m.Config.CloseTimeout.Std()),
		empstats.OptHandlerLongQueryTime(m.Config.LongQueryTime.Std()),
		empstats.OptHandlerMetrics(m.Config.Metric.Enabled),
	)
	if err != nil {
		m.ln.Close()
		return errors.Wrap(err, "new handler")
	}
	return nil
}

// setupLogger sets up the logger based on the configuration.
func (m *Command) setupLogger() error {
	if m.Config.LogPath == "" {
		m.logOutput = m.Stderr
	} else {
		fw, err := logger.NewFileWriter(m.Config.LogPath)
		if err != nil {
			return errors.Wrap(err, "opening log file")
		}
		m.logFile = fw
		m.logOutput = fw
	}

	level, err := logger.ParseLevel(m.Config.LogLevel)
	if err != nil {
		return errors.Wrap(err, "parsing log level")
	}
	if m.Config.Verbose {
		level = logger.LevelDebug
	}
	m.CmdIO.SetLogger(logger.NewLevelLogger(m.logOutput, level))
	return nil
}

// handleSignals reloads the log file and TLS certificate on SIGHUP so both
// can be rotated externally.
func (m *Command) handleSignals() {
	if m.logFile == nil && m.keypair == nil {
		return
	}
	m.hup = make(chan os.Signal, 1)
	signal.Notify(m.hup, syscall.SIGHUP)
	go func(c chan os.Signal) {
		for range c {
			m.Logger().Infof("Received SIGHUP, reloading")
			if err := m.Reload(); err != nil {
				m.Logger().Errorf("reloading: %v", err)
			}
		}
	}(m.hup)
}

// Reload reopens the log file and reloads the TLS certificate and key. A
// certificate which fails to load leaves the old one in use.
func (m *Command) Reload() error {
	if err := m.ReopenLog(); err != nil {
		return errors.Wrap(err, "reopening log file")
	}
	if m.keypair != nil {
		if err := m.keypair.reload(); err != nil {
			return errors.Wrapf(err, "keeping old TLS certificate, reloading %q and %q", m.keypair.certPath, m.keypair.keyPath)
		}
	}
	return nil
}

// ReopenLog reopens the log file, if logging to one.
func (m *Command) ReopenLog() error {
	if m.logFile == nil {
		return nil
	}
	return m.logFile.Reopen()
}

// setupTracing installs a Jaeger tracer as the global tracer unless tracing
// is off.
func (m *Command) setupTracing() error {
	if strings.EqualFold(m.Config.Tracing.SamplerType, fbopentracing.SamplerOff) || m.Config.Tracing.SamplerType == "" {
		return nil
	}
	tracer, closer, err := fbopentracing.NewJaegerTracer(
		"empstats",
		m.Config.Tracing.SamplerType,
		m.Config.Tracing.SamplerParam,
		m.Config.Tracing.AgentHostPort,
		m.Logger(),
	)
	if err != nil {
		return err
	}
	tracing.GlobalTracer = tracer
	m.tracer = closer
	return nil
}

// URL returns the base URL of the server, or an empty string before Run.
func (m *Command) URL() string {
	if m.ln == nil {
		return ""
	}
	if m.keypair != nil {
		return "https://" + m.ln.Addr().String()
	}
	return "http://" + m.ln.Addr().String()
}

// Addr returns the address the server is listening on.
func (m *Command) Addr() net.Addr {
	if m.ln == nil {
		return nil
	}
	return m.ln.Addr()
}

// Wait blocks until the server stops serving or Close is called, and returns
// the serve error, if any.
func (m *Command) Wait() error {
	select {
	case err := <-m.serveErr:
		return err
	case <-m.Done:
		return nil
	}
}

// Close shuts down the server.
func (m *Command) Close() error {
	var err error
	m.closeOnce.Do(func() {
		defer close(m.Done)

		var errs []string
		if m.Handler != nil {
			if e := m.Handler.Close(); e != nil {
				errs = append(errs, e.Error())
			}
		}
		if m.tracer != nil {
			if e := m.tracer.Close(); e != nil {
				errs = append(errs, e.Error())
			}
			tracing.GlobalTracer = tracing.NopTracer()
		}
		if m.hup != nil {
			signal.Stop(m.hup)
			close(m.hup)
		}
		if m.logFile != nil {
			if e := m.logFile.Close(); e != nil {
				errs = append(errs, e.Error())
			}
		}
		if len(errs) > 0 {
			err = errors.Errorf("closing server: %s", strings.Join(errs, "; "))
		}
	})
	return err
}
