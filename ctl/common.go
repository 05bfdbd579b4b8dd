// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package ctl

import (
	"github.com/featurebasedb/empstats/server"
	"github.com/spf13/pflag"
)

// SetTLSConfig creates common TLS flags. Server commands pass every flag;
// client commands leave out client verification, which only a server
// enforces.
func SetTLSConfig(flags *pflag.FlagSet, c *server.TLSConfig, serverSide bool) {
	flags.StringVar(&c.CertificatePath, "tls.certificate", c.CertificatePath, "TLS certificate path (usually has the .crt or .pem extension)")
	flags.StringVar(&c.CertificateKeyPath, "tls.key", c.CertificateKeyPath, "TLS certificate key path (usually has the .key extension)")
	flags.StringVar(&c.CACertPath, "tls.ca-certificate", c.CACertPath, "TLS CA certificate path (usually has the .crt or .pem extension)")
	flags.BoolVar(&c.SkipVerify, "tls.skip-verify", c.SkipVerify, "Skip TLS certificate verification (not secure)")
	if serverSide {
		flags.BoolVar(&c.EnableClientVerification, "tls.enable-client-verification", c.EnableClientVerification, "Enable TLS certificate verification for incoming connections")
	}
}
