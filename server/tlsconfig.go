// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package server

import (
	"crypto/tls"
	"crypto/x509"
	"os"
	"sync"

	"github.com/pkg/errors"
)

// TLSConfig contains TLS configuration.
type TLSConfig struct {
	// CertificatePath contains the path to the certificate (.crt or .pem file)
	CertificatePath string `toml:"certificate"`
	// CertificateKeyPath contains the path to the certificate key (.key file)
	CertificateKeyPath string `toml:"key"`
	// CACertPath is the path to a CA certificate (.crt or .pem file)
	CACertPath string `toml:"ca-certificate"`
	// SkipVerify disables verification for self-signed certificates
	SkipVerify bool `toml:"skip-verify"`
	// EnableClientVerification requires clients to present a certificate
	// signed by the CA.
	EnableClientVerification bool `toml:"enable-client-verification"`
}

// Enabled reports whether a certificate and key are configured.
func (c TLSConfig) Enabled() bool {
	return c.CertificatePath != "" && c.CertificateKeyPath != ""
}

// keypairReloader serves a certificate that can be swapped while the server
// runs.
type keypairReloader struct {
	certMu   sync.RWMutex
	cert     *tls.Certificate
	certPath string
	keyPath  string
}

func newKeypairReloader(certPath, keyPath string) (*keypairReloader, error) {
	kpr := &keypairReloader{
		certPath: certPath,
		keyPath:  keyPath,
	}
	if err := kpr.reload(); err != nil {
		return nil, err
	}
	return kpr, nil
}

// reload replaces the certificate. The old one is kept on error.
func (kpr *keypairReloader) reload() error {
	newCert, err := tls.LoadX509KeyPair(kpr.certPath, kpr.keyPath)
	if err != nil {
		return err
	}
	kpr.certMu.Lock()
	defer kpr.certMu.Unlock()
	kpr.cert = &newCert
	return nil
}

func (kpr *keypairReloader) getCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	kpr.certMu.RLock()
	defer kpr.certMu.RUnlock()
	return kpr.cert, nil
}

// GetTLSConfig returns the server side tls.Config for c, along with the
// reloader backing its certificate. Both are nil when TLS isn't enabled.
func GetTLSConfig(c TLSConfig) (*tls.Config, *keypairReloader, error) {
	if !c.Enabled() {
		if c.CertificatePath != "" || c.CertificateKeyPath != "" {
			return nil, nil, errors.New("TLS requires both a certificate and a key")
		}
		return nil, nil, nil
	}
	if c.SkipVerify {
		return nil, nil, errors.New("cannot specify TLS certificate and disable server certificate verification")
	}

	kpr, err := newKeypairReloader(c.CertificatePath, c.CertificateKeyPath)
	if err != nil {
		return nil, nil, errors.Wrap(err, "loading keypair")
	}
	conf := &tls.Config{
		MinVersion:     tls.VersionTLS12,
		GetCertificate: kpr.getCertificate,
	}

	if c.CACertPath != "" {
		pool, err := loadCertPool(c.CACertPath)
		if err != nil {
			return nil, nil, err
		}
		conf.ClientCAs = pool
	}
	if c.EnableClientVerification {
		if conf.ClientCAs == nil {
			return nil, nil, errors.New("client verification requires a CA certificate")
		}
		conf.ClientAuth = tls.RequireAndVerifyClientCert
	}
	return conf, kpr, nil
}

// GetClientTLSConfig returns the tls.Config a client uses to reach a server
// configured with c. It is nil when c sets nothing.
func GetClientTLSConfig(c TLSConfig) (*tls.Config, error) {
	if c == (TLSConfig{}) {
		return nil, nil
	}
	if c.CACertPath != "" && c.SkipVerify {
		return nil, errors.New("cannot specify root certificate and disable server certificate verification")
	}
	conf := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: c.SkipVerify, // nolint: gosec
	}
	if c.Enabled() {
		cert, err := tls.LoadX509KeyPair(c.CertificatePath, c.CertificateKeyPath)
		if err != nil {
			return nil, errors.Wrap(err, "loading keypair")
		}
		conf.Certificates = []tls.Certificate{cert}
	}
	if c.CACertPath != "" {
		pool, err := loadCertPool(c.CACertPath)
		if err != nil {
			return nil, err
		}
		conf.RootCAs = pool
	}
	return conf, nil
}

func loadCertPool(path string) (*x509.CertPool, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "loading tls ca key")
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(b) {
		return nil, errors.New("error parsing CA certificate")
	}
	return pool, nil
}
