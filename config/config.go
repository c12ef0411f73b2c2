/*
Package config loads the per-directory connection profile, a small TOML
document naming the LDAP URI and optional TLS material, the way an
operator would hand a sync tool one file per side (source and
destination) rather than repeat a long flag list twice.

There is no teacher precedent for config files in go-dirsyn, so this
follows the format the rest of the example pack reaches for,
github.com/BurntSushi/toml, rather than inventing a hand-rolled parser.
*/
package config

import (
	"crypto/tls"
	"crypto/x509"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// ConnectParams describes how to reach one LDAP server.
type ConnectParams struct {
	URI                   string `toml:"uri"`
	BindDN                string `toml:"bind_dn"`
	BindPassword          string `toml:"bind_password"`
	TLSCACertFile         string `toml:"tls_ca_cert_file"`
	TLSClientCertFile     string `toml:"tls_client_cert_file"`
	TLSClientKeyFile      string `toml:"tls_client_key_file"`
	TLSInsecureSkipVerify bool   `toml:"tls_insecure_skip_verify"`
}

// Load reads and parses a connection profile from path.
func Load(path string) (ConnectParams, error) {
	var params ConnectParams
	if _, err := toml.DecodeFile(path, &params); err != nil {
		return ConnectParams{}, errors.Wrapf(err, "decode connection profile %s", path)
	}
	if params.URI == "" {
		return ConnectParams{}, errors.Errorf("connection profile %s is missing uri", path)
	}
	return params, nil
}

// TLSConfig builds a *tls.Config from the profile's CA/client cert
// settings. It returns nil if nothing in the profile requests TLS
// material, which is the signal to the caller to use ldap.DialURL without
// a DialWithTLSConfig option (an ldaps:// URI still dials over TLS).
func (p ConnectParams) TLSConfig() (*tls.Config, error) {
	if p.TLSCACertFile == "" && p.TLSClientCertFile == "" && !p.TLSInsecureSkipVerify {
		return nil, nil
	}

	cfg := &tls.Config{InsecureSkipVerify: p.TLSInsecureSkipVerify}

	if p.TLSCACertFile != "" {
		pem, err := os.ReadFile(p.TLSCACertFile)
		if err != nil {
			return nil, errors.Wrapf(err, "read CA cert %s", p.TLSCACertFile)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, errors.Errorf("no certificates parsed from %s", p.TLSCACertFile)
		}
		cfg.RootCAs = pool
	}

	if p.TLSClientCertFile != "" {
		cert, err := tls.LoadX509KeyPair(p.TLSClientCertFile, p.TLSClientKeyFile)
		if err != nil {
			return nil, errors.Wrapf(err, "load client keypair %s/%s", p.TLSClientCertFile, p.TLSClientKeyFile)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}

	return cfg, nil
}
