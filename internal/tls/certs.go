// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

// Package tls loads the HTTP API's server certificate and, for local
// development, generates a self-signed one.
package tls

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	cryptotls "crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"io/fs"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/samber/oops"

	"github.com/inkwell/inkwell/internal/xdg"
)

// File names used inside a dev certificate directory.
const (
	CAFile   = "dev-ca.crt"
	CertFile = "server.crt"
	KeyFile  = "server.key"
)

// CA holds a certificate authority certificate and private key.
type CA struct {
	Certificate *x509.Certificate
	PrivateKey  *ecdsa.PrivateKey
}

// ServerCert holds a server certificate and private key.
type ServerCert struct {
	Certificate *x509.Certificate
	PrivateKey  *ecdsa.PrivateKey
}

// LoadServerConfig returns a TLS 1.2+ server config for the PEM pair.
func LoadServerConfig(certFile, keyFile string) (*cryptotls.Config, error) {
	pair, err := cryptotls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, oops.Code("TLS_LOAD_FAILED").
			With("cert_file", certFile).
			With("key_file", keyFile).
			Wrap(err)
	}
	return &cryptotls.Config{
		Certificates: []cryptotls.Certificate{pair},
		MinVersion:   cryptotls.VersionTLS12,
	}, nil
}

// EnsureDevCertificate returns the server pair in dir, generating a dev CA
// and a server certificate for hosts when none exists yet. Browsers must be
// told to trust dir/CAFile.
func EnsureDevCertificate(dir string, hosts []string) (certFile, keyFile string, err error) {
	certFile = filepath.Join(dir, CertFile)
	keyFile = filepath.Join(dir, KeyFile)

	certExists, err := exists(certFile)
	if err != nil {
		return "", "", err
	}
	keyExists, err := exists(keyFile)
	if err != nil {
		return "", "", err
	}
	if certExists && keyExists {
		return certFile, keyFile, nil
	}
	if certExists != keyExists {
		return "", "", oops.Code("TLS_PAIR_INCOMPLETE").
			With("dir", dir).
			Errorf("found only one of %s and %s", CertFile, KeyFile)
	}

	ca, err := GenerateCA()
	if err != nil {
		return "", "", err
	}
	server, err := GenerateServerCert(ca, hosts)
	if err != nil {
		return "", "", err
	}
	if err := SaveCertificates(dir, ca, server); err != nil {
		return "", "", err
	}
	return certFile, keyFile, nil
}

// GenerateCA creates a short-lived development root CA.
func GenerateCA() (*CA, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, oops.Code("TLS_GENERATE_FAILED").With("operation", "generate CA key").Wrap(err)
	}
	serial, err := serialNumber()
	if err != nil {
		return nil, err
	}

	template := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			Organization: []string{"Inkwell"},
			CommonName:   "Inkwell Development CA",
		},
		NotBefore:             time.Now().Add(-time.Minute),
		NotAfter:              time.Now().AddDate(1, 0, 0),
		IsCA:                  true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		MaxPathLenZero:        true,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return nil, oops.Code("TLS_GENERATE_FAILED").With("operation", "create CA certificate").Wrap(err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, oops.Code("TLS_GENERATE_FAILED").With("operation", "parse CA certificate").Wrap(err)
	}
	return &CA{Certificate: cert, PrivateKey: key}, nil
}

// GenerateServerCert creates a server certificate signed by ca. hosts may
// mix DNS names and IP addresses; localhost and 127.0.0.1 are always
// included.
func GenerateServerCert(ca *CA, hosts []string) (*ServerCert, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, oops.Code("TLS_GENERATE_FAILED").With("operation", "generate server key").Wrap(err)
	}
	serial, err := serialNumber()
	if err != nil {
		return nil, err
	}

	dnsNames := []string{"localhost"}
	ips := []net.IP{net.ParseIP("127.0.0.1")}
	for _, h := range hosts {
		if ip := net.ParseIP(h); ip != nil {
			ips = append(ips, ip)
		} else if h != "" && h != "localhost" {
			dnsNames = append(dnsNames, h)
		}
	}

	template := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			Organization: []string{"Inkwell"},
			CommonName:   dnsNames[len(dnsNames)-1],
		},
		NotBefore:   time.Now().Add(-time.Minute),
		NotAfter:    time.Now().AddDate(0, 3, 0),
		KeyUsage:    x509.KeyUsageDigitalSignature,
		ExtKeyUsage: []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		DNSNames:    dnsNames,
		IPAddresses: ips,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, ca.Certificate, &key.PublicKey, ca.PrivateKey)
	if err != nil {
		return nil, oops.Code("TLS_GENERATE_FAILED").With("operation", "create server certificate").Wrap(err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, oops.Code("TLS_GENERATE_FAILED").With("operation", "parse server certificate").Wrap(err)
	}
	return &ServerCert{Certificate: cert, PrivateKey: key}, nil
}

// SaveCertificates writes the CA certificate and the server pair to dir.
// The CA key is not persisted; a new pair needs a new CA.
func SaveCertificates(dir string, ca *CA, server *ServerCert) error {
	if err := xdg.EnsureDir(dir); err != nil {
		return oops.Code("TLS_SAVE_FAILED").With("dir", dir).Wrap(err)
	}
	if err := saveCert(filepath.Join(dir, CAFile), ca.Certificate); err != nil {
		return err
	}
	if err := saveCert(filepath.Join(dir, CertFile), server.Certificate); err != nil {
		return err
	}
	return saveKey(filepath.Join(dir, KeyFile), server.PrivateKey)
}

func serialNumber() (*big.Int, error) {
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, oops.Code("TLS_GENERATE_FAILED").With("operation", "generate serial").Wrap(err)
	}
	return serial, nil
}

func exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, oops.Code("TLS_LOAD_FAILED").With("path", path).Wrap(err)
}

func saveCert(path string, cert *x509.Certificate) error {
	data := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw})
	if err := os.WriteFile(filepath.Clean(path), data, 0o600); err != nil {
		return oops.Code("TLS_SAVE_FAILED").With("path", path).Wrap(err)
	}
	return nil
}

func saveKey(path string, key *ecdsa.PrivateKey) error {
	der, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return oops.Code("TLS_SAVE_FAILED").With("operation", "marshal key").Wrap(err)
	}
	data := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der})
	if err := os.WriteFile(filepath.Clean(path), data, 0o600); err != nil {
		return oops.Code("TLS_SAVE_FAILED").With("path", path).Wrap(err)
	}
	return nil
}
