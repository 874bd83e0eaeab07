// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Moodlog Contributors

package auth

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"

	"github.com/samber/oops"
)

// LoadSigningKey reads a PEM-encoded RSA private key from path.
// Accepts PKCS#1 ("RSA PRIVATE KEY") and PKCS#8 ("PRIVATE KEY") encodings.
func LoadSigningKey(path string) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from operator config
	if err != nil {
		return nil, oops.Code("KEY_READ_FAILED").With("path", path).Wrap(err)
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, oops.Code("KEY_INVALID").With("path", path).Errorf("no PEM block found")
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, oops.Code("KEY_INVALID").With("path", path).Wrap(err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, oops.Code("KEY_INVALID").With("path", path).Errorf("not an RSA private key")
	}
	return key, nil
}

// LoadVerifyKey reads a PEM-encoded RSA public key from path.
// Accepts PKIX ("PUBLIC KEY") and PKCS#1 ("RSA PUBLIC KEY") encodings.
func LoadVerifyKey(path string) (*rsa.PublicKey, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from operator config
	if err != nil {
		return nil, oops.Code("KEY_READ_FAILED").With("path", path).Wrap(err)
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, oops.Code("KEY_INVALID").With("path", path).Errorf("no PEM block found")
	}

	if key, err := x509.ParsePKCS1PublicKey(block.Bytes); err == nil {
		return key, nil
	}

	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, oops.Code("KEY_INVALID").With("path", path).Wrap(err)
	}
	key, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, oops.Code("KEY_INVALID").With("path", path).Errorf("not an RSA public key")
	}
	return key, nil
}
