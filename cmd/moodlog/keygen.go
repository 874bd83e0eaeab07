// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Moodlog Contributors

package main

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
)

const keygenBits = 2048

// NewKeygenCmd creates the keygen subcommand.
func NewKeygenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate an RSA key pair for session token signing",
		Long: `Generate an RSA key pair and write it as PEM files. The private key
signs session tokens; the public key verifies them and may be distributed
to verify-only deployments.`,
		RunE: runKeygen,
	}

	cmd.Flags().String("private", "moodlog_signing.pem", "private key output path")
	cmd.Flags().String("public", "moodlog_signing.pub.pem", "public key output path")

	return cmd
}

func runKeygen(cmd *cobra.Command, _ []string) error {
	privatePath, err := cmd.Flags().GetString("private")
	if err != nil {
		return oops.Wrap(err)
	}
	publicPath, err := cmd.Flags().GetString("public")
	if err != nil {
		return oops.Wrap(err)
	}

	key, err := rsa.GenerateKey(rand.Reader, keygenBits)
	if err != nil {
		return oops.Code("KEYGEN_FAILED").Wrap(err)
	}

	privateDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return oops.Code("KEYGEN_FAILED").Wrap(err)
	}
	privatePEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privateDER})
	if err := os.WriteFile(privatePath, privatePEM, 0o600); err != nil {
		return oops.Code("KEYGEN_WRITE_FAILED").With("path", privatePath).Wrap(err)
	}

	publicDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return oops.Code("KEYGEN_FAILED").Wrap(err)
	}
	publicPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: publicDER})
	if err := os.WriteFile(publicPath, publicPEM, 0o644); err != nil { //nolint:gosec // public key is public
		return oops.Code("KEYGEN_WRITE_FAILED").With("path", publicPath).Wrap(err)
	}

	cmd.Printf("Wrote %s and %s\n", privatePath, publicPath)
	return nil
}
