package main

import (
	"os"
	"path/filepath"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/iliyamo/account-service/internal/utils"
)

const minKeyBits = 2048

// NewKeygenCmd creates the keygen subcommand.
func NewKeygenCmd() *cobra.Command {
	var (
		privatePath string
		publicPath  string
		bits        int
	)
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Write an RSA key pair for signing access tokens",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runKeygen(cmd, privatePath, publicPath, bits)
		},
	}
	cmd.Flags().StringVar(&privatePath, "private", "private.pem", "private key output path")
	cmd.Flags().StringVar(&publicPath, "public", "public.pem", "public key output path")
	cmd.Flags().IntVar(&bits, "bits", minKeyBits, "RSA modulus size")
	return cmd
}

func runKeygen(cmd *cobra.Command, privatePath, publicPath string, bits int) error {
	if bits < minKeyBits {
		return oops.Code("INVALID_KEY_SIZE").With("bits", bits).Errorf("key size must be at least %d bits", minKeyBits)
	}
	priv, pub, err := utils.GenerateRSAKeyPair(bits)
	if err != nil {
		return oops.Code("KEYGEN_FAILED").Wrap(err)
	}
	if err := writeKey(privatePath, priv, 0o600); err != nil {
		return err
	}
	if err := writeKey(publicPath, pub, 0o644); err != nil {
		return err
	}
	cmd.Printf("Wrote %s and %s\n", privatePath, publicPath)
	return nil
}

func writeKey(path string, pem []byte, perm os.FileMode) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return oops.Code("KEY_WRITE_FAILED").With("path", path).Wrap(err)
		}
	}
	if err := os.WriteFile(path, pem, perm); err != nil {
		return oops.Code("KEY_WRITE_FAILED").With("path", path).Wrap(err)
	}
	return nil
}
