package main

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"runtime"

	"github.com/alexedwards/argon2id"
	"github.com/jamesread/loginmanager/sessions"
	"github.com/spf13/cobra"
)

func generateSecret(n int) (string, error) {
	if n < sessions.MinSecretLength {
		return "", fmt.Errorf("%w: requested %d bytes", sessions.ErrSecretTooShort, n)
	}

	// base64 output is longer than n, so the configured string is always >= n bytes
	buf := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func keygenCmd() *cobra.Command {
	var length int

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a random secretKey",
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := generateSecret(length)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), secret)
			return nil
		},
	}

	cmd.Flags().IntVarP(&length, "bytes", "b", 48, "number of random bytes")

	return cmd
}

func hashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Hash a password with argon2id for an application's user store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := argon2id.CreateHash(args[0], &argon2id.Params{
				Memory:      64 * 1024,
				Iterations:  4,
				Parallelism: uint8(runtime.NumCPU()),
				SaltLength:  16,
				KeyLength:   32,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
