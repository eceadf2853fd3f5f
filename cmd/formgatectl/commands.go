package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"formgate.org/internal/auth"
	"formgate.org/internal/config"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "formgatectl",
		Short:        "Operator tooling for formgate-api",
		SilenceUsage: true,
	}
	cmd.AddCommand(
		newHashPasswordCmd(),
		newCheckConfigCmd(),
	)

	return cmd
}

func newHashPasswordCmd() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "hash-password",
		Short: "Print a bcrypt hash for ADMIN_PASSWORD_HASH",
		Long: `Hashes an admin password with bcrypt. The password is taken from --password
or, when the flag is omitted, from the first line of standard input.`,
		Example: `  formgatectl hash-password --password 's3cret-passphrase'
  echo 's3cret-passphrase' | formgatectl hash-password`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				line, err := readLine(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read password: %w", err)
				}
				password = line
			}
			if password == "" {
				return errors.New("password must not be empty")
			}
			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)

			return nil
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "password to hash (read from stdin when empty)")

	return cmd
}

func newCheckConfigCmd() *cobra.Command {
	var (
		envFiles []string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "check-config",
		Short: "Load and validate the service configuration",
		Long: `Loads configuration exactly as formgate-api does (dotenv files, then
environment, then defaults), validates it and prints the effective values
with secrets redacted. Exits non-zero when validation fails.`,
		Example: `  formgatectl check-config
  formgatectl check-config --env-file .env.production --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(envFiles...)
			if err != nil {
				return err
			}
			values := cfg.Redacted()
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(values); err != nil {
					return err
				}
			} else {
				keys := make([]string, 0, len(values))
				for k := range values {
					keys = append(keys, k)
				}
				slices.Sort(keys)
				for _, k := range keys {
					fmt.Fprintf(cmd.OutOrStdout(), "%s=%v\n", k, values[k])
				}
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("configuration invalid:\n%w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "configuration ok")

			return nil
		},
	}
	cmd.Flags().StringSliceVar(&envFiles, "env-file", nil, "dotenv file(s) to load before the environment")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print values as JSON")

	return cmd
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}

	return strings.TrimRight(line, "\r\n"), nil
}
