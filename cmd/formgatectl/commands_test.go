package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"formgate.org/internal/auth"
)

func findCmd(cmd *cobra.Command, name string) *cobra.Command {
	for _, c := range cmd.Commands() {
		if c.Name() == name {
			return c
		}
	}

	return nil
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()

	return out.String(), err
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"hash-password", "check-config"} {
		if findCmd(root, name) == nil {
			t.Errorf("subcommand %q not present", name)
		}
	}
	if f := findCmd(root, "check-config").Flags().Lookup("env-file"); f == nil {
		t.Fatal("flag \"env-file\" not found")
	}
}

func TestHashPassword_FromFlag(t *testing.T) {
	out, err := run(t, "", "hash-password", "--password", "correct horse")
	if err != nil {
		t.Fatalf("hash-password: %v", err)
	}
	hash := strings.TrimSpace(out)
	if !auth.IsBcryptHash(hash) {
		t.Fatalf("expected bcrypt hash, got %q", hash)
	}
	if err := auth.VerifyPassword(hash, "correct horse"); err != nil {
		t.Fatalf("hash does not verify: %v", err)
	}
}

func TestHashPassword_FromStdin(t *testing.T) {
	out, err := run(t, "battery staple\n", "hash-password")
	if err != nil {
		t.Fatalf("hash-password: %v", err)
	}
	if err := auth.VerifyPassword(strings.TrimSpace(out), "battery staple"); err != nil {
		t.Fatalf("hash does not verify: %v", err)
	}
}

func TestHashPassword_EmptyRejected(t *testing.T) {
	if _, err := run(t, "", "hash-password"); err == nil {
		t.Fatal("expected error for empty password")
	}
}

func TestCheckConfig_RedactsSecrets(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("ADMIN_USERNAME", "ops")
	t.Setenv("ADMIN_PASSWORD", "plaintext-secret")
	t.Setenv("CSRF_SECRET", "signing-secret")

	out, err := run(t, "", "check-config")
	if err != nil {
		t.Fatalf("check-config: %v\n%s", err, out)
	}
	if strings.Contains(out, "plaintext-secret") || strings.Contains(out, "signing-secret") {
		t.Fatalf("secret leaked:\n%s", out)
	}
	for _, want := range []string{"admin.username=ops", "admin.password=[redacted]", "configuration ok"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestCheckConfig_InvalidFails(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("ADMIN_USERNAME", "ops")
	t.Setenv("ADMIN_PASSWORD", "plaintext-secret")
	t.Setenv("CSRF_SECRET", "")

	_, err := run(t, "", "check-config")
	if err == nil {
		t.Fatal("expected validation failure in production with plaintext password")
	}
	if !strings.Contains(err.Error(), "csrf.secret") {
		t.Fatalf("expected csrf.secret error, got %v", err)
	}
}
