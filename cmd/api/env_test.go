package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDotEnvMissingDefaultIsIgnored(t *testing.T) {
	t.Chdir(t.TempDir())

	if err := loadDotEnv(""); err != nil {
		t.Fatalf("expected no error without .env, got %v", err)
	}
}

func TestLoadDotEnvMissingExplicitFileFails(t *testing.T) {
	if err := loadDotEnv(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Fatal("expected error for missing explicit env file")
	}
}

func TestLoadDotEnvDoesNotOverrideProcessEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calc.env")
	data := "CALCULATOR_TEST_PORT=9999\nCALCULATOR_TEST_FROM_FILE=yes\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("writing env file: %v", err)
	}
	t.Setenv("CALCULATOR_TEST_PORT", "7000")
	t.Setenv("CALCULATOR_TEST_FROM_FILE", "")
	os.Unsetenv("CALCULATOR_TEST_FROM_FILE")

	if err := loadDotEnv(path); err != nil {
		t.Fatalf("load: %v", err)
	}

	if got := os.Getenv("CALCULATOR_TEST_PORT"); got != "7000" {
		t.Fatalf("expected process env to win, got %q", got)
	}
	if got := os.Getenv("CALCULATOR_TEST_FROM_FILE"); got != "yes" {
		t.Fatalf("expected value from file, got %q", got)
	}
}
