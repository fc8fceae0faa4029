package main

import (
	"os"
	"path/filepath"
	"testing"

	"chatd/internal/config"
)

func TestEnvOrHelpers(t *testing.T) {
	t.Setenv("CHATD_TEST_STR", "x")
	if got := envOr("CHATD_TEST_STR", "d"); got != "x" {
		t.Fatalf("envOr = %q", got)
	}
	if got := envOr("CHATD_TEST_MISSING", "d"); got != "d" {
		t.Fatalf("envOr default = %q", got)
	}
	t.Setenv("CHATD_TEST_INT", "42")
	if got := envOrInt("CHATD_TEST_INT", 1); got != 42 {
		t.Fatalf("envOrInt = %d", got)
	}
	t.Setenv("CHATD_TEST_INT", "nope")
	if got := envOrInt("CHATD_TEST_INT", 7); got != 7 {
		t.Fatalf("envOrInt malformed = %d", got)
	}
	t.Setenv("CHATD_TEST_BOOL", "true")
	if !envOrBool("CHATD_TEST_BOOL", false) {
		t.Fatalf("envOrBool = false")
	}
}

func TestApplyFilePrecedence(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "chatd.yaml")
	body := "addr: \":9999\"\nmemory_budget_mb: 2048\nlog_level: debug\n"
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := config.Load(p)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	cmd := newRootCmd()
	if err := cmd.Flags().Set("addr", ":7777"); err != nil {
		t.Fatalf("set flag: %v", err)
	}
	opts := &options{addr: ":7777", budgetMB: 0, logLevel: "info"}
	applyFile(cmd, opts, cfg)

	// Explicit flag wins over the file.
	if opts.addr != ":7777" {
		t.Fatalf("addr = %q", opts.addr)
	}
	// File wins over built-in defaults.
	if opts.budgetMB != 2048 || opts.logLevel != "debug" {
		t.Fatalf("opts = %+v", opts)
	}
}

func TestInvalidDeviceRejected(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"--device", "banana", "--catalog", "does-not-matter.json"})
	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected error for invalid device")
	}
}
