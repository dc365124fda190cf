package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/newsroom-tools/newswire/internal/config"
)

func TestRunInit_FreshDirectory(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer

	if err := runInit(&buf, dir); err != nil {
		t.Fatalf("runInit: %v", err)
	}

	cfgPath := filepath.Join(dir, "config.yaml")
	info, err := os.Stat(cfgPath)
	if err != nil {
		t.Fatalf("config.yaml not created: %v", err)
	}
	// The starter config holds an API key slot.
	if got := info.Mode().Perm(); got != 0o600 {
		t.Errorf("config.yaml permissions = %o, want 0600", got)
	}

	// The starter file must parse and validate with the documented
	// environment variables set.
	pinEnv(t, "http://localhost:9999")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		t.Fatalf("starter config does not load: %v", err)
	}
	if cfg.Listen.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Listen.Port)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("starter config does not validate: %v", err)
	}

	if !strings.Contains(buf.String(), "✓") {
		t.Error("output missing ✓ marker for created file")
	}
}

func TestRunInit_NeverOverwrites(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("# mine\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := runInit(&buf, dir); err != nil {
		t.Fatalf("runInit: %v", err)
	}

	content, err := os.ReadFile(cfgPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "# mine\n" {
		t.Error("init overwrote an existing config")
	}
	if !strings.Contains(buf.String(), "left unchanged") {
		t.Errorf("output missing skip notice:\n%s", buf.String())
	}
}

func TestRunInit_CreatesNestedDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "work")
	if err := runInit(io.Discard, dir); err != nil {
		t.Fatalf("runInit: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "config.yaml")); err != nil {
		t.Errorf("config.yaml not created in nested dir: %v", err)
	}
}

func TestRun_InitViaCommandLine(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	if err := run(context.Background(), &buf, io.Discard, []string{"init", dir}); err != nil {
		t.Fatalf("run init: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "config.yaml")); err != nil {
		t.Errorf("config.yaml not created: %v", err)
	}
}
