package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/newsroom-tools/newswire/examples"
)

// runInit writes a starter config.yaml into dir. Existing files are
// never overwritten, so re-running init on a configured directory is
// safe.
func runInit(w io.Writer, dir string) error {
	fmt.Fprintf(w, "Initializing Newswire workspace in %s\n", dir)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	configPath := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(configPath); err == nil {
		fmt.Fprintf(w, "  - %s already exists, left unchanged\n", configPath)
		return nil
	}

	// The config file will hold an API key, so keep it private.
	if err := os.WriteFile(configPath, examples.ConfigYAML, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", configPath, err)
	}
	fmt.Fprintf(w, "  ✓ %s\n", configPath)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Edit config.yaml, or set the environment variables it names.")
	return nil
}
