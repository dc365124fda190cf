package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFindConfig_Explicit(t *testing.T) {
	// Create a temp config file
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")
	os.WriteFile(path, []byte("listen:\n  port: 9999\n"), 0600)

	got, err := FindConfig(path)
	if err != nil {
		t.Fatalf("FindConfig(%q) error: %v", path, err)
	}
	if got != path {
		t.Errorf("FindConfig(%q) = %q, want %q", path, got, path)
	}
}

func TestFindConfig_ExplicitMissing(t *testing.T) {
	_, err := FindConfig("/nonexistent/config.yaml")
	if err == nil {
		t.Fatal("FindConfig with missing explicit path should error")
	}
}

func TestFindConfig_SearchPath(t *testing.T) {
	// When no config exists anywhere, should error
	// (Save and restore CWD to avoid finding the repo's config.yaml)
	dir := t.TempDir()
	orig, _ := os.Getwd()
	os.Chdir(dir)
	defer os.Chdir(orig)

	_, err := FindConfig("")
	if err == nil {
		t.Fatal("FindConfig(\"\") with no config files should error")
	}
}

func TestFindConfig_CWD(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte("listen:\n  port: 8080\n"), 0600)

	orig, _ := os.Getwd()
	os.Chdir(dir)
	defer os.Chdir(orig)

	got, err := FindConfig("")
	if err != nil {
		t.Fatalf("FindConfig(\"\") error: %v", err)
	}
	if got != "config.yaml" {
		t.Errorf("FindConfig(\"\") = %q, want %q", got, "config.yaml")
	}
}

func TestLoad_ExpandsEnvVars(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte("azure_openai:\n  api_key: ${NEWSWIRE_TEST_KEY}\n"), 0600)
	os.Setenv("NEWSWIRE_TEST_KEY", "secret123")
	defer os.Unsetenv("NEWSWIRE_TEST_KEY")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.AzureOpenAI.APIKey != "secret123" {
		t.Errorf("api_key = %q, want %q", cfg.AzureOpenAI.APIKey, "secret123")
	}
}

func TestLoad_InlineSecrets(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte("azure_openai:\n  api_key: test-key-inline\n"), 0600)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.AzureOpenAI.APIKey != "test-key-inline" {
		t.Errorf("api_key = %q, want %q", cfg.AzureOpenAI.APIKey, "test-key-inline")
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte("mcp:\n  server_url: http://from-file:9000\n"), 0600)
	os.Setenv("MCP_SERVER_URL", "http://from-env:9000")
	defer os.Unsetenv("MCP_SERVER_URL")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.MCP.ServerURL != "http://from-env:9000" {
		t.Errorf("server_url = %q, want env override", cfg.MCP.ServerURL)
	}
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte("log_level: debug\n"), 0600)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Listen.Port != 8080 {
		t.Errorf("default port = %d, want 8080", cfg.Listen.Port)
	}
	if cfg.AzureOpenAI.APIVersion != "2024-02-15-preview" {
		t.Errorf("default api_version = %q", cfg.AzureOpenAI.APIVersion)
	}
}

func TestFromEnv(t *testing.T) {
	os.Setenv("AZURE_OPENAI_API_KEY", "env-key")
	os.Setenv("MCP_SERVER_URL", "http://localhost:9000")
	defer os.Unsetenv("AZURE_OPENAI_API_KEY")
	defer os.Unsetenv("MCP_SERVER_URL")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv error: %v", err)
	}
	if cfg.AzureOpenAI.APIKey != "env-key" {
		t.Errorf("api_key = %q, want %q", cfg.AzureOpenAI.APIKey, "env-key")
	}
	if cfg.MCP.ServerURL != "http://localhost:9000" {
		t.Errorf("server_url = %q", cfg.MCP.ServerURL)
	}
}

func TestValidate_ReportsMissingByEnvName(t *testing.T) {
	cfg := Default()
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for empty config")
	}
	for _, name := range []string{
		"AZURE_OPENAI_API_KEY",
		"AZURE_OPENAI_ENDPOINT",
		"AZURE_OPENAI_DEPLOYMENT_NAME",
		"MCP_SERVER_URL",
	} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error %q missing %s", err, name)
		}
	}
}

func TestValidate_Complete(t *testing.T) {
	cfg := Default()
	cfg.AzureOpenAI.APIKey = "k"
	cfg.AzureOpenAI.Endpoint = "https://example.openai.azure.com"
	cfg.AzureOpenAI.Deployment = "gpt-4o"
	cfg.MCP.ServerURL = "http://localhost:9000"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestValidate_BadLogLevel(t *testing.T) {
	cfg := Default()
	cfg.AzureOpenAI.APIKey = "k"
	cfg.AzureOpenAI.Endpoint = "https://example.openai.azure.com"
	cfg.AzureOpenAI.Deployment = "gpt-4o"
	cfg.MCP.ServerURL = "http://localhost:9000"
	cfg.LogLevel = "nuclear"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "log_level") {
		t.Errorf("Validate = %v, want log_level error", err)
	}
}
