// Package config handles Newswire configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./config.yaml, ~/.config/newswire/config.yaml, /etc/newswire/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"config.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "newswire", "config.yaml"))
	}

	paths = append(paths, "/etc/newswire/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
// Returns the path found, or an error if nothing was found.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all Newswire configuration. Environment variables named in
// the envconfig tags override file values, so a Lambda or container can run
// with no config file at all.
type Config struct {
	Listen      ListenConfig      `yaml:"listen"`
	AzureOpenAI AzureOpenAIConfig `yaml:"azure_openai"`
	MCP         MCPConfig         `yaml:"mcp"`
	News        NewsConfig        `yaml:"news"`
	LogLevel    string            `yaml:"log_level" envconfig:"LOG_LEVEL"`
	LogFormat   string            `yaml:"log_format" envconfig:"LOG_FORMAT"` // text or json
}

// ListenConfig defines the ask API server settings.
type ListenConfig struct {
	Address string `yaml:"address"` // Bind address (default: "" = all interfaces)
	Port    int    `yaml:"port"`
}

// AzureOpenAIConfig defines the Azure OpenAI deployment settings.
type AzureOpenAIConfig struct {
	Endpoint   string `yaml:"endpoint" envconfig:"AZURE_OPENAI_ENDPOINT"`
	Deployment string `yaml:"deployment" envconfig:"AZURE_OPENAI_DEPLOYMENT_NAME"`
	APIVersion string `yaml:"api_version" envconfig:"AZURE_OPENAI_API_VERSION"`
	APIKey     string `yaml:"api_key" envconfig:"AZURE_OPENAI_API_KEY"`
}

// MCPConfig defines the MCP server connection settings.
type MCPConfig struct {
	// ServerURL is the server root; the client posts to {ServerURL}/mcp.
	ServerURL string `yaml:"server_url" envconfig:"MCP_SERVER_URL"`
	// Headers are extra headers sent on every MCP request (e.g. auth).
	Headers map[string]string `yaml:"headers"`
}

// NewsConfig defines the feed sources for the news tools.
// Empty values fall back to the official AWS feeds.
type NewsConfig struct {
	WhatsNewFeed string `yaml:"whats_new_feed" envconfig:"WHATS_NEW_FEED_URL"`
	BlogFeed     string `yaml:"blog_feed" envconfig:"BLOG_FEED_URL"`
}

// Load reads configuration from a YAML file. Environment variables in the
// file are expanded first, then envconfig overrides are applied on top.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("apply environment overrides: %w", err)
	}

	return cfg, nil
}

// FromEnv builds a configuration from environment variables alone,
// for deployments (Lambda, containers) that carry no config file.
func FromEnv() (*Config, error) {
	cfg := Default()
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("apply environment overrides: %w", err)
	}
	return cfg, nil
}

// Default returns a default configuration.
func Default() *Config {
	return &Config{
		Listen: ListenConfig{Port: 8080},
		AzureOpenAI: AzureOpenAIConfig{
			APIVersion: "2024-02-15-preview",
		},
	}
}

// Validate checks that the settings the agent path requires are present.
// Missing settings are reported by their environment variable names, which
// is how operators know them.
func (c *Config) Validate() error {
	var missing []string
	if c.AzureOpenAI.APIKey == "" {
		missing = append(missing, "AZURE_OPENAI_API_KEY")
	}
	if c.AzureOpenAI.Endpoint == "" {
		missing = append(missing, "AZURE_OPENAI_ENDPOINT")
	}
	if c.AzureOpenAI.Deployment == "" {
		missing = append(missing, "AZURE_OPENAI_DEPLOYMENT_NAME")
	}
	if c.MCP.ServerURL == "" {
		missing = append(missing, "MCP_SERVER_URL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}
	if c.LogLevel != "" {
		if _, err := ParseLogLevel(c.LogLevel); err != nil {
			return fmt.Errorf("log_level: %w", err)
		}
	}
	return nil
}
