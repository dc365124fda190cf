// Newswire is an AWS news agent.
//
// It exposes an HTTP ask API backed by an Azure OpenAI deployment and an
// MCP tool server, plus a CLI for one-shot questions and deployment
// checks. Configuration is loaded from a single YAML file discovered
// automatically (see [config.DefaultSearchPaths]), with environment
// variable overrides for containerized deployments.
//
// Usage:
//
//	newswire serve             Start the ask API server
//	newswire init [dir]        Write a starter config.yaml
//	newswire ask <question>    Ask a single question (for testing)
//	newswire digest            Print this week's AWS announcement digest
//	newswire validate          Check config, model, and tool server connectivity
//	newswire version           Print version and build information
//	newswire -o json version   Output version information as JSON
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/newsroom-tools/newswire/internal/agent"
	"github.com/newsroom-tools/newswire/internal/api"
	"github.com/newsroom-tools/newswire/internal/buildinfo"
	"github.com/newsroom-tools/newswire/internal/config"
	"github.com/newsroom-tools/newswire/internal/llm"
	"github.com/newsroom-tools/newswire/internal/mcp"
)

// main is intentionally minimal. It constructs the OS-level environment
// (context, stdio, argv) and delegates immediately to [run]. This keeps
// os.Exit, os.Stdout, and os.Args out of the application logic so that
// the full startup-to-shutdown lifecycle can be driven from tests.
func main() {
	ctx := context.Background()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

// run is the real entry point for the newswire command. All OS-level
// dependencies are injected as parameters:
//
//   - ctx controls the lifetime of the process. Cancelling it triggers
//     graceful shutdown of the server.
//   - stdout and stderr receive all program output. Structured logs go
//     to stdout; fatal error messages go to stderr.
//   - args is os.Args[1:] — the command-line arguments after the program
//     name. We parse these manually rather than using the flag package
//     to avoid global state that interferes with parallel tests.
//
// run returns nil on clean shutdown and a non-nil error for any failure.
// The caller (main) is responsible for printing the error and exiting.
func run(ctx context.Context, stdout io.Writer, stderr io.Writer, args []string) error {
	// Parse arguments by hand. The flag package relies on package-level
	// globals (flag.CommandLine), which makes it impossible to call run()
	// concurrently from tests. Our argument surface is small enough that
	// manual parsing is clearer than bringing in a CLI framework.
	var configPath string
	var outputFmt string // "text" (default) or "json"
	var logLevel string
	var command string
	var cmdArgs []string

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-config" && i+1 < len(args):
			configPath = args[i+1]
			i++ // skip the value
		case strings.HasPrefix(args[i], "-config="):
			configPath = strings.TrimPrefix(args[i], "-config=")
		case args[i] == "-log-level" && i+1 < len(args):
			logLevel = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-log-level="):
			logLevel = strings.TrimPrefix(args[i], "-log-level=")
		case (args[i] == "-o" || args[i] == "--output") && i+1 < len(args):
			outputFmt = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-o="):
			outputFmt = strings.TrimPrefix(args[i], "-o=")
		case strings.HasPrefix(args[i], "--output="):
			outputFmt = strings.TrimPrefix(args[i], "--output=")
		case args[i] == "-h" || args[i] == "-help" || args[i] == "--help":
			return printUsage(stdout)
		case !strings.HasPrefix(args[i], "-") && command == "":
			command = args[i]
		default:
			if command != "" {
				// Collect remaining args as subcommand arguments.
				cmdArgs = append(cmdArgs, args[i])
			} else {
				return fmt.Errorf("unknown flag: %s", args[i])
			}
		}
	}

	// Default to human-readable text output.
	if outputFmt == "" {
		outputFmt = "text"
	}
	if outputFmt != "text" && outputFmt != "json" {
		return fmt.Errorf("unknown output format: %q (expected text or json)", outputFmt)
	}

	switch command {
	case "serve":
		return runServe(ctx, stdout, stderr, configPath, logLevel)
	case "init":
		dir := "."
		if len(cmdArgs) > 0 {
			dir = cmdArgs[0]
		}
		return runInit(stdout, dir)
	case "ask":
		if len(cmdArgs) == 0 {
			return fmt.Errorf("usage: newswire ask <question>")
		}
		return runAsk(ctx, stdout, configPath, logLevel, cmdArgs)
	case "digest":
		return runDigest(ctx, stdout, configPath, logLevel)
	case "validate":
		return runValidate(ctx, stdout, configPath, logLevel)
	case "version":
		return runVersion(stdout, outputFmt)
	case "":
		return printUsage(stdout)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// runVersion prints build metadata in the requested output format.
func runVersion(w io.Writer, outputFmt string) error {
	info := buildinfo.Info()
	if outputFmt == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	fmt.Fprintln(w, buildinfo.String())
	// Print fields in a stable order for human readability.
	for _, k := range []string{"version", "git_commit", "git_branch", "build_time", "go_version", "os", "arch"} {
		if v, ok := info[k]; ok {
			fmt.Fprintf(w, "  %-12s %s\n", k+":", v)
		}
	}
	return nil
}

// printUsage writes the top-level help text to w. It is called when
// newswire is invoked with no arguments, or with -h / --help.
func printUsage(w io.Writer) error {
	fmt.Fprintln(w, "Newswire - AWS News Agent")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: newswire [flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  serve        Start the ask API server")
	fmt.Fprintln(w, "  init [dir]   Write a starter config.yaml (default: .)")
	fmt.Fprintln(w, "  ask          Ask a single question (for testing)")
	fmt.Fprintln(w, "  digest       Print this week's AWS announcement digest")
	fmt.Fprintln(w, "  validate     Check config, model, and tool server connectivity")
	fmt.Fprintln(w, "  version      Show version information")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -config <path>    Path to config file (default: auto-discover)")
	fmt.Fprintln(w, "  -log-level lvl    Log verbosity: trace, debug, info, warn, error")
	fmt.Fprintln(w, "  -o, --output fmt  Output format: text (default) or json")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Config search order:")
	fmt.Fprintln(w, "  ./config.yaml, ~/.config/newswire/config.yaml, /etc/newswire/config.yaml")
	return nil
}

// runAsk handles the "newswire ask <question>" subcommand. It boots a
// minimal agent (no API server, no signal handling) and processes a
// single question, printing the answer to stdout. Useful for quick
// smoke tests and debugging without starting the server.
func runAsk(ctx context.Context, stdout io.Writer, configPath, logLevel string, args []string) error {
	logger, err := commandLogger(stdout, logLevel)
	if err != nil {
		return err
	}

	question := strings.Join(args, " ")

	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	mcpClient := createMCPClient(cfg, logger)
	defer mcpClient.Close()

	loop := agent.NewLoop(createLLMClient(cfg, logger), mcpClient, logger)

	fmt.Fprintln(stdout, loop.Run(ctx, question, nil))
	return nil
}

// runDigest handles the "newswire digest" subcommand. Same minimal boot
// as ask, with the canned weekly digest question.
func runDigest(ctx context.Context, stdout io.Writer, configPath, logLevel string) error {
	logger, err := commandLogger(stdout, logLevel)
	if err != nil {
		return err
	}

	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	mcpClient := createMCPClient(cfg, logger)
	defer mcpClient.Close()

	loop := agent.NewLoop(createLLMClient(cfg, logger), mcpClient, logger)

	fmt.Fprintln(stdout, loop.WeeklyDigest(ctx))
	return nil
}

// runValidate handles the "newswire validate" subcommand. It checks the
// deployment dependencies in order (config file, then Azure OpenAI, then
// the MCP tool server) and reports one line per check. The first hard
// failure aborts with a non-nil error so that CI and deploy pipelines
// can gate on the exit code.
func runValidate(ctx context.Context, stdout io.Writer, configPath, logLevel string) error {
	logger, err := commandLogger(stdout, logLevel)
	if err != nil {
		return err
	}

	cfg, cfgPath, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "ok    config loaded from %s\n", cfgPath)

	pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := createLLMClient(cfg, logger).Ping(pingCtx); err != nil {
		return fmt.Errorf("azure openai deployment %s: %w", cfg.AzureOpenAI.Deployment, err)
	}
	fmt.Fprintf(stdout, "ok    azure openai deployment %s reachable\n", cfg.AzureOpenAI.Deployment)

	mcpClient := createMCPClient(cfg, logger)
	defer mcpClient.Close()

	// The health endpoint only exists on locally hosted tool servers;
	// API Gateway deployments typically reject the path. Report but
	// don't fail on it.
	if err := mcpClient.Health(ctx); err != nil {
		fmt.Fprintf(stdout, "warn  mcp health probe failed: %v\n", err)
	} else {
		fmt.Fprintln(stdout, "ok    mcp health probe passed")
	}

	if !mcpClient.Initialize(ctx) {
		return fmt.Errorf("mcp server %s: session initialization failed", cfg.MCP.ServerURL)
	}
	sid := mcpClient.SessionID()
	if len(sid) > 16 {
		sid = sid[:16]
	}
	fmt.Fprintf(stdout, "ok    mcp session established (session %s)\n", sid)

	result := mcpClient.CallTool(ctx, "get_aws_feed_news", map[string]any{"max_articles": 1})
	if strings.HasPrefix(result, "Error") {
		return fmt.Errorf("tool smoke call failed: %s", result)
	}
	fmt.Fprintf(stdout, "ok    tool smoke call returned %d chars\n", len(result))

	fmt.Fprintln(stdout, "all checks passed")
	return nil
}

// runServe handles the "newswire serve" subcommand. It is the primary
// operating mode: loads config, connects the model and tool clients,
// starts the API server, and blocks until a shutdown signal arrives.
//
// The shutdown sequence is:
//  1. SIGINT or SIGTERM cancels the context
//  2. The HTTP server drains in-flight requests
//  3. The MCP session is closed via defer
func runServe(ctx context.Context, stdout io.Writer, stderr io.Writer, configPath, logLevel string) error {
	logger := newLogger(stdout, slog.LevelInfo, "text")
	logger.Info("starting Newswire", "version", buildinfo.Version, "commit", buildinfo.GitCommit, "branch", buildinfo.GitBranch, "built", buildinfo.BuildTime)

	cfg, cfgPath, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	// Reconfigure logger now that we know the desired level and format.
	// The initial Info-level text logger is used only for the startup
	// banner and config load message; everything after this point uses
	// the configured level and format. The -log-level flag beats the
	// config file.
	{
		levelSrc := cfg.LogLevel
		if logLevel != "" {
			levelSrc = logLevel
		}
		level := slog.LevelInfo
		if levelSrc != "" {
			// Config file values already passed Validate, so a parse
			// error here can only come from the flag.
			level, err = config.ParseLogLevel(levelSrc)
			if err != nil {
				return err
			}
		}
		logger = newLogger(stdout, level, cfg.LogFormat)
	}

	logger.Info("config loaded",
		"path", cfgPath,
		"port", cfg.Listen.Port,
		"deployment", cfg.AzureOpenAI.Deployment,
		"mcp_server_url", cfg.MCP.ServerURL,
	)

	// --- Model client ---
	// One Azure OpenAI chat deployment serves every question; the
	// deployment name in config selects the model.
	llmClient := createLLMClient(cfg, logger)

	// --- MCP tool client ---
	// Establish the tool session up front so the first question doesn't
	// pay the handshake. A failure here is not fatal: the client
	// re-initializes lazily on the next tool call, so a tool server
	// that comes up after us just works.
	mcpClient := createMCPClient(cfg, logger)
	defer mcpClient.Close()
	if !mcpClient.Initialize(ctx) {
		logger.Warn("mcp session not established; tool calls will retry", "server_url", cfg.MCP.ServerURL)
	}

	// --- Agent loop ---
	loop := agent.NewLoop(llmClient, mcpClient, logger)

	// --- API server ---
	server := api.NewServer(cfg.Listen.Address, cfg.Listen.Port, loop, mcpClient, logger)

	// --- Signal handling and graceful shutdown ---
	// NotifyContext wraps the parent context so that SIGINT/SIGTERM
	// cancellation flows through the same ctx used by all components.
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		<-ctx.Done()
		logger.Info("shutdown signal received")
		_ = server.Shutdown(context.Background())
	}()

	// Start the API server. This blocks until the server is shut down
	// (via context cancellation or fatal error).
	if err := server.Start(ctx); err != nil {
		if ctx.Err() == nil {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	logger.Info("Newswire stopped")
	return nil
}

// commandLogger builds the logger for one-shot subcommands: text format,
// quiet (warnings only) unless -log-level raises or lowers it.
func commandLogger(w io.Writer, logLevel string) (*slog.Logger, error) {
	level := slog.LevelWarn
	if logLevel != "" {
		parsed, err := config.ParseLogLevel(logLevel)
		if err != nil {
			return nil, err
		}
		level = parsed
	}
	return newLogger(w, level, "text"), nil
}

// newLogger creates a structured logger that writes to w at the given level
// and format. Format must be "text" or "json"; any other value defaults to
// text. All log output in Newswire goes through slog; this helper
// standardizes the handler configuration across subcommands.
func newLogger(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: config.ReplaceLogLevelNames,
	}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// loadConfig locates and parses the YAML configuration file, then
// validates the result.
// If explicit is non-empty, that exact path is used (and must exist).
// Otherwise, [config.FindConfig] searches the default locations. Returns
// the validated config, the path that was loaded, and any error.
func loadConfig(explicit string) (*config.Config, string, error) {
	cfgPath, err := config.FindConfig(explicit)
	if err != nil {
		return nil, "", err
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, cfgPath, fmt.Errorf("load config %s: %w", cfgPath, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, cfgPath, fmt.Errorf("invalid config %s: %w", cfgPath, err)
	}

	return cfg, cfgPath, nil
}

// createLLMClient builds the Azure OpenAI chat client from configuration.
func createLLMClient(cfg *config.Config, logger *slog.Logger) *llm.AzureClient {
	return llm.NewAzureClient(llm.AzureConfig{
		Endpoint:   cfg.AzureOpenAI.Endpoint,
		Deployment: cfg.AzureOpenAI.Deployment,
		APIVersion: cfg.AzureOpenAI.APIVersion,
		APIKey:     cfg.AzureOpenAI.APIKey,
		Logger:     logger,
	})
}

// createMCPClient builds the MCP tool server client from configuration.
func createMCPClient(cfg *config.Config, logger *slog.Logger) *mcp.Client {
	return mcp.NewClient(mcp.Config{
		ServerURL: cfg.MCP.ServerURL,
		Headers:   cfg.MCP.Headers,
		Logger:    logger,
	})
}
