// Newswire-mcp is the MCP tool server for AWS news.
//
// It serves the five news tools (what's new announcements, blog posts,
// combined news, RSS feed items, and article retrieval) over the MCP
// wire protocol. The default mode is an AWS Lambda handler behind API
// Gateway; -http runs the same server on a local address instead, which
// is how development and the test suite exercise it.
//
// All configuration comes from the environment (see [config.FromEnv]);
// a Lambda has no config file to discover.
//
// Usage:
//
//	newswire-mcp                   Run as an AWS Lambda handler
//	newswire-mcp -http :8081       Serve MCP over HTTP on the given address
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/newsroom-tools/newswire/internal/buildinfo"
	"github.com/newsroom-tools/newswire/internal/config"
	"github.com/newsroom-tools/newswire/internal/mcpserver"
	"github.com/newsroom-tools/newswire/internal/news"
)

func main() {
	ctx := context.Background()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

// run parses arguments and builds the tool server, then enters either
// the Lambda runtime loop or the local HTTP server. Parsing is manual
// for the same reason as in the newswire command: no flag-package
// globals.
func run(ctx context.Context, stdout io.Writer, stderr io.Writer, args []string) error {
	var httpAddr string

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-http" && i+1 < len(args):
			httpAddr = args[i+1]
			i++ // skip the value
		case strings.HasPrefix(args[i], "-http="):
			httpAddr = strings.TrimPrefix(args[i], "-http=")
		case args[i] == "-h" || args[i] == "-help" || args[i] == "--help":
			return printUsage(stdout)
		default:
			return fmt.Errorf("unknown flag: %s", args[i])
		}
	}

	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	// A bad LOG_LEVEL falls back to info rather than refusing to start;
	// a Lambda that won't boot over a log setting helps nobody.
	level := slog.LevelInfo
	if cfg.LogLevel != "" {
		if parsed, err := config.ParseLogLevel(cfg.LogLevel); err == nil {
			level = parsed
		}
	}
	logger := newLogger(stdout, level, cfg.LogFormat)
	logger.Info("starting newswire-mcp", "version", buildinfo.Version, "commit", buildinfo.GitCommit, "built", buildinfo.BuildTime)

	srv := newToolServer(cfg, logger)

	if httpAddr != "" {
		return serveHTTP(ctx, logger, srv, httpAddr)
	}

	// lambda.Start blocks for the lifetime of the execution environment.
	lambda.Start(srv.Handle)
	return nil
}

// newToolServer wires the news service tools into an MCP server. The
// registration order here is the order tools/list reports.
func newToolServer(cfg *config.Config, logger *slog.Logger) *mcpserver.Server {
	svc := news.NewService(news.Config{
		WhatsNewFeedURL: cfg.News.WhatsNewFeed,
		BlogFeedURL:     cfg.News.BlogFeed,
		Logger:          logger,
	})

	srv := mcpserver.NewServer(logger)
	srv.Register("get_aws_news", svc.GetNews)
	srv.Register("get_aws_announcements", svc.GetAnnouncements)
	srv.Register("get_aws_blogs", svc.GetBlogs)
	srv.Register("get_aws_feed_news", svc.GetFeedNews)
	srv.Register("read_article", svc.ReadArticle)
	return srv
}

// serveHTTP runs the tool server on a local address until the context is
// cancelled or a shutdown signal arrives.
func serveHTTP(ctx context.Context, logger *slog.Logger, srv *mcpserver.Server, addr string) error {
	local := mcpserver.NewLocalServer(addr, srv, logger)

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		<-ctx.Done()
		logger.Info("shutdown signal received")
		_ = local.Shutdown(context.Background())
	}()

	if err := local.Start(ctx); err != nil {
		if ctx.Err() == nil {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	logger.Info("newswire-mcp stopped")
	return nil
}

// printUsage writes the top-level help text to w.
func printUsage(w io.Writer) error {
	fmt.Fprintln(w, "Newswire-mcp - MCP tool server for AWS news")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: newswire-mcp [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -http <addr>   Serve over HTTP on addr instead of the Lambda runtime")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintln(w, "  WHATS_NEW_FEED_URL   Override the AWS what's new feed")
	fmt.Fprintln(w, "  BLOG_FEED_URL        Override the AWS blog feed")
	fmt.Fprintln(w, "  LOG_LEVEL            trace, debug, info, warn, or error (default info)")
	fmt.Fprintln(w, "  LOG_FORMAT           text or json (default text)")
	return nil
}

// newLogger mirrors the agent binary's logger setup: slog with level
// renaming, text or JSON.
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
