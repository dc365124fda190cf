package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/newsroom-tools/newswire/internal/buildinfo"
	"github.com/newsroom-tools/newswire/internal/httpkit"
)

// protocolVersion is the MCP revision this client announces.
const protocolVersion = "2025-03-26"

// DefaultTimeout bounds each request, including reading the response.
const DefaultTimeout = 30 * time.Second

// Config configures a Client.
type Config struct {
	// ServerURL is the server root; the client posts to {ServerURL}/mcp
	// and probes {ServerURL}/health.
	ServerURL string
	// Headers are extra headers sent on every request (e.g. auth).
	Headers map[string]string
	// Timeout overrides DefaultTimeout when non-zero.
	Timeout time.Duration
	Logger  *slog.Logger
}

// Client is an MCP session client over streamable HTTP. Its call surface
// never panics and CallTool never returns an error; failures come back as
// strings suitable for a model conversation.
//
// A Client is safe for concurrent use. Request ids are unique and strictly
// increasing for the client's lifetime: the initialize handshake uses 0 and
// tool calls count up from 1.
type Client struct {
	baseURL    string
	headers    map[string]string
	httpClient *http.Client
	transport  *http.Transport
	logger     *slog.Logger

	nextID atomic.Int64

	// initMu serializes the handshake so it runs at most once.
	initMu sync.Mutex

	mu          sync.Mutex
	sessionID   string
	initialized bool
}

// NewClient creates a client for the MCP server at cfg.ServerURL.
func NewClient(cfg Config) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	t := httpkit.NewTransport()
	return &Client{
		baseURL:   strings.TrimSuffix(cfg.ServerURL, "/"),
		headers:   cfg.Headers,
		transport: t,
		httpClient: httpkit.NewClient(
			httpkit.WithTimeout(timeout),
			httpkit.WithTransport(t),
		),
		logger: logger.With("mcp_server", cfg.ServerURL),
	}
}

type clientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type initializeParams struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    map[string]any `json:"capabilities"`
	ClientInfo      clientInfo     `json:"clientInfo"`
}

type callToolParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ContentBlock is one element of a tool result's content array. Text is a
// pointer because presence of the field, not its value, drives extraction.
type ContentBlock struct {
	Type string  `json:"type,omitempty"`
	Text *string `json:"text,omitempty"`
}

type callToolResult struct {
	Content []ContentBlock `json:"content"`
}

// ToolDefinition describes one tool advertised by the server.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"inputSchema,omitempty"`
}

type toolsListResult struct {
	Tools []ToolDefinition `json:"tools"`
}

// Initialize performs the MCP handshake. It is idempotent: the network
// round trip happens at most once for a successful handshake, and later
// calls return the cached outcome. Failures are logged and reported as
// false, never raised.
func (c *Client) Initialize(ctx context.Context) bool {
	c.initMu.Lock()
	defer c.initMu.Unlock()

	c.mu.Lock()
	done := c.initialized
	c.mu.Unlock()
	if done {
		return true
	}

	if err := c.doInitialize(ctx); err != nil {
		c.logger.Error("mcp initialization failed", "error", err)
		return false
	}
	return true
}

// doInitialize runs the handshake: initialize request, result check, then
// the initialized notification. The handshake id is always 0; the counter
// is reserved for tool calls.
func (c *Client) doInitialize(ctx context.Context) error {
	c.logger.Info("initializing mcp session")

	req := NewRequest(0, "initialize", initializeParams{
		ProtocolVersion: protocolVersion,
		Capabilities:    map[string]any{},
		ClientInfo: clientInfo{
			Name:    "newswire",
			Version: buildinfo.Version,
		},
	})

	reply, err := c.post(ctx, req)
	if err != nil {
		return err
	}

	switch reply.kind {
	case replyStream:
		// The result rides the stream; reaching HTTP OK is enough to
		// consider the handshake accepted.
		httpkit.DrainAndClose(reply.stream, 64*1024)
		c.logger.Debug("server answered initialize over event stream")
	default:
		var resp Response
		if err := json.Unmarshal(reply.body, &resp); err != nil {
			return fmt.Errorf("decode initialize response: %w", err)
		}
		if resp.Error != nil {
			return fmt.Errorf("server rejected initialize: %s", resp.Error.text())
		}
		if resp.Result == nil {
			return fmt.Errorf("initialize response carried no result")
		}
	}

	c.notifyInitialized(ctx)

	c.mu.Lock()
	c.initialized = true
	c.mu.Unlock()

	c.logger.Info("mcp session ready", "session", truncate(c.SessionID(), 16))
	return nil
}

// notifyInitialized sends the post-handshake notification. Servers are
// expected to acknowledge with 202 Accepted; anything else is logged as a
// warning but does not fail the handshake.
func (c *Client) notifyInitialized(ctx context.Context) {
	data, err := json.Marshal(NewNotification("notifications/initialized", nil))
	if err != nil {
		c.logger.Warn("marshal initialized notification", "error", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/mcp", strings.NewReader(string(data)))
	if err != nil {
		c.logger.Warn("create initialized notification", "error", err)
		return
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("initialized notification failed", "error", err)
		return
	}
	defer httpkit.DrainAndClose(resp.Body, 4096)

	if resp.StatusCode != http.StatusAccepted {
		c.logger.Warn("initialized notification returned unexpected status", "status", resp.StatusCode)
		return
	}
	c.logger.Debug("sent initialized notification")
}

// CallTool invokes a tool on the server and returns its text result. All
// failure modes come back as strings: transport problems as
// "Error calling tool: ...", server-reported errors as
// "Error from MCP server: ...", and anything else as "Error: ...".
//
// An uninitialized client initializes itself first; if that fails the call
// is still attempted, since some servers accept tools/call without a
// handshake.
func (c *Client) CallTool(ctx context.Context, name string, arguments map[string]any) string {
	if !c.Initialize(ctx) {
		c.logger.Warn("proceeding without initialized mcp session", "tool", name)
	}

	if arguments == nil {
		arguments = map[string]any{}
	}

	c.logger.Info("calling mcp tool", "tool", name)

	req := NewRequest(c.nextID.Add(1), "tools/call", callToolParams{
		Name:      name,
		Arguments: arguments,
	})

	reply, err := c.post(ctx, req)
	if err != nil {
		c.logger.Error("mcp tool call failed", "tool", name, "error", err)
		return "Error calling tool: " + err.Error()
	}

	if reply.kind == replyStream {
		return c.scanStreamResult(reply.stream, name)
	}
	return c.decodeToolResult(reply.body, name)
}

// decodeToolResult turns a JSON reply into the tool's text result,
// mirroring the extraction order servers rely on: server error first,
// then content block text, then a bare string result, then pretty-printed
// JSON of whatever was there.
func (c *Client) decodeToolResult(body []byte, tool string) string {
	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		if json.Valid(body) {
			c.logger.Warn("unexpected mcp response shape", "tool", tool)
			return indentJSON(body)
		}
		c.logger.Error("decoding mcp response failed", "tool", tool, "error", err)
		return "Error: " + err.Error()
	}

	if resp.Error != nil {
		msg := resp.Error.text()
		c.logger.Error("mcp tool returned error", "tool", tool, "error", msg)
		return "Error from MCP server: " + msg
	}

	if resp.Result != nil {
		var result callToolResult
		if err := json.Unmarshal(resp.Result, &result); err == nil {
			if len(result.Content) > 0 && result.Content[0].Text != nil {
				text := *result.Content[0].Text
				c.logger.Info("mcp tool response received", "tool", tool, "chars", len(text))
				return text
			}
		}

		var s string
		if err := json.Unmarshal(resp.Result, &s); err == nil {
			c.logger.Info("mcp tool response received", "tool", tool, "chars", len(s))
			return s
		}

		return indentJSON(resp.Result)
	}

	c.logger.Warn("mcp response carried neither result nor error", "tool", tool)
	return indentJSON(body)
}

// ListTools asks the server what tools it offers. Unlike CallTool this is
// a diagnostic surface and returns real errors.
func (c *Client) ListTools(ctx context.Context) ([]ToolDefinition, error) {
	if !c.Initialize(ctx) {
		return nil, fmt.Errorf("mcp session initialization failed")
	}

	reply, err := c.post(ctx, NewRequest(c.nextID.Add(1), "tools/list", nil))
	if err != nil {
		return nil, err
	}

	var resp *Response
	if reply.kind == replyStream {
		resp, err = firstStreamResponse(reply.stream)
		if err != nil {
			return nil, fmt.Errorf("tools/list: %w", err)
		}
	} else {
		resp = &Response{}
		if err := json.Unmarshal(reply.body, resp); err != nil {
			return nil, fmt.Errorf("decode tools/list response: %w", err)
		}
	}

	if resp.Error != nil {
		return nil, resp.Error
	}
	var result toolsListResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return nil, fmt.Errorf("decode tools/list result: %w", err)
	}
	return result.Tools, nil
}

// Health probes the server's health endpoint. Nil means the server
// answered HTTP 200.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health probe: %w", err)
	}
	defer httpkit.DrainAndClose(resp.Body, 4096)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health endpoint returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// SessionID returns the server-assigned session id, or "" when the server
// does not use session management.
func (c *Client) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

func (c *Client) setSessionID(sid string) {
	c.mu.Lock()
	changed := c.sessionID != sid
	c.sessionID = sid
	c.mu.Unlock()

	if changed {
		c.logger.Info("mcp session established", "session", truncate(sid, 16))
	}
}

// Close releases pooled connections. The client remains usable; new
// requests will dial fresh connections.
func (c *Client) Close() error {
	c.transport.CloseIdleConnections()
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
