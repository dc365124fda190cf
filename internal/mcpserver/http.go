package mcpserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/newsroom-tools/newswire/internal/buildinfo"
)

const protocolVersion = "2025-03-26"

// LocalServer serves the responder over plain HTTP, speaking enough of
// the streamable transport for the session client: initialize and the
// session header are answered here, everything else passes through to
// the Server.
type LocalServer struct {
	addr       string
	server     *Server
	logger     *slog.Logger
	httpServer *http.Server
}

// NewLocalServer returns a LocalServer for the given listen address.
func NewLocalServer(addr string, server *Server, logger *slog.Logger) *LocalServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalServer{addr: addr, server: server, logger: logger}
}

// Handler returns the HTTP handler tree.
func (ls *LocalServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /mcp", ls.handleMCP)
	mux.HandleFunc("GET /health", ls.handleHealth)
	return ls.withLogging(mux)
}

// Start begins serving HTTP requests and blocks until the listener
// fails or Shutdown is called.
func (ls *LocalServer) Start(ctx context.Context) error {
	ls.httpServer = &http.Server{
		Addr:         ls.addr,
		Handler:      ls.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
	}
	ls.logger.Info("starting local MCP server", "addr", ls.addr)
	return ls.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (ls *LocalServer) Shutdown(ctx context.Context) error {
	if ls.httpServer != nil {
		return ls.httpServer.Shutdown(ctx)
	}
	return nil
}

func (ls *LocalServer) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		ls.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

func (ls *LocalServer) handleMCP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		ls.writeEnvelope(w, errorEnvelope(nil, "read request: "+err.Error()))
		return
	}

	var peek struct {
		Method string          `json:"method"`
		ID     json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(body, &peek); err != nil {
		ls.writeEnvelope(w, errorEnvelope(nil, "Parse error: "+err.Error()))
		return
	}

	switch {
	case peek.Method == "initialize":
		w.Header().Set("Mcp-Session-Id", uuid.New().String())
		ls.writeEnvelope(w, resultEnvelope(peek.ID, initializeResult()))
	case strings.HasPrefix(peek.Method, "notifications/"), len(peek.ID) == 0:
		// Notifications get no JSON-RPC response.
		w.WriteHeader(http.StatusAccepted)
	default:
		ls.writeEnvelope(w, ls.server.HandleRequest(r.Context(), body))
	}
}

// initializeResult advertises the tools capability and nothing else.
func initializeResult() map[string]any {
	return map[string]any{
		"protocolVersion": protocolVersion,
		"capabilities":    map[string]any{"tools": map[string]any{}},
		"serverInfo": map[string]any{
			"name":    "newswire-mcp",
			"version": buildinfo.Version,
		},
	}
}

// writeEnvelope writes a JSON-RPC envelope to w, logging write errors
// at debug level. Errors here typically mean the client disconnected
// mid-response.
func (ls *LocalServer) writeEnvelope(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(body); err != nil {
		ls.logger.Debug("failed to write response", "error", err)
	}
}

func (ls *LocalServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{"status": "healthy"}); err != nil {
		ls.logger.Debug("failed to write health response", "error", err)
	}
}
