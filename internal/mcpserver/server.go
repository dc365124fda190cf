// Package mcpserver implements the tool-serving side of the MCP wire
// protocol: a JSON-RPC responder that dispatches tools/list and
// tools/call to registered handlers.
//
// The responder itself is transport-agnostic. Handle adapts it to an
// AWS Lambda proxy invocation; LocalServer exposes it over plain HTTP
// for development and tests.
package mcpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/aws/aws-lambda-go/events"
)

// ToolFunc executes one tool call. The returned text becomes the
// response content; a non-nil error is reported to the caller as a
// JSON-RPC error instead.
type ToolFunc func(ctx context.Context, args map[string]any) (string, error)

// Server dispatches JSON-RPC requests to registered tools.
type Server struct {
	logger *slog.Logger
	tools  map[string]ToolFunc
	order  []string
}

// NewServer returns a Server with an empty tool registry. The registry
// is meant to be populated once at startup and read-only afterwards;
// Register is not safe to call concurrently with request handling.
func NewServer(logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		logger: logger.With("component", "mcpserver"),
		tools:  make(map[string]ToolFunc),
	}
}

// Register adds a tool handler under the given name. Registering the
// same name twice replaces the handler but keeps the tools/list
// position from the first registration.
func (s *Server) Register(name string, fn ToolFunc) {
	if _, exists := s.tools[name]; exists {
		s.logger.Warn("Overwriting an existing tool handler", "tool", name)
	} else {
		s.order = append(s.order, name)
	}
	s.tools[name] = fn
}

// Names returns the registered tool names in registration order.
func (s *Server) Names() []string {
	return append([]string(nil), s.order...)
}

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  rpcParams       `json:"params"`
}

type rpcParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
	ID      json.RawMessage `json:"id"`
}

// rpcError is the error object the wire protocol expects: a bare
// message, no code.
type rpcError struct {
	Message string `json:"message"`
}

type toolDescriptor struct {
	Name string `json:"name"`
}

type toolsListResult struct {
	Tools []toolDescriptor `json:"tools"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type callResult struct {
	Content []contentBlock `json:"content"`
}

// HandleRequest answers a single JSON-RPC request. It always produces
// a response envelope: malformed input and failed tool calls come back
// as JSON-RPC errors, never as an empty body.
func (s *Server) HandleRequest(ctx context.Context, body []byte) []byte {
	var req rpcRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.logger.Warn("rejecting unparseable request", "error", err)
		return errorEnvelope(nil, "Parse error: "+err.Error())
	}

	switch req.Method {
	case "tools/list":
		tools := make([]toolDescriptor, 0, len(s.order))
		for _, name := range s.order {
			tools = append(tools, toolDescriptor{Name: name})
		}
		s.logger.Debug("listing tools", "count", len(tools))
		return resultEnvelope(req.ID, toolsListResult{Tools: tools})

	case "tools/call":
		return s.dispatch(ctx, req)

	default:
		s.logger.Warn("unknown method requested", "method", req.Method)
		return errorEnvelope(req.ID, "Unknown method: "+req.Method)
	}
}

func (s *Server) dispatch(ctx context.Context, req rpcRequest) []byte {
	name := req.Params.Name
	fn, ok := s.tools[name]
	if !ok {
		s.logger.Warn("unknown tool requested", "tool", name)
		return errorEnvelope(req.ID, "Unknown tool: "+name)
	}

	text, err := s.invoke(ctx, name, fn, req.Params.Arguments)
	if err != nil {
		s.logger.Error("tool call failed", "tool", name, "error", err)
		return errorEnvelope(req.ID, err.Error())
	}

	s.logger.Info("tool call completed", "tool", name, "chars", len(text))
	return resultEnvelope(req.ID, callResult{
		Content: []contentBlock{{Type: "text", Text: text}},
	})
}

// invoke runs one tool handler, converting a panic into an error so a
// misbehaving tool cannot take down the responder.
func (s *Server) invoke(ctx context.Context, name string, fn ToolFunc, args map[string]any) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("tool handler panicked",
				"tool", name,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			err = fmt.Errorf("%s: internal error: %v", name, r)
		}
	}()
	if args == nil {
		args = map[string]any{}
	}
	return fn(ctx, args)
}

// Handle answers one Lambda proxy invocation. The transport always
// reports HTTP 200: failures travel inside the JSON-RPC envelope so
// the caller gets a parseable body either way.
func (s *Server) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	body := []byte(event.Body)
	if event.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(event.Body)
		if err != nil {
			s.logger.Warn("request body is not valid base64", "error", err)
			return proxyResponse(errorEnvelope(nil, "Parse error: "+err.Error())), nil
		}
		body = decoded
	}
	return proxyResponse(s.HandleRequest(ctx, body)), nil
}

func proxyResponse(body []byte) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: 200,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(body),
	}
}

func resultEnvelope(id json.RawMessage, result any) []byte {
	body, err := json.Marshal(rpcResponse{JSONRPC: "2.0", Result: result, ID: orNull(id)})
	if err != nil {
		return errorEnvelope(id, "encode response: "+err.Error())
	}
	return body
}

func errorEnvelope(id json.RawMessage, message string) []byte {
	body, _ := json.Marshal(rpcResponse{JSONRPC: "2.0", Error: &rpcError{Message: message}, ID: orNull(id)})
	return body
}

// orNull normalizes an absent request id to an explicit JSON null so
// the response envelope always carries an id field.
func orNull(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return json.RawMessage("null")
	}
	return id
}
