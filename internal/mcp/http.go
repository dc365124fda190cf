package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/newsroom-tools/newswire/internal/httpkit"
)

// sessionHeader carries the server-assigned session id in both directions.
const sessionHeader = "Mcp-Session-Id"

// maxResponseBytes caps how much of a JSON response body we will read.
const maxResponseBytes = 10 << 20 // 10 MiB

// replyKind tags how a server answered: plain JSON or an event stream.
type replyKind int

const (
	replyJSON replyKind = iota
	replyStream
)

// serverReply is one HTTP response, decoded just far enough to know its
// kind. A JSON reply carries the full body; a stream reply carries the
// still-open body so the caller can scan it lazily.
type serverReply struct {
	kind   replyKind
	body   []byte
	stream io.ReadCloser
}

// post sends one JSON-RPC payload to the server's /mcp endpoint and sniffs
// the response content type. The session id header is captured from every
// response before any status handling, since servers may assign it at any
// point.
func (c *Client) post(ctx context.Context, payload any) (*serverReply, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/mcp", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post %s/mcp: %w", c.baseURL, err)
	}

	if sid := httpResp.Header.Get(sessionHeader); sid != "" {
		c.setSessionID(sid)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		body := httpkit.ReadErrorBody(httpResp.Body, 1024)
		return nil, fmt.Errorf("server returned HTTP %d: %s", httpResp.StatusCode, body)
	}

	if strings.Contains(httpResp.Header.Get("Content-Type"), "text/event-stream") {
		return &serverReply{kind: replyStream, stream: httpResp.Body}, nil
	}

	defer httpkit.DrainAndClose(httpResp.Body, 1<<20)
	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return &serverReply{kind: replyJSON, body: body}, nil
}

// setHeaders applies the protocol headers, any configured extras, and the
// session id once one is known.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	if sid := c.SessionID(); sid != "" {
		req.Header.Set(sessionHeader, sid)
	}
}

// scanStreamResult lazily scans an event stream for the first frame whose
// result carries a text content block, and returns that text. Frames that
// do not parse, or parse to something else, are skipped.
func (c *Client) scanStreamResult(stream io.ReadCloser, tool string) string {
	defer httpkit.DrainAndClose(stream, 1<<20)

	scanner := bufio.NewScanner(stream)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var resp Response
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &resp); err != nil {
			continue
		}
		if resp.Result == nil {
			continue
		}
		var result callToolResult
		if err := json.Unmarshal(resp.Result, &result); err != nil {
			continue
		}
		if len(result.Content) > 0 && result.Content[0].Text != nil {
			text := *result.Content[0].Text
			c.logger.Info("mcp tool response received",
				"tool", tool,
				"transport", "sse",
				"chars", len(text),
			)
			return text
		}
	}
	if err := scanner.Err(); err != nil {
		c.logger.Warn("error reading event stream", "tool", tool, "error", err)
	}

	c.logger.Warn("could not extract result from event stream", "tool", tool)
	return "Error: Could not parse SSE stream response"
}

// firstStreamResponse returns the first JSON-RPC response carried on an
// event stream, for request/response methods that a server chose to answer
// over SSE. Unparseable frames are skipped.
func firstStreamResponse(stream io.ReadCloser) (*Response, error) {
	defer httpkit.DrainAndClose(stream, 1<<20)

	scanner := bufio.NewScanner(stream)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var resp Response
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &resp); err != nil {
			continue
		}
		if resp.Result == nil && resp.Error == nil {
			continue
		}
		return &resp, nil
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read event stream: %w", err)
	}
	return nil, fmt.Errorf("event stream carried no response")
}

// indentJSON pretty-prints already-valid JSON with two-space indentation.
func indentJSON(data []byte) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return string(data)
	}
	return buf.String()
}
