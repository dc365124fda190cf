// Package mcp implements the MCP (Model Context Protocol) client side,
// allowing Newswire to call tools on a remote MCP server and feed their
// results to the agent loop.
//
// The client speaks JSON-RPC 2.0 over streamable HTTP: every message is
// a POST to the server's /mcp endpoint, and a response arrives either as
// plain JSON or as a server-sent event stream, decided per response by
// its Content-Type. Session state is a single Mcp-Session-Id header value
// the server may assign during the initialize handshake; once captured it
// is echoed on every request.
//
// CallTool deliberately returns a string instead of an error: tool output
// flows back into a model conversation, where a readable failure line is
// more useful than an aborted turn.
package mcp
