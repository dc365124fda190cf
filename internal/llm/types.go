// Package llm provides LLM client implementations.
package llm

// Message represents a chat message for the LLM.
// Wire shapes follow the OpenAI chat completions format.
type Message struct {
	Role       string     `json:"role"` // system, user, assistant, tool
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"` // For tool responses
}

// ToolCall represents a tool call from the model. Arguments stays the raw
// JSON string exactly as the model produced it; it is echoed back verbatim
// in conversation history and only parsed at execution time.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"` // always "function"
	Function FunctionCall `json:"function"`
}

// FunctionCall names the function and carries its unparsed arguments.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Tool describes a function the model may call, in OpenAI function format.
type Tool struct {
	Type     string             `json:"type"` // always "function"
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition is the schema half of a Tool.
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// ChatResponse is the reply to one completion request.
type ChatResponse struct {
	Model        string
	Message      Message
	FinishReason string // stop, tool_calls, length, content_filter
}
