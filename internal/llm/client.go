package llm

import "context"

// Client is the interface chat completion providers implement. The model
// is not a parameter: Azure OpenAI routes by deployment, which is part of
// the client's construction.
type Client interface {
	// Chat sends a chat completion request and returns the response.
	// Pass tools to offer the model function calling; nil disables it.
	Chat(ctx context.Context, messages []Message, tools []Tool) (*ChatResponse, error)

	// Ping checks if the provider is reachable and the credentials work.
	Ping(ctx context.Context) error
}
