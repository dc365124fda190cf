package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/newsroom-tools/newswire/internal/httpkit"
)

// LevelTrace is below Debug, used for wire-level payload logging.
const LevelTrace = slog.Level(-8)

// defaultAPIVersion is used when the config does not pin one.
const defaultAPIVersion = "2024-02-15-preview"

// AzureConfig holds the settings for one Azure OpenAI deployment.
type AzureConfig struct {
	Endpoint   string // https://<resource>.openai.azure.com
	Deployment string
	APIVersion string
	APIKey     string
	Logger     *slog.Logger
}

// AzureClient implements Client against an Azure OpenAI chat deployment.
type AzureClient struct {
	endpoint   string
	deployment string
	apiVersion string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewAzureClient creates a client for a single Azure OpenAI deployment.
// The deployment, not a model parameter, selects the model.
func NewAzureClient(cfg AzureConfig) *AzureClient {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	apiVersion := cfg.APIVersion
	if apiVersion == "" {
		apiVersion = defaultAPIVersion
	}

	t := httpkit.NewTransport()
	// Completions with large tool results can be slow to first byte.
	t.ResponseHeaderTimeout = 120 * time.Second

	return &AzureClient{
		endpoint:   strings.TrimSuffix(cfg.Endpoint, "/"),
		deployment: cfg.Deployment,
		apiVersion: apiVersion,
		apiKey:     cfg.APIKey,
		httpClient: httpkit.NewClient(
			httpkit.WithTimeout(0),
			httpkit.WithTransport(t),
		),
		logger: logger.With("provider", "azure_openai"),
	}
}

// chatCompletionRequest is the wire format for the completions endpoint.
type chatCompletionRequest struct {
	Messages   []Message `json:"messages"`
	Tools      []Tool    `json:"tools,omitempty"`
	ToolChoice string    `json:"tool_choice,omitempty"`
	MaxTokens  int       `json:"max_tokens,omitempty"`
}

type chatCompletionChoice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

type chatCompletionResponse struct {
	ID      string                 `json:"id"`
	Model   string                 `json:"model"`
	Choices []chatCompletionChoice `json:"choices"`
}

func (c *AzureClient) completionsURL() string {
	return fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		c.endpoint, c.deployment, c.apiVersion)
}

// Chat sends a chat completion request and returns the first choice.
func (c *AzureClient) Chat(ctx context.Context, messages []Message, tools []Tool) (*ChatResponse, error) {
	reqBody := chatCompletionRequest{
		Messages: messages,
		Tools:    tools,
	}
	if len(tools) > 0 {
		reqBody.ToolChoice = "auto"
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	c.logger.Debug("preparing chat completion request",
		"deployment", c.deployment,
		"messages", len(messages),
		"tools", len(tools),
	)
	c.logger.Log(ctx, LevelTrace, "request payload", "json", string(jsonData))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.completionsURL(), bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body := httpkit.ReadErrorBody(resp.Body, 4096)
		c.logger.Error("chat completion request failed",
			"status", resp.StatusCode,
			"body", body,
		)
		return nil, fmt.Errorf("azure openai returned status %d: %s", resp.StatusCode, body)
	}

	var cr chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return nil, fmt.Errorf("azure openai response contained no choices")
	}

	choice := cr.Choices[0]
	c.logger.Debug("chat completion received",
		"finish_reason", choice.FinishReason,
		"tool_calls", len(choice.Message.ToolCalls),
	)

	return &ChatResponse{
		Model:        cr.Model,
		Message:      choice.Message,
		FinishReason: choice.FinishReason,
	}, nil
}

// Ping verifies reachability and credentials with a one-token request.
func (c *AzureClient) Ping(ctx context.Context) error {
	reqBody := chatCompletionRequest{
		Messages:  []Message{{Role: "user", Content: "Hello"}},
		MaxTokens: 1,
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.completionsURL(), bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("azure openai unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		httpkit.DrainAndClose(resp.Body, 1024)
		return fmt.Errorf("azure openai: invalid API key")
	}
	if resp.StatusCode != http.StatusOK {
		body := httpkit.ReadErrorBody(resp.Body, 1024)
		return fmt.Errorf("azure openai returned status %d: %s", resp.StatusCode, body)
	}

	httpkit.DrainAndClose(resp.Body, 4096)
	return nil
}
