// Package agent implements the tool dispatch loop connecting the
// language model to the news tools.
package agent

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/newsroom-tools/newswire/internal/llm"
	"github.com/newsroom-tools/newswire/internal/prompts"
)

// ToolCaller executes one named tool call and returns its text result.
// Failures come back as error text inside the string, never as an
// error value: the model reads whatever the tool surface produced and
// decides what to do next.
type ToolCaller interface {
	CallTool(ctx context.Context, name string, arguments map[string]any) string
}

// maxIterations bounds the model round trips for one question. On
// exhaustion the loop answers with a fixed apology instead of erroring.
const maxIterations = 5

const maxIterationsApology = "I apologize, but I reached the maximum number of tool calls. Please try simplifying your question."

// Loop drives the model until it stops asking for tools.
type Loop struct {
	llm    llm.Client
	tools  ToolCaller
	logger *slog.Logger
}

// NewLoop creates the dispatch loop.
func NewLoop(client llm.Client, tools ToolCaller, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		llm:    client,
		tools:  tools,
		logger: logger.With("component", "agent"),
	}
}

// Run answers one user question, invoking tools as the model requests
// them. It always returns displayable text: model failures, argument
// parse failures, and iteration exhaustion fold into the answer rather
// than surfacing as errors.
func (l *Loop) Run(ctx context.Context, question string, history []llm.Message) string {
	logger := l.logger.With("request_id", uuid.New().String())
	start := time.Now()

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: "system", Content: prompts.BaseSystemPrompt()})
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: "user", Content: question})

	tools := Tools()

	for iteration := 1; iteration <= maxIterations; iteration++ {
		logger.Debug("model round trip", "iteration", iteration, "messages", len(messages))

		resp, err := l.llm.Chat(ctx, messages, tools)
		if err != nil {
			logger.Error("model call failed", "iteration", iteration, "error", err)
			return "I encountered an error: " + err.Error()
		}

		assistant := resp.Message
		if len(assistant.ToolCalls) == 0 {
			logger.Info("question answered",
				"iterations", iteration,
				"chars", len(assistant.Content),
				"duration", time.Since(start).Round(time.Millisecond),
			)
			return assistant.Content
		}

		// Echo the assistant turn back into context, raw argument
		// strings included, so the model sees its own calls.
		messages = append(messages, llm.Message{
			Role:      "assistant",
			Content:   assistant.Content,
			ToolCalls: assistant.ToolCalls,
		})

		for _, tc := range assistant.ToolCalls {
			args := map[string]any{}
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				logger.Error("tool arguments are not valid JSON",
					"tool", tc.Function.Name,
					"error", err,
				)
				return "I encountered an error: " + err.Error()
			}

			logger.Info("executing tool", "tool", tc.Function.Name)
			result := l.tools.CallTool(ctx, tc.Function.Name, args)

			messages = append(messages, llm.Message{
				Role:       "tool",
				Content:    result,
				ToolCallID: tc.ID,
			})
		}
	}

	logger.Warn("tool call limit reached", "iterations", maxIterations)
	return maxIterationsApology
}

// WeeklyDigest runs the canned weekly digest question with no history.
func (l *Loop) WeeklyDigest(ctx context.Context) string {
	return l.Run(ctx, prompts.WeeklyDigestPrompt(), nil)
}
