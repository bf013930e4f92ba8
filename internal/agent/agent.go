package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// maxToolRounds bounds how many tool-call rounds one user turn may trigger.
const maxToolRounds = 8

const systemPrompt = `You are the knowledge coordinator for an organizational knowledge base.
You manage three stores: an instructions document with ## sections, a URL index, and topic-partitioned Markdown notes.

Rules:
- Use the provided tools for every read or write; never invent knowledge base contents.
- When a tool responds with REVIEW_REQUIRED, the write was deferred for human approval. Relay the reasons to the user and do not retry with inflated scores.
- Score confidence and relevance honestly between 0.0 and 1.0.
- Before writing, check existing content with the read tools to avoid duplicates.`

// Agent drives the chat loop against an OpenAI-compatible endpoint.
type Agent struct {
	client   *openai.Client
	model    string
	registry *Registry
	logger   *slog.Logger
}

// New creates an Agent that talks to an OpenAI-compatible server under
// host (the /v1 suffix is appended). Ollama serves this API locally.
func New(host, model string, registry *Registry, logger *slog.Logger) *Agent {
	if logger == nil {
		logger = slog.Default()
	}
	cfg := openai.DefaultConfig("ansuz")
	cfg.BaseURL = strings.TrimRight(host, "/") + "/v1"
	return &Agent{
		client:   openai.NewClientWithConfig(cfg),
		model:    model,
		registry: registry,
		logger:   logger,
	}
}

// Send appends the user message to history, runs the model until it stops
// requesting tools, and returns the assistant reply plus the updated history.
func (a *Agent) Send(ctx context.Context, history []openai.ChatCompletionMessage, userMessage string) (string, []openai.ChatCompletionMessage, error) {
	if len(history) == 0 {
		history = append(history, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		})
	}
	history = append(history, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: userMessage,
	})

	tools := a.registry.Definitions()

	for round := 0; round < maxToolRounds; round++ {
		resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:    a.model,
			Messages: history,
			Tools:    tools,
		})
		if err != nil {
			return "", history, fmt.Errorf("agent: chat completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			return "", history, errors.New("agent: empty completion")
		}

		msg := resp.Choices[0].Message
		history = append(history, msg)

		if len(msg.ToolCalls) == 0 {
			return msg.Content, history, nil
		}

		for _, call := range msg.ToolCalls {
			result := a.dispatch(ctx, call)
			history = append(history, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    result,
				ToolCallID: call.ID,
			})
		}
	}

	return "", history, fmt.Errorf("agent: tool-call budget of %d rounds exhausted", maxToolRounds)
}

func (a *Agent) dispatch(ctx context.Context, call openai.ToolCall) string {
	a.logger.Info("tool call",
		slog.String("tool", call.Function.Name),
		slog.String("args", call.Function.Arguments))

	args, err := parseArgs(call.Function.Arguments)
	if err != nil {
		a.logger.Warn("malformed tool arguments",
			slog.String("tool", call.Function.Name),
			slog.String("error", err.Error()))
		return fmt.Sprintf("Error: malformed arguments for %s: %v", call.Function.Name, err)
	}
	return a.registry.Execute(ctx, call.Function.Name, args)
}
