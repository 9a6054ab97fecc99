package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
)

const defaultMaxTokens = 1024

// LLM is the text-generation capability consumed by the agent. The service
// behind it is non-deterministic, rate-limited, and occasionally
// non-compliant; nothing it returns is trusted until the safety gate has
// passed it.
type LLM interface {
	// Complete sends a system and user prompt and returns the reply text.
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// AnthropicLLM implements LLM using the Anthropic API.
type AnthropicLLM struct {
	log       *slog.Logger
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

// NewAnthropicLLM creates an Anthropic-backed LLM. The client reads
// ANTHROPIC_API_KEY from the environment.
func NewAnthropicLLM(log *slog.Logger, model string) *AnthropicLLM {
	return &AnthropicLLM{
		log:       log,
		client:    anthropic.NewClient(),
		model:     anthropic.Model(model),
		maxTokens: defaultMaxTokens,
	}
}

func (c *AnthropicLLM) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	start := time.Now()
	c.log.Debug("agent: anthropic call starting", "model", c.model, "userPromptLen", len(userPrompt))

	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System: []anthropic.TextBlockParam{
			{Type: "text", Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})

	duration := time.Since(start)
	if err != nil {
		c.log.Error("agent: anthropic call failed", "duration", duration, "error", err)
		return "", fmt.Errorf("anthropic API error: %w", err)
	}
	c.log.Debug("agent: anthropic call completed", "duration", duration, "stopReason", msg.StopReason)

	for _, block := range msg.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}

	return "", fmt.Errorf("no text content in response")
}
