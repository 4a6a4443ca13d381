package modelgateway

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
)

// AnthropicChatClient implements ChatClient against the Anthropic Messages
// API, used purely as a synchronous classify/extract/intent backend: one
// system prompt, one user turn, one text response. No tool use, no
// streaming.
type AnthropicChatClient struct {
	client    *anthropic.Client
	model     string
	maxTokens int64
}

// NewAnthropicChatClient wraps client. model defaults to a model suitable
// for classification work if empty.
func NewAnthropicChatClient(client *anthropic.Client, model string) *AnthropicChatClient {
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	return &AnthropicChatClient{
		client:    client,
		model:     model,
		maxTokens: 1024,
	}
}

// Complete sends a single-turn request and returns the concatenated text
// content of the response.
func (c *AnthropicChatClient) Complete(ctx context.Context, systemPrompt, userContent string) (string, error) {
	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userContent)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic messages.new: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	return text, nil
}
