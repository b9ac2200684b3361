package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const anthropicMaxTokens = 4000

// AnthropicGenerator generates text with Anthropic Claude models.
type AnthropicGenerator struct {
	client    anthropic.Client
	modelName string
}

// NewAnthropicGenerator creates a new Claude generator instance.
func NewAnthropicGenerator(apiKey, modelName string, opts ...option.RequestOption) (*AnthropicGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}
	if modelName == "" {
		modelName = string(anthropic.ModelClaudeSonnet4_5_20250929)
	}

	client := anthropic.NewClient(
		append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...,
	)

	return &AnthropicGenerator{
		client:    client,
		modelName: modelName,
	}, nil
}

// Name returns the name of the model.
func (c *AnthropicGenerator) Name() string {
	return c.modelName
}

// Generate performs a non-streaming message request.
func (c *AnthropicGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	req := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.modelName),
		MaxTokens: anthropicMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if system != "" {
		req.System = []anthropic.TextBlockParam{
			{Text: system},
		}
	}

	resp, err := c.client.Messages.New(ctx, req)
	if err != nil {
		return "", fmt.Errorf("claude api error: %w", err)
	}

	var b strings.Builder
	for _, block := range resp.Content {
		switch blockType := block.AsAny().(type) {
		case anthropic.TextBlock:
			b.WriteString(blockType.Text)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("claude returned no text content")
	}
	return b.String(), nil
}
