package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const openAIMaxTokens = 4096

// OpenAIGenerator generates text with OpenAI's chat completion API.
type OpenAIGenerator struct {
	client    *openai.Client
	modelName string
}

// NewOpenAIGenerator creates a new OpenAI generator instance.
func NewOpenAIGenerator(apiKey, modelName string) (*OpenAIGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if modelName == "" {
		return nil, fmt.Errorf("model name is required")
	}

	client := openai.NewClient(option.WithAPIKey(apiKey))

	return &OpenAIGenerator{
		client:    &client,
		modelName: modelName,
	}, nil
}

// Name returns the model name.
func (o *OpenAIGenerator) Name() string {
	return o.modelName
}

// Generate performs a non-streaming completion request.
func (o *OpenAIGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if system != "" {
		messages = append(messages, openai.SystemMessage(system))
	}
	messages = append(messages, openai.UserMessage(prompt))

	completion, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:     o.modelName,
		MaxTokens: openai.Int(openAIMaxTokens),
		Messages:  messages,
	})
	if err != nil {
		return "", fmt.Errorf("openai API error: %w", err)
	}

	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}
	return completion.Choices[0].Message.Content, nil
}
