package scout

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// GenerationClient produces text from a prompt. The pipeline treats the
// response as an opaque string; ParseSelections owns the schema.
type GenerationClient interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// OpenAIClient is the production GenerationClient backed by a
// chat-completions API.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

func NewOpenAIClient(apiKey, model string) *OpenAIClient {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIClient{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

func (c *OpenAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0.2,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("generation request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("generation returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
