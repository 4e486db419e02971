// server/llm/client.go
package llm

import (
	"context"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Completer is the slice of an LLM provider this service needs. A nil
// Completer means no credentials were configured.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Stream(ctx context.Context, prompt string, fn func(chunk string) error) error
}

// OpenAIClient wraps langchaingo's OpenAI-compatible client. Built once at
// startup from config; read-only afterwards.
type OpenAIClient struct {
	model *openai.LLM
}

func NewOpenAIClient(token, model, baseURL string) (*OpenAIClient, error) {
	opts := []openai.Option{
		openai.WithToken(token),
		openai.WithModel(model),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, err
	}
	return &OpenAIClient{model: llm}, nil
}

func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, c.model, prompt)
}

func (c *OpenAIClient) Stream(ctx context.Context, prompt string, fn func(chunk string) error) error {
	_, err := llms.GenerateFromSinglePrompt(ctx, c.model, prompt,
		llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
			return fn(string(chunk))
		}))
	return err
}
