package agent

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const llmMaxRetries = 3

// LLM answers free-form guest questions the deterministic handlers do not
// cover. It is optional; with no API key the agent falls back to a canned
// reply.
type LLM struct {
	client *openai.Client
	model  string
}

func NewLLM(apiKey, model string) *LLM {
	if apiKey == "" {
		return nil
	}
	return &LLM{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// Chat sends the conversation to the model, retrying transient failures
// with backoff and jitter.
func (l *LLM) Chat(ctx context.Context, system string, history []openai.ChatCompletionMessage, userMsg string) (string, error) {
	if l == nil {
		return "", fmt.Errorf("llm not configured")
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: system,
	})
	messages = append(messages, history...)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: userMsg,
	})

	var lastErr error
	for attempt := 0; attempt < llmMaxRetries; attempt++ {
		if attempt > 0 {
			baseDelay := time.Duration(attempt*3) * time.Second
			jitter := time.Duration(rand.Intn(3)) * time.Second
			select {
			case <-time.After(baseDelay + jitter):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		resp, err := l.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       l.model,
			Messages:    messages,
			Temperature: 0.3,
			MaxTokens:   500,
		})
		if err != nil {
			lastErr = err
			fmt.Printf("Warning: chat completion attempt %d failed: %v\n", attempt+1, err)
			continue
		}
		if len(resp.Choices) == 0 {
			lastErr = fmt.Errorf("chat completion returned no choices")
			continue
		}
		return resp.Choices[0].Message.Content, nil
	}
	return "", fmt.Errorf("chat completion failed after %d attempts: %w", llmMaxRetries, lastErr)
}
