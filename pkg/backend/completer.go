package backend

import (
	"context"
	"strings"

	"github.com/Yiozolm/Knode/pkg/conversation"
	"github.com/pkg/errors"
	go_openai "github.com/sashabaranov/go-openai"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type ChatMessage struct {
	Role    Role
	Content string
}

type CompletionRequest struct {
	Model       string
	Messages    []ChatMessage
	Temperature float32
	MaxTokens   int
}

type Completion struct {
	Content string
	Usage   conversation.TokenUsage
}

// Completer answers a chat history.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
}

// OpenAICompleter talks to any OpenAI compatible chat completion endpoint.
type OpenAICompleter struct {
	client *go_openai.Client
}

func MakeClient(apiKey string, baseURL string) (*go_openai.Client, error) {
	if apiKey == "" {
		return nil, errors.New("no API key for openai compatible endpoint")
	}
	config := go_openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return go_openai.NewClientWithConfig(config), nil
}

func NewOpenAICompleter(client *go_openai.Client) *OpenAICompleter {
	return &OpenAICompleter{client: client}
}

func (c *OpenAICompleter) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	msgs := make([]go_openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		msgs = append(msgs, go_openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content})
	}
	resp, err := c.client.CreateChatCompletion(ctx, go_openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    msgs,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		var apiErr *go_openai.APIError
		if errors.As(err, &apiErr) {
			return nil, &BackendRejection{Op: "complete", Message: apiErr.Message, StatusCode: apiErr.HTTPStatusCode}
		}
		return nil, &NetworkFailure{Op: "complete", Err: err}
	}
	if len(resp.Choices) == 0 {
		return nil, &BackendRejection{Op: "complete", Message: "model returned no choices"}
	}
	content := resp.Choices[0].Message.Content
	usage := conversation.TokenUsage{
		Input:  resp.Usage.PromptTokens,
		Output: resp.Usage.CompletionTokens,
	}
	if resp.Usage.TotalTokens == 0 && usage.Input == 0 && usage.Output == 0 {
		usage = EstimateUsage(req.Messages, content)
	}
	return &Completion{Content: content, Usage: usage}, nil
}

var _ Completer = (*OpenAICompleter)(nil)
