package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"daily-planner-ai/internal/config"
	"daily-planner-ai/internal/intent"
	"daily-planner-ai/internal/model"
)

// ErrEmptyReply is returned when the model answers with no content.
var ErrEmptyReply = errors.New("assistant returned an empty reply")

// Sender sends one user message, with prior turns, and returns the raw reply.
type Sender interface {
	Send(ctx context.Context, text string, history []model.ChatMessage) (string, error)
}

// Client talks to an OpenAI-compatible chat model.
type Client struct {
	llm          llms.Model
	systemPrompt string
	temperature  float64
	maxTokens    int
}

// New builds a Client from configuration.
func New(cfg config.AssistantConfig) (*Client, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("assistant token is not configured")
	}
	llm, err := openai.New(
		openai.WithToken(cfg.Token),
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("create assistant client: %w", err)
	}
	return NewWithModel(llm, cfg.Temperature, cfg.MaxTokens), nil
}

// NewWithModel wraps an existing llms.Model.
func NewWithModel(llm llms.Model, temperature float64, maxTokens int) *Client {
	if maxTokens <= 0 {
		maxTokens = 500
	}
	return &Client{
		llm:          llm,
		systemPrompt: intent.SystemPrompt,
		temperature:  temperature,
		maxTokens:    maxTokens,
	}
}

func (c *Client) Send(ctx context.Context, text string, history []model.ChatMessage) (string, error) {
	resp, err := c.llm.GenerateContent(ctx, c.messages(text, history),
		llms.WithTemperature(c.temperature),
		llms.WithMaxTokens(c.maxTokens),
	)
	if err != nil {
		return "", fmt.Errorf("generate reply: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", ErrEmptyReply
	}
	content := strings.TrimSpace(resp.Choices[0].Content)
	if content == "" {
		return "", ErrEmptyReply
	}
	return content, nil
}

func (c *Client) messages(text string, history []model.ChatMessage) []llms.MessageContent {
	msgs := make([]llms.MessageContent, 0, len(history)+2)
	msgs = append(msgs, llms.TextParts(llms.ChatMessageTypeSystem, c.systemPrompt))
	for _, m := range history {
		switch {
		case m.IsUser():
			msgs = append(msgs, llms.TextParts(llms.ChatMessageTypeHuman, m.Text))
		case m.Role == model.RoleAssistant:
			msgs = append(msgs, llms.TextParts(llms.ChatMessageTypeAI, m.Text))
		}
	}
	msgs = append(msgs, llms.TextParts(llms.ChatMessageTypeHuman, text))
	return msgs
}
