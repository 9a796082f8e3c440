package gemini

import (
	"context"
	"fmt"
	"iter"

	"google.golang.org/genai"
)

// backend is the part of the Gemini API the provider depends on.
type backend interface {
	Generate(ctx context.Context, prompt string) (string, error)
	NewChat(ctx context.Context) (chat, error)
}

// chat is one multi-turn conversation. SendStream yields the text of each
// streamed response piece, not the accumulated answer.
type chat interface {
	SendStream(ctx context.Context, prompt string) iter.Seq2[string, error]
}

type genaiBackend struct {
	client *genai.Client
	model  string
	config *genai.GenerateContentConfig
}

func newGenaiBackend(ctx context.Context, cfg Config, instructions string) (*genaiBackend, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &genaiBackend{
		client: client,
		model:  cfg.Model,
		config: &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(instructions, genai.RoleUser),
			Temperature:       genai.Ptr[float32](0.3),
			MaxOutputTokens:   1024,
		},
	}, nil
}

func (b *genaiBackend) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := b.client.Models.GenerateContent(ctx, b.model, genai.Text(prompt), b.config)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

func (b *genaiBackend) NewChat(ctx context.Context) (chat, error) {
	c, err := b.client.Chats.Create(ctx, b.model, b.config, nil)
	if err != nil {
		return nil, fmt.Errorf("create chat: %w", err)
	}
	return &genaiChat{chat: c}, nil
}

type genaiChat struct {
	chat *genai.Chat
}

func (c *genaiChat) SendStream(ctx context.Context, prompt string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for resp, err := range c.chat.SendMessageStream(ctx, genai.Part{Text: prompt}) {
			if err != nil {
				yield("", err)
				return
			}
			if !yield(resp.Text(), nil) {
				return
			}
		}
	}
}
