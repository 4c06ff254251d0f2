package litellm

import "context"

// ChatGateway binds a Client to one model and token budget, exposing the
// plain system+user chat shape the generator consumes.
type ChatGateway struct {
	client    *Client
	model     string
	maxTokens int
}

// NewChatGateway creates a gateway for the configured generation model.
func NewChatGateway(client *Client, model string, maxTokens int) *ChatGateway {
	return &ChatGateway{client: client, model: model, maxTokens: maxTokens}
}

// Chat runs one completion and returns the model's text.
func (g *ChatGateway) Chat(ctx context.Context, system, user string) (string, error) {
	return g.client.ChatCompletion(ctx, ChatCompletionRequest{
		Model:     g.model,
		MaxTokens: g.maxTokens,
		Messages: []ChatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	})
}
