package llm

import (
	"context"

	"github.com/sashabaranov/go-openai"

	"github.com/comigor/bad-employee-go/internal/config"
)

const (
	geminiBaseURL      = "https://generativelanguage.googleapis.com/v1beta/openai/"
	defaultGeminiModel = "gemini-1.5-flash"
	defaultOpenAIModel = "gpt-4o-mini"
)

// NewClient creates a new OpenAI-compatible client. The gemini provider
// talks to Gemini through its OpenAI-compatible endpoint.
func NewClient(cfg config.LLMConfig) *openai.Client {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	} else if cfg.Provider == "gemini" {
		config.BaseURL = geminiBaseURL
	}

	return openai.NewClientWithConfig(config)
}

// ModelFor returns the configured model or the provider default.
func ModelFor(cfg config.LLMConfig) string {
	if cfg.Model != "" {
		return cfg.Model
	}
	if cfg.Provider == "openai" {
		return defaultOpenAIModel
	}
	return defaultGeminiModel
}

// OpenAIBackend adapts a chat completion client to Backend.
type OpenAIBackend struct {
	client Client
	model  string
}

func NewOpenAIBackend(client Client, model string) *OpenAIBackend {
	return &OpenAIBackend{client: client, model: model}
}

func (b *OpenAIBackend) Generate(ctx context.Context, turns []Turn) (*Response, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(turns))
	for _, t := range turns {
		role := openai.ChatMessageRoleUser
		if t.Role == RoleModel {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: t.Text})
	}

	resp, err := b.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    b.model,
		Messages: messages,
	})
	if err != nil {
		return nil, err
	}
	return fromCompletion(resp), nil
}

// fromCompletion maps a completion onto the shared shapes: multi-part
// content of the first choice becomes Parts, every choice a Candidate.
func fromCompletion(resp openai.ChatCompletionResponse) *Response {
	out := &Response{}
	if len(resp.Choices) == 0 {
		return out
	}
	for _, p := range resp.Choices[0].Message.MultiContent {
		if p.Type == openai.ChatMessagePartTypeText {
			out.Parts = append(out.Parts, Part{Text: p.Text})
		}
	}
	for _, c := range resp.Choices {
		out.Candidates = append(out.Candidates, Candidate{Content: c.Message.Content})
	}
	return out
}
