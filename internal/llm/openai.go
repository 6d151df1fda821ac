package llm

import (
	"context"
	"fmt"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// Base URLs for the OpenAI-compatible backends.
const (
	UpstageBaseURL = "https://api.upstage.ai/v1/solar"
	LocalBaseURL   = "http://localhost:11434/v1"
)

// openaiProvider implements Provider using the OpenAI SDK. Upstage and local
// Ollama servers speak the same protocol and reuse it with a different base
// URL.
type openaiProvider struct {
	client openai.Client
	model  string
	// jsonMode enables the json_object response format. Only the OpenAI API
	// is known to honour it.
	jsonMode bool
}

func newOpenAIProvider(cfg ProviderConfig) (Provider, error) {
	key, err := apiKey(cfg, "OPENAI_API_KEY")
	if err != nil {
		return nil, err
	}
	opts := []option.RequestOption{option.WithAPIKey(key)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &openaiProvider{client: openai.NewClient(opts...), model: cfg.Model, jsonMode: true}, nil
}

func newUpstageProvider(cfg ProviderConfig) (Provider, error) {
	key, err := apiKey(cfg, "UPSTAGE_API_KEY")
	if err != nil {
		return nil, err
	}
	base := cfg.BaseURL
	if base == "" {
		base = UpstageBaseURL
	}
	client := openai.NewClient(option.WithAPIKey(key), option.WithBaseURL(base))
	return &openaiProvider{client: client, model: cfg.Model}, nil
}

// newLocalProvider targets an Ollama server, which ignores the API key but
// the SDK requires one.
func newLocalProvider(cfg ProviderConfig) (Provider, error) {
	key := cfg.APIKey
	if key == "" {
		key = "ollama"
	}
	base := cfg.BaseURL
	if base == "" {
		base = LocalBaseURL
	}
	client := openai.NewClient(option.WithAPIKey(key), option.WithBaseURL(base))
	return &openaiProvider{client: client, model: cfg.Model}, nil
}

func (p *openaiProvider) Complete(ctx context.Context, req Request) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(p.model),
		MaxTokens:   openai.Int(int64(req.MaxTokens)),
		Temperature: openai.Float(req.Temperature),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.User),
		},
	}
	if req.JSON && p.jsonMode {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}
	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai: chat.completions.new: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: response contained no choices")
	}
	content := resp.Choices[0].Message.Content
	if content == "" {
		return "", fmt.Errorf("openai: response contained no content")
	}
	return content, nil
}
