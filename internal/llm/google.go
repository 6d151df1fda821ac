package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	googleoption "google.golang.org/api/option"
)

// googleProvider implements Provider using the Google Generative AI SDK.
// A new genai.Client is created per Complete call so that the caller's
// context governs the connection and the client is always closed after use.
type googleProvider struct {
	apiKey string
	model  string
}

func newGoogleProvider(cfg ProviderConfig) (Provider, error) {
	key, err := apiKey(cfg, "GOOGLE_API_KEY")
	if err != nil {
		return nil, err
	}
	return &googleProvider{apiKey: key, model: cfg.Model}, nil
}

func (p *googleProvider) Complete(ctx context.Context, req Request) (string, error) {
	client, err := genai.NewClient(ctx, googleoption.WithAPIKey(p.apiKey))
	if err != nil {
		return "", fmt.Errorf("google: genai client: %w", err)
	}
	defer client.Close()

	m := client.GenerativeModel(p.model)
	m.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(req.System)},
	}
	maxOut := int32(req.MaxTokens)
	m.MaxOutputTokens = &maxOut
	temp32 := float32(req.Temperature)
	m.Temperature = &temp32
	if req.JSON {
		m.ResponseMIMEType = "application/json"
	}

	resp, err := m.GenerateContent(ctx, genai.Text(req.User))
	if err != nil {
		return "", fmt.Errorf("google: generate content: %w", err)
	}

	var parts []string
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				parts = append(parts, string(t))
			}
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("google: response contained no text content")
	}
	return strings.Join(parts, ""), nil
}
