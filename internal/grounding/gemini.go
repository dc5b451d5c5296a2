// File: internal/grounding/gemini.go
package grounding

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/gazerhq/gazer/internal/config"
)

// GeminiVision is the production VisionModel backed by the Gemini API.
type GeminiVision struct {
	client      *genai.Client
	model       string
	temperature float32
}

// NewGeminiVision creates the Gemini-backed vision model from configuration.
func NewGeminiVision(ctx context.Context, cfg config.GroundingConfig) (*GeminiVision, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("grounding API key is not configured")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return &GeminiVision{
		client:      client,
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}, nil
}

// ModelName returns the configured model identifier.
func (g *GeminiVision) ModelName() string { return g.model }

// Generate sends the annotated screenshot and prompt in a single user turn
// and returns the raw text reply.
func (g *GeminiVision) Generate(ctx context.Context, image []byte, prompt string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(image, "image/png"),
			{Text: prompt},
		}, genai.RoleUser),
	}
	genCfg := &genai.GenerateContentConfig{
		Temperature:       genai.Ptr(g.temperature),
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		ResponseMIMEType:  "application/json",
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, genCfg)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	return resp.Text(), nil
}
