// File: internal/grounding/resolver.go

// Package grounding resolves natural-language element descriptions into
// pixel coordinates. A resolution is one detector round trip plus one vision
// model call; there is no retry layer, a failed resolution fails the tool
// call that requested it.
package grounding

import (
	"context"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/gazerhq/gazer/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// visionModelPrefixes lists model families known to accept image input.
// Grounding is impossible without vision, so construction fails fast on
// anything else.
var visionModelPrefixes = []string{
	"gemini-1.5",
	"gemini-2.0",
	"gemini-2.5",
	"gemini-3",
}

// Detector produces an annotated screenshot and the element inventory for a
// raw screenshot.
type Detector interface {
	Parse(ctx context.Context, screenshot []byte) ([]byte, []schemas.UIElement, error)
}

// VisionModel answers a text prompt about an image.
type VisionModel interface {
	// Generate returns the model's raw text reply for the annotated
	// screenshot and prompt.
	Generate(ctx context.Context, image []byte, prompt string) (string, error)
	// ModelName identifies the underlying model.
	ModelName() string
}

// Resolver turns element descriptions into viewport pixel coordinates.
type Resolver struct {
	detector Detector
	model    VisionModel
	logger   *zap.Logger
}

// NewResolver builds a resolver. It fails if the configured model is not a
// known vision-capable family.
func NewResolver(detector Detector, model VisionModel, logger *zap.Logger) (*Resolver, error) {
	if detector == nil {
		return nil, fmt.Errorf("%w: detector is required", schemas.ErrInvalidInput)
	}
	if model == nil {
		return nil, fmt.Errorf("%w: vision model is required", schemas.ErrInvalidInput)
	}
	if !supportsVision(model.ModelName()) {
		return nil, fmt.Errorf("%w: model %q does not support image input", schemas.ErrInvalidInput, model.ModelName())
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		detector: detector,
		model:    model,
		logger:   logger.Named("grounding"),
	}, nil
}

func supportsVision(model string) bool {
	for _, prefix := range visionModelPrefixes {
		if strings.HasPrefix(model, prefix) {
			return true
		}
	}
	return false
}

// Locate resolves description to a pixel coordinate on screenshot. The
// returned coordinate is in the screenshot's own pixel space.
func (r *Resolver) Locate(ctx context.Context, screenshot []byte, description string) (float64, float64, error) {
	if strings.TrimSpace(description) == "" {
		return 0, 0, fmt.Errorf("%w: empty element description", schemas.ErrInvalidInput)
	}
	if len(screenshot) == 0 {
		return 0, 0, fmt.Errorf("%w: empty screenshot", schemas.ErrInvalidInput)
	}

	annotated, elements, err := r.detector.Parse(ctx, screenshot)
	if err != nil {
		return 0, 0, err
	}

	reply, err := r.model.Generate(ctx, annotated, buildUserPrompt(description, elements))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", schemas.ErrUpstreamGrounding, err)
	}

	x, y, err := parseCenter(reply)
	if err != nil {
		r.logger.Warn("Grounding reply rejected",
			zap.String("description", description),
			zap.String("reply", truncate(reply, 200)),
			zap.Error(err))
		return 0, 0, err
	}

	r.logger.Debug("Element located",
		zap.String("description", description),
		zap.Float64("x", x),
		zap.Float64("y", y))
	return x, y, nil
}

// parseCenter validates the model reply against the required output shape
// {"center": [x, y]}. Anything else is an ErrUpstreamGrounding.
func parseCenter(reply string) (float64, float64, error) {
	cleaned := stripFences(reply)

	var payload struct {
		Center *[]float64 `json:"center"`
	}
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return 0, 0, fmt.Errorf("%w: reply is not a JSON object: %v", schemas.ErrUpstreamGrounding, err)
	}
	if payload.Center == nil {
		return 0, 0, fmt.Errorf("%w: reply missing \"center\" key", schemas.ErrUpstreamGrounding)
	}
	center := *payload.Center
	if len(center) != 2 {
		return 0, 0, fmt.Errorf("%w: \"center\" must hold exactly two numbers, got %d", schemas.ErrUpstreamGrounding, len(center))
	}
	return center[0], center[1], nil
}

// stripFences removes a markdown code fence wrapper if the model added one
// despite instructions.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
