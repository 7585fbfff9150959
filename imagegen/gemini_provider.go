package imagegen

import (
	"context"
	"fmt"
	"strings"

	"spooktrunt/structure"

	"google.golang.org/genai"
)

// Gemini image defaults.
const (
	DefaultGeminiModel = "imagen-4.0-generate-001"
	DefaultAspectRatio = "16:9"
	DefaultMIMEType    = "image/jpeg"
)

// GeminiProvider implements Provider with Imagen through the Gemini API.
//
// Thread Safety: GeminiProvider is safe for concurrent use.
type GeminiProvider struct {
	client      *genai.Client
	model       string
	aspectRatio string
	mimeType    string
}

// Compile-time check that GeminiProvider implements Provider.
var _ Provider = (*GeminiProvider)(nil)

// GeminiProviderConfig holds Imagen request settings. Zero values use the
// package defaults.
type GeminiProviderConfig struct {
	Model       string
	AspectRatio string
	MIMEType    string
}

// NewGeminiProvider wraps a shared genai client.
//
// Returns an error if the aspect ratio is not one Imagen accepts.
func NewGeminiProvider(client *genai.Client, cfg GeminiProviderConfig) (*GeminiProvider, error) {
	if client == nil {
		return nil, fmt.Errorf("imagegen: genai client cannot be nil")
	}
	p := &GeminiProvider{
		client:      client,
		model:       strings.TrimPrefix(strings.TrimSpace(cfg.Model), "models/"),
		aspectRatio: cfg.AspectRatio,
		mimeType:    cfg.MIMEType,
	}
	if p.model == "" {
		p.model = DefaultGeminiModel
	}
	if p.aspectRatio == "" {
		p.aspectRatio = DefaultAspectRatio
	}
	if p.mimeType == "" {
		p.mimeType = DefaultMIMEType
	}
	if !ValidGeminiAspectRatio(p.aspectRatio) {
		return nil, fmt.Errorf("imagegen: unsupported aspect ratio %q", p.aspectRatio)
	}
	return p, nil
}

// Name returns "gemini".
func (p *GeminiProvider) Name() string { return "gemini" }

// Model returns the configured image model name.
func (p *GeminiProvider) Model() string { return p.model }

// Generate requests exactly one image and returns the first result.
func (p *GeminiProvider) Generate(ctx context.Context, prompt string) (structure.Image, error) {
	resp, err := p.client.Models.GenerateImages(ctx, p.model, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		OutputMIMEType: p.mimeType,
		AspectRatio:    p.aspectRatio,
	})
	if err != nil {
		return structure.Image{}, fmt.Errorf("generate images: %w", err)
	}

	if resp == nil || len(resp.GeneratedImages) == 0 {
		return structure.Image{}, ErrNoImage
	}
	first := resp.GeneratedImages[0]
	if first.Image == nil || len(first.Image.ImageBytes) == 0 {
		if first.RAIFilteredReason != "" {
			return structure.Image{}, fmt.Errorf("%w: filtered: %s", ErrNoImage, first.RAIFilteredReason)
		}
		return structure.Image{}, ErrNoImage
	}

	mimeType := first.Image.MIMEType
	if mimeType == "" {
		mimeType = p.mimeType
	}
	return structure.Image{Data: first.Image.ImageBytes, MIMEType: mimeType}, nil
}
