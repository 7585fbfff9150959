package imagegen

import (
	"context"
	"encoding/base64"
	"fmt"

	"spooktrunt/structure"
	"spooktrunt/vision"

	"github.com/sashabaranov/go-openai"
)

// DefaultOpenAIModel is used when no image model is configured.
const DefaultOpenAIModel = "dall-e-3"

// OpenAIProvider implements Provider for the OpenAI images API.
//
// Images are requested as base64 JSON so nothing has to be downloaded from a
// temporary URL afterwards. gpt-image models return base64 without being asked.
//
// Thread Safety: OpenAIProvider is safe for concurrent use.
// The underlying OpenAI client handles connection pooling.
type OpenAIProvider struct {
	client *openai.Client
	model  string
	size   string
}

// Compile-time check that OpenAIProvider implements Provider.
var _ Provider = (*OpenAIProvider)(nil)

// OpenAIProviderConfig holds configuration specific to the OpenAI provider.
type OpenAIProviderConfig struct {
	// BaseURL is the endpoint the client talks to. Local endpoints are
	// rejected because they do not serve the images API.
	BaseURL string

	// Model is the image model to use (default: dall-e-3)
	Model string

	// AspectRatio is mapped onto the nearest supported size (default: 16:9)
	AspectRatio string
}

// NewOpenAIProvider creates an OpenAI image provider on top of client, which
// may be shared with the text provider.
//
// Returns an error if:
//   - The client is nil
//   - The endpoint is a local endpoint, which does not serve the images API
//   - The aspect ratio has no supported size
//
// Example:
//
//	provider, err := imagegen.NewOpenAIProvider(client, imagegen.OpenAIProviderConfig{
//	    BaseURL:     cfg.OpenAIBaseURL,
//	    Model:       cfg.ImageModel,
//	    AspectRatio: cfg.ImageAspectRatio,
//	})
func NewOpenAIProvider(client *openai.Client, cfg OpenAIProviderConfig) (*OpenAIProvider, error) {
	if client == nil {
		return nil, fmt.Errorf("imagegen: OpenAI client is required for image generation")
	}
	if IsLocalEndpoint(cfg.BaseURL) {
		return nil, fmt.Errorf("imagegen: local endpoint (%s) does not serve the images API; "+
			"configure OPENAI_BASE_URL or use IMAGE_PROVIDER=gemini", cfg.BaseURL)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	aspectRatio := cfg.AspectRatio
	if aspectRatio == "" {
		aspectRatio = DefaultAspectRatio
	}
	size, err := OpenAISizeFor(model, aspectRatio)
	if err != nil {
		return nil, err
	}
	return &OpenAIProvider{client: client, model: model, size: size}, nil
}

// Name returns "openai".
func (p *OpenAIProvider) Name() string { return "openai" }

// Model returns the configured image model name.
func (p *OpenAIProvider) Model() string { return p.model }

// Generate creates one image and decodes its base64 payload.
func (p *OpenAIProvider) Generate(ctx context.Context, prompt string) (structure.Image, error) {
	req := openai.ImageRequest{
		Prompt: prompt,
		Model:  p.model,
		N:      1,
		Size:   p.size,
	}
	// gpt-image models always answer in base64 and reject response_format.
	if !isGPTImageModel(p.model) {
		req.ResponseFormat = openai.CreateImageResponseFormatB64JSON
	}
	if p.model == DefaultOpenAIModel {
		req.Style = openai.CreateImageStyleVivid
		req.Quality = openai.CreateImageQualityHD
	}

	resp, err := p.client.CreateImage(ctx, req)
	if err != nil {
		return structure.Image{}, fmt.Errorf("create image: %w", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return structure.Image{}, ErrNoImage
	}

	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return structure.Image{}, fmt.Errorf("decode image: %w", err)
	}
	return structure.Image{Data: data, MIMEType: vision.DetectMIME(data)}, nil
}
