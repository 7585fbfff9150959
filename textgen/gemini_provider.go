package textgen

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai/jsonschema"
	"google.golang.org/genai"
)

// DefaultGeminiModel is used when no text model is configured.
const DefaultGeminiModel = "gemini-2.5-pro"

// GeminiProvider implements Provider with the Gemini API's structured output
// mode: the reply MIME type is forced to JSON and constrained by a schema.
//
// Thread Safety: GeminiProvider is safe for concurrent use.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// Compile-time check that GeminiProvider implements Provider.
var _ Provider = (*GeminiProvider)(nil)

// NewGeminiProvider wraps a shared genai client. An empty model selects
// DefaultGeminiModel.
func NewGeminiProvider(client *genai.Client, model string) *GeminiProvider {
	model = strings.TrimPrefix(strings.TrimSpace(model), "models/")
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiProvider{client: client, model: model}
}

// Name returns "gemini".
func (p *GeminiProvider) Name() string { return "gemini" }

// Model returns the model identifier.
func (p *GeminiProvider) Model() string { return p.model }

// Complete sends the instruction followed by any images as a single user turn.
func (p *GeminiProvider) Complete(ctx context.Context, req Request) (string, error) {
	parts := []*genai.Part{genai.NewPartFromText(req.Instruction)}
	for _, img := range req.Images {
		data, err := img.Bytes()
		if err != nil {
			return "", err
		}
		parts = append(parts, genai.NewPartFromBytes(data, img.MIMEType))
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}
	if req.Schema.Definition != nil {
		config.ResponseSchema = toGenaiSchema(req.Schema.Definition)
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.model,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, config)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	return candidateText(resp)
}

// candidateText concatenates the text parts of the first candidate.
func candidateText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		if resp != nil && resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("prompt blocked: %s", resp.PromptFeedback.BlockReason)
		}
		return "", ErrEmptyResponse
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && !part.Thought {
			b.WriteString(part.Text)
		}
	}
	return b.String(), nil
}

// toGenaiSchema converts a JSON schema definition into Gemini's schema
// dialect. Property ordering follows the definition's required list, which
// mirrors Go field order.
func toGenaiSchema(d *jsonschema.Definition) *genai.Schema {
	s := &genai.Schema{
		Description: d.Description,
		Enum:        d.Enum,
		Required:    d.Required,
	}

	switch d.Type {
	case jsonschema.Object:
		s.Type = genai.TypeObject
	case jsonschema.Array:
		s.Type = genai.TypeArray
	case jsonschema.String:
		s.Type = genai.TypeString
	case jsonschema.Integer:
		s.Type = genai.TypeInteger
	case jsonschema.Number:
		s.Type = genai.TypeNumber
	case jsonschema.Boolean:
		s.Type = genai.TypeBoolean
	}

	if len(d.Properties) > 0 {
		s.Properties = make(map[string]*genai.Schema, len(d.Properties))
		for name, prop := range d.Properties {
			s.Properties[name] = toGenaiSchema(&prop)
		}
		s.PropertyOrdering = d.Required
	}
	if d.Items != nil {
		s.Items = toGenaiSchema(d.Items)
	}
	return s
}
