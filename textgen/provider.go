// Package textgen is the generation client: it turns user prompts, blueprint
// images and existing structures into validated architectural records by
// exchanging one structured JSON request/response with a hosted text model.
//
// The package is layered the same way throughout:
//   - prompts.go: instruction templates (embedded YAML catalog)
//   - schema.go: response shapes declared once as Go types
//   - decode.go: reply extraction, decoding and contract validation
//   - gemini_provider.go / openai_provider.go: provider backends
//   - client.go: the three operations composing all of the above
package textgen

import (
	"context"
	"time"

	"spooktrunt/vision"

	"github.com/sashabaranov/go-openai/jsonschema"
)

// Operation names one generation client operation.
type Operation string

const (
	OpSummon  Operation = "summon"
	OpRevive  Operation = "revive"
	OpAnalyze Operation = "analyze"
)

// Schema is a named JSON schema describing the required reply shape.
type Schema struct {
	Name       string
	Definition *jsonschema.Definition
}

// Request is one structured exchange with a text provider.
type Request struct {
	Op          Operation
	Instruction string
	// Images are attached after the instruction, in order.
	Images []vision.Payload
	Schema Schema
}

// Provider is the interface for text generation backends.
//
// Complete performs exactly one request/response exchange and returns the raw
// reply text. Implementations must be safe for concurrent use and must not
// retry.
type Provider interface {
	Complete(ctx context.Context, req Request) (string, error)

	// Name identifies the backend ("gemini", "openai").
	Name() string

	// Model returns the model identifier requests are sent to.
	Model() string
}

// CallObserver receives the outcome of every provider exchange. The metrics
// collector implements it.
type CallObserver interface {
	ObserveProviderCall(kind, provider, operation string, elapsed time.Duration, err error)
}

type nopObserver struct{}

func (nopObserver) ObserveProviderCall(string, string, string, time.Duration, error) {}
