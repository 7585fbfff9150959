package imagegen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"spooktrunt/logging"
	"spooktrunt/structure"

	"go.uber.org/zap"
)

// Errors returned by the image client.
var (
	ErrEmptyPrompt = errors.New("imagegen: prompt cannot be empty")
	ErrNoImage     = errors.New("imagegen: provider returned no image")
)

// Provider is the interface for image generation backends.
//
// Generate performs exactly one exchange and returns the first rendered image.
// Implementations request a single image at their configured aspect ratio and
// encoding, and never retry.
type Provider interface {
	Generate(ctx context.Context, prompt string) (structure.Image, error)

	// Name identifies the backend ("gemini", "openai").
	Name() string

	// Model returns the configured image model name.
	Model() string
}

// ProviderError reports a failed image exchange, including a reply without
// any usable image.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("imagegen: %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// CallObserver receives the outcome of every provider exchange.
type CallObserver interface {
	ObserveProviderCall(kind, provider, operation string, elapsed time.Duration, err error)
}

// Generator is the image client used by the studio. It validates the prompt,
// times the call and normalizes failures into *ProviderError.
//
// Thread Safety: Generator is safe for concurrent use.
type Generator struct {
	provider Provider
	observer CallObserver
	logger   *logging.Logger
}

// NewGenerator creates an image client around provider. observer may be nil.
func NewGenerator(provider Provider, observer CallObserver, logger *logging.Logger) *Generator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Generator{
		provider: provider,
		observer: observer,
		logger:   logger.Named("imagegen"),
	}
}

// Generate renders one image for prompt. op labels the studio operation the
// call belongs to, for logs and metrics.
func (g *Generator) Generate(ctx context.Context, op, prompt string) (structure.Image, error) {
	if strings.TrimSpace(prompt) == "" {
		return structure.Image{}, ErrEmptyPrompt
	}

	start := time.Now()
	img, err := g.provider.Generate(ctx, prompt)
	if err == nil && len(img.Data) == 0 {
		err = ErrNoImage
	}
	if g.observer != nil {
		g.observer.ObserveProviderCall("image", g.provider.Name(), op, time.Since(start), err)
	}

	if err != nil {
		g.logger.Error("image provider call failed",
			logging.Operation(op),
			logging.Provider(g.provider.Name(), g.provider.Model()),
			logging.Elapsed(start),
			zap.Error(err))
		var pe *ProviderError
		if errors.As(err, &pe) {
			return structure.Image{}, pe
		}
		return structure.Image{}, &ProviderError{Provider: g.provider.Name(), Err: err}
	}

	g.logger.Debug("image rendered",
		logging.Operation(op),
		logging.Provider(g.provider.Name(), g.provider.Model()),
		logging.Elapsed(start),
		zap.Int("bytes", len(img.Data)),
		zap.String("mime_type", img.MIMEType))
	return img, nil
}
