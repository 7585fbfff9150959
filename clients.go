package main

import (
	"context"
	"fmt"
	"net/http"

	"spooktrunt/core"
	"spooktrunt/imagegen"
	"spooktrunt/logging"
	"spooktrunt/textgen"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

// providerObserver is satisfied by *metrics.Recorder.
type providerObserver interface {
	textgen.CallObserver
	imagegen.CallObserver
}

// clientFactory creates each backend client at most once so that the text
// and image providers share connection pools when they use the same
// backend.
type clientFactory struct {
	cfg        *core.Config
	httpClient *http.Client

	gemini *genai.Client
	openai *openai.Client
}

func newClientFactory(cfg *core.Config) *clientFactory {
	return &clientFactory{
		cfg:        cfg,
		httpClient: core.GetHTTPClient(cfg, cfg.AITimeout),
	}
}

func (f *clientFactory) geminiClient(ctx context.Context) (*genai.Client, error) {
	if f.gemini != nil {
		return f.gemini, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     f.cfg.GeminiAPIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: f.httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	f.gemini = client
	return client, nil
}

func (f *clientFactory) openaiClient() *openai.Client {
	if f.openai != nil {
		return f.openai
	}
	clientConfig := openai.DefaultConfig(f.cfg.OpenAIAPIKey)
	if f.cfg.OpenAIBaseURL != "" {
		clientConfig.BaseURL = f.cfg.OpenAIBaseURL
	}
	clientConfig.HTTPClient = f.httpClient
	f.openai = openai.NewClientWithConfig(clientConfig)
	return f.openai
}

// newTextClient builds the text client for cfg.TextProvider.
func (f *clientFactory) newTextClient(ctx context.Context, observer providerObserver, logger *logging.Logger) (*textgen.Client, error) {
	prompts, err := loadPrompts(f.cfg.PromptCatalogPath)
	if err != nil {
		return nil, err
	}

	var provider textgen.Provider
	switch f.cfg.TextProvider {
	case core.ProviderOpenAI:
		provider = textgen.NewOpenAIProvider(f.openaiClient(), f.cfg.TextModel)
	default:
		client, err := f.geminiClient(ctx)
		if err != nil {
			return nil, err
		}
		provider = textgen.NewGeminiProvider(client, f.cfg.TextModel)
	}

	logger.Info("text provider ready", logging.Provider(provider.Name(), provider.Model()))
	return textgen.NewClient(provider, prompts, logger, textgen.WithObserver(observer)), nil
}

// newImageGenerator builds the image client for cfg.ImageProvider.
func (f *clientFactory) newImageGenerator(ctx context.Context, observer providerObserver, logger *logging.Logger) (*imagegen.Generator, error) {
	var (
		provider imagegen.Provider
		err      error
	)
	switch f.cfg.ImageProvider {
	case core.ProviderOpenAI:
		provider, err = imagegen.NewOpenAIProvider(f.openaiClient(), imagegen.OpenAIProviderConfig{
			BaseURL:     f.cfg.OpenAIBaseURL,
			Model:       f.cfg.ImageModel,
			AspectRatio: f.cfg.ImageAspectRatio,
		})
	default:
		var client *genai.Client
		if client, err = f.geminiClient(ctx); err != nil {
			return nil, err
		}
		provider, err = imagegen.NewGeminiProvider(client, imagegen.GeminiProviderConfig{
			Model:       f.cfg.ImageModel,
			AspectRatio: f.cfg.ImageAspectRatio,
			MIMEType:    f.cfg.ImageMIMEType,
		})
	}
	if err != nil {
		return nil, err
	}

	logger.Info("image provider ready",
		logging.Provider(provider.Name(), provider.Model()),
		zap.String("aspect_ratio", f.cfg.ImageAspectRatio))
	return imagegen.NewGenerator(provider, observer, logger), nil
}

func loadPrompts(path string) (*textgen.PromptCatalog, error) {
	if path == "" {
		return textgen.DefaultPromptCatalog()
	}
	prompts, err := textgen.LoadPromptCatalog(path)
	if err != nil {
		return nil, fmt.Errorf("load prompt catalog: %w", err)
	}
	return prompts, nil
}
