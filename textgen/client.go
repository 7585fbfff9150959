package textgen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"spooktrunt/logging"
	"spooktrunt/structure"
	"spooktrunt/vision"

	"go.uber.org/zap"
)

// Result is a structure freshly produced by summon or revive, together with
// the prompt for rendering it.
type Result struct {
	Structure   structure.Structure
	ImagePrompt string
}

// Client performs the three generation operations against one Provider.
//
// Thread Safety: Client is safe for concurrent use.
type Client struct {
	provider Provider
	prompts  *PromptCatalog
	ids      *structure.IDMinter
	observer CallObserver
	logger   *logging.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithIDMinter replaces the identifier source, typically with a fixed clock
// in tests.
func WithIDMinter(m *structure.IDMinter) Option {
	return func(c *Client) { c.ids = m }
}

// WithObserver reports every provider exchange to o.
func WithObserver(o CallObserver) Option {
	return func(c *Client) { c.observer = o }
}

// NewClient creates a generation client.
//
// Example:
//
//	prompts, _ := textgen.DefaultPromptCatalog()
//	client := textgen.NewClient(textgen.NewGeminiProvider(gc, ""), prompts, logger)
//	res, err := client.Generate(ctx, "a lighthouse that swallows storms")
func NewClient(provider Provider, prompts *PromptCatalog, logger *logging.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = logging.NewNop()
	}
	c := &Client{
		provider: provider,
		prompts:  prompts,
		ids:      structure.NewIDMinter(nil),
		observer: nopObserver{},
		logger:   logger.Named("textgen"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Generate summons a new structure from a prose prompt.
func (c *Client) Generate(ctx context.Context, prompt string) (*Result, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, ErrEmptyPrompt
	}
	return c.generate(ctx, OpSummon, prompt, nil)
}

// Revive reinterprets an uploaded blueprint image into a new structure.
func (c *Client) Revive(ctx context.Context, prompt string, blueprint vision.Payload) (*Result, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, ErrEmptyPrompt
	}
	if blueprint.IsZero() {
		return nil, ErrMissingImage
	}
	return c.generate(ctx, OpRevive, prompt, []vision.Payload{blueprint})
}

func (c *Client) generate(ctx context.Context, op Operation, prompt string, images []vision.Payload) (*Result, error) {
	origin := structure.OriginSummon
	if op == OpRevive {
		origin = structure.OriginRevive
	}
	id := c.ids.Next(structure.PrefixFor(origin))

	instruction, err := c.prompts.Render(op, summonData{ID: id, Prompt: prompt})
	if err != nil {
		return nil, err
	}

	text, err := c.complete(ctx, Request{
		Op:          op,
		Instruction: instruction,
		Images:      images,
		Schema:      generationSchema,
	})
	if err != nil {
		return nil, err
	}

	var reply generationReply
	if err := decodeReply(op, text, &reply); err != nil {
		return nil, err
	}

	// The minted id is authoritative.
	if reply.Structure.ID != id {
		c.logger.Warn("provider did not echo structure id",
			logging.Operation(string(op)),
			zap.String("expected", id),
			zap.String("got", reply.Structure.ID))
		reply.Structure.ID = id
	}

	if err := structure.Validate(&reply); err != nil {
		return nil, &ParseError{Op: op, Snippet: snippet(text), Err: err}
	}

	return &Result{Structure: reply.Structure, ImagePrompt: reply.ImagePrompt}, nil
}

// Analyze critiques a structure together with its rendered image.
//
// The descriptor is embedded verbatim, as indented JSON with every field, in
// the instruction sent to the provider.
func (c *Client) Analyze(ctx context.Context, s structure.Structure, image vision.Payload) (*structure.FeasibilityReport, error) {
	if image.IsZero() {
		return nil, ErrMissingImage
	}

	instruction, err := c.AnalysisInstruction(s)
	if err != nil {
		return nil, err
	}

	text, err := c.complete(ctx, Request{
		Op:          OpAnalyze,
		Instruction: instruction,
		Images:      []vision.Payload{image},
		Schema:      feasibilitySchema,
	})
	if err != nil {
		return nil, err
	}

	var report structure.FeasibilityReport
	if err := decodeReply(OpAnalyze, text, &report); err != nil {
		return nil, err
	}
	if err := structure.Validate(&report); err != nil {
		return nil, &ParseError{Op: OpAnalyze, Snippet: snippet(text), Err: err}
	}
	return &report, nil
}

// AnalysisInstruction renders the analysis instruction for s.
func (c *Client) AnalysisInstruction(s structure.Structure) (string, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("textgen: encode structure: %w", err)
	}
	return c.prompts.Render(OpAnalyze, analyzeData{StructureJSON: string(data)})
}

// complete runs one provider exchange, timing it and normalizing failures
// into *ProviderError.
func (c *Client) complete(ctx context.Context, req Request) (string, error) {
	start := time.Now()
	text, err := c.provider.Complete(ctx, req)
	if err == nil && strings.TrimSpace(text) == "" {
		err = ErrEmptyResponse
	}
	c.observer.ObserveProviderCall("text", c.provider.Name(), string(req.Op), time.Since(start), err)

	if err != nil {
		var pe *ProviderError
		if !errors.As(err, &pe) {
			pe = &ProviderError{Op: req.Op, Provider: c.provider.Name(), Err: err}
		}
		c.logger.Error("text provider call failed",
			logging.Operation(string(req.Op)),
			logging.Provider(c.provider.Name(), c.provider.Model()),
			logging.Elapsed(start),
			zap.Error(err))
		return "", pe
	}

	c.logger.Debug("text provider call complete",
		logging.Operation(string(req.Op)),
		logging.Provider(c.provider.Name(), c.provider.Model()),
		logging.Elapsed(start),
		zap.Int("reply_bytes", len(text)))
	return text, nil
}
