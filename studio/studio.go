// Package studio is the application state machine: it owns one browser
// session's prompt, blueprint, gallery, active entry, feasibility report and
// error message, and sequences the text and image clients through the busy
// states.
//
// Views never mutate a Studio directly. They read Snapshots and call the
// entry points, which check their guards before any network call is made.
package studio

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"spooktrunt/logging"
	"spooktrunt/structure"
	"spooktrunt/textgen"
	"spooktrunt/vision"

	"go.uber.org/zap"
)

// TextGenerator produces structures and feasibility reports.
// *textgen.Client satisfies it.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (*textgen.Result, error)
	Revive(ctx context.Context, prompt string, blueprint vision.Payload) (*textgen.Result, error)
	Analyze(ctx context.Context, s structure.Structure, image vision.Payload) (*structure.FeasibilityReport, error)
}

// ImageGenerator renders image prompts. *imagegen.Generator satisfies it.
type ImageGenerator interface {
	Generate(ctx context.Context, op, prompt string) (structure.Image, error)
}

// Runner runs background work so that it can be awaited on shutdown.
// Go returns an error without calling fn when no new work is accepted.
type Runner interface {
	Go(name string, fn func(ctx context.Context)) error
}

// Observer receives the outcome of every completed or rejected operation.
type Observer interface {
	ObserveOperation(op, outcome string, elapsed time.Duration)
}

// Blueprint is an uploaded image waiting to be revived.
type Blueprint struct {
	Name    string
	Payload vision.Payload
	Size    int
}

// Studio is the per-session controller.
//
// Thread Safety: all methods are safe for concurrent use. At most one
// operation is in flight at a time.
type Studio struct {
	text   TextGenerator
	images ImageGenerator
	logger *logging.Logger

	runner   Runner
	observer Observer
	now      func() time.Time

	mu        sync.Mutex
	state     State
	mode      Mode
	panel     Panel
	prompt    string
	blueprint *Blueprint
	gallery   []*structure.GalleryEntry
	active    *structure.GalleryEntry
	report    *structure.FeasibilityReport
	errMsg    string

	// notifyMu serializes publish so listeners observe snapshots in order.
	notifyMu  sync.Mutex
	listeners map[int]func(Snapshot)
	nextID    int
}

// Option configures a Studio.
type Option func(*Studio)

// WithRunner registers background operations with r.
func WithRunner(r Runner) Option {
	return func(s *Studio) { s.runner = r }
}

// WithObserver reports operation outcomes to o.
func WithObserver(o Observer) Option {
	return func(s *Studio) { s.observer = o }
}

// WithClock overrides the clock used for gallery timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Studio) { s.now = now }
}

// New creates an idle studio in summon mode showing the design panel.
func New(text TextGenerator, images ImageGenerator, logger *logging.Logger, opts ...Option) *Studio {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Studio{
		text:      text,
		images:    images,
		logger:    logger.Named("studio"),
		now:       time.Now,
		state:     StateIdle,
		mode:      ModeSummon,
		panel:     PanelDesign,
		listeners: make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers fn to receive a snapshot after every change.
// fn runs synchronously on the goroutine that made the change and must not
// call back into the Studio's mutating methods. The returned function
// removes the subscription.
func (s *Studio) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.notifyMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.notifyMu.Unlock()

	return func() {
		s.notifyMu.Lock()
		delete(s.listeners, id)
		s.notifyMu.Unlock()
	}
}

func (s *Studio) publish() {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	if len(s.listeners) == 0 {
		return
	}
	snap := s.Snapshot()
	for _, fn := range s.listeners {
		fn(snap)
	}
}

// fire applies ev to the current state. Callers hold mu.
func (s *Studio) fire(ev event) error {
	to, err := next(s.state, ev)
	if err != nil {
		return err
	}
	s.logger.Debug("state transition",
		zap.String("from", string(s.state)),
		zap.String("to", string(to)),
		zap.String("event", string(ev)))
	s.state = to
	return nil
}

// SetPrompt replaces the prompt text.
func (s *Studio) SetPrompt(prompt string) {
	s.mu.Lock()
	s.prompt = prompt
	s.mu.Unlock()
	s.publish()
}

// SetBlueprint stores an encoded blueprint for the next revival.
func (s *Studio) SetBlueprint(name string, payload vision.Payload, size int) {
	s.mu.Lock()
	s.blueprint = &Blueprint{Name: name, Payload: payload, Size: size}
	s.mu.Unlock()
	s.publish()
}

// ClearBlueprint discards the uploaded blueprint.
func (s *Studio) ClearBlueprint() {
	s.mu.Lock()
	s.blueprint = nil
	s.mu.Unlock()
	s.publish()
}

// SetMode switches between the summon and revive flows.
func (s *Studio) SetMode(m Mode) error {
	if !m.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidMode, m)
	}
	s.mu.Lock()
	s.mode = m
	s.mu.Unlock()
	s.publish()
	return nil
}

// SetPanel changes the visible panel.
func (s *Studio) SetPanel(p Panel) error {
	if !p.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidPanel, p)
	}
	s.mu.Lock()
	s.panel = p
	s.mu.Unlock()
	s.publish()
	return nil
}

// Entry returns the gallery entry with id.
func (s *Studio) Entry(id string) (structure.GalleryEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e := s.findLocked(id); e != nil {
		return *e, true
	}
	return structure.GalleryEntry{}, false
}

func (s *Studio) findLocked(id string) *structure.GalleryEntry {
	for _, e := range s.gallery {
		if e.ID() == id {
			return e
		}
	}
	return nil
}

// Select makes the gallery entry with id active. The feasibility report and
// error message are cleared and the design panel is shown.
//
// Returns ErrBusy while an operation is in flight and ErrEntryNotFound for an
// unknown id; neither changes state.
func (s *Studio) Select(id string) error {
	s.mu.Lock()
	if s.state.Busy() {
		s.mu.Unlock()
		return ErrBusy
	}
	e := s.findLocked(id)
	if e == nil {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}
	if err := s.fire(eventSelect); err != nil {
		s.mu.Unlock()
		return err
	}
	s.active = e
	s.report = nil
	s.errMsg = ""
	s.panel = PanelDesign
	s.mu.Unlock()

	s.logger.Debug("gallery entry selected", logging.StructureID(id))
	s.publish()
	return nil
}

// Summon starts generating a new structure and image from the prompt.
//
// Guards and the first transition run synchronously. The returned channel
// closes once the studio is idle again.
func (s *Studio) Summon(ctx context.Context) (<-chan struct{}, error) {
	return s.startGeneration(ctx, structure.OriginSummon)
}

// Revive starts reinterpreting the uploaded blueprint with the prompt.
func (s *Studio) Revive(ctx context.Context) (<-chan struct{}, error) {
	return s.startGeneration(ctx, structure.OriginRevive)
}

func (s *Studio) startGeneration(ctx context.Context, origin structure.Origin) (<-chan struct{}, error) {
	op := string(origin)

	s.mu.Lock()
	if s.state.Busy() {
		s.mu.Unlock()
		s.observe(op, OutcomeRejected, 0)
		return nil, ErrBusy
	}

	prompt := strings.TrimSpace(s.prompt)
	var blueprint vision.Payload
	switch origin {
	case structure.OriginRevive:
		if prompt == "" || s.blueprint == nil {
			return nil, s.rejectLocked(op, MsgReviveGuard, ErrReviveIncomplete)
		}
		blueprint = s.blueprint.Payload
	default:
		if prompt == "" {
			return nil, s.rejectLocked(op, MsgEmptyPrompt, ErrEmptyPrompt)
		}
	}

	if err := s.fire(eventGenerate); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.active = nil
	s.report = nil
	s.errMsg = ""
	s.panel = PanelDesign
	s.mu.Unlock()
	s.publish()

	failMsg := MsgSummonFailed
	if origin == structure.OriginRevive {
		failMsg = MsgReviveFailed
	}
	return s.launch(ctx, op, failMsg, func(ctx context.Context) {
		s.runGeneration(ctx, origin, prompt, blueprint, failMsg)
	})
}

func (s *Studio) runGeneration(ctx context.Context, origin structure.Origin, prompt string, blueprint vision.Payload, failMsg string) {
	op := string(origin)
	start := time.Now()

	var (
		res *textgen.Result
		err error
	)
	if origin == structure.OriginRevive {
		res, err = s.text.Revive(ctx, prompt, blueprint)
	} else {
		res, err = s.text.Generate(ctx, prompt)
	}
	if err != nil {
		s.fail(op, failMsg, err, start)
		return
	}

	s.mu.Lock()
	err = s.fire(eventStructureReady)
	s.mu.Unlock()
	if err != nil {
		s.fail(op, failMsg, err, start)
		return
	}
	s.publish()

	img, err := s.images.Generate(ctx, op, res.ImagePrompt)
	if err != nil {
		s.fail(op, failMsg, err, start)
		return
	}

	entry := &structure.GalleryEntry{
		Structure: res.Structure,
		Image:     img,
		Origin:    origin,
		CreatedAt: s.now(),
	}

	s.mu.Lock()
	if err := s.fire(eventImageReady); err != nil {
		s.mu.Unlock()
		s.fail(op, failMsg, err, start)
		return
	}
	s.gallery = append([]*structure.GalleryEntry{entry}, s.gallery...)
	s.active = entry
	s.report = nil
	s.mu.Unlock()

	s.logger.Info("structure materialized",
		logging.Operation(op),
		logging.StructureID(entry.ID()),
		zap.String("name", entry.Structure.Name),
		logging.Elapsed(start))
	s.observe(op, OutcomeSuccess, time.Since(start))
	s.publish()
}

// Analyze starts a feasibility critique of the active entry.
func (s *Studio) Analyze(ctx context.Context) (<-chan struct{}, error) {
	const op = "analyze"

	s.mu.Lock()
	if s.state.Busy() {
		s.mu.Unlock()
		s.observe(op, OutcomeRejected, 0)
		return nil, ErrBusy
	}
	entry := s.active
	if entry == nil {
		return nil, s.rejectLocked(op, MsgAnalyzeGuard, ErrNothingToAnalyze)
	}
	if err := s.fire(eventAnalyze); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.report = nil
	s.errMsg = ""
	s.mu.Unlock()
	s.publish()

	return s.launch(ctx, op, MsgAnalysisFailed, func(ctx context.Context) {
		start := time.Now()
		image := vision.NewPayload(entry.Image.Data, entry.Image.MIMEType)

		report, err := s.text.Analyze(ctx, entry.Structure, image)
		if err != nil {
			s.fail(op, MsgAnalysisFailed, err, start)
			return
		}

		s.mu.Lock()
		if err := s.fire(eventAnalysisReady); err != nil {
			s.mu.Unlock()
			s.fail(op, MsgAnalysisFailed, err, start)
			return
		}
		s.report = report
		s.panel = PanelFeasibility
		s.mu.Unlock()

		s.logger.Info("feasibility report ready",
			logging.StructureID(entry.ID()),
			logging.Elapsed(start))
		s.observe(op, OutcomeSuccess, time.Since(start))
		s.publish()
	})
}

// rejectLocked records a guard violation. It releases mu.
func (s *Studio) rejectLocked(op, msg string, err error) error {
	s.errMsg = msg
	s.mu.Unlock()
	s.logger.Debug("operation rejected", logging.Operation(op), zap.Error(err))
	s.observe(op, OutcomeRejected, 0)
	s.publish()
	return err
}

// launch runs work in the background and returns a channel closed when it
// has finished. Work refused by the runner is failed immediately.
func (s *Studio) launch(ctx context.Context, op, failMsg string, work func(context.Context)) (<-chan struct{}, error) {
	done := make(chan struct{})
	run := func(ctx context.Context) {
		defer close(done)
		work(ctx)
	}

	if s.runner == nil {
		go run(context.WithoutCancel(ctx))
		return done, nil
	}
	if err := s.runner.Go(op, run); err != nil {
		s.fail(op, MsgShuttingDown, err, time.Now())
		close(done)
		return done, err
	}
	return done, nil
}

// fail returns the studio to Idle, discarding partial results.
func (s *Studio) fail(op, msg string, err error, start time.Time) {
	s.mu.Lock()
	if ferr := s.fire(eventFailed); ferr != nil {
		s.logger.Error("could not leave busy state", zap.Error(ferr))
		s.state = StateIdle
	}
	s.errMsg = msg
	s.mu.Unlock()

	outcome := outcomeOf(err)
	s.logger.Error("operation failed",
		logging.Operation(op),
		zap.String("outcome", outcome),
		logging.Elapsed(start),
		zap.Error(err))
	s.observe(op, outcome, time.Since(start))
	s.publish()
}

func (s *Studio) observe(op, outcome string, elapsed time.Duration) {
	if s.observer != nil {
		s.observer.ObserveOperation(op, outcome, elapsed)
	}
}
