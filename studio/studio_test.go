package studio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"spooktrunt/logging"
	"spooktrunt/structure"
	"spooktrunt/textgen"
	"spooktrunt/vision"

	"go.uber.org/zap/zaptest"
)

type fakeText struct {
	mu       sync.Mutex
	calls    []string
	gate     chan struct{}
	genErr   error
	anErr    error
	counter  int
	lastBlue vision.Payload
	analyzed structure.Structure
}

func (f *fakeText) wait(ctx context.Context) {
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
		}
	}
}

func (f *fakeText) result(prefix string) *textgen.Result {
	f.counter++
	return &textgen.Result{
		Structure: structure.Structure{
			ID:                       fmt.Sprintf("%s%d", prefix, f.counter),
			Name:                     "The Hollow Spire",
			Description:              "A tower that leans toward the moon.",
			Materials:                []string{"Noctis Concrete"},
			Style:                    "Gothic",
			Dimensions:               structure.Dimensions{Height: "300m", Width: "40m", Floors: 66},
			StructuralIntegrityScore: 42,
			EnvironmentalImpact:      structure.ImpactHigh,
		},
		ImagePrompt: "a leaning spire at midnight",
	}
}

func (f *fakeText) Generate(ctx context.Context, prompt string) (*textgen.Result, error) {
	f.wait(ctx)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "generate:"+prompt)
	if f.genErr != nil {
		return nil, f.genErr
	}
	return f.result(structure.PrefixGenerated), nil
}

func (f *fakeText) Revive(ctx context.Context, prompt string, blueprint vision.Payload) (*textgen.Result, error) {
	f.wait(ctx)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "revive:"+prompt)
	f.lastBlue = blueprint
	if f.genErr != nil {
		return nil, f.genErr
	}
	return f.result(structure.PrefixRevived), nil
}

func (f *fakeText) Analyze(ctx context.Context, s structure.Structure, image vision.Payload) (*structure.FeasibilityReport, error) {
	f.wait(ctx)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "analyze:"+s.ID)
	f.analyzed = s
	if f.anErr != nil {
		return nil, f.anErr
	}
	a := structure.Assessment{Rating: 3, Analysis: "It sways."}
	return &structure.FeasibilityReport{
		Stability: a, EnergyEfficiency: a, MaterialSuitability: a, CostEstimation: a,
		Suggestions: []string{"Add buttresses"},
	}, nil
}

func (f *fakeText) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeImages struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (f *fakeImages) Generate(ctx context.Context, op, prompt string) (structure.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return structure.Image{}, f.err
	}
	return structure.Image{Data: []byte{0xff, 0xd8}, MIMEType: "image/jpeg"}, nil
}

type outcome struct{ op, outcome string }

type recordingObserver struct {
	mu   sync.Mutex
	seen []outcome
}

func (r *recordingObserver) ObserveOperation(op, result string, elapsed time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, outcome{op, result})
}

func (r *recordingObserver) last() outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.seen) == 0 {
		return outcome{}
	}
	return r.seen[len(r.seen)-1]
}

func newTestStudio(t *testing.T, text *fakeText, images *fakeImages, opts ...Option) *Studio {
	t.Helper()
	return New(text, images, logging.NewFromZap(zaptest.NewLogger(t)), opts...)
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("operation did not finish")
	}
}

func summon(t *testing.T, s *Studio, prompt string) Snapshot {
	t.Helper()
	s.SetPrompt(prompt)
	done, err := s.Summon(context.Background())
	if err != nil {
		t.Fatalf("Summon() error: %v", err)
	}
	waitDone(t, done)
	return s.Snapshot()
}

func TestNew_InitialState(t *testing.T) {
	s := newTestStudio(t, &fakeText{}, &fakeImages{})
	snap := s.Snapshot()

	if snap.State != StateIdle || snap.Busy {
		t.Errorf("state = %s busy=%v, want Idle", snap.State, snap.Busy)
	}
	if snap.Mode != ModeSummon || snap.Panel != PanelDesign {
		t.Errorf("mode/panel = %s/%s", snap.Mode, snap.Panel)
	}
	if snap.Active != nil || snap.Report != nil || snap.Error != "" || len(snap.Gallery) != 0 {
		t.Errorf("unexpected initial snapshot: %+v", snap)
	}
}

func TestSummon_Success(t *testing.T) {
	text, images := &fakeText{}, &fakeImages{}
	obs := &recordingObserver{}
	s := newTestStudio(t, text, images, WithObserver(obs))

	var mu sync.Mutex
	var states []State
	s.Subscribe(func(snap Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		if len(states) == 0 || states[len(states)-1] != snap.State {
			states = append(states, snap.State)
		}
	})

	snap := summon(t, s, "  a spire of whispers  ")

	if snap.State != StateIdle {
		t.Fatalf("state = %s, want Idle", snap.State)
	}
	if len(snap.Gallery) != 1 || snap.Active == nil || snap.Active.ID != snap.Gallery[0].ID {
		t.Fatalf("gallery/active mismatch: %+v", snap)
	}
	if snap.Active.Origin != structure.OriginSummon {
		t.Errorf("origin = %s", snap.Active.Origin)
	}
	if text.calls[0] != "generate:a spire of whispers" {
		t.Errorf("prompt not trimmed: %q", text.calls[0])
	}
	if images.calls != 1 {
		t.Errorf("image calls = %d, want 1", images.calls)
	}
	if obs.last() != (outcome{"summon", OutcomeSuccess}) {
		t.Errorf("observed = %+v", obs.last())
	}

	mu.Lock()
	defer mu.Unlock()
	want := []State{StateIdle, StateGeneratingStructure, StateGeneratingImage, StateIdle}
	if fmt.Sprint(states) != fmt.Sprint(want) {
		t.Errorf("states = %v, want %v", states, want)
	}
}

func TestSummon_GalleryNewestFirst(t *testing.T) {
	s := newTestStudio(t, &fakeText{}, &fakeImages{})
	summon(t, s, "first")
	snap := summon(t, s, "second")

	if len(snap.Gallery) != 2 {
		t.Fatalf("gallery = %d entries, want 2", len(snap.Gallery))
	}
	if snap.Gallery[0].ID != "gen_2" || snap.Gallery[1].ID != "gen_1" {
		t.Errorf("gallery order = %s, %s", snap.Gallery[0].ID, snap.Gallery[1].ID)
	}
	if snap.Active.ID != "gen_2" {
		t.Errorf("active = %s, want newest", snap.Active.ID)
	}
}

func TestSummon_Guards(t *testing.T) {
	for _, prompt := range []string{"", "   \n\t"} {
		t.Run(fmt.Sprintf("%q", prompt), func(t *testing.T) {
			text := &fakeText{}
			s := newTestStudio(t, text, &fakeImages{})
			s.SetPrompt(prompt)

			done, err := s.Summon(context.Background())
			if !errors.Is(err, ErrEmptyPrompt) || done != nil {
				t.Fatalf("Summon() = %v, %v; want ErrEmptyPrompt", done, err)
			}
			snap := s.Snapshot()
			if snap.Error != MsgEmptyPrompt || snap.State != StateIdle {
				t.Errorf("snapshot = %+v", snap)
			}
			if text.callCount() != 0 {
				t.Error("guard violation reached the provider")
			}
		})
	}
}

func TestSummon_Busy(t *testing.T) {
	text := &fakeText{gate: make(chan struct{})}
	s := newTestStudio(t, text, &fakeImages{})
	s.SetPrompt("a crypt")

	done, err := s.Summon(context.Background())
	if err != nil {
		t.Fatalf("Summon() error: %v", err)
	}
	before := s.Snapshot()
	if before.State != StateGeneratingStructure || before.LoaderMessage == "" {
		t.Errorf("snapshot while busy = %+v", before)
	}

	if _, err := s.Summon(context.Background()); !errors.Is(err, ErrBusy) {
		t.Errorf("second Summon() error = %v, want ErrBusy", err)
	}
	if _, err := s.Analyze(context.Background()); !errors.Is(err, ErrBusy) {
		t.Errorf("Analyze() while busy error = %v, want ErrBusy", err)
	}
	if err := s.Select("gen_1"); !errors.Is(err, ErrBusy) {
		t.Errorf("Select() while busy error = %v, want ErrBusy", err)
	}
	after := s.Snapshot()
	if after.State != before.State || after.Error != "" {
		t.Errorf("busy rejection changed state: %+v", after)
	}

	close(text.gate)
	waitDone(t, done)
	if got := text.callCount(); got != 1 {
		t.Errorf("provider calls = %d, want 1", got)
	}
}

func TestSummon_Failures(t *testing.T) {
	boom := errors.New("connection reset")

	tests := []struct {
		name        string
		textErr     error
		imageErr    error
		wantOutcome string
		wantImages  int
	}{
		{
			name:        "structure provider failure",
			textErr:     &textgen.ProviderError{Op: textgen.OpSummon, Provider: "fake", Err: boom},
			wantOutcome: OutcomeProviderError,
		},
		{
			name:        "malformed structure",
			textErr:     &textgen.ParseError{Op: textgen.OpSummon, Err: boom},
			wantOutcome: OutcomeParseError,
		},
		{
			name:        "image failure discards structure",
			imageErr:    boom,
			wantOutcome: OutcomeProviderError,
			wantImages:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := &fakeText{}
			images := &fakeImages{}
			obs := &recordingObserver{}
			s := newTestStudio(t, text, images, WithObserver(obs))

			first := summon(t, s, "keep me")
			text.genErr, images.err = tt.textErr, tt.imageErr
			images.calls = 0

			snap := summon(t, s, "fail me")
			if snap.State != StateIdle {
				t.Errorf("state = %s, want Idle", snap.State)
			}
			if snap.Error != MsgSummonFailed {
				t.Errorf("error = %q", snap.Error)
			}
			if len(snap.Gallery) != 1 || snap.Gallery[0].ID != first.Gallery[0].ID {
				t.Errorf("gallery changed on failure: %+v", snap.Gallery)
			}
			if snap.Active != nil {
				t.Errorf("partial result kept as active: %+v", snap.Active)
			}
			if images.calls != tt.wantImages {
				t.Errorf("image calls = %d, want %d", images.calls, tt.wantImages)
			}
			if obs.last() != (outcome{"summon", tt.wantOutcome}) {
				t.Errorf("observed = %+v", obs.last())
			}
		})
	}
}

func TestRevive(t *testing.T) {
	blueprint := vision.NewPayload([]byte("png"), vision.MIMEPNG)

	t.Run("guards", func(t *testing.T) {
		tests := []struct {
			name      string
			prompt    string
			blueprint bool
		}{
			{"no blueprint", "restore it", false},
			{"no prompt", "", true},
			{"neither", " ", false},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				text := &fakeText{}
				s := newTestStudio(t, text, &fakeImages{})
				s.SetPrompt(tt.prompt)
				if tt.blueprint {
					s.SetBlueprint("plan.png", blueprint, 3)
				}

				if _, err := s.Revive(context.Background()); !errors.Is(err, ErrReviveIncomplete) {
					t.Fatalf("Revive() error = %v, want ErrReviveIncomplete", err)
				}
				if got := s.Snapshot().Error; got != MsgReviveGuard {
					t.Errorf("error = %q", got)
				}
				if text.callCount() != 0 {
					t.Error("guard violation reached the provider")
				}
			})
		}
	})

	t.Run("success", func(t *testing.T) {
		text := &fakeText{}
		s := newTestStudio(t, text, &fakeImages{})
		if err := s.SetMode(ModeRevive); err != nil {
			t.Fatal(err)
		}
		s.SetPrompt("make it bleed")
		s.SetBlueprint("plan.png", blueprint, 3)

		snap := s.Snapshot()
		if snap.Blueprint == nil || snap.Blueprint.Name != "plan.png" || snap.Blueprint.MIMEType != vision.MIMEPNG {
			t.Fatalf("blueprint view = %+v", snap.Blueprint)
		}

		done, err := s.Revive(context.Background())
		if err != nil {
			t.Fatalf("Revive() error: %v", err)
		}
		waitDone(t, done)

		snap = s.Snapshot()
		if snap.Active == nil || snap.Active.Origin != structure.OriginRevive {
			t.Fatalf("active = %+v", snap.Active)
		}
		if text.lastBlue != blueprint {
			t.Error("blueprint was not passed to the provider")
		}
	})

	t.Run("failure message", func(t *testing.T) {
		s := newTestStudio(t, &fakeText{genErr: errors.New("nope")}, &fakeImages{})
		s.SetPrompt("x")
		s.SetBlueprint("plan.png", blueprint, 3)
		done, err := s.Revive(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		waitDone(t, done)
		if got := s.Snapshot().Error; got != MsgReviveFailed {
			t.Errorf("error = %q", got)
		}
	})

	t.Run("clear blueprint", func(t *testing.T) {
		s := newTestStudio(t, &fakeText{}, &fakeImages{})
		s.SetBlueprint("plan.png", blueprint, 3)
		s.ClearBlueprint()
		if s.Snapshot().Blueprint != nil {
			t.Error("blueprint not cleared")
		}
	})
}

func TestAnalyze(t *testing.T) {
	t.Run("guard", func(t *testing.T) {
		text := &fakeText{}
		s := newTestStudio(t, text, &fakeImages{})
		if _, err := s.Analyze(context.Background()); !errors.Is(err, ErrNothingToAnalyze) {
			t.Fatalf("Analyze() error = %v", err)
		}
		if got := s.Snapshot().Error; got != MsgAnalyzeGuard {
			t.Errorf("error = %q", got)
		}
		if text.callCount() != 0 {
			t.Error("guard violation reached the provider")
		}
	})

	t.Run("success", func(t *testing.T) {
		text := &fakeText{}
		s := newTestStudio(t, text, &fakeImages{})
		created := summon(t, s, "a spire")

		done, err := s.Analyze(context.Background())
		if err != nil {
			t.Fatalf("Analyze() error: %v", err)
		}
		waitDone(t, done)

		snap := s.Snapshot()
		if snap.Report == nil || len(snap.Report.Suggestions) != 1 {
			t.Fatalf("report = %+v", snap.Report)
		}
		if snap.Panel != PanelFeasibility {
			t.Errorf("panel = %s, want feasibility", snap.Panel)
		}
		if text.analyzed.ID != created.Active.ID {
			t.Errorf("analyzed %s, want %s", text.analyzed.ID, created.Active.ID)
		}
	})

	t.Run("failure keeps entry", func(t *testing.T) {
		text := &fakeText{}
		s := newTestStudio(t, text, &fakeImages{})
		created := summon(t, s, "a spire")
		text.anErr = &textgen.ParseError{Op: textgen.OpAnalyze, Err: errors.New("bad json")}

		done, err := s.Analyze(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		waitDone(t, done)

		snap := s.Snapshot()
		if snap.Error != MsgAnalysisFailed || snap.Report != nil {
			t.Errorf("snapshot = %+v", snap)
		}
		if snap.Active == nil || snap.Active.ID != created.Active.ID {
			t.Error("active entry lost after analysis failure")
		}
	})
}

func TestSelect(t *testing.T) {
	s := newTestStudio(t, &fakeText{}, &fakeImages{})
	summon(t, s, "first")
	summon(t, s, "second")

	done, err := s.Analyze(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	waitDone(t, done)
	if s.Snapshot().Report == nil {
		t.Fatal("expected a report before selection")
	}

	if err := s.Select("gen_1"); err != nil {
		t.Fatalf("Select() error: %v", err)
	}
	snap := s.Snapshot()
	if snap.Active.ID != "gen_1" || snap.Report != nil || snap.Panel != PanelDesign {
		t.Errorf("snapshot after select = %+v", snap)
	}
	if len(snap.Gallery) != 2 || snap.Gallery[0].ID != "gen_2" {
		t.Error("selection reordered the gallery")
	}

	if err := s.Select("gen_404"); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("Select(unknown) error = %v", err)
	}
	if s.Snapshot().Active.ID != "gen_1" {
		t.Error("unknown selection changed the active entry")
	}

	entry, ok := s.Entry("gen_2")
	if !ok || len(entry.Image.Data) == 0 {
		t.Errorf("Entry() = %+v, %v", entry, ok)
	}
}

func TestSetModeAndPanel(t *testing.T) {
	s := newTestStudio(t, &fakeText{}, &fakeImages{})

	if err := s.SetMode("haunt"); !errors.Is(err, ErrInvalidMode) {
		t.Errorf("SetMode() error = %v", err)
	}
	if err := s.SetPanel("attic"); !errors.Is(err, ErrInvalidPanel) {
		t.Errorf("SetPanel() error = %v", err)
	}
	if err := s.SetPanel(PanelCodex); err != nil {
		t.Fatal(err)
	}
	if got := s.Snapshot().Panel; got != PanelCodex {
		t.Errorf("panel = %s", got)
	}
}

type refusingRunner struct{}

func (refusingRunner) Go(name string, fn func(context.Context)) error {
	return errors.New("shutting down")
}

func TestRunnerRefusal(t *testing.T) {
	text := &fakeText{}
	s := newTestStudio(t, text, &fakeImages{}, WithRunner(refusingRunner{}))
	s.SetPrompt("a vault")

	done, err := s.Summon(context.Background())
	if err == nil {
		t.Fatal("expected an error from a refusing runner")
	}
	waitDone(t, done)

	snap := s.Snapshot()
	if snap.State != StateIdle || snap.Error != MsgShuttingDown {
		t.Errorf("snapshot = %+v", snap)
	}
	if text.callCount() != 0 {
		t.Error("refused work reached the provider")
	}
}

func TestSubscribe_Unsubscribe(t *testing.T) {
	s := newTestStudio(t, &fakeText{}, &fakeImages{})
	count := 0
	unsubscribe := s.Subscribe(func(Snapshot) { count++ })

	s.SetPrompt("a")
	unsubscribe()
	s.SetPrompt("b")

	if count != 1 {
		t.Errorf("notifications = %d, want 1", count)
	}
}
