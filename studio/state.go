package studio

import "fmt"

// State is the busy state of a studio.
type State string

const (
	StateIdle                State = "Idle"
	StateGeneratingStructure State = "GeneratingStructure"
	StateGeneratingImage     State = "GeneratingImage"
	StateAnalyzing           State = "Analyzing"
)

// Busy reports whether an operation is in flight.
func (s State) Busy() bool {
	return s != StateIdle
}

// LoaderMessage returns the text shown while the studio is in s, or "" when idle.
func (s State) LoaderMessage() string {
	switch s {
	case StateGeneratingStructure:
		return "Summoning Spirits from the Aether..."
	case StateGeneratingImage:
		return "Weaving Light into a Visual Echo..."
	case StateAnalyzing:
		return "Consulting the Architects of the Void..."
	default:
		return ""
	}
}

type event string

const (
	eventGenerate       event = "generate"
	eventStructureReady event = "structure_ready"
	eventImageReady     event = "image_ready"
	eventAnalyze        event = "analyze"
	eventAnalysisReady  event = "analysis_ready"
	eventFailed         event = "failed"
	eventSelect         event = "select"
)

// transitions is the complete state table. Any (state, event) pair missing
// from it is rejected by next.
var transitions = map[State]map[event]State{
	StateIdle: {
		eventGenerate: StateGeneratingStructure,
		eventAnalyze:  StateAnalyzing,
		eventSelect:   StateIdle,
	},
	StateGeneratingStructure: {
		eventStructureReady: StateGeneratingImage,
		eventFailed:         StateIdle,
	},
	StateGeneratingImage: {
		eventImageReady: StateIdle,
		eventFailed:     StateIdle,
	},
	StateAnalyzing: {
		eventAnalysisReady: StateIdle,
		eventFailed:        StateIdle,
	},
}

// next looks up the target of ev from s.
//
// This is a pure function.
func next(s State, ev event) (State, error) {
	to, ok := transitions[s][ev]
	if !ok {
		return s, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, ev, s)
	}
	return to, nil
}

// Mode selects which creation flow the prompt feeds.
type Mode string

const (
	ModeSummon Mode = "summon"
	ModeRevive Mode = "revive"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeSummon || m == ModeRevive
}

// Panel is the visible view of the studio.
type Panel string

const (
	PanelDesign      Panel = "design"
	PanelFeasibility Panel = "feasibility"
	PanelViewer      Panel = "viewer"
	PanelGallery     Panel = "gallery"
	PanelCodex       Panel = "codex"
)

// Panels lists every panel in display order.
var Panels = []Panel{PanelDesign, PanelFeasibility, PanelViewer, PanelGallery, PanelCodex}

// Valid reports whether p is a known panel.
func (p Panel) Valid() bool {
	for _, known := range Panels {
		if p == known {
			return true
		}
	}
	return false
}
