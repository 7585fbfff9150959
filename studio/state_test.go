package studio

import (
	"errors"
	"testing"
)

func TestNext(t *testing.T) {
	tests := []struct {
		from    State
		ev      event
		want    State
		wantErr bool
	}{
		{StateIdle, eventGenerate, StateGeneratingStructure, false},
		{StateIdle, eventAnalyze, StateAnalyzing, false},
		{StateIdle, eventSelect, StateIdle, false},
		{StateGeneratingStructure, eventStructureReady, StateGeneratingImage, false},
		{StateGeneratingStructure, eventFailed, StateIdle, false},
		{StateGeneratingImage, eventImageReady, StateIdle, false},
		{StateGeneratingImage, eventFailed, StateIdle, false},
		{StateAnalyzing, eventAnalysisReady, StateIdle, false},
		{StateAnalyzing, eventFailed, StateIdle, false},

		{StateIdle, eventFailed, StateIdle, true},
		{StateIdle, eventImageReady, StateIdle, true},
		{StateGeneratingStructure, eventGenerate, StateGeneratingStructure, true},
		{StateGeneratingStructure, eventImageReady, StateGeneratingStructure, true},
		{StateGeneratingImage, eventSelect, StateGeneratingImage, true},
		{StateAnalyzing, eventAnalyze, StateAnalyzing, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+string(tt.ev), func(t *testing.T) {
			got, err := next(tt.from, tt.ev)
			if tt.wantErr != (err != nil) {
				t.Fatalf("next() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("error %v does not wrap ErrInvalidTransition", err)
			}
			if got != tt.want {
				t.Errorf("next() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestLoaderMessage(t *testing.T) {
	if StateIdle.LoaderMessage() != "" {
		t.Error("idle should have no loader message")
	}
	for _, s := range []State{StateGeneratingStructure, StateGeneratingImage, StateAnalyzing} {
		if s.LoaderMessage() == "" || !s.Busy() {
			t.Errorf("%s should be busy with a loader message", s)
		}
	}
}

func TestPanelValid(t *testing.T) {
	for _, p := range Panels {
		if !p.Valid() {
			t.Errorf("%s should be valid", p)
		}
	}
	if Panel("cellar").Valid() {
		t.Error("unknown panel reported valid")
	}
}
