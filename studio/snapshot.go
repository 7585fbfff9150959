package studio

import (
	"time"

	"spooktrunt/structure"
)

// Snapshot is a read-only projection of a studio, safe to serialize and hand
// to views.
type Snapshot struct {
	State         State                        `json:"state"`
	Busy          bool                         `json:"busy"`
	LoaderMessage string                       `json:"loaderMessage,omitempty"`
	Mode          Mode                         `json:"mode"`
	Panel         Panel                        `json:"panel"`
	Prompt        string                       `json:"prompt"`
	Blueprint     *BlueprintView               `json:"blueprint,omitempty"`
	Active        *EntryView                   `json:"active,omitempty"`
	Report        *structure.FeasibilityReport `json:"report,omitempty"`
	Error         string                       `json:"error,omitempty"`
	Gallery       []EntryView                  `json:"gallery"`
}

// BlueprintView describes the uploaded blueprint without its bytes.
type BlueprintView struct {
	Name     string `json:"name"`
	MIMEType string `json:"mimeType"`
	Size     int    `json:"size"`
}

// EntryView describes a gallery entry. Image bytes are served separately.
type EntryView struct {
	ID            string              `json:"id"`
	Origin        structure.Origin    `json:"origin"`
	CreatedAt     time.Time           `json:"createdAt"`
	Structure     structure.Structure `json:"structure"`
	ImageMIMEType string              `json:"imageMimeType"`
}

func viewOf(e *structure.GalleryEntry) EntryView {
	return EntryView{
		ID:            e.ID(),
		Origin:        e.Origin,
		CreatedAt:     e.CreatedAt,
		Structure:     e.Structure,
		ImageMIMEType: e.Image.MIMEType,
	}
}

// Snapshot returns the current session state, gallery newest first.
func (s *Studio) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		State:         s.state,
		Busy:          s.state.Busy(),
		LoaderMessage: s.state.LoaderMessage(),
		Mode:          s.mode,
		Panel:         s.panel,
		Prompt:        s.prompt,
		Error:         s.errMsg,
		Gallery:       make([]EntryView, 0, len(s.gallery)),
	}
	if s.blueprint != nil {
		snap.Blueprint = &BlueprintView{
			Name:     s.blueprint.Name,
			MIMEType: s.blueprint.Payload.MIMEType,
			Size:     s.blueprint.Size,
		}
	}
	if s.active != nil {
		v := viewOf(s.active)
		snap.Active = &v
	}
	if s.report != nil {
		r := *s.report
		r.Suggestions = append([]string(nil), s.report.Suggestions...)
		snap.Report = &r
	}
	for _, e := range s.gallery {
		snap.Gallery = append(snap.Gallery, viewOf(e))
	}
	return snap
}
