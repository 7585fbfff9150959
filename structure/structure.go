// Package structure defines the architectural data model shared by the
// generation client, the studio state machine and the web UI.
//
// Every record here mirrors the JSON contract exchanged with the text model.
// Field names are therefore camelCase on the wire and validated with
// go-playground/validator tags after decoding (see Validate).
package structure

import (
	"time"
)

// Impact is the coarse environmental footprint of a structure.
type Impact string

const (
	ImpactLow      Impact = "Low"
	ImpactModerate Impact = "Moderate"
	ImpactHigh     Impact = "High"
	ImpactUnknown  Impact = "Unknown"
)

// Impacts lists the accepted Impact values in display order.
var Impacts = []Impact{ImpactLow, ImpactModerate, ImpactHigh, ImpactUnknown}

// Valid reports whether i is one of the four accepted values.
func (i Impact) Valid() bool {
	for _, v := range Impacts {
		if i == v {
			return true
		}
	}
	return false
}

// Dimensions carries free-form size labels plus a floor count.
type Dimensions struct {
	Height string `json:"height" validate:"required" description:"Estimated height of the structure, including units (e.g. '300 meters')"`
	Width  string `json:"width" validate:"required" description:"Estimated width or footprint of the structure, including units (e.g. '150 meters')"`
	Floors int    `json:"floors" validate:"gte=1" description:"Number of floors or levels"`
}

// Structure is an imaginary building as described by the text model.
//
// A Structure is immutable once created: a revision produces a new value with
// a new identifier.
type Structure struct {
	ID                       string     `json:"id" validate:"required" description:"A unique identifier for the structure; use the identifier given in the instructions"`
	Name                     string     `json:"name" validate:"required" description:"A creative, evocative name for the structure"`
	Description              string     `json:"description" validate:"required" description:"A detailed, imaginative description of the structure, as if describing a piece of art"`
	Materials                []string   `json:"materials" validate:"required,min=1,dive,required" description:"A list of 3-5 primary, potentially surreal or futuristic materials used"`
	Style                    string     `json:"style" validate:"required" description:"The primary architectural style (e.g. Gothic-Futurism, Bioluminescent-Brutalism, Aether-Deco)"`
	Dimensions               Dimensions `json:"dimensions" validate:"required"`
	StructuralIntegrityScore float64    `json:"structuralIntegrityScore" validate:"gte=1,lte=100" description:"A score from 1-100 indicating hypothetical structural soundness"`
	EnvironmentalImpact      Impact     `json:"environmentalImpact" validate:"impact" enum:"Low,Moderate,High,Unknown" description:"An assessment of the environmental footprint (Low, Moderate, High or Unknown)"`
}

// Assessment is one rated dimension of a feasibility report.
type Assessment struct {
	Rating   float64 `json:"rating" validate:"gte=1,lte=10" description:"A rating from 1 to 10"`
	Analysis string  `json:"analysis" validate:"required" description:"A brief analysis behind the rating"`
}

// FeasibilityReport is the engineering critique of one structure.
//
// For CostEstimation a rating of 1 means cheap and 10 means exorbitant; the
// other three dimensions rate higher as better.
type FeasibilityReport struct {
	Stability           Assessment `json:"stability" validate:"required" description:"Structural stability: its challenges and strengths"`
	EnergyEfficiency    Assessment `json:"energyEfficiency" validate:"required" description:"Energy efficiency: its consumption and generation"`
	MaterialSuitability Assessment `json:"materialSuitability" validate:"required" description:"Suitability of materials: why they are or are not suitable"`
	CostEstimation      Assessment `json:"costEstimation" validate:"required" description:"Cost (1=cheap, 10=exorbitant) and its main factors"`
	Suggestions         []string   `json:"suggestions" validate:"required,min=1,dive,required" description:"A list of 2-3 actionable suggestions to improve feasibility"`
}

// Dimension names a feasibility assessment in report order.
type Dimension struct {
	Key        string
	Label      string
	Assessment Assessment
}

// Dimensions returns the four assessments in their canonical order.
func (r *FeasibilityReport) Dimensions() []Dimension {
	return []Dimension{
		{Key: "stability", Label: "Stability", Assessment: r.Stability},
		{Key: "energyEfficiency", Label: "Energy Efficiency", Assessment: r.EnergyEfficiency},
		{Key: "materialSuitability", Label: "Material Suitability", Assessment: r.MaterialSuitability},
		{Key: "costEstimation", Label: "Cost Estimation", Assessment: r.CostEstimation},
	}
}

// Origin records which studio operation produced a gallery entry.
type Origin string

const (
	OriginSummon Origin = "summon"
	OriginRevive Origin = "revive"
)

// Image is a rendered picture held in memory.
type Image struct {
	Data     []byte
	MIMEType string
}

// GalleryEntry pairs a structure with its rendered image.
type GalleryEntry struct {
	Structure Structure
	Image     Image
	Origin    Origin
	CreatedAt time.Time
}

// ID returns the identifier of the entry's structure.
func (e *GalleryEntry) ID() string {
	return e.Structure.ID
}
