package textgen

import (
	"fmt"

	"spooktrunt/structure"

	"github.com/sashabaranov/go-openai/jsonschema"
)

// generationReply is the reply shape shared by summon and revive.
type generationReply struct {
	Structure   structure.Structure `json:"structure" validate:"required"`
	ImagePrompt string              `json:"imagePrompt" validate:"required" description:"A highly detailed, dramatic, photorealistic text-to-image prompt visualizing the structure"`
}

var (
	generationSchema  = mustSchema("architectural_creation", generationReply{})
	feasibilitySchema = mustSchema("feasibility_report", structure.FeasibilityReport{})
)

// mustSchema derives a JSON schema from a Go type's json, description and
// enum tags. The types are fixed at compile time, so failure is a programming
// error.
func mustSchema(name string, v any) Schema {
	def, err := jsonschema.GenerateSchemaForType(v)
	if err != nil {
		panic(fmt.Sprintf("textgen: schema %s: %v", name, err))
	}
	return Schema{Name: name, Definition: def}
}

// GenerationSchema returns the schema requested for summon and revive replies.
func GenerationSchema() Schema {
	return generationSchema
}

// FeasibilitySchema returns the schema requested for analysis replies.
func FeasibilitySchema() Schema {
	return feasibilitySchema
}
