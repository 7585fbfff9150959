package textgen

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var defaultCatalog []byte

// PromptCatalog holds the parsed instruction templates, one per operation.
type PromptCatalog struct {
	templates map[Operation]*template.Template
}

// summonData feeds the summon and revive templates.
type summonData struct {
	ID     string
	Prompt string
}

// analyzeData feeds the analyze template.
type analyzeData struct {
	StructureJSON string
}

// DefaultPromptCatalog parses the embedded catalog.
func DefaultPromptCatalog() (*PromptCatalog, error) {
	return ParsePromptCatalog(defaultCatalog)
}

// LoadPromptCatalog reads a catalog from path, or the embedded catalog when
// path is empty.
func LoadPromptCatalog(path string) (*PromptCatalog, error) {
	if path == "" {
		return DefaultPromptCatalog()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("textgen: read prompt catalog: %w", err)
	}
	return ParsePromptCatalog(data)
}

// ParsePromptCatalog parses YAML mapping operation names to template bodies.
// Every operation must be present.
func ParsePromptCatalog(data []byte) (*PromptCatalog, error) {
	var raw map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("textgen: parse prompt catalog: %w", err)
	}

	c := &PromptCatalog{templates: make(map[Operation]*template.Template, 3)}
	for _, op := range []Operation{OpSummon, OpRevive, OpAnalyze} {
		body, ok := raw[string(op)]
		if !ok || strings.TrimSpace(body) == "" {
			return nil, fmt.Errorf("textgen: prompt catalog missing %q", op)
		}
		tmpl, err := template.New(string(op)).Option("missingkey=error").Parse(body)
		if err != nil {
			return nil, fmt.Errorf("textgen: prompt %q: %w", op, err)
		}
		c.templates[op] = tmpl
	}
	return c, nil
}

// Render executes the template for op.
func (c *PromptCatalog) Render(op Operation, data any) (string, error) {
	tmpl, ok := c.templates[op]
	if !ok {
		return "", fmt.Errorf("textgen: no prompt for %q", op)
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("textgen: render %q: %w", op, err)
	}
	return b.String(), nil
}
