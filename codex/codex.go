// Package codex serves the studio's lore: short Markdown articles about the
// Aether, its materials and its audits, rendered to HTML once at load time.
package codex

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/yuin/goldmark"
	"gopkg.in/yaml.v3"
)

//go:embed codex.yaml
var defaultCodex []byte

// Entry is one codex article.
type Entry struct {
	ID    string        `json:"id"`
	Title string        `json:"title"`
	Body  string        `json:"-"`
	HTML  template.HTML `json:"html"`
}

// Codex is an immutable, searchable collection of entries.
//
// Thread Safety: Codex is read-only after Load and safe for concurrent use.
type Codex struct {
	Title    string
	Subtitle string
	entries  []Entry
}

type codexFile struct {
	Title    string `yaml:"title"`
	Subtitle string `yaml:"subtitle"`
	Entries  []struct {
		ID    string `yaml:"id"`
		Title string `yaml:"title"`
		Body  string `yaml:"body"`
	} `yaml:"entries"`
}

// Default returns the embedded codex.
func Default() (*Codex, error) {
	return Load(defaultCodex)
}

// Load parses a YAML codex and renders every body from Markdown.
//
// Returns an error if the YAML is malformed, an entry lacks an id or title,
// or an id repeats.
func Load(data []byte) (*Codex, error) {
	var f codexFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("codex: parse: %w", err)
	}

	md := goldmark.New()
	seen := make(map[string]bool, len(f.Entries))
	c := &Codex{Title: f.Title, Subtitle: f.Subtitle}

	for i, e := range f.Entries {
		if e.ID == "" || e.Title == "" {
			return nil, fmt.Errorf("codex: entry %d: id and title are required", i)
		}
		if seen[e.ID] {
			return nil, fmt.Errorf("codex: duplicate entry id %q", e.ID)
		}
		seen[e.ID] = true

		var buf bytes.Buffer
		if err := md.Convert([]byte(e.Body), &buf); err != nil {
			return nil, fmt.Errorf("codex: render %s: %w", e.ID, err)
		}
		c.entries = append(c.entries, Entry{
			ID:    e.ID,
			Title: e.Title,
			Body:  e.Body,
			// goldmark escapes raw HTML unless WithUnsafe is set.
			HTML: template.HTML(buf.String()),
		})
	}
	return c, nil
}

// Entries returns every entry in codex order.
func (c *Codex) Entries() []Entry {
	return append([]Entry(nil), c.entries...)
}

// Search returns the entries whose title or body contains query, ignoring
// case. An empty or blank query returns every entry.
//
// Example:
//
//	c.Search("bone")  // [Forbidden Materials]
//	c.Search("")      // all entries
func (c *Codex) Search(query string) []Entry {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return c.Entries()
	}

	var out []Entry
	for _, e := range c.entries {
		if strings.Contains(strings.ToLower(e.Title), q) || strings.Contains(strings.ToLower(e.Body), q) {
			out = append(out, e)
		}
	}
	return out
}
