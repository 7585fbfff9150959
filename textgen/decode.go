package textgen

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrNoJSONFound is wrapped by ParseError when the reply holds no JSON object.
var ErrNoJSONFound = errors.New("no JSON object found in reply")

// snippetLen bounds the reply excerpt carried by ParseError.
const snippetLen = 200

// ExtractJSON returns the JSON object embedded in text. Markdown code fences
// are stripped, then everything from the first '{' to the last '}' is kept.
//
// This is a pure function with no side effects.
//
// Example:
//
//	ExtractJSON("```json\n{\"a\": 1}\n```") // `{"a": 1}`
func ExtractJSON(text string) (string, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimPrefix(text, "json")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || start > end {
		return "", ErrNoJSONFound
	}
	return text[start : end+1], nil
}

// decodeReply extracts and unmarshals a reply into v. Any failure is a
// *ParseError. Unknown fields are ignored.
func decodeReply(op Operation, text string, v any) error {
	raw, err := ExtractJSON(text)
	if err != nil {
		return &ParseError{Op: op, Snippet: snippet(text), Err: err}
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return &ParseError{Op: op, Snippet: snippet(text), Err: fmt.Errorf("decode: %w", err)}
	}
	return nil
}

// snippet cuts text to at most snippetLen bytes without splitting a rune.
func snippet(text string) string {
	if len(text) <= snippetLen {
		return text
	}
	cut := snippetLen
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}
