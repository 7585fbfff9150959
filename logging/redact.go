package logging

import (
	"regexp"
	"strings"
)

// RedactedPlaceholder is the string used to replace sensitive data
const RedactedPlaceholder = "[REDACTED]"

// sensitivePatterns match credentials that may surface in messages or
// provider error strings.
var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(sk-[a-zA-Z0-9_-]{20,})`),             // OpenAI keys, legacy and project-scoped
	regexp.MustCompile(`(AIza[a-zA-Z0-9_-]{35})`),             // Google API keys
	regexp.MustCompile(`(?i)(bearer\s+[a-zA-Z0-9._-]{20,})`),  // Bearer tokens
	regexp.MustCompile(`(?i)([?&]key=[^&\s"']{8,})`),          // Gemini REST ?key=
	regexp.MustCompile(`(?i)(api_?key\s*[:=]\s*[^\s,;]{8,})`), // api_key= / apikey:
	regexp.MustCompile(`(?i)(secret\s*[:=]\s*[^\s,;]{8,})`),
	regexp.MustCompile(`(?i)(token\s*[:=]\s*[^\s,;]{8,})`),
}

// sensitiveFieldNames are substrings of field names whose values are never logged.
var sensitiveFieldNames = []string{
	"GEMINI_API_KEY",
	"OPENAI_API_KEY",
	"API_KEY",
	"APIKEY",
	"SECRET",
	"TOKEN",
	"PASSWORD",
	"AUTHORIZATION",
}

// RedactSensitiveData replaces every detected credential in value.
// This is a pure function with no side effects.
//
// Example:
//
//	RedactSensitiveData("googleapi: Error 400 (key=AIzaSyD...)")
//	// "googleapi: Error 400 ([REDACTED])"
func RedactSensitiveData(value string) string {
	if value == "" {
		return value
	}

	result := value
	for _, pattern := range sensitivePatterns {
		result = pattern.ReplaceAllString(result, RedactedPlaceholder)
	}
	return result
}

// IsSensitiveField returns true if the field name indicates sensitive data.
//
// Example:
//
//	IsSensitiveField("gemini_api_key") // true
//	IsSensitiveField("structure_id")   // false
func IsSensitiveField(fieldName string) bool {
	upperName := strings.ToUpper(fieldName)
	for _, name := range sensitiveFieldNames {
		if strings.Contains(upperName, name) {
			return true
		}
	}
	return false
}

// ContainsSensitiveData returns true if value matches any credential pattern.
func ContainsSensitiveData(value string) bool {
	for _, pattern := range sensitivePatterns {
		if pattern.MatchString(value) {
			return true
		}
	}
	return false
}
