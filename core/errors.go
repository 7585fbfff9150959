package core

import (
	"errors"
	"fmt"
)

// ConfigError represents a configuration-related error with actionable instructions.
type ConfigError struct {
	Code    string // Error code for programmatic handling
	Message string // Human-readable error message
	Action  string // Actionable instruction for resolution
}

func (e *ConfigError) Error() string {
	if e.Action != "" {
		return fmt.Sprintf("%s. %s", e.Message, e.Action)
	}
	return e.Message
}

// Error codes for configuration errors
const (
	ErrCodeMissingAuth   = "MISSING_AUTH"
	ErrCodeInvalidConfig = "INVALID_CONFIG"
	ErrCodeLogFile       = "LOG_FILE"
)

// ErrMissingAuth returns an error for a provider selected without a credential.
func ErrMissingAuth(provider string) *ConfigError {
	var action string
	switch provider {
	case ProviderGemini:
		action = "Set GEMINI_API_KEY (or the legacy API_KEY) in your environment or .env file"
	case ProviderOpenAI:
		action = "Set OPENAI_API_KEY in your environment or .env file"
	default:
		action = fmt.Sprintf("Set the API key for %s in your .env file", provider)
	}
	return &ConfigError{
		Code:    ErrCodeMissingAuth,
		Message: fmt.Sprintf("Missing API credential for %s", provider),
		Action:  action,
	}
}

// ErrInvalidConfig returns an error for a variable holding an unusable value.
func ErrInvalidConfig(varName, value, reason string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeInvalidConfig,
		Message: fmt.Sprintf("Invalid %s '%s': %s", varName, value, reason),
		Action:  fmt.Sprintf("Fix %s in your environment or .env file", varName),
	}
}

// ErrLogFile returns an error when the log file cannot be opened.
func ErrLogFile(path string, cause error) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeLogFile,
		Message: fmt.Sprintf("Cannot open log file %s: %v", path, cause),
		Action:  "Set LOG_FILE to a writable path",
	}
}

// IsConfigError checks if an error is a ConfigError and returns it if so
func IsConfigError(err error) (*ConfigError, bool) {
	var configErr *ConfigError
	if errors.As(err, &configErr) {
		return configErr, true
	}
	return nil, false
}

// GetErrorCode extracts the error code from an error if it's a ConfigError
func GetErrorCode(err error) string {
	if configErr, ok := IsConfigError(err); ok {
		return configErr.Code
	}
	return ""
}
