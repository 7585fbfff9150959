package core

import (
	"crypto/tls"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// Provider names accepted by TEXT_PROVIDER and IMAGE_PROVIDER.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Config holds all configuration values
type Config struct {
	// Provider selection
	TextProvider  string
	ImageProvider string

	// Credentials
	GeminiAPIKey string
	OpenAIAPIKey string

	// Endpoints and models (empty model means provider default)
	OpenAIBaseURL    string
	TextModel        string
	ImageModel       string
	ImageAspectRatio string
	ImageMIMEType    string

	// Provider HTTP behaviour; zero AITimeout means no client timeout
	AITimeout            time.Duration
	AllowSelfSignedCerts bool

	// Web server
	Host              string
	Port              int
	MaxUploadBytes    int64
	BlueprintMaxEdge  int
	SessionTTL        time.Duration
	PromptCatalogPath string

	// Logging
	DevMode  bool
	LogLevel string
	LogFile  string
}

// Addr returns the host:port listen address.
func (c *Config) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// UsesGemini reports whether either client talks to Gemini.
func (c *Config) UsesGemini() bool {
	return c.TextProvider == ProviderGemini || c.ImageProvider == ProviderGemini
}

// UsesOpenAI reports whether either client talks to an OpenAI-compatible API.
func (c *Config) UsesOpenAI() bool {
	return c.TextProvider == ProviderOpenAI || c.ImageProvider == ProviderOpenAI
}

// getEnvOrDefault returns the trimmed value of key or defaultValue when unset.
func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// parseIntEnv parses key as an integer. Unlike a silent fallback, a value
// that is set but malformed is reported as a ConfigError.
func parseIntEnv(key string, defaultValue int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, ErrInvalidConfig(key, value, "expected an integer")
	}
	return n, nil
}

func parseInt64Env(key string, defaultValue int64) (int64, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, ErrInvalidConfig(key, value, "expected an integer")
	}
	return n, nil
}

// parseBoolEnv accepts true/1/yes/on and false/0/no/off, case-insensitive.
func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch value {
	case "":
		return defaultValue, nil
	case "true", "1", "yes", "on":
		return true, nil
	case "false", "0", "no", "off":
		return false, nil
	default:
		return false, ErrInvalidConfig(key, value, "expected true or false")
	}
}

// firstEnv returns the first non-empty value among keys.
func firstEnv(keys ...string) string {
	for _, key := range keys {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			return value
		}
	}
	return ""
}

// LoadConfig reads configuration from environment variables.
//
// A missing credential for a selected provider is returned as a ConfigError
// with code MISSING_AUTH; callers treat it as fatal at startup.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		TextProvider:      strings.ToLower(getEnvOrDefault("TEXT_PROVIDER", ProviderGemini)),
		ImageProvider:     strings.ToLower(getEnvOrDefault("IMAGE_PROVIDER", ProviderGemini)),
		GeminiAPIKey:      firstEnv("GEMINI_API_KEY", "API_KEY"), // API_KEY is the legacy name
		OpenAIAPIKey:      os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:     getEnvOrDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		TextModel:         os.Getenv("TEXT_MODEL"),
		ImageModel:        os.Getenv("IMAGE_MODEL"),
		ImageAspectRatio:  getEnvOrDefault("IMAGE_ASPECT_RATIO", "16:9"),
		ImageMIMEType:     getEnvOrDefault("IMAGE_MIME_TYPE", "image/jpeg"),
		Host:              getEnvOrDefault("HOST", "localhost"),
		PromptCatalogPath: os.Getenv("PROMPTS_FILE"),
		LogLevel:          getEnvOrDefault("LOG_LEVEL", "info"),
		LogFile:           getEnvOrDefault("LOG_FILE", "spooktrunt.log"),
	}

	for _, p := range []struct{ key, value string }{
		{"TEXT_PROVIDER", cfg.TextProvider},
		{"IMAGE_PROVIDER", cfg.ImageProvider},
	} {
		if p.value != ProviderGemini && p.value != ProviderOpenAI {
			return nil, ErrInvalidConfig(p.key, p.value, "expected gemini or openai")
		}
	}

	aiTimeout, err := parseIntEnv("AI_TIMEOUT", 0)
	if err != nil {
		return nil, err
	}
	if aiTimeout < 0 {
		return nil, ErrInvalidConfig("AI_TIMEOUT", strconv.Itoa(aiTimeout), "must be zero or positive")
	}
	cfg.AITimeout = time.Duration(aiTimeout) * time.Second

	if cfg.Port, err = parseIntEnv("PORT", 3000); err != nil {
		return nil, err
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, ErrInvalidConfig("PORT", strconv.Itoa(cfg.Port), "must be between 1 and 65535")
	}

	// 20MB covers phone photos of hand-drawn blueprints
	if cfg.MaxUploadBytes, err = parseInt64Env("MAX_UPLOAD_BYTES", 20<<20); err != nil {
		return nil, err
	}
	if cfg.MaxUploadBytes <= 0 {
		return nil, ErrInvalidConfig("MAX_UPLOAD_BYTES", strconv.FormatInt(cfg.MaxUploadBytes, 10), "must be positive")
	}

	// 0 keeps uploads at their original size
	if cfg.BlueprintMaxEdge, err = parseIntEnv("BLUEPRINT_MAX_DIMENSION", 2048); err != nil {
		return nil, err
	}
	if cfg.BlueprintMaxEdge < 0 {
		return nil, ErrInvalidConfig("BLUEPRINT_MAX_DIMENSION", strconv.Itoa(cfg.BlueprintMaxEdge), "must be zero or positive")
	}

	ttlHours, err := parseIntEnv("SESSION_TTL_HOURS", 24)
	if err != nil {
		return nil, err
	}
	if ttlHours < 1 {
		return nil, ErrInvalidConfig("SESSION_TTL_HOURS", strconv.Itoa(ttlHours), "must be at least 1")
	}
	cfg.SessionTTL = time.Duration(ttlHours) * time.Hour

	if cfg.AllowSelfSignedCerts, err = parseBoolEnv("ALLOW_SELF_SIGNED_CERTS", false); err != nil {
		return nil, err
	}
	if cfg.DevMode, err = parseBoolEnv("DEV_MODE", false); err != nil {
		return nil, err
	}

	if err := cfg.checkCredentials(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// checkCredentials verifies that every selected provider has a key.
func (c *Config) checkCredentials() error {
	if c.UsesGemini() && c.GeminiAPIKey == "" {
		return ErrMissingAuth(ProviderGemini)
	}
	if c.UsesOpenAI() && c.OpenAIAPIKey == "" {
		return ErrMissingAuth(ProviderOpenAI)
	}
	return nil
}

// GetHTTPClient returns an HTTP client configured with TLS settings based on AllowSelfSignedCerts.
// A zero timeout leaves the client without a deadline.
func GetHTTPClient(cfg *Config, timeout time.Duration) *http.Client {
	client := &http.Client{
		Timeout: timeout,
	}

	if cfg != nil && cfg.AllowSelfSignedCerts {
		client.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	return client
}
