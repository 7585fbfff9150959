// Package imagegen renders structures into pictures through a hosted image
// model: one prompt in, exactly one image out, at a fixed aspect ratio and
// encoding.
//
// atoms.go contains pure utility functions with no dependencies.
package imagegen

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// IsLocalEndpoint reports whether endpoint points at a loopback or private
// network host. Self-hosted OpenAI-compatible servers rarely implement the
// images API, so these endpoints are rejected for image generation.
//
// This is a pure function with no side effects.
//
// Example:
//
//	IsLocalEndpoint("http://localhost:1234/v1")   // true
//	IsLocalEndpoint("http://192.168.1.100:5000")  // true
//	IsLocalEndpoint("https://api.openai.com/v1")  // false
func IsLocalEndpoint(endpoint string) bool {
	if endpoint == "" {
		return false
	}
	u, err := url.Parse(endpoint)
	if err != nil || u.Hostname() == "" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && (ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified())
}

// OpenAISizeFor maps an aspect ratio onto the nearest size the OpenAI images
// API accepts for model.
//
// Example:
//
//	OpenAISizeFor("dall-e-3", "16:9")    // "1792x1024"
//	OpenAISizeFor("gpt-image-1", "16:9") // "1536x1024"
func OpenAISizeFor(model, aspectRatio string) (string, error) {
	gptImage := isGPTImageModel(model)

	switch aspectRatio {
	case "1:1":
		return "1024x1024", nil
	case "16:9", "4:3", "3:2":
		if gptImage {
			return "1536x1024", nil
		}
		return "1792x1024", nil
	case "9:16", "3:4", "2:3":
		if gptImage {
			return "1024x1536", nil
		}
		return "1024x1792", nil
	default:
		return "", fmt.Errorf("imagegen: unsupported aspect ratio %q", aspectRatio)
	}
}

func isGPTImageModel(model string) bool {
	return strings.HasPrefix(model, "gpt-image")
}

// GeminiAspectRatios lists the ratios Imagen accepts.
var GeminiAspectRatios = []string{"1:1", "3:4", "4:3", "9:16", "16:9"}

// ValidGeminiAspectRatio reports whether ratio is accepted by Imagen.
func ValidGeminiAspectRatio(ratio string) bool {
	for _, r := range GeminiAspectRatios {
		if r == ratio {
			return true
		}
	}
	return false
}
