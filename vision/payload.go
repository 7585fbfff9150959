// Package vision turns uploaded blueprint images into the inline payloads
// that the generation client attaches to provider requests.
//
// Organism: EncodeBlueprint composes MIME sniffing, size checks and optional
// downscaling into a single call returning a base64 payload.
package vision

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
)

// Common image MIME types.
const (
	MIMEJPEG = "image/jpeg"
	MIMEPNG  = "image/png"
	MIMEGIF  = "image/gif"
	MIMEWEBP = "image/webp"
	MIMEBMP  = "image/bmp"
)

// Payload is an image ready to be attached to a provider request.
type Payload struct {
	// Base64 is the standard base64 encoding of the image bytes.
	Base64   string
	MIMEType string
}

// IsZero reports whether the payload carries no image.
func (p Payload) IsZero() bool {
	return p.Base64 == ""
}

// Bytes decodes the base64 payload back to raw bytes.
func (p Payload) Bytes() ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(p.Base64)
	if err != nil {
		return nil, fmt.Errorf("vision: decode payload: %w", err)
	}
	return data, nil
}

// DataURI renders the payload as a data: URI.
func (p Payload) DataURI() string {
	return "data:" + p.MIMEType + ";base64," + p.Base64
}

// NewPayload wraps raw image bytes without inspecting them.
func NewPayload(data []byte, mimeType string) Payload {
	return Payload{
		Base64:   base64.StdEncoding.EncodeToString(data),
		MIMEType: mimeType,
	}
}

// DetectMIME sniffs the MIME type of data. Parameters such as charset are
// dropped.
func DetectMIME(data []byte) string {
	mimeType := http.DetectContentType(data)
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.TrimSpace(mimeType)
}

// IsImageMIME reports whether mimeType names an image type.
func IsImageMIME(mimeType string) bool {
	return strings.HasPrefix(mimeType, "image/")
}

// EncodeBlueprint validates an uploaded blueprint and encodes it as a Payload.
//
// The MIME type is sniffed from the content, never taken from the client.
// Images whose longest edge exceeds maxEdge are downscaled and re-encoded
// (PNG stays PNG, everything else becomes JPEG). A maxEdge of zero disables
// downscaling.
//
// Example:
//
//	p, err := vision.EncodeBlueprint(upload, 2048)
//	// p.MIMEType == "image/png", p.Base64 == "iVBORw0KGgo..."
func EncodeBlueprint(data []byte, maxEdge int) (Payload, error) {
	if len(data) == 0 {
		return Payload{}, ErrEmptyImage
	}

	mimeType := DetectMIME(data)
	if !IsImageMIME(mimeType) {
		return Payload{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, mimeType)
	}

	width, height, err := ImageSize(data)
	if err != nil {
		return Payload{}, err
	}

	if maxEdge > 0 && max(width, height) > maxEdge {
		img, _, err := DecodeImage(data)
		if err != nil {
			return Payload{}, err
		}
		resized, outType, err := EncodeImage(FitWithin(img, maxEdge), mimeType)
		if err != nil {
			return Payload{}, err
		}
		return NewPayload(resized, outType), nil
	}

	return NewPayload(data, mimeType), nil
}
