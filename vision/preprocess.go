package vision

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Image preprocessing errors
var (
	ErrInvalidImage      = errors.New("vision: invalid image data")
	ErrUnsupportedFormat = errors.New("vision: unsupported image format")
	ErrEmptyImage        = errors.New("vision: empty image data")
)

// jpegQuality is used when a downscaled blueprint is re-encoded as JPEG.
const jpegQuality = 90

// DecodeImage decodes image data from common formats (PNG, JPEG, GIF, WebP, BMP).
// This is a pure function with no side effects.
func DecodeImage(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", ErrEmptyImage
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	return img, format, nil
}

// ImageSize reads only the header of an encoded image and returns its width
// and height.
func ImageSize(data []byte) (int, int, error) {
	if len(data) == 0 {
		return 0, 0, ErrEmptyImage
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return cfg.Width, cfg.Height, nil
}

// FitWithin scales img down so that its longest edge is at most maxEdge,
// preserving the aspect ratio. Images already within bounds are returned
// unchanged.
// This is a pure function with no side effects.
func FitWithin(img image.Image, maxEdge int) image.Image {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	longest := max(width, height)
	if maxEdge <= 0 || longest <= maxEdge {
		return img
	}

	scale := float64(maxEdge) / float64(longest)
	newWidth := max(1, int(float64(width)*scale))
	newHeight := max(1, int(float64(height)*scale))

	dst := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

// EncodeImage writes img as PNG when mimeType is image/png and as JPEG
// otherwise. It returns the bytes and the MIME type actually produced.
func EncodeImage(img image.Image, mimeType string) ([]byte, string, error) {
	var buf bytes.Buffer
	if mimeType == MIMEPNG {
		if err := png.Encode(&buf, img); err != nil {
			return nil, "", fmt.Errorf("vision: encode png: %w", err)
		}
		return buf.Bytes(), MIMEPNG, nil
	}
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, "", fmt.Errorf("vision: encode jpeg: %w", err)
	}
	return buf.Bytes(), MIMEJPEG, nil
}
