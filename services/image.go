package services

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"

	// Formats accepted for memory photos.
	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/m-mizutani/goerr/v2"
)

const (
	jpegQuality = 90

	// MaxImagePixels bounds the decoded size of an upload; the compressed size
	// says little about the memory a decode needs.
	MaxImagePixels = 40_000_000
)

// NormalizeImage re-encodes an uploaded photo as an RGB JPEG. Transparent
// areas are flattened onto white.
func NormalizeImage(data []byte) ([]byte, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, goerr.Wrap(kindError(ErrImage, err), "failed to read image header")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxImagePixels {
		return nil, goerr.Wrap(ErrImage, "image dimensions out of range",
			goerr.V("width", cfg.Width),
			goerr.V("height", cfg.Height),
			goerr.V("max_pixels", MaxImagePixels))
	}

	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, goerr.Wrap(kindError(ErrImage, err), "failed to decode uploaded image")
	}

	bounds := src.Bounds()
	rgb := image.NewRGBA(bounds)
	draw.Draw(rgb, bounds, &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(rgb, bounds, src, bounds.Min, draw.Over)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, rgb, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, goerr.Wrap(err, "failed to encode jpeg", goerr.V("source_format", format))
	}
	return buf.Bytes(), nil
}
