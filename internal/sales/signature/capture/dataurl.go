package capture

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/png"
	"strings"
)

// ErrInvalidDataURL is returned for anything that is not a base64 PNG data URL.
var ErrInvalidDataURL = errors.New("signature image must be a base64 PNG data URL")

const pngPrefix = "data:image/png;base64,"

// Encode renders img as a PNG data URL.
func Encode(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode signature png: %w", err)
	}
	return pngPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Decode parses a PNG data URL. Images larger than MaxDimension on either
// side are refused before their pixels are decoded.
func Decode(dataURL string) (image.Image, error) {
	if !strings.HasPrefix(dataURL, pngPrefix) {
		return nil, ErrInvalidDataURL
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(dataURL, pngPrefix))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
	}
	if cfg.Width > MaxDimension || cfg.Height > MaxDimension {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d", ErrInvalidDataURL, cfg.Width, cfg.Height, MaxDimension)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
	}
	return img, nil
}

// HasInk reports whether a data URL holds at least one inked pixel. A blank
// canvas, transparent or white, has none.
func HasInk(dataURL string) (bool, error) {
	if strings.TrimSpace(dataURL) == "" {
		return false, nil
	}
	img, err := Decode(dataURL)
	if err != nil {
		return false, err
	}
	return inked(img), nil
}

// inked treats any visible pixel that is not near-white as ink.
func inked(img image.Image) bool {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, a := img.At(x, y).RGBA()
			if a < 0x1000 {
				continue
			}
			// Colour channels are alpha-premultiplied; compare against alpha.
			const slack = 0x0f00
			if r+slack < a || g+slack < a || bl+slack < a {
				return true
			}
		}
	}
	return false
}
