package filehandler

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"github.com/rs/zerolog/log"
	"golang.org/x/image/draw"
)

// downscaleJPEGQuality is the encoder quality for downscaled JPEGs.
const downscaleJPEGQuality = 90

// downscale shrinks the image so its longest side is maxDimension. JPEG stays
// JPEG; everything else is written as PNG. HEIC/HEIF cannot be decoded and is
// passed through unchanged.
func (l *LoadedImage) downscale(maxDimension int) error {
	if l.MIMEType == "image/heic" || l.MIMEType == "image/heif" {
		return nil
	}

	src, _, err := image.Decode(bytes.NewReader(l.Data))
	if err != nil {
		return fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := src.Bounds()
	origWidth, origHeight := bounds.Dx(), bounds.Dy()
	newWidth, newHeight := calculateScaledDimensions(origWidth, origHeight, maxDimension)
	if newWidth == origWidth && newHeight == origHeight {
		return nil
	}

	resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(resized, resized.Bounds(), src, bounds, draw.Over, nil)

	var buf bytes.Buffer
	mimeType := "image/png"
	if l.MIMEType == "image/jpeg" {
		mimeType = "image/jpeg"
		err = jpeg.Encode(&buf, resized, &jpeg.Options{Quality: downscaleJPEGQuality})
	} else {
		err = png.Encode(&buf, resized)
	}
	if err != nil {
		return fmt.Errorf("failed to encode resized image: %w", err)
	}

	log.Debug().
		Str("name", l.Name).
		Int("orig_width", origWidth).
		Int("orig_height", origHeight).
		Int("new_width", newWidth).
		Int("new_height", newHeight).
		Int("output_size", buf.Len()).
		Msg("Image downscaled")

	l.Data = buf.Bytes()
	l.MIMEType = mimeType
	if l.Metadata != nil {
		l.Metadata.Width, l.Metadata.Height = newWidth, newHeight
	}
	return nil
}

// calculateScaledDimensions calculates new dimensions maintaining aspect ratio.
func calculateScaledDimensions(width, height, maxDimension int) (int, int) {
	if width <= maxDimension && height <= maxDimension {
		return width, height
	}

	if width > height {
		newHeight := int(float64(height) * float64(maxDimension) / float64(width))
		return maxDimension, max(newHeight, 1)
	}

	newWidth := int(float64(width) * float64(maxDimension) / float64(height))
	return max(newWidth, 1), maxDimension
}
