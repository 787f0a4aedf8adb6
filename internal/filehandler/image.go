package filehandler

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/evanoberholster/imagemeta"
	"github.com/rs/zerolog/log"
)

// ImageMetadata describes an image for display. Pixel dimensions come from
// the decoder; the remaining fields come from EXIF when present.
type ImageMetadata struct {
	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`

	DateTaken time.Time `json:"dateTaken,omitempty"`
	HasDate   bool      `json:"hasDate"`

	CameraMake  string `json:"cameraMake,omitempty"`
	CameraModel string `json:"cameraModel,omitempty"`

	Latitude  float64 `json:"latitude,omitempty"`
	Longitude float64 `json:"longitude,omitempty"`
	HasGPS    bool    `json:"hasGps"`
}

// Camera returns "make model", or "" when neither is known.
func (m *ImageMetadata) Camera() string {
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m.CameraMake + " " + m.CameraModel)
}

// Summary renders the metadata as a short single line, e.g.
// "1024x768, Apple iPhone 15 Pro, taken 2024-12-31 10:30".
func (m *ImageMetadata) Summary() string {
	if m == nil {
		return ""
	}
	var parts []string
	if m.Width > 0 && m.Height > 0 {
		parts = append(parts, fmt.Sprintf("%dx%d", m.Width, m.Height))
	}
	if camera := m.Camera(); camera != "" {
		parts = append(parts, camera)
	}
	if m.HasDate {
		parts = append(parts, "taken "+m.DateTaken.Format("2006-01-02 15:04"))
	}
	if m.HasGPS {
		parts = append(parts, fmt.Sprintf("at %.5f,%.5f", m.Latitude, m.Longitude))
	}
	return strings.Join(parts, ", ")
}

// ExtractImageMetadata reads EXIF metadata from encoded image bytes.
//
// imagemeta auto-detects the container (JPEG, HEIC, TIFF, PNG, WebP) from the
// header and only reads the metadata segments. Date uses the fallback chain
// DateTimeOriginal > CreateDate > ModifyDate.
func ExtractImageMetadata(data []byte) (*ImageMetadata, error) {
	exifData, err := imagemeta.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode EXIF metadata: %w", err)
	}

	metadata := &ImageMetadata{}

	gps := exifData.GPS
	if gps.Latitude() != 0 || gps.Longitude() != 0 {
		metadata.Latitude = gps.Latitude()
		metadata.Longitude = gps.Longitude()
		metadata.HasGPS = true
	}

	switch {
	case !exifData.DateTimeOriginal().IsZero():
		metadata.DateTaken = exifData.DateTimeOriginal()
		metadata.HasDate = true
	case !exifData.CreateDate().IsZero():
		metadata.DateTaken = exifData.CreateDate()
		metadata.HasDate = true
	case !exifData.ModifyDate().IsZero():
		metadata.DateTaken = exifData.ModifyDate()
		metadata.HasDate = true
	}

	metadata.CameraMake = strings.TrimSpace(exifData.Make)
	metadata.CameraModel = strings.TrimSpace(exifData.Model)

	log.Debug().
		Bool("has_gps", metadata.HasGPS).
		Bool("has_date", metadata.HasDate).
		Str("camera", metadata.Camera()).
		Msg("Image metadata extraction complete")

	return metadata, nil
}
