// Package filehandler reads, validates, and prepares images supplied by the user.
//
// Uploaded bytes are identified by content, never by name: every raster format is
// confirmed with image.DecodeConfig (JPEG, PNG, GIF, WebP, BMP, TIFF) and HEIC/HEIF
// by its ISO-BMFF brand. EXIF metadata is extracted best-effort with
// evanoberholster/imagemeta, and oversized images are downscaled with
// golang.org/x/image/draw.
package filehandler

import (
	"fmt"
	"strings"

	// Register decoders for image.DecodeConfig / image.Decode.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// SupportedImageExtensions maps the file extensions offered by pickers to their MIME type.
var SupportedImageExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".bmp":  "image/bmp",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
	".heic": "image/heic",
	".heif": "image/heif",
}

// nativeMIMETypes are accepted by the Gemini API as-is. Other decodable formats
// are re-encoded as PNG before use.
var nativeMIMETypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/heic": true,
	"image/heif": true,
}

// formatMIMETypes maps image.DecodeConfig format names to MIME types.
var formatMIMETypes = map[string]string{
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
	"bmp":  "image/bmp",
	"tiff": "image/tiff",
}

// GetMIMEType returns the MIME type for a given file extension.
func GetMIMEType(ext string) (string, error) {
	if mimeType, ok := SupportedImageExtensions[strings.ToLower(ext)]; ok {
		return mimeType, nil
	}
	return "", fmt.Errorf("unsupported file extension: %s", ext)
}

// IsImage returns true if the file extension corresponds to a supported image.
func IsImage(ext string) bool {
	_, ok := SupportedImageExtensions[strings.ToLower(ext)]
	return ok
}

// PickerPatterns returns glob patterns for every supported extension, for file dialogs.
func PickerPatterns() []string {
	patterns := make([]string, 0, len(SupportedImageExtensions))
	for ext := range SupportedImageExtensions {
		patterns = append(patterns, "*"+ext)
	}
	return patterns
}
