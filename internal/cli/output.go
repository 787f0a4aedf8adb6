package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fpang/ai-vision-studio/internal/chat"
)

// extensions for image media types written by WriteImage.
var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/heic": ".heic",
	"image/heif": ".heif",
}

// OutputPath returns path, adding the extension for mimeType when path has none.
func OutputPath(path, mimeType string) string {
	if filepath.Ext(path) != "" {
		return path
	}
	if ext, ok := extensions[strings.ToLower(mimeType)]; ok {
		return path + ext
	}
	return path
}

// WriteImage writes img to path (extension added when missing) and returns
// the final path.
func WriteImage(path string, img chat.Image) (string, error) {
	if len(img.Data) == 0 {
		return "", fmt.Errorf("no image data to write")
	}
	path = OutputPath(path, img.MIMEType)
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, img.Data, 0644); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	return path, nil
}
