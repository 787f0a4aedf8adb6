package filehandler

import (
	"strings"
	"testing"
	"time"
)

func TestImageMetadataSummary(t *testing.T) {
	tests := []struct {
		name     string
		meta     *ImageMetadata
		contains []string
		empty    bool
	}{
		{
			name: "Full metadata",
			meta: &ImageMetadata{
				Width:       1024,
				Height:      768,
				DateTaken:   time.Date(2024, 12, 31, 10, 30, 0, 0, time.UTC),
				HasDate:     true,
				CameraMake:  "Apple",
				CameraModel: "iPhone 15 Pro",
				Latitude:    40.7128,
				Longitude:   -74.0060,
				HasGPS:      true,
			},
			contains: []string{"1024x768", "Apple iPhone 15 Pro", "taken 2024-12-31 10:30", "40.71280,-74.00600"},
		},
		{
			name:     "Dimensions only",
			meta:     &ImageMetadata{Width: 10, Height: 20},
			contains: []string{"10x20"},
		},
		{
			name:  "Empty metadata",
			meta:  &ImageMetadata{},
			empty: true,
		},
		{
			name:  "Nil metadata",
			meta:  nil,
			empty: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			summary := tt.meta.Summary()
			if tt.empty {
				if summary != "" {
					t.Errorf("Summary() = %q, want empty", summary)
				}
				return
			}
			for _, substr := range tt.contains {
				if !strings.Contains(summary, substr) {
					t.Errorf("Summary() = %q, missing %q", summary, substr)
				}
			}
		})
	}
}

func TestImageMetadataCamera(t *testing.T) {
	if got := (&ImageMetadata{CameraMake: "Canon"}).Camera(); got != "Canon" {
		t.Errorf("Camera() = %q, want Canon", got)
	}
	if got := (&ImageMetadata{CameraModel: "X100V"}).Camera(); got != "X100V" {
		t.Errorf("Camera() = %q, want X100V", got)
	}
}
