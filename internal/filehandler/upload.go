package filehandler

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// DefaultMaxBytes caps an image read when Options.MaxBytes is zero.
const DefaultMaxBytes = 20 * 1024 * 1024

// DefaultMaxPixels caps width*height when Options.MaxPixels is zero. Decoding
// allocates per pixel, so the byte cap alone does not bound memory.
const DefaultMaxPixels = 50_000_000

var (
	// ErrEmptyFile is returned for zero-length input.
	ErrEmptyFile = errors.New("file is empty")
	// ErrTooLarge is returned when input exceeds Options.MaxBytes or Options.MaxPixels.
	ErrTooLarge = errors.New("file exceeds the maximum upload size")
	// ErrUnsupportedFormat is returned when the bytes are not a recognizable image.
	ErrUnsupportedFormat = errors.New("file is not a supported image")
)

// Options controls how user images are read.
type Options struct {
	// MaxBytes rejects larger inputs. Zero means DefaultMaxBytes.
	MaxBytes int64
	// MaxDimension downscales images whose longest side exceeds it. Zero disables.
	MaxDimension int
	// MaxPixels rejects images with more pixels. Zero means DefaultMaxPixels.
	MaxPixels int64
}

func (o Options) maxBytes() int64 {
	if o.MaxBytes > 0 {
		return o.MaxBytes
	}
	return DefaultMaxBytes
}

func (o Options) maxPixels() int64 {
	if o.MaxPixels > 0 {
		return o.MaxPixels
	}
	return DefaultMaxPixels
}

// LoadedImage is a validated image ready to send to the model.
type LoadedImage struct {
	Name     string
	Data     []byte
	MIMEType string
	Metadata *ImageMetadata
}

// ReadImage validates uploaded bytes and prepares them for the model.
//
// The format is sniffed from content; declaredType (from the browser or file
// extension) is only compared for logging. Formats the model does not accept
// directly are re-encoded as PNG, and images larger than opts.MaxDimension
// are downscaled. Metadata is extracted before any re-encoding.
func ReadImage(name, declaredType string, data []byte, opts Options) (*LoadedImage, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}
	if int64(len(data)) > opts.maxBytes() {
		return nil, fmt.Errorf("%w (%d bytes, limit %d)", ErrTooLarge, len(data), opts.maxBytes())
	}

	mimeType, width, height, err := sniffImage(data)
	if err != nil {
		return nil, err
	}
	if pixels := int64(width) * int64(height); pixels > opts.maxPixels() {
		return nil, fmt.Errorf("%w (%dx%d pixels, limit %d)", ErrTooLarge, width, height, opts.maxPixels())
	}

	if declaredType != "" && !strings.EqualFold(declaredType, mimeType) {
		log.Debug().
			Str("name", name).
			Str("declared_type", declaredType).
			Str("detected_type", mimeType).
			Msg("Declared type differs from content, using detected type")
	}

	loaded := &LoadedImage{Name: name, Data: data, MIMEType: mimeType}

	meta, err := ExtractImageMetadata(data)
	if err != nil {
		log.Debug().Err(err).Str("name", name).Msg("No EXIF metadata, continuing without it")
		meta = &ImageMetadata{}
	}
	meta.Width, meta.Height = width, height
	loaded.Metadata = meta

	if !nativeMIMETypes[mimeType] {
		if err := loaded.reencodePNG(); err != nil {
			return nil, err
		}
	}

	if opts.MaxDimension > 0 && (width > opts.MaxDimension || height > opts.MaxDimension) {
		if err := loaded.downscale(opts.MaxDimension); err != nil {
			return nil, err
		}
	}

	log.Info().
		Str("name", name).
		Str("mime_type", loaded.MIMEType).
		Int("size_bytes", len(loaded.Data)).
		Int("width", loaded.Metadata.Width).
		Int("height", loaded.Metadata.Height).
		Msg("Image loaded successfully")

	return loaded, nil
}

// LoadImageFile reads an image from disk and passes it through ReadImage.
func LoadImageFile(filePath string, opts Options) (*LoadedImage, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %s", filePath)
		}
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("path is a directory, not a file: %s", filePath)
	}
	if info.Size() > opts.maxBytes() {
		return nil, fmt.Errorf("%w (%d bytes, limit %d)", ErrTooLarge, info.Size(), opts.maxBytes())
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	declared, _ := GetMIMEType(filepath.Ext(filePath))
	return ReadImage(filepath.Base(filePath), declared, data, opts)
}

// ProbeDimensions returns the pixel size of encoded image bytes, if decodable.
func ProbeDimensions(data []byte) (width, height int, ok bool) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, false
	}
	return cfg.Width, cfg.Height, true
}

// sniffImage identifies the format and pixel size from content.
func sniffImage(data []byte) (mimeType string, width, height int, err error) {
	cfg, format, decodeErr := image.DecodeConfig(bytes.NewReader(data))
	if decodeErr == nil {
		if mt, ok := formatMIMETypes[format]; ok {
			return mt, cfg.Width, cfg.Height, nil
		}
		return "", 0, 0, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	if mt := heifMIMEType(data); mt != "" {
		// No pure Go HEIF decoder; dimensions stay unknown.
		return mt, 0, 0, nil
	}

	return "", 0, 0, fmt.Errorf("%w: %v", ErrUnsupportedFormat, decodeErr)
}

// heifMIMEType inspects the ISO-BMFF ftyp box for a HEIC/HEIF major brand.
func heifMIMEType(data []byte) string {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return ""
	}
	switch string(data[8:12]) {
	case "heic", "heix", "heim", "heis", "hevc", "hevx", "hevm", "hevs":
		return "image/heic"
	case "mif1", "msf1", "heif":
		return "image/heif"
	default:
		return ""
	}
}

// reencodePNG converts the image to PNG in place.
func (l *LoadedImage) reencodePNG() error {
	img, _, err := image.Decode(bytes.NewReader(l.Data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("failed to encode PNG: %w", err)
	}

	log.Debug().
		Str("name", l.Name).
		Str("from", l.MIMEType).
		Int("output_size", buf.Len()).
		Msg("Re-encoded image as PNG")

	l.Data = buf.Bytes()
	l.MIMEType = "image/png"
	return nil
}
