package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeneratedImageMIMEType is the media type requested from, and attributed to,
// text-to-image output.
const GeneratedImageMIMEType = "image/jpeg"

// GenerateImage produces one square JPEG from a text prompt.
func (s *Service) GenerateImage(ctx context.Context, prompt string) (Image, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return Image{}, newOperationError(OpGenerateImage, errors.New("prompt is empty"))
	}

	ctx, c := s.begin(ctx, OpGenerateImage, s.models.Image, len(prompt))

	resp, err := s.client.GenerateImages(ctx, s.models.Image, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		OutputMIMEType: GeneratedImageMIMEType,
		AspectRatio:    "1:1",
	})
	if err != nil {
		return Image{}, c.fail(fmt.Errorf("generate images: %w", err))
	}

	data, err := singleGeneratedImage(resp)
	if err != nil {
		return Image{}, c.fail(err)
	}

	c.done(len(data))
	return Image{Data: data, MIMEType: GeneratedImageMIMEType}, nil
}

// singleGeneratedImage returns the bytes of the only generated image. Zero or
// several images are both treated as failures.
func singleGeneratedImage(resp *genai.GenerateImagesResponse) ([]byte, error) {
	if resp == nil || len(resp.GeneratedImages) == 0 {
		return nil, ErrEmptyResponse
	}
	if n := len(resp.GeneratedImages); n > 1 {
		return nil, fmt.Errorf("expected 1 generated image, got %d", n)
	}

	gen := resp.GeneratedImages[0]
	if gen == nil || gen.Image == nil || len(gen.Image.ImageBytes) == 0 {
		if gen != nil && gen.RAIFilteredReason != "" {
			return nil, fmt.Errorf("image filtered: %s", gen.RAIFilteredReason)
		}
		return nil, ErrEmptyResponse
	}
	return gen.Image.ImageBytes, nil
}
