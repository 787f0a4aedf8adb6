package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// EditedImageMIMEType is the media type attributed to edit output.
const EditedImageMIMEType = "image/png"

// EditImage applies a natural-language instruction to img and returns the new image.
// The response must carry exactly one inline image part.
func (s *Service) EditImage(ctx context.Context, img Image, instruction string) (Image, error) {
	instruction = strings.TrimSpace(instruction)
	if instruction == "" {
		return Image{}, newOperationError(OpEditImage, errors.New("instruction is empty"))
	}
	if len(img.Data) == 0 {
		return Image{}, newOperationError(OpEditImage, errors.New("no image data"))
	}

	model := s.models.Edit
	ctx, c := s.begin(ctx, OpEditImage, model, len(img.Data))

	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE"},
	}
	resp, err := s.client.GenerateContent(ctx, model, imageContents(img, instruction), config)
	if err != nil {
		return Image{}, c.fail(fmt.Errorf("generate content: %w", err))
	}

	data, err := singleInlineImage(resp)
	if err != nil {
		return Image{}, c.fail(err)
	}

	c.done(len(data))
	return Image{Data: data, MIMEType: EditedImageMIMEType}, nil
}

// singleInlineImage returns the bytes of the only inline image in the first candidate.
func singleInlineImage(resp *genai.GenerateContentResponse) ([]byte, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, ErrEmptyResponse
	}

	var images [][]byte
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
			images = append(images, part.InlineData.Data)
		}
	}

	switch len(images) {
	case 0:
		return nil, fmt.Errorf("no image part in response: %w", ErrEmptyResponse)
	case 1:
		return images[0], nil
	default:
		return nil, fmt.Errorf("expected 1 image part, got %d", len(images))
	}
}
