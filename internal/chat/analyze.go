package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/fpang/ai-vision-studio/internal/assets"
)

// DescribeImage returns a detailed free-text description of img.
func (s *Service) DescribeImage(ctx context.Context, img Image) (string, error) {
	return s.analyzeText(ctx, OpDescribeImage, s.models.Describe, img, assets.DescribePrompt())
}

// GenerateStory returns a short imaginative story inspired by img.
func (s *Service) GenerateStory(ctx context.Context, img Image) (string, error) {
	return s.analyzeText(ctx, OpGenerateStory, s.models.Story, img, assets.StoryPrompt())
}

// analyzeText sends img with a fixed instruction and returns the model's text.
// An empty answer is a failure.
func (s *Service) analyzeText(ctx context.Context, op Operation, model string, img Image, instruction string) (string, error) {
	if len(img.Data) == 0 {
		return "", newOperationError(op, fmt.Errorf("no image data"))
	}

	ctx, c := s.begin(ctx, op, model, len(img.Data))

	resp, err := s.client.GenerateContent(ctx, model, imageContents(img, instruction), nil)
	if err != nil {
		return "", c.fail(fmt.Errorf("generate content: %w", err))
	}

	text := strings.TrimSpace(responseText(resp))
	if text == "" {
		return "", c.fail(ErrEmptyResponse)
	}

	c.done(len(text))
	return text, nil
}
