package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/fpang/ai-vision-studio/internal/assets"
	"github.com/fpang/ai-vision-studio/internal/jsonutil"
	"google.golang.org/genai"
)

// suggestionSchema constrains the model to an array of {title, description} objects.
var suggestionSchema = &genai.Schema{
	Type: genai.TypeArray,
	Items: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title": {
				Type:        genai.TypeString,
				Description: "A short, catchy title for the edit suggestion.",
			},
			"description": {
				Type:        genai.TypeString,
				Description: "A detailed description of the suggested edit, which can be used as a prompt for image editing.",
			},
		},
		Required:         []string{"title", "description"},
		PropertyOrdering: []string{"title", "description"},
	},
}

// SuggestEdits asks for creative edit ideas for img. The response must be a
// JSON array of objects with non-empty title and description; anything else
// fails the whole call.
func (s *Service) SuggestEdits(ctx context.Context, img Image) ([]EditSuggestion, error) {
	if len(img.Data) == 0 {
		return nil, newOperationError(OpSuggestEdits, fmt.Errorf("no image data"))
	}

	model := s.models.Suggest
	ctx, c := s.begin(ctx, OpSuggestEdits, model, len(img.Data))

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   suggestionSchema,
	}
	prompt := assets.RenderSuggestEditsPrompt(s.suggestionCount)

	resp, err := s.client.GenerateContent(ctx, model, imageContents(img, prompt), config)
	if err != nil {
		return nil, c.fail(fmt.Errorf("generate content: %w", err))
	}

	suggestions, err := parseSuggestions(responseText(resp))
	if err != nil {
		return nil, c.fail(err)
	}

	c.done(len(suggestions))
	return suggestions, nil
}

// parseSuggestions decodes and validates a suggestions payload.
func parseSuggestions(raw string) ([]EditSuggestion, error) {
	suggestions, err := jsonutil.ParseJSONStrict[[]EditSuggestion](raw)
	if err != nil {
		return nil, fmt.Errorf("parse suggestions: %w", err)
	}
	if suggestions == nil {
		return nil, fmt.Errorf("parse suggestions: expected array, got null")
	}

	for i := range suggestions {
		suggestions[i].Title = strings.TrimSpace(suggestions[i].Title)
		suggestions[i].Description = strings.TrimSpace(suggestions[i].Description)
		if suggestions[i].Title == "" || suggestions[i].Description == "" {
			return nil, fmt.Errorf("suggestion %d: title and description are required", i)
		}
	}
	return suggestions, nil
}
