package cli

import (
	"context"

	"github.com/fpang/ai-vision-studio/internal/auth"
	"github.com/fpang/ai-vision-studio/internal/chat"
	"github.com/fpang/ai-vision-studio/internal/config"
	"github.com/rs/zerolog/log"
)

// InitService creates the Gemini client, optionally validates the API key,
// and returns an orchestration Service configured from cfg. Exits fatally on
// failure.
func InitService(ctx context.Context, cfg *config.Config) *chat.Service {
	apiKey, err := auth.GetAPIKey()
	if err != nil {
		HandleValidationError(err)
	}

	client, err := chat.NewGeminiClient(ctx, apiKey)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create Gemini client")
	}

	log.Info().Msg("connection successful - Gemini client initialized")

	if cfg.ValidateKey {
		if err := auth.ValidateAPIKey(ctx, client.Models, cfg.Models.Describe); err != nil {
			HandleValidationError(err)
		}
		log.Info().Msg("API key validation complete - ready for operations")
	}

	return chat.NewService(client.Models,
		chat.WithModels(cfg.Models),
		chat.WithSuggestionCount(cfg.SuggestionCount),
	)
}
