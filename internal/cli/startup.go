package cli

import (
	"strconv"

	"github.com/fpang/ai-vision-studio/internal/config"
	"github.com/fpang/ai-vision-studio/internal/logging"
)

// StartupSummary returns a StartupLogger pre-filled with the model table and
// the non-sensitive settings from cfg. Binaries add their own features and
// call Log.
func StartupSummary(name, commitHash, buildTime string, cfg *config.Config) *logging.StartupLogger {
	return logging.NewStartupLogger(name).
		CommitHash(commitHash).
		BuildTime(buildTime).
		Model("generateImage", cfg.Models.Image).
		Model("describeImage", cfg.Models.Describe).
		Model("suggestEdits", cfg.Models.Suggest).
		Model("generateStory", cfg.Models.Story).
		Model("editImage", cfg.Models.Edit).
		Config("suggestionCount", strconv.Itoa(cfg.SuggestionCount)).
		Config("maxUploadBytes", strconv.FormatInt(cfg.MaxUploadBytes, 10)).
		Config("maxImageDimension", strconv.Itoa(cfg.MaxImageDimension)).
		Feature("keyValidation", cfg.ValidateKey)
}
