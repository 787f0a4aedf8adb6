package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fpang/ai-vision-studio/internal/cli"
	"github.com/fpang/ai-vision-studio/internal/config"
	"github.com/fpang/ai-vision-studio/internal/logging"
	"github.com/fpang/ai-vision-studio/internal/metrics"
	"github.com/fpang/ai-vision-studio/internal/studio"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Persistent flags
var (
	imageFlag      string
	pickFlag       bool
	noValidateFlag bool
	metricsFlag    bool
	logLevelFlag   string
)

var rootCmd = &cobra.Command{
	Use:   "vision-cli",
	Short: "Generate, analyze, and edit images with Gemini from the terminal",
	Long: `Vision CLI runs AI Vision Studio operations from the command line.

Each subcommand performs one operation. Run without a subcommand for an
interactive session that keeps the current image between commands.

Examples:
  vision-cli generate --prompt "A lighthouse at dusk, watercolor" --out lighthouse
  vision-cli describe --image ./photo.jpg
  vision-cli suggest --pick
  vision-cli story --image ./photo.jpg
  vision-cli edit --image ./photo.jpg --instruction "Make the sky stormy" --out stormy
  vision-cli`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	RunE:              runInteractive,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&imageFlag, "image", "i", "", "Image file to work on")
	pf.BoolVar(&pickFlag, "pick", false, "Choose the image with a native file dialog")
	pf.BoolVar(&noValidateFlag, "no-validate", false, "Skip the API key check at startup")
	pf.BoolVar(&metricsFlag, "metrics", false, "Write EMF metrics to stderr")
	pf.StringVar(&logLevelFlag, "log-level", "", "Log level (overrides VISION_LOG_LEVEL)")

	rootCmd.AddCommand(generateCmd, describeCmd, suggestCmd, storyCmd, editCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app is the state shared by every subcommand after setup.
type app struct {
	cfg  *config.Config
	ctrl *studio.Controller
}

var current *app

// setup loads configuration and builds the controller. It runs before any
// subcommand.
func setup(cmd *cobra.Command, args []string) error {
	switch cmd.Name() {
	case "help", "completion":
		return nil
	}
	start := time.Now()
	logging.Init()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if logLevelFlag != "" {
		cfg.LogLevel = logLevelFlag
	}
	logging.InitWithLevel(cfg.LogLevel)
	if noValidateFlag {
		cfg.ValidateKey = false
	}

	if metricsFlag {
		metrics.SetOutput(os.Stderr)
	} else {
		metrics.SetOutput(io.Discard)
	}

	svc := cli.InitService(cmd.Context(), cfg)
	ctrl := studio.NewController(svc, studio.WithUploadOptions(cfg.UploadOptions()))
	current = &app{cfg: cfg, ctrl: ctrl}

	cli.StartupSummary("vision-cli", commitHash, buildTime, cfg).
		Feature("metrics", metricsFlag).
		InitDuration(time.Since(start)).
		Log()
	return nil
}

// loadInput makes --image or --pick the current image.
func (a *app) loadInput() error {
	path := imageFlag
	if pickFlag {
		picked, err := cli.PickImageFile()
		if err != nil {
			return err
		}
		path = picked
	}
	if path == "" {
		return errors.New("an image is required: use --image <path> or --pick")
	}
	st, err := a.ctrl.UploadFile(path)
	if err != nil {
		return fmt.Errorf("%s: %w", st.Error, err)
	}
	log.Debug().Str("path", path).Str("media_type", st.Image.MIMEType).Msg("Image loaded")
	return nil
}

// signalContext cancels on Ctrl-C so a long remote call can be abandoned.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}
