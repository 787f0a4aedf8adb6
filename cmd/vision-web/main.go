package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/fpang/ai-vision-studio/internal/cli"
	"github.com/fpang/ai-vision-studio/internal/config"
	"github.com/fpang/ai-vision-studio/internal/logging"
	"github.com/fpang/ai-vision-studio/internal/store"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// CLI flags
var (
	portFlag       int
	noValidateFlag bool
	noPickerFlag   bool
)

var rootCmd = &cobra.Command{
	Use:   "vision-web",
	Short: "Web UI for generating, analyzing, and editing images with Gemini",
	Long: `Vision Web starts a local web server with the AI Vision Studio page.
Generate an image from a prompt or upload one, ask for a description, edit
ideas, or a story, and apply edits in plain language.

Configuration is read from .env and VISION_* environment variables; flags
override them.

Examples:
  vision-web
  vision-web --port 9090
  vision-web --no-validate`,
	Run: runMain,
}

func init() {
	rootCmd.Flags().IntVar(&portFlag, "port", 0, "Port to listen on (default from VISION_PORT or 8080)")
	rootCmd.Flags().BoolVar(&noValidateFlag, "no-validate", false, "Skip the API key check at startup")
	rootCmd.Flags().BoolVar(&noPickerFlag, "no-picker", false, "Disable the native file picker endpoint")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMain(cmd *cobra.Command, args []string) {
	start := time.Now()
	logging.Init()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if portFlag != 0 {
		cfg.Port = portFlag
	}
	if noValidateFlag {
		cfg.ValidateKey = false
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc := cli.InitService(ctx, cfg)
	sessions := store.NewMemoryStore(cfg.SessionTTL, controllerFactory(svc, cfg))

	var picker filePicker = cli.PickImageFile
	if noPickerFlag {
		picker = nil
	}
	s := newServer(sessions, cfg, picker)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 180 * time.Second, // image edits can take a minute
		IdleTimeout:  60 * time.Second,
	}

	cli.StartupSummary("vision-web", commitHash, buildTime, cfg).
		Config("port", strconv.Itoa(cfg.Port)).
		Config("sessionTTL", cfg.SessionTTL.String()).
		Feature("rateLimit", cfg.RateLimitPerMinute > 0).
		Feature("picker", picker != nil).
		InitDuration(time.Since(start)).
		Log()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Int("port", cfg.Port).Msg("Starting web server")
		fmt.Printf("\n  AI Vision Studio: http://localhost:%d\n\n", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
	log.Info().Msg("Server stopped")
}
