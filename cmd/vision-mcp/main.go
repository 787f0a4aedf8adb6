package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fpang/ai-vision-studio/internal/cli"
	"github.com/fpang/ai-vision-studio/internal/config"
	"github.com/fpang/ai-vision-studio/internal/logging"
	"github.com/fpang/ai-vision-studio/internal/metrics"
	"github.com/fpang/ai-vision-studio/internal/studio"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var noValidateFlag bool

var rootCmd = &cobra.Command{
	Use:   "vision-mcp",
	Short: "MCP server exposing AI Vision Studio tools over stdio",
	Long: `Vision MCP serves image generation, analysis, and editing as Model Context
Protocol tools on stdin/stdout. All tools share one studio session, so an
image generated or loaded by one call is the input to the next.

Logs and metrics go to stderr; stdout carries only the protocol stream.

Example client configuration:
  {"command": "vision-mcp", "args": ["--no-validate"]}`,
	SilenceUsage: true,
	RunE:         runMain,
}

func init() {
	rootCmd.Flags().BoolVar(&noValidateFlag, "no-validate", false, "Skip the API key check at startup")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMain(cmd *cobra.Command, args []string) error {
	start := time.Now()
	metrics.SetOutput(os.Stderr)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	logging.InitJSON(cfg.LogLevel, os.Stderr)
	if noValidateFlag {
		cfg.ValidateKey = false
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc := cli.InitService(ctx, cfg)
	ctrl := studio.NewController(svc, studio.WithUploadOptions(cfg.UploadOptions()))
	server := newServer(ctrl)

	cli.StartupSummary("vision-mcp", commitHash, buildTime, cfg).
		Config("transport", "stdio").
		InitDuration(time.Since(start)).
		Log()

	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("MCP server stopped with error")
		return err
	}
	log.Info().Msg("MCP server stopped")
	return nil
}
