package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/archiflow/internal/app"
	"github.com/fpang/archiflow/internal/config"
	"github.com/fpang/archiflow/internal/logging"
	"github.com/fpang/archiflow/internal/mcptools"
)

var configFlag string

var rootCmd = &cobra.Command{
	Use:   "archiflow-mcp",
	Short: "Serve archiflow prompt and concept tools over MCP stdio",
	Long: `Archiflow MCP runs a Model Context Protocol server on stdin/stdout
with three tools: refine_prompt, enhance_prompt and generate_concept_image.
Logs go to stderr so they never corrupt the protocol stream.

Example client entry:
  {"command": "archiflow-mcp", "args": ["--config", "archiflow.yaml"]}`,
	RunE: runMain,
}

func init() {
	rootCmd.Flags().StringVarP(&configFlag, "config", "c", "", "Optional YAML config file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMain(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFlag)
	if err != nil {
		return err
	}
	// Console output goes to stderr; stdout belongs to the protocol.
	logging.Init(cfg.LogLevel, true)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, false)
	if err != nil {
		log.Error().Err(err).Msg("Startup failed")
		return err
	}
	a.StartupLogger("archiflow-mcp", commitHash).Log()

	server := mcptools.NewServer(a.Generator, commitHash)
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("MCP server stopped")
		return err
	}
	return nil
}
