package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/archiflow/internal/app"
	"github.com/fpang/archiflow/internal/config"
	"github.com/fpang/archiflow/internal/logging"
)

// CLI flags
var (
	portFlag   int
	modelFlag  string
	configFlag string
)

var rootCmd = &cobra.Command{
	Use:   "archiflow-web",
	Short: "Local API server for the archiflow visualization pipeline",
	Long: `Archiflow Web starts a local server exposing the architectural
visualization pipeline as a JSON API: project context, reference images,
prompt generation and refinement, concept and hi-res renders, videos, the
Prompt Lab and the saved prompt library.

Examples:
  archiflow-web
  archiflow-web --port 9090
  archiflow-web --config archiflow.yaml --model gemini-3-pro-preview`,
	RunE: runMain,
}

func init() {
	rootCmd.Flags().IntVar(&portFlag, "port", 0, "Port to listen on (default from config, 8080)")
	rootCmd.Flags().StringVarP(&modelFlag, "model", "m", "", "Gemini model for prompt reasoning")
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
	if cmd.Flags().Changed("port") {
		cfg.Port = portFlag
	}
	if modelFlag != "" {
		cfg.Models.Reasoning = modelFlag
	}
	logging.Init(cfg.LogLevel, true)

	ctx := context.Background()
	a, err := app.New(ctx, cfg, true)
	if err != nil {
		log.Error().Err(err).Msg("Startup failed")
		return err
	}
	log.Info().Msg("API key validated")

	api, err := a.APIServer(pickFiles)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     api.Handler(),
		ReadTimeout: 30 * time.Second,
		// Concept and hi-res renders can take well over a minute.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info().Msg("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}()

	a.StartupLogger("archiflow-web", commitHash).
		Config("port", fmt.Sprint(cfg.Port)).
		Feature("filePicker", true).
		Log()
	fmt.Printf("\n  Archiflow API: http://localhost:%d/api/health\n\n", cfg.Port)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("Server failed")
		return err
	}
	return nil
}
