// Package app wires a loaded configuration into the generation client,
// storage backends and session registry shared by every archiflow binary.
package app

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/fpang/archiflow/internal/auth"
	"github.com/fpang/archiflow/internal/awsboot"
	"github.com/fpang/archiflow/internal/config"
	"github.com/fpang/archiflow/internal/gemini"
	"github.com/fpang/archiflow/internal/logging"
	"github.com/fpang/archiflow/internal/webapi"
	"github.com/fpang/archiflow/internal/workspace"
)

// App is a fully wired process.
type App struct {
	Config    *config.Config
	Resources *awsboot.Resources
	Generator *gemini.Client
	Sessions  *workspace.Registry

	initStart time.Time
}

// New builds an App. With validateKey set the API key is probed once
// against the Gemini API before anything else is built.
func New(ctx context.Context, cfg *config.Config, validateKey bool) (*App, error) {
	start := time.Now()

	res, err := awsboot.Init(ctx, cfg)
	if err != nil {
		return nil, err
	}

	client, err := gemini.NewGenAIClient(ctx, res.APIKey)
	if err != nil {
		return nil, err
	}
	if validateKey {
		if err := auth.ValidateAPIKey(ctx, client); err != nil {
			return nil, fmt.Errorf("invalid API key: %w", err)
		}
	}

	gen := gemini.New(gemini.NewBackend(client), gemini.Options{
		Models: gemini.Models{
			Reasoning:    cfg.Models.Reasoning,
			ConceptImage: cfg.Models.ConceptImage,
			HighResImage: cfg.Models.HighResImage,
			Video:        cfg.Models.Video,
		},
		VideoPollInterval: cfg.VideoPollInterval,
		VideoMaxWait:      cfg.VideoMaxWait,
	})

	sessions := workspace.NewRegistry(workspace.Options{
		Generator:    gen,
		Blobs:        res.Blobs,
		Prompts:      res.Prompts,
		LibraryOwner: cfg.LibraryOwner,
		MaxSessions:  cfg.MaxSessions,
		TTL:          cfg.SessionTTL,
	})

	return &App{
		Config:    cfg,
		Resources: res,
		Generator: gen,
		Sessions:  sessions,
		initStart: start,
	}, nil
}

// APIServer builds the HTTP API over the app's sessions.
func (a *App) APIServer(picker webapi.Picker) (*webapi.Server, error) {
	return webapi.New(a.Sessions, a.Resources.Blobs, webapi.Options{
		RateLimit: a.Config.RateLimit,
		Picker:    picker,
	})
}

// StartupLogger returns a startup summary prefilled with the app's
// configuration. Callers add their own fields and call Log.
func (a *App) StartupLogger(name, commitHash string) *logging.StartupLogger {
	models := a.Generator.Models()
	return logging.NewStartupLogger(name).
		CommitHash(commitHash).
		InitDuration(time.Since(a.initStart)).
		S3Bucket("blobs", a.Config.BlobBucket).
		DynamoTable("prompts", a.Config.PromptsTable).
		SSMParam("geminiApiKey", a.Config.SSMAPIKeyParam).
		Model("reasoning", models.Reasoning).
		Model("conceptImage", models.ConceptImage).
		Model("highResImage", models.HighResImage).
		Model("video", models.Video).
		Feature("durableBlobs", a.Resources.DurableBlobs).
		Feature("durablePrompts", a.Resources.DurablePrompts).
		Feature("sharedLibrary", a.Config.LibraryOwner != "").
		Config("rateLimit", a.Config.RateLimit).
		Config("maxSessions", strconv.Itoa(a.Config.MaxSessions)).
		Config("sessionTTL", a.Config.SessionTTL.String())
}
