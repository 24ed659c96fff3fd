// Command archiflow-lambda serves the archiflow API from AWS Lambda behind
// an API Gateway HTTP API (payload format 2.0).
//
// Configuration comes from the environment only. Set SSM_API_KEY_PARAM to
// read the Gemini key from Parameter Store, ARCHIFLOW_PROMPTS_TABLE for a
// durable prompt library and ARCHIFLOW_BLOB_BUCKET to keep videos in S3.
package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
	"github.com/rs/zerolog/log"

	"github.com/fpang/archiflow/internal/app"
	"github.com/fpang/archiflow/internal/config"
	"github.com/fpang/archiflow/internal/logging"
)

var adapter *httpadapter.HandlerAdapterV2

func init() {
	cfg, err := config.Load("")
	if err != nil {
		logging.Init("info", false)
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logging.Init(cfg.LogLevel, false)

	a, err := app.New(context.Background(), cfg, false)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialise")
	}
	api, err := a.APIServer(nil)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build API server")
	}
	adapter = httpadapter.NewV2(api.Handler())

	a.StartupLogger("archiflow-lambda", commitHash).Log()
}

func main() {
	lambda.Start(adapter.ProxyWithContext)
}
