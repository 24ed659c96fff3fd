// Package awsboot selects and builds the storage backends and the Gemini
// API key source at process start. Every binary shares it: with no AWS
// settings everything stays in memory, otherwise S3, DynamoDB and SSM
// Parameter Store are wired from the default AWS credential chain.
package awsboot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"

	"github.com/fpang/archiflow/internal/auth"
	"github.com/fpang/archiflow/internal/blob"
	"github.com/fpang/archiflow/internal/config"
	"github.com/fpang/archiflow/internal/store"
)

// ParameterAPI is the SSM call used to read the Gemini key.
type ParameterAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Resources are the backends selected by configuration.
type Resources struct {
	APIKey  string
	Blobs   blob.Store
	Prompts store.PromptStore
	// Durable reports which backends are AWS-backed, for startup logging.
	DurableBlobs   bool
	DurablePrompts bool
}

// Init resolves the API key and builds the blob and prompt stores. AWS
// config is loaded only when a bucket, a table or an SSM parameter is
// configured.
func Init(ctx context.Context, cfg *config.Config) (*Resources, error) {
	if !needsAWS(cfg) {
		return build(ctx, cfg, nil)
	}

	start := time.Now()
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	log.Debug().Str("region", awsCfg.Region).Dur("elapsed", time.Since(start)).Msg("AWS config loaded")
	return build(ctx, cfg, &awsCfg)
}

func needsAWS(cfg *config.Config) bool {
	return cfg.BlobBucket != "" || cfg.PromptsTable != "" ||
		(cfg.GeminiAPIKey == "" && cfg.SSMAPIKeyParam != "")
}

// build wires the resources. awsCfg is nil when no AWS service is needed.
func build(ctx context.Context, cfg *config.Config, awsCfg *aws.Config) (*Resources, error) {
	res := &Resources{}

	key := cfg.GeminiAPIKey
	if key == "" && cfg.SSMAPIKeyParam != "" && awsCfg != nil {
		var err error
		key, err = GeminiKeyFromSSM(ctx, ssm.NewFromConfig(*awsCfg), cfg.SSMAPIKeyParam)
		if err != nil {
			return nil, err
		}
	}
	key, err := auth.GetAPIKey(key)
	if err != nil {
		return nil, err
	}
	res.APIKey = key

	if cfg.BlobBucket != "" && awsCfg != nil {
		res.Blobs = blob.NewS3Store(s3.NewFromConfig(*awsCfg), cfg.BlobBucket)
		res.DurableBlobs = true
	} else {
		mem, err := blob.NewMemoryStore(cfg.BlobCacheEntries)
		if err != nil {
			return nil, fmt.Errorf("failed to create blob cache: %w", err)
		}
		res.Blobs = mem
	}

	if cfg.PromptsTable != "" && awsCfg != nil {
		res.Prompts = store.NewDynamoStore(dynamodb.NewFromConfig(*awsCfg), cfg.PromptsTable)
		res.DurablePrompts = true
	} else {
		res.Prompts = store.NewMemoryStore()
	}

	log.Debug().
		Bool("durable_blobs", res.DurableBlobs).
		Bool("durable_prompts", res.DurablePrompts).
		Msg("Storage backends selected")
	return res, nil
}

// GeminiKeyFromSSM reads the Gemini API key from a SecureString parameter.
func GeminiKeyFromSSM(ctx context.Context, api ParameterAPI, param string) (string, error) {
	start := time.Now()
	out, err := api.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(param),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("failed to read API key from SSM %s: %w", param, err)
	}
	if out.Parameter == nil || aws.ToString(out.Parameter.Value) == "" {
		return "", errors.New("SSM parameter " + param + " is empty")
	}
	log.Debug().Str("param", param).Dur("elapsed", time.Since(start)).Msg("Gemini API key loaded from SSM")
	return aws.ToString(out.Parameter.Value), nil
}
