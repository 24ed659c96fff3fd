// Package config loads archiflow settings from an optional YAML file, a
// .env file and the process environment. Environment variables always win
// over YAML values; secrets are env-only.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds every runtime setting shared by the archiflow binaries.
type Config struct {
	Port     int    `yaml:"port" env:"ARCHIFLOW_PORT" env-default:"8080"`
	LogLevel string `yaml:"log_level" env:"ARCHIFLOW_LOG_LEVEL" env-default:"info"`

	// GeminiAPIKey is never read from YAML.
	GeminiAPIKey   string `yaml:"-" env:"GEMINI_API_KEY"`
	SSMAPIKeyParam string `yaml:"ssm_api_key_param" env:"SSM_API_KEY_PARAM" env-default:""`

	Models Models `yaml:"models"`

	VideoPollInterval time.Duration `yaml:"video_poll_interval" env:"ARCHIFLOW_VIDEO_POLL_INTERVAL" env-default:"5s"`
	VideoMaxWait      time.Duration `yaml:"video_max_wait" env:"ARCHIFLOW_VIDEO_MAX_WAIT" env-default:"10m"`

	SessionTTL  time.Duration `yaml:"session_ttl" env:"ARCHIFLOW_SESSION_TTL" env-default:"24h"`
	MaxSessions int           `yaml:"max_sessions" env:"ARCHIFLOW_MAX_SESSIONS" env-default:"256"`
	// BlobCacheEntries caps the in-memory video store. Blobs are released
	// with their output or session, so a full store means that many live videos.
	BlobCacheEntries int `yaml:"blob_cache_entries" env:"ARCHIFLOW_BLOB_CACHE_ENTRIES" env-default:"256"`

	// PromptsTable enables the durable saved-prompt library when set.
	PromptsTable string `yaml:"prompts_table" env:"ARCHIFLOW_PROMPTS_TABLE" env-default:""`
	// LibraryOwner shares one saved-prompt library across every session.
	// Empty gives each session its own.
	LibraryOwner string `yaml:"library_owner" env:"ARCHIFLOW_LIBRARY_OWNER" env-default:""`
	// BlobBucket stores generated videos in S3 instead of memory when set.
	BlobBucket string `yaml:"blob_bucket" env:"ARCHIFLOW_BLOB_BUCKET" env-default:""`

	// RateLimit uses the limiter "<limit>-<period>" format, e.g. "30-M".
	RateLimit string `yaml:"rate_limit" env:"ARCHIFLOW_RATE_LIMIT" env-default:"30-M"`
}

// Models selects the Gemini model id for each generation operation.
type Models struct {
	Reasoning    string `yaml:"reasoning" env:"ARCHIFLOW_MODEL_REASONING" env-default:"gemini-3-pro-preview"`
	ConceptImage string `yaml:"concept_image" env:"ARCHIFLOW_MODEL_CONCEPT_IMAGE" env-default:"gemini-2.5-flash-image"`
	HighResImage string `yaml:"high_res_image" env:"ARCHIFLOW_MODEL_HIGH_RES_IMAGE" env-default:"gemini-3-pro-image-preview"`
	Video        string `yaml:"video" env:"ARCHIFLOW_MODEL_VIDEO" env-default:"veo-3.1-fast-generate-preview"`
}

// Load reads configuration. A .env file in the working directory is
// loaded first if present. When path is non-empty the YAML file is read
// with environment overrides; otherwise only the environment is used.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("No .env file loaded, using process environment")
	}

	cfg := &Config{}
	if path != "" {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.VideoPollInterval <= 0 {
		return fmt.Errorf("video poll interval must be positive")
	}
	if c.MaxSessions <= 0 {
		return fmt.Errorf("max sessions must be positive")
	}
	if c.BlobCacheEntries <= 0 {
		return fmt.Errorf("blob cache entries must be positive")
	}
	if !strings.Contains(c.RateLimit, "-") {
		return fmt.Errorf("rate limit %q is not in <limit>-<period> form", c.RateLimit)
	}
	return nil
}
