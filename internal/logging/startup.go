package logging

import (
	"os"
	"runtime"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Resource kinds reported under "resources" in the startup event.
const (
	resourceS3     = "s3Buckets"
	resourceDynamo = "dynamoTables"
	resourceSSM    = "ssmParams"
)

// StartupLogger collects process identity, configured resources and
// feature flags, then emits a single structured event summarising how the
// binary was configured. Secrets are never registered, only their sources.
type StartupLogger struct {
	name         string
	commitHash   string
	initDuration time.Duration

	resources map[string]map[string]string
	models    map[string]string
	features  map[string]bool
	config    map[string]string
}

// NewStartupLogger creates a StartupLogger for the given binary name
// (e.g. "archiflow-web", "archiflow-lambda").
func NewStartupLogger(name string) *StartupLogger {
	return &StartupLogger{
		name:      name,
		resources: map[string]map[string]string{},
		models:    map[string]string{},
		features:  map[string]bool{},
		config:    map[string]string{},
	}
}

// CommitHash sets the git commit hash baked into the binary at build time.
func (s *StartupLogger) CommitHash(hash string) *StartupLogger {
	s.commitHash = hash
	return s
}

func (s *StartupLogger) resource(kind, label, name string) *StartupLogger {
	if name == "" {
		return s
	}
	if s.resources[kind] == nil {
		s.resources[kind] = map[string]string{}
	}
	s.resources[kind][label] = name
	return s
}

// S3Bucket registers an S3 bucket. Empty names are skipped.
func (s *StartupLogger) S3Bucket(label, name string) *StartupLogger {
	return s.resource(resourceS3, label, name)
}

// DynamoTable registers a DynamoDB table. Empty names are skipped.
func (s *StartupLogger) DynamoTable(label, name string) *StartupLogger {
	return s.resource(resourceDynamo, label, name)
}

// SSMParam registers an SSM parameter path. Only the path is logged, never the value.
func (s *StartupLogger) SSMParam(label, path string) *StartupLogger {
	return s.resource(resourceSSM, label, path)
}

// Model registers the Gemini model id used for one generation operation.
func (s *StartupLogger) Model(operation, model string) *StartupLogger {
	s.models[operation] = model
	return s
}

func (s *StartupLogger) Feature(name string, enabled bool) *StartupLogger {
	s.features[name] = enabled
	return s
}

// Config registers a non-sensitive configuration key-value pair.
func (s *StartupLogger) Config(key, value string) *StartupLogger {
	s.config[key] = value
	return s
}

func (s *StartupLogger) InitDuration(d time.Duration) *StartupLogger {
	s.initDuration = d
	return s
}

func (s *StartupLogger) process() *zerolog.Event {
	d := zerolog.Dict().
		Str("name", s.name).
		Str("goVersion", runtime.Version()).
		Str("arch", runtime.GOARCH).
		Str("logLevel", zerolog.GlobalLevel().String())
	if fn := os.Getenv("AWS_LAMBDA_FUNCTION_NAME"); fn != "" {
		d = d.Str("functionName", fn).Str("region", os.Getenv("AWS_REGION"))
	}
	if s.commitHash != "" {
		d = d.Str("commitHash", s.commitHash)
	}
	return d
}

// Log emits one INFO event named "Startup complete". Empty sections are
// omitted.
func (s *StartupLogger) Log() {
	evt := log.Info().Dict("process", s.process())

	if len(s.resources) > 0 {
		d := zerolog.Dict()
		for _, kind := range sortedKeys(s.resources) {
			d = d.Dict(kind, strDict(s.resources[kind]))
		}
		evt = evt.Dict("resources", d)
	}
	if len(s.models) > 0 {
		evt = evt.Dict("models", strDict(s.models))
	}
	if len(s.features) > 0 {
		d := zerolog.Dict()
		for _, k := range sortedKeys(s.features) {
			d = d.Bool(k, s.features[k])
		}
		evt = evt.Dict("features", d)
	}
	if len(s.config) > 0 {
		evt = evt.Dict("config", strDict(s.config))
	}
	if s.initDuration > 0 {
		evt = evt.Dur("initDuration", s.initDuration)
	}

	evt.Msg("Startup complete")
}

func strDict(m map[string]string) *zerolog.Event {
	d := zerolog.Dict()
	for _, k := range sortedKeys(m) {
		d = d.Str(k, m[k])
	}
	return d
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
