package logging

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{" WARN ", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"trace", zerolog.TraceLevel},
		{"", zerolog.InfoLevel},
		{"verbose", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), "level %q", tt.in)
	}
}

func TestStartupLoggerLog(t *testing.T) {
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })
	var buf bytes.Buffer
	log.Logger = zerolog.New(&buf)

	NewStartupLogger("archiflow-test").
		CommitHash("abc123").
		InitDuration(20*time.Millisecond).
		S3Bucket("blobs", "bucket-a").
		S3Bucket("unused", "").
		SSMParam("geminiApiKey", "/archiflow/key").
		Model("reasoning", "gemini-3-pro-preview").
		Feature("durableBlobs", true).
		Config("rateLimit", "30-M").
		Log()

	var evt map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &evt))
	assert.Equal(t, "Startup complete", evt["message"])

	process := evt["process"].(map[string]interface{})
	assert.Equal(t, "archiflow-test", process["name"])
	assert.Equal(t, "abc123", process["commitHash"])

	resources := evt["resources"].(map[string]interface{})
	assert.Equal(t, map[string]interface{}{"blobs": "bucket-a"}, resources["s3Buckets"])
	assert.Equal(t, map[string]interface{}{"geminiApiKey": "/archiflow/key"}, resources["ssmParams"])
	assert.NotContains(t, resources, "dynamoTables")

	assert.Equal(t, true, evt["features"].(map[string]interface{})["durableBlobs"])
	assert.Equal(t, "30-M", evt["config"].(map[string]interface{})["rateLimit"])
	assert.Contains(t, evt, "initDuration")
}
