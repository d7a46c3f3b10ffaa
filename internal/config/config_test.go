package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadLogging_DefaultsToInfo(t *testing.T) {
	os.Unsetenv("LOG_LEVEL")
	cfg, err := LoadLogging()
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Level)
}

func TestLoadLogging_RejectsUnknownLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "verbose")
	_, err := LoadLogging()
	assert.Error(t, err)
}

func TestLoadLogging_AcceptsEachDocumentedLevel(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		t.Setenv("LOG_LEVEL", level)
		cfg, err := LoadLogging()
		require.NoError(t, err)
		assert.Equal(t, level, cfg.Level)
	}
}

func TestDefaultBuildOptions_MatchesSpecDocumentedDefaults(t *testing.T) {
	os.Unsetenv("BATCH_SIZE")
	os.Unsetenv("CHECKPOINT_INTERVAL")
	opts := DefaultBuildOptions()
	assert.Equal(t, 5000, opts.BatchSize)
	assert.Equal(t, 10000, opts.CheckpointInterval)
	assert.True(t, opts.Enrich)
	assert.Equal(t, 3, opts.ChainFanout)
	assert.Equal(t, 8, opts.ChainMaxSize)
	assert.Equal(t, 4, opts.ComplexThreshold)
	assert.Equal(t, 20, opts.Extraction.RangeExpansionLimit)
}

func TestDefaultBuildOptions_EnvOverridesBatchSize(t *testing.T) {
	t.Setenv("BATCH_SIZE", "250")
	opts := DefaultBuildOptions()
	assert.Equal(t, 250, opts.BatchSize)
}

func TestBuildOptions_ValidateRequiresCoreFields(t *testing.T) {
	tests := []struct {
		name string
		opts BuildOptions
	}{
		{"missing corpus", BuildOptions{Input: "in", Out: "out", BatchSize: 1, CheckpointInterval: 1}},
		{"missing input", BuildOptions{Corpus: "statute", Out: "out", BatchSize: 1, CheckpointInterval: 1}},
		{"missing out", BuildOptions{Corpus: "statute", Input: "in", BatchSize: 1, CheckpointInterval: 1}},
		{"non-positive batch size", BuildOptions{Corpus: "statute", Input: "in", Out: "out", BatchSize: 0, CheckpointInterval: 1}},
		{"non-positive checkpoint interval", BuildOptions{Corpus: "statute", Input: "in", Out: "out", BatchSize: 1, CheckpointInterval: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.opts.Validate())
		})
	}
}

func TestBuildOptions_ValidateAcceptsCompleteOptions(t *testing.T) {
	opts := DefaultBuildOptions()
	opts.Corpus = "statute"
	opts.Input = "in.jsonl"
	opts.Out = "out"
	assert.NoError(t, opts.Validate())
}
