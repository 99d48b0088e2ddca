package config

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/trajectory-prep/internal/models"
	"github.com/jengzang/trajectory-prep/internal/partition"
	"github.com/jengzang/trajectory-prep/internal/trajectory"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 1, cfg.FileCount)
	assert.Equal(t, models.DefaultWindowParams, cfg.WindowParams())
	assert.Equal(t, trajectory.DefaultThresholds, cfg.Thresholds())
	assert.Equal(t, partition.DefaultFractions, cfg.Fractions())
	assert.Equal(t, uint64(1), cfg.Seed)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("PORT", ":9000")
	t.Setenv("FILE_COUNT", "0")
	t.Setenv("INPUT_SEQ_LENGTH", "8")
	t.Setenv("TIME_THRESHOLD", "3s")
	t.Setenv("POSITION_THRESHOLD", "250.5")
	t.Setenv("SPLIT_SEED", "42")
	t.Setenv("FORCE", "true")
	t.Setenv("WORKERS", "not-a-number")

	cfg := Load()
	assert.Equal(t, ":9000", cfg.Port)
	assert.Equal(t, 0, cfg.FileCount)
	assert.Equal(t, 8, cfg.InputSeqLength)
	assert.Equal(t, 3*time.Second, cfg.TimeThreshold)
	assert.Equal(t, 250.5, cfg.PositionThreshold)
	assert.Equal(t, uint64(42), cfg.Seed)
	assert.True(t, cfg.Force)
	assert.Equal(t, 1, cfg.Workers)
}

func TestUsesDefaultSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	assert.True(t, Load().UsesDefaultSecret())

	t.Setenv("JWT_SECRET", "s3cret")
	cfg := Load()
	assert.Equal(t, "s3cret", cfg.JWTSecret)
	assert.False(t, cfg.UsesDefaultSecret())
}

func TestLoadFromFlags(t *testing.T) {
	t.Setenv("FILE_COUNT", "3")
	cfg := Load()

	fs := pflag.NewFlagSet("prepare", pflag.ContinueOnError)
	err := cfg.LoadFromFlags(fs, []string{
		"--file-count", "0",
		"--output-seq-length", "2",
		"--time-threshold", "1500ms",
		"--train", "0.8", "--test", "0.1", "--dev", "0.1",
		"--force",
	})
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 0, cfg.FileCount)
	assert.Equal(t, 2, cfg.OutputSeqLength)
	assert.Equal(t, 1500*time.Millisecond, cfg.TimeThreshold)
	assert.Equal(t, 0.8, cfg.TrainFraction)
	assert.True(t, cfg.Force)

	fs = pflag.NewFlagSet("prepare", pflag.ContinueOnError)
	assert.Error(t, Load().LoadFromFlags(fs, []string{"--unknown"}))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no data dir", func(c *Config) { c.DataDir = "" }},
		{"negative file count", func(c *Config) { c.FileCount = -1 }},
		{"no workers", func(c *Config) { c.Workers = 0 }},
		{"empty input window", func(c *Config) { c.InputSeqLength = 0 }},
		{"negative threshold", func(c *Config) { c.PositionThreshold = -1 }},
		{"fractions do not sum", func(c *Config) { c.DevFraction = 0.5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
