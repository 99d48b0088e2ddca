package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/pflag"

	"github.com/jengzang/trajectory-prep/internal/models"
	"github.com/jengzang/trajectory-prep/internal/partition"
	"github.com/jengzang/trajectory-prep/internal/trajectory"
)

// Config holds settings for the preparation CLI and the API server
type Config struct {
	// Server
	Port       string
	DBPath     string
	JWTSecret  string
	RateLimit  int           // Requests per RateWindow per client IP
	RateWindow time.Duration

	// Sources
	DataDir       string
	ArchivePrefix string
	ArchiveSuffix string
	FileCount     int // Archives to process, 0 means all

	// Window and segmentation
	InputSeqLength    int
	OutputSeqLength   int
	TimeThreshold     time.Duration
	PositionThreshold float64

	// Partitioning
	TrainFraction float64
	TestFraction  float64
	DevFraction   float64
	Seed          uint64

	// Run
	OutputDir string
	Workers   int
	Force     bool // Recompute even when the dataset is cached
	ExportCSV bool // Also write rows.csv
}

// DefaultJWTSecret is the placeholder secret used when JWT_SECRET is unset
const DefaultJWTSecret = "your-secret-key-change-in-production"

// Load returns the defaults overridden by environment variables
func Load() *Config {
	cfg := &Config{
		Port:              ":8080",
		DBPath:            "./data/prepare.db",
		JWTSecret:         DefaultJWTSecret,
		RateLimit:         100,
		RateWindow:        time.Minute,
		DataDir:           "./data",
		ArchivePrefix:     "al_position",
		ArchiveSuffix:     "tar.gz",
		FileCount:         1,
		InputSeqLength:    models.DefaultWindowParams.InputSeqLength,
		OutputSeqLength:   models.DefaultWindowParams.OutputSeqLength,
		TimeThreshold:     trajectory.DefaultThresholds.MaxTimeGap,
		PositionThreshold: trajectory.DefaultThresholds.MaxDisplacement,
		TrainFraction:     partition.DefaultFractions.Train,
		TestFraction:      partition.DefaultFractions.Test,
		DevFraction:       partition.DefaultFractions.Dev,
		Seed:              1,
		OutputDir:         "./output",
		Workers:           1,
		ExportCSV:         true,
	}
	cfg.loadFromEnv()
	return cfg
}

func (c *Config) loadFromEnv() {
	envString("PORT", &c.Port)
	envString("DB_PATH", &c.DBPath)
	envString("JWT_SECRET", &c.JWTSecret)
	envInt("RATE_LIMIT", &c.RateLimit)
	envDuration("RATE_WINDOW", &c.RateWindow)

	envString("DATA_DIR", &c.DataDir)
	envString("ARCHIVE_PREFIX", &c.ArchivePrefix)
	envString("ARCHIVE_SUFFIX", &c.ArchiveSuffix)
	envInt("FILE_COUNT", &c.FileCount)

	envInt("INPUT_SEQ_LENGTH", &c.InputSeqLength)
	envInt("OUTPUT_SEQ_LENGTH", &c.OutputSeqLength)
	envDuration("TIME_THRESHOLD", &c.TimeThreshold)
	envFloat("POSITION_THRESHOLD", &c.PositionThreshold)

	envFloat("TRAIN_FRACTION", &c.TrainFraction)
	envFloat("TEST_FRACTION", &c.TestFraction)
	envFloat("DEV_FRACTION", &c.DevFraction)
	if v := os.Getenv("SPLIT_SEED"); v != "" {
		if seed, err := strconv.ParseUint(v, 10, 64); err == nil {
			c.Seed = seed
		}
	}

	envString("OUTPUT_DIR", &c.OutputDir)
	envInt("WORKERS", &c.Workers)
	if v := os.Getenv("FORCE"); v != "" {
		if force, err := strconv.ParseBool(v); err == nil {
			c.Force = force
		}
	}
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envFloat(key string, dst *float64) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func envDuration(key string, dst *time.Duration) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

// LoadFromFlags registers the preparation flags on fs and parses args,
// overriding values loaded from the environment
func (c *Config) LoadFromFlags(fs *pflag.FlagSet, args []string) error {
	fs.StringVar(&c.DataDir, "data-dir", c.DataDir, "Directory holding the position archives")
	fs.StringVar(&c.ArchivePrefix, "archive-prefix", c.ArchivePrefix, "Archive name prefix")
	fs.StringVar(&c.ArchiveSuffix, "archive-suffix", c.ArchiveSuffix, "Archive name suffix")
	fs.IntVar(&c.FileCount, "file-count", c.FileCount, "Number of archives to process (0 for all)")
	fs.StringVar(&c.DBPath, "db", c.DBPath, "SQLite cache database path")
	fs.StringVar(&c.OutputDir, "output-dir", c.OutputDir, "Directory for exported arrays and reports")

	fs.IntVar(&c.InputSeqLength, "input-seq-length", c.InputSeqLength, "Positions in the input window")
	fs.IntVar(&c.OutputSeqLength, "output-seq-length", c.OutputSeqLength, "Positions in the output window")
	fs.DurationVar(&c.TimeThreshold, "time-threshold", c.TimeThreshold, "Largest time gap inside a trajectory")
	fs.Float64Var(&c.PositionThreshold, "position-threshold", c.PositionThreshold, "Largest per-axis displacement inside a trajectory")

	fs.Float64Var(&c.TrainFraction, "train", c.TrainFraction, "Train partition share")
	fs.Float64Var(&c.TestFraction, "test", c.TestFraction, "Test partition share")
	fs.Float64Var(&c.DevFraction, "dev", c.DevFraction, "Dev partition share")
	fs.Uint64Var(&c.Seed, "seed", c.Seed, "Shuffle seed for partitioning")

	fs.IntVar(&c.Workers, "workers", c.Workers, "Sources processed concurrently")
	fs.BoolVar(&c.Force, "force", c.Force, "Recompute even when a cached dataset exists")
	fs.BoolVar(&c.ExportCSV, "csv", c.ExportCSV, "Also write the flat rows.csv table")

	return fs.Parse(args)
}

// Validate checks that the configuration can drive a run
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data directory is required")
	}
	if c.DBPath == "" {
		return fmt.Errorf("database path is required")
	}
	if c.FileCount < 0 {
		return fmt.Errorf("file count must be non-negative, got %d", c.FileCount)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.RateLimit < 1 || c.RateWindow <= 0 {
		return fmt.Errorf("rate limit must be positive")
	}
	if err := c.WindowParams().Validate(); err != nil {
		return err
	}
	if err := c.Thresholds().Validate(); err != nil {
		return err
	}
	return c.Fractions().Validate()
}

// UsesDefaultSecret reports whether tokens are signed with the placeholder secret
func (c *Config) UsesDefaultSecret() bool {
	return c.JWTSecret == DefaultJWTSecret
}

// WindowParams returns the configured window shape
func (c *Config) WindowParams() models.WindowParams {
	return models.WindowParams{
		InputSeqLength:  c.InputSeqLength,
		OutputSeqLength: c.OutputSeqLength,
		NumDimensions:   models.NumDimensions,
	}
}

// Thresholds returns the configured segmentation thresholds
func (c *Config) Thresholds() trajectory.Thresholds {
	return trajectory.Thresholds{
		MaxTimeGap:      c.TimeThreshold,
		MaxDisplacement: c.PositionThreshold,
	}
}

// Fractions returns the configured partition shares
func (c *Config) Fractions() partition.Fractions {
	return partition.Fractions{
		Train: c.TrainFraction,
		Test:  c.TestFraction,
		Dev:   c.DevFraction,
	}
}
