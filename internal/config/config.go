package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
	_ "time/tzdata"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Calendar simulation defaults.
	TimeZone string
	Location *time.Location
	Year     int
	Step     time.Duration
	Workers  int

	// JobsDBPath is the SQLite job store; empty keeps jobs in memory only.
	JobsDBPath string
	// ProjectsRoot confines project_dir and aoi_path when set.
	ProjectsRoot string

	// Job completion events; disabled when no brokers are configured.
	KafkaBrokers  []string
	KafkaJobTopic string

	FrameCacheSize int
}

// EventsEnabled reports whether job events should be published to Kafka.
func (c *Config) EventsEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	tz := sharedcfg.EnvOrDefault("CALENDAR_TIMEZONE", "Europe/Rome")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid CALENDAR_TIMEZONE: %w", err)
	}

	year, err := parseIntRange("CALENDAR_YEAR", 2025, 1, 9999)
	if err != nil {
		return nil, err
	}

	step, err := time.ParseDuration(sharedcfg.EnvOrDefault("CALENDAR_STEP", "15m"))
	if err != nil || step < time.Minute || step > 24*time.Hour {
		return nil, errors.New("invalid CALENDAR_STEP: must be between 1m and 24h")
	}

	workers, err := parseIntRange("CALENDAR_WORKERS", 4, 1, 64)
	if err != nil {
		return nil, err
	}

	cacheSize, err := parseIntRange("FRAME_CACHE_SIZE", 256, 1, 100000)
	if err != nil {
		return nil, err
	}

	projectsRoot := os.Getenv("PROJECTS_ROOT")
	if projectsRoot != "" {
		abs, err := filepath.Abs(projectsRoot)
		if err != nil {
			return nil, fmt.Errorf("invalid PROJECTS_ROOT: %w", err)
		}
		projectsRoot = abs
	}

	dbPath, ok := os.LookupEnv("JOBS_DB_PATH")
	if !ok {
		dbPath = filepath.Join("data", "windshadow.db")
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		TimeZone: tz,
		Location: loc,
		Year:     year,
		Step:     step,
		Workers:  workers,

		JobsDBPath:   dbPath,
		ProjectsRoot: projectsRoot,

		KafkaBrokers:  sharedcfg.ParseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaJobTopic: sharedcfg.EnvOrDefault("KAFKA_JOB_TOPIC", "wind-shadow-jobs"),

		FrameCacheSize: cacheSize,
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("HTTP_ADDR is required")
	}

	return cfg, nil
}

func parseIntRange(key string, def, lo, hi int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < lo || n > hi {
		return 0, fmt.Errorf("invalid %s: must be %d-%d", key, lo, hi)
	}
	return n, nil
}
