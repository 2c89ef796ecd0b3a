package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents runtime configuration derived from environment variables.
type Config struct {
	Server     ServerConfig
	Logging    LoggingConfig
	Simulation SimulationConfig
	Classifier ClassifierConfig
	Hub        HubConfig
	Database   DatabaseConfig
}

// ServerConfig holds HTTP server runtime parameters.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	// StaticDir holds a built dashboard to serve at /. Empty serves API only.
	StaticDir string
}

// LoggingConfig represents structured logging configuration.
type LoggingConfig struct {
	Level  slog.Level
	Format string
}

// SimulationConfig controls the background alert simulator.
type SimulationConfig struct {
	Enabled         bool
	Interval        time.Duration
	ClassifyTimeout time.Duration
}

// ClassifierConfig selects and configures the severity classifier. An empty
// API key selects the rule-based classifier.
type ClassifierConfig struct {
	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string
}

// HubConfig configures the broadcast hub.
type HubConfig struct {
	BufferSize int
}

// DatabaseConfig configures the optional activity journal. Either URL or
// the Cloud SQL instance fields select a database; neither disables it.
type DatabaseConfig struct {
	URL string

	InstanceConnectionName string
	User                   string
	Password               string
	Name                   string
}

const (
	defaultPort            = "8080"
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 10 * time.Second
	defaultShutdownTimeout = 5 * time.Second

	defaultLogFormat = "json"

	defaultSimulationInterval = 30 * time.Second
	defaultClassifyTimeout    = 30 * time.Second

	defaultOpenAIModel = "gpt-4o"

	defaultHubBufferSize = 256
)

// Load reads configuration from environment variables, applying defaults when
// values are not provided or invalid.
func Load() (Config, error) {
	// Cloud Run sets PORT, but allow SERVER_PORT override for local dev
	port := getEnv("PORT", "")
	if port == "" {
		port = getEnv("SERVER_PORT", defaultPort)
	}

	cfg := Config{
		Server: ServerConfig{
			Port:            port,
			ReadTimeout:     defaultReadTimeout,
			WriteTimeout:    defaultWriteTimeout,
			ShutdownTimeout: defaultShutdownTimeout,
			StaticDir:       os.Getenv("STATIC_DIR"),
		},
		Logging: LoggingConfig{
			Level:  slog.LevelInfo,
			Format: defaultLogFormat,
		},
		Simulation: SimulationConfig{
			Enabled:         true,
			Interval:        defaultSimulationInterval,
			ClassifyTimeout: defaultClassifyTimeout,
		},
		Classifier: ClassifierConfig{
			OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
			OpenAIModel:   getEnv("OPENAI_MODEL", defaultOpenAIModel),
			OpenAIBaseURL: os.Getenv("OPENAI_BASE_URL"),
		},
		Hub: HubConfig{
			BufferSize: defaultHubBufferSize,
		},
		Database: DatabaseConfig{
			URL:                    os.Getenv("DATABASE_URL"),
			InstanceConnectionName: os.Getenv("INSTANCE_CONNECTION_NAME"),
			User:                   os.Getenv("DB_USER"),
			Password:               os.Getenv("DB_PASSWORD"),
			Name:                   os.Getenv("DB_NAME"),
		},
	}

	if v := os.Getenv("SERVER_READ_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SERVER_READ_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Server.ReadTimeout = d
	}

	if v := os.Getenv("SERVER_WRITE_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SERVER_WRITE_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Server.WriteTimeout = d
	}

	if v := os.Getenv("SERVER_SHUTDOWN_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SERVER_SHUTDOWN_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Server.ShutdownTimeout = d
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		level, err := parseLogLevel(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid LOG_LEVEL: %w", err)
		}
		cfg.Logging.Level = level
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		switch v {
		case "json", "text":
			cfg.Logging.Format = v
		default:
			return Config{}, fmt.Errorf("invalid LOG_FORMAT: must be 'json' or 'text'")
		}
	}

	if v := os.Getenv("SIMULATION_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SIMULATION_ENABLED: %w", err)
		}
		cfg.Simulation.Enabled = enabled
	}

	if v := os.Getenv("SIMULATION_INTERVAL_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil || d == 0 {
			return Config{}, fmt.Errorf("invalid SIMULATION_INTERVAL_SECONDS: must be a positive integer")
		}
		cfg.Simulation.Interval = d
	}

	if v := os.Getenv("CLASSIFIER_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil || d == 0 {
			return Config{}, fmt.Errorf("invalid CLASSIFIER_TIMEOUT_SECONDS: must be a positive integer")
		}
		cfg.Simulation.ClassifyTimeout = d
	}

	if v := os.Getenv("HUB_BUFFER_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("invalid HUB_BUFFER_SIZE: must be a positive integer")
		}
		cfg.Hub.BufferSize = n
	}

	if cfg.Classifier.OpenAIBaseURL != "" && !strings.HasPrefix(cfg.Classifier.OpenAIBaseURL, "http") {
		return Config{}, fmt.Errorf("invalid OPENAI_BASE_URL: must be an http(s) URL")
	}

	return cfg, nil
}

func parseSeconds(raw string) (time.Duration, error) {
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds < 0 {
		return 0, fmt.Errorf("must be a non-negative integer")
	}
	return time.Duration(seconds) * time.Second, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch raw {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("must be one of debug, info, warn, error")
	}
}
