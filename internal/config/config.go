// Package config loads server settings from an optional YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Port               int      `yaml:"port"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	MaxUploadMB        int      `yaml:"max_upload_mb"`
	ShutdownTimeoutSec int      `yaml:"shutdown_timeout_seconds"`
}

type LyriaConfig struct {
	// Mode is "vertex" or "mock". Empty picks vertex when a project is known.
	Mode            string `yaml:"mode"`
	ProjectID       string `yaml:"project_id"`
	Location        string `yaml:"location"`
	Model           string `yaml:"model"`
	CredentialsFile string `yaml:"credentials_file"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
	MockLatencyMS   int    `yaml:"mock_latency_ms"`
}

type GeminiConfig struct {
	APIKey         string `yaml:"api_key"`
	Model          string `yaml:"model"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type TelemetryConfig struct {
	Enabled   bool   `yaml:"enabled"`
	TraceFile string `yaml:"trace_file"`
}

type Config struct {
	ServiceName string          `yaml:"service_name"`
	Environment string          `yaml:"environment"`
	Server      ServerConfig    `yaml:"server"`
	Lyria       LyriaConfig     `yaml:"lyria"`
	Gemini      GeminiConfig    `yaml:"gemini"`
	Log         LogConfig       `yaml:"log"`
	Telemetry   TelemetryConfig `yaml:"telemetry"`
}

func Default() Config {
	return Config{
		ServiceName: "music-ai",
		Environment: "development",
		Server: ServerConfig{
			Port:               3001,
			CORSAllowedOrigins: []string{"*"},
			MaxUploadMB:        50,
			ShutdownTimeoutSec: 10,
		},
		Lyria: LyriaConfig{
			Location:       "us-central1",
			Model:          "lyria-002",
			TimeoutSeconds: 120,
		},
		Gemini: GeminiConfig{
			Model:          "gemini-2.0-flash",
			TimeoutSeconds: 10,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Telemetry: TelemetryConfig{
			Enabled:   true,
			TraceFile: "logs/music-ai-traces.log",
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// UseMock reports whether generation should run against the local mock
func (c Config) UseMock() bool {
	switch c.Lyria.Mode {
	case "mock":
		return true
	case "vertex":
		return false
	}
	return c.Lyria.ProjectID == "" && c.Lyria.CredentialsFile == ""
}

func applyEnvOverrides(cfg *Config) {
	// Plain names kept for existing deployments
	overrideInt(&cfg.Server.Port, "PORT")
	overrideString(&cfg.Lyria.ProjectID, "VERTEX_AI_PROJECT_ID")
	overrideString(&cfg.Lyria.Location, "VERTEX_AI_LOCATION")
	overrideString(&cfg.Lyria.CredentialsFile, "GOOGLE_APPLICATION_CREDENTIALS")
	overrideString(&cfg.Gemini.APIKey, "GEMINI_API_KEY")

	overrideString(&cfg.ServiceName, "MUSIC_AI_SERVICE_NAME")
	overrideString(&cfg.Environment, "MUSIC_AI_ENVIRONMENT")
	overrideInt(&cfg.Server.Port, "MUSIC_AI_SERVER_PORT")
	overrideStringSlice(&cfg.Server.CORSAllowedOrigins, "MUSIC_AI_SERVER_CORS_ALLOWED_ORIGINS")
	overrideInt(&cfg.Server.MaxUploadMB, "MUSIC_AI_SERVER_MAX_UPLOAD_MB")
	overrideInt(&cfg.Server.ShutdownTimeoutSec, "MUSIC_AI_SERVER_SHUTDOWN_TIMEOUT_SECONDS")
	overrideString(&cfg.Lyria.Mode, "MUSIC_AI_LYRIA_MODE")
	overrideString(&cfg.Lyria.ProjectID, "MUSIC_AI_LYRIA_PROJECT_ID")
	overrideString(&cfg.Lyria.Location, "MUSIC_AI_LYRIA_LOCATION")
	overrideString(&cfg.Lyria.Model, "MUSIC_AI_LYRIA_MODEL")
	overrideString(&cfg.Lyria.CredentialsFile, "MUSIC_AI_LYRIA_CREDENTIALS_FILE")
	overrideInt(&cfg.Lyria.TimeoutSeconds, "MUSIC_AI_LYRIA_TIMEOUT_SECONDS")
	overrideInt(&cfg.Lyria.MockLatencyMS, "MUSIC_AI_LYRIA_MOCK_LATENCY_MS")
	overrideString(&cfg.Gemini.Model, "MUSIC_AI_GEMINI_MODEL")
	overrideInt(&cfg.Gemini.TimeoutSeconds, "MUSIC_AI_GEMINI_TIMEOUT_SECONDS")
	overrideString(&cfg.Log.Level, "MUSIC_AI_LOG_LEVEL")
	overrideString(&cfg.Log.File, "MUSIC_AI_LOG_FILE")
	overrideInt(&cfg.Log.MaxSizeMB, "MUSIC_AI_LOG_MAX_SIZE_MB")
	overrideInt(&cfg.Log.MaxBackups, "MUSIC_AI_LOG_MAX_BACKUPS")
	overrideInt(&cfg.Log.MaxAgeDays, "MUSIC_AI_LOG_MAX_AGE_DAYS")
	overrideBool(&cfg.Telemetry.Enabled, "MUSIC_AI_TELEMETRY_ENABLED")
	overrideString(&cfg.Telemetry.TraceFile, "MUSIC_AI_TELEMETRY_TRACE_FILE")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		var trimmed []string
		for _, p := range strings.Split(value, ",") {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

func validate(cfg Config) error {
	if cfg.ServiceName == "" {
		return errors.New("service_name must not be empty")
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return errors.New("server.port must be between 1 and 65535")
	}
	if cfg.Server.MaxUploadMB <= 0 {
		return errors.New("server.max_upload_mb must be positive")
	}
	if cfg.Server.ShutdownTimeoutSec <= 0 {
		return errors.New("server.shutdown_timeout_seconds must be positive")
	}
	switch cfg.Lyria.Mode {
	case "", "mock", "vertex":
	default:
		return errors.New("lyria.mode must be one of mock|vertex")
	}
	if cfg.Lyria.TimeoutSeconds <= 0 {
		return errors.New("lyria.timeout_seconds must be positive")
	}
	if cfg.Lyria.MockLatencyMS < 0 {
		return errors.New("lyria.mock_latency_ms must be >= 0")
	}
	if cfg.Gemini.TimeoutSeconds <= 0 {
		return errors.New("gemini.timeout_seconds must be positive")
	}
	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return errors.New("log.level must be one of debug|info|warn|error")
	}
	if cfg.Telemetry.Enabled && cfg.Telemetry.TraceFile == "" {
		return errors.New("telemetry.trace_file must be set when telemetry is enabled")
	}
	return nil
}
