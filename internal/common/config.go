package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment" yaml:"environment"`
	Server      ServerConfig    `toml:"server" yaml:"server"`
	Workspace   WorkspaceConfig `toml:"workspace" yaml:"workspace"`
	Pipeline    PipelineConfig  `toml:"pipeline" yaml:"pipeline"`
	Batch       BatchConfig     `toml:"batch" yaml:"batch"`
	Storage     StorageConfig   `toml:"storage" yaml:"storage"`
	Logging     LoggingConfig   `toml:"logging" yaml:"logging"`
	Retention   RetentionConfig `toml:"retention" yaml:"retention"`
	WebSocket   WebSocketConfig `toml:"websocket" yaml:"websocket"`
}

type ServerConfig struct {
	Port int    `toml:"port" yaml:"port" validate:"gte=1,lte=65535"`
	Host string `toml:"host" yaml:"host" validate:"required"`
}

// WorkspaceConfig controls where job and batch working directories are created
type WorkspaceConfig struct {
	Dir string `toml:"dir" yaml:"dir" validate:"required"` // Root for job_<ts> and batch_<ts> directories
}

// PipelineConfig describes how the external extraction and preview tools are invoked
type PipelineConfig struct {
	ExtractCommand []string `toml:"extract_command" yaml:"extract_command" validate:"min=1"` // Invoked as <cmd...> <job_dir> --pdfs <pdf>
	PreviewCommand []string `toml:"preview_command" yaml:"preview_command" validate:"min=1"` // Invoked as <cmd...> <output_file>
	PreviewDirName string   `toml:"preview_dir_name" yaml:"preview_dir_name"`                // Relative to the job directory
	Timeout        string   `toml:"timeout" yaml:"timeout"`                                  // Per-invocation timeout, "" or "0" disables
	LaunchInterval string   `toml:"launch_interval" yaml:"launch_interval"`                  // Minimum delay between pipeline launches
}

type BatchConfig struct {
	Concurrency int    `toml:"concurrency" yaml:"concurrency" validate:"gte=1"` // Worker pool size for batch processing
	ArchiveName string `toml:"archive_name" yaml:"archive_name"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger" yaml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path" yaml:"path" validate:"required"`
	ResetOnStartup bool   `toml:"reset_on_startup" yaml:"reset_on_startup"`
}

type LoggingConfig struct {
	Level         string   `toml:"level" yaml:"level"`                     // "debug", "info", "warn", "error"
	Format        string   `toml:"format" yaml:"format"`                   // "json" or "text"
	Output        []string `toml:"output" yaml:"output"`                   // "stdout", "file"
	ClientDebug   bool     `toml:"client_debug" yaml:"client_debug"`       // Enable client-side debug logging
	MinEventLevel string   `toml:"min_event_level" yaml:"min_event_level"` // Minimum log level to stream to the UI
}

// RetentionConfig controls workspace cleanup of old job and batch directories
type RetentionConfig struct {
	Enabled  bool   `toml:"enabled" yaml:"enabled"`
	Schedule string `toml:"schedule" yaml:"schedule"` // Cron schedule format
	MaxAge   string `toml:"max_age" yaml:"max_age"`   // e.g. "168h" - directories older than this are pruned
}

// WebSocketConfig contains configuration for WebSocket log streaming
type WebSocketConfig struct {
	MinLevel        string   `toml:"min_level" yaml:"min_level"`
	ExcludePatterns []string `toml:"exclude_patterns" yaml:"exclude_patterns"`
}

// NewDefaultConfig creates a configuration with default values.
// Only user-facing settings are exposed in scribe.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 7860,
			Host: "0.0.0.0",
		},
		Workspace: WorkspaceConfig{
			Dir: "olmocr_workspace",
		},
		Pipeline: PipelineConfig{
			ExtractCommand: []string{"python", "-m", "olmocr.pipeline"},
			PreviewCommand: []string{"python", "-m", "olmocr.viewer.dolmaviewer"},
			PreviewDirName: "dolma_previews",
			Timeout:        "30m",
			LaunchInterval: "0s",
		},
		Batch: BatchConfig{
			Concurrency: 2, // Extraction is GPU-heavy, keep the pool small
			ArchiveName: "extracted_texts.zip",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Logging: LoggingConfig{
			Level:         "info",
			Format:        "text",
			Output:        []string{"stdout", "file"},
			MinEventLevel: "info",
		},
		Retention: RetentionConfig{
			Enabled:  false, // Disabled by default - user must explicitly opt-in
			Schedule: "0 * * * *",
			MaxAge:   "168h",
		},
		WebSocket: WebSocketConfig{
			MinLevel: "info",
			ExcludePatterns: []string{
				"WebSocket client connected",
				"WebSocket client disconnected",
				"HTTP request",
				"HTTP response",
			},
		},
	}
}

// LoadFromFile loads configuration with priority: default -> file -> env -> CLI
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files with priority:
// default -> file1 -> file2 -> ... -> env -> CLI. Later files override earlier
// files. Files ending in .yaml/.yml are parsed as YAML, everything else as TOML.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			err = yaml.Unmarshal(data, config)
		default:
			err = toml.Unmarshal(data, config)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := validator.New().Struct(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	// Environment configuration (highest priority: SCRIBE_ENV, fallback: GO_ENV)
	if env := os.Getenv("SCRIBE_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("SCRIBE_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("SCRIBE_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Workspace configuration
	if dir := os.Getenv("SCRIBE_WORKSPACE_DIR"); dir != "" {
		config.Workspace.Dir = dir
	}

	// Pipeline configuration
	if cmd := os.Getenv("SCRIBE_PIPELINE_EXTRACT_COMMAND"); cmd != "" {
		if fields := strings.Fields(cmd); len(fields) > 0 {
			config.Pipeline.ExtractCommand = fields
		}
	}
	if cmd := os.Getenv("SCRIBE_PIPELINE_PREVIEW_COMMAND"); cmd != "" {
		if fields := strings.Fields(cmd); len(fields) > 0 {
			config.Pipeline.PreviewCommand = fields
		}
	}
	if name := os.Getenv("SCRIBE_PIPELINE_PREVIEW_DIR_NAME"); name != "" {
		config.Pipeline.PreviewDirName = name
	}
	if timeout := os.Getenv("SCRIBE_PIPELINE_TIMEOUT"); timeout != "" {
		if _, err := time.ParseDuration(timeout); err == nil {
			config.Pipeline.Timeout = timeout
		}
	}
	if interval := os.Getenv("SCRIBE_PIPELINE_LAUNCH_INTERVAL"); interval != "" {
		if _, err := time.ParseDuration(interval); err == nil {
			config.Pipeline.LaunchInterval = interval
		}
	}

	// Batch configuration
	if concurrency := os.Getenv("SCRIBE_BATCH_CONCURRENCY"); concurrency != "" {
		if c, err := strconv.Atoi(concurrency); err == nil {
			config.Batch.Concurrency = c
		}
	}

	// Storage configuration
	if badgerPath := os.Getenv("SCRIBE_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// Logging configuration
	if level := os.Getenv("SCRIBE_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("SCRIBE_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
	if output := os.Getenv("SCRIBE_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}
	if minEventLevel := os.Getenv("SCRIBE_LOG_MIN_EVENT_LEVEL"); minEventLevel != "" {
		config.Logging.MinEventLevel = minEventLevel
	}

	// Retention configuration
	if enabled := os.Getenv("SCRIBE_RETENTION_ENABLED"); enabled != "" {
		if e, err := strconv.ParseBool(enabled); err == nil {
			config.Retention.Enabled = e
		}
	}
	if schedule := os.Getenv("SCRIBE_RETENTION_SCHEDULE"); schedule != "" {
		config.Retention.Schedule = schedule
	}
	if maxAge := os.Getenv("SCRIBE_RETENTION_MAX_AGE"); maxAge != "" {
		if _, err := time.ParseDuration(maxAge); err == nil {
			config.Retention.MaxAge = maxAge
		}
	}

	// WebSocket configuration
	if minLevel := os.Getenv("SCRIBE_WEBSOCKET_MIN_LEVEL"); minLevel != "" {
		config.WebSocket.MinLevel = minLevel
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string, workspaceDir string) {
	// Command-line flags have highest priority
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
	if workspaceDir != "" {
		config.Workspace.Dir = workspaceDir
	}
}

// PipelineTimeout returns the parsed per-invocation timeout, zero when disabled
func (c *Config) PipelineTimeout() time.Duration {
	if c.Pipeline.Timeout == "" {
		return 0
	}
	d, err := time.ParseDuration(c.Pipeline.Timeout)
	if err != nil {
		return 0
	}
	return d
}

// RetentionMaxAge returns the parsed retention window, with a one-week fallback
func (c *Config) RetentionMaxAge() time.Duration {
	d, err := time.ParseDuration(c.Retention.MaxAge)
	if err != nil || d <= 0 {
		return 168 * time.Hour
	}
	return d
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
