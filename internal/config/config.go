// Package config provides configuration management for the Cutroom agent.
// Configuration is loaded from environment variables with sensible defaults;
// a .env file in the working directory is honored when present.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	// Default values
	DefaultPort          = 8787
	DefaultLogLevel      = "info"
	DefaultDataDir       = ".cutroom"
	DefaultFFmpegPath    = "ffmpeg"
	DefaultEncodeTimeout = 30 * time.Minute

	// Environment variable names
	EnvPort          = "CUTROOM_PORT"
	EnvLogLevel      = "CUTROOM_LOG_LEVEL"
	EnvDataDir       = "CUTROOM_DATA_DIR"
	EnvFFmpegPath    = "CUTROOM_FFMPEG_PATH"
	EnvExportDir     = "CUTROOM_EXPORT_DIR"
	EnvEncodeTimeout = "CUTROOM_ENCODE_TIMEOUT_SEC"
	EnvHeadless      = "CUTROOM_HEADLESS"

	// Database filename
	DBFilename = "cutroom.db"
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	WorkDir() string
	FFmpegPath() string
	ExportDir() string
	EncodeTimeout() time.Duration
	Headless() bool
}

// EnvConfig reads configuration from environment variables
type EnvConfig struct {
	port          int
	logLevel      string
	dataDir       string
	ffmpegPath    string
	exportDir     string
	encodeTimeout time.Duration
	headless      bool
}

// New creates a new EnvConfig with defaults and environment variable
// overrides. A missing .env file is not an error.
func New() (*EnvConfig, error) {
	_ = godotenv.Load()

	cfg := &EnvConfig{
		port:          DefaultPort,
		logLevel:      DefaultLogLevel,
		dataDir:       defaultDataDir(),
		ffmpegPath:    DefaultFFmpegPath,
		encodeTimeout: DefaultEncodeTimeout,
	}

	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
		}
		cfg.port = port
	}

	if ll := os.Getenv(EnvLogLevel); ll != "" {
		cfg.logLevel = ll
	}

	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.dataDir = dd
	}

	if fp := os.Getenv(EnvFFmpegPath); fp != "" {
		cfg.ffmpegPath = fp
	}

	cfg.exportDir = os.Getenv(EnvExportDir)

	if et := os.Getenv(EnvEncodeTimeout); et != "" {
		secs, err := strconv.Atoi(et)
		if err != nil || secs < 0 {
			return nil, fmt.Errorf("invalid %s: must be a non-negative number of seconds", EnvEncodeTimeout)
		}
		cfg.encodeTimeout = time.Duration(secs) * time.Second
	}

	if h := os.Getenv(EnvHeadless); h != "" {
		headless, err := strconv.ParseBool(h)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvHeadless, err)
		}
		cfg.headless = headless
	}

	return cfg, nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// WorkDir returns the scratch directory used for in-flight export runs
func (c *EnvConfig) WorkDir() string {
	return filepath.Join(c.dataDir, "work")
}

// FFmpegPath returns the ffmpeg binary path or name
func (c *EnvConfig) FFmpegPath() string {
	return c.ffmpegPath
}

// ExportDir returns the default directory for finished exports; empty means
// the caller must supply an output directory per export.
func (c *EnvConfig) ExportDir() string {
	if c.exportDir != "" {
		return c.exportDir
	}
	return filepath.Join(c.dataDir, "exports")
}

// EncodeTimeout bounds each external encoder invocation. Zero disables the
// bound.
func (c *EnvConfig) EncodeTimeout() time.Duration {
	return c.encodeTimeout
}

// Headless reports whether the agent should run without the system tray
func (c *EnvConfig) Headless() bool {
	return c.headless
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
