package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/runnerr0/apachestats/internal/traffic"
)

// Default config file path, read when present and no --config is given.
const DefaultConfigPath = "~/.config/apachestats/config.yaml"

// Environment variable prefix for overrides.
const EnvPrefix = "APACHESTATS_"

// Engine names.
const (
	EngineMemory = "memory"
	EngineSQLite = "sqlite"
)

// Config holds all apachestats configuration.
type Config struct {
	SiteDomain     string               `yaml:"site_domain"`
	MaxMindDB      string               `yaml:"maxmind_db"`
	TopK           int                  `yaml:"top_k"`
	Verbose        bool                 `yaml:"verbose"`
	Engine         string               `yaml:"engine"`
	LogFormat      string               `yaml:"log_format"`
	SQLite         SQLiteConfig         `yaml:"sqlite"`
	Classification ClassificationConfig `yaml:"classification"`
	Logging        LoggingConfig        `yaml:"logging"`
}

type SQLiteConfig struct {
	// Path of the scratch database. Empty means in-memory.
	Path string `yaml:"path"`
}

type ClassificationConfig struct {
	RobotMarker  string   `yaml:"robot_marker"`
	NoiseMarkers []string `yaml:"noise_markers"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a YAML config file at path and merges it with defaults.
// An empty path reads DefaultConfigPath if it exists and falls back to
// plain defaults otherwise.
func Load(path string) (*Config, error) {
	if path == "" {
		def, err := expandPath(DefaultConfigPath)
		if err != nil {
			return DefaultConfig(), nil
		}
		if _, err := os.Stat(def); err != nil {
			return DefaultConfig(), nil
		}
		path = def
	}

	path, err := expandPath(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return cfg, nil
}

// ApplyEnv loads envFile (if it exists; empty means ".env") and overrides
// fields from APACHESTATS_* variables. Unparsable numbers and booleans
// leave the current value in place.
func (c *Config) ApplyEnv(envFile string) {
	if envFile == "" {
		envFile = ".env"
	}
	_ = godotenv.Load(envFile) // optional

	c.SiteDomain = getenv("SITE_DOMAIN", c.SiteDomain)
	c.MaxMindDB = getenv("MAXMIND_DB", c.MaxMindDB)
	c.TopK = getenvInt("TOP_K", c.TopK)
	c.Verbose = getenvBool("VERBOSE", c.Verbose)
	c.Engine = getenv("ENGINE", c.Engine)
	c.LogFormat = getenv("LOG_FORMAT", c.LogFormat)
	c.SQLite.Path = getenv("SQLITE_PATH", c.SQLite.Path)
	c.Classification.RobotMarker = getenv("ROBOT_MARKER", c.Classification.RobotMarker)
	if v := getenv("NOISE_MARKERS", ""); v != "" {
		c.Classification.NoiseMarkers = splitList(v)
	}
	c.Logging.Level = getenv("LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getenv("LOG_OUTPUT", c.Logging.Format)
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.TopK <= 0 {
		return fmt.Errorf("top_k must be positive, got %d", c.TopK)
	}
	if strings.TrimSpace(c.SiteDomain) == "" {
		return fmt.Errorf("site_domain must not be empty")
	}
	switch c.Engine {
	case EngineMemory, EngineSQLite:
	default:
		return fmt.Errorf("unknown engine %q (use %s or %s)", c.Engine, EngineMemory, EngineSQLite)
	}
	if strings.TrimSpace(c.LogFormat) == "" {
		return fmt.Errorf("log_format must not be empty")
	}
	if c.Classification.RobotMarker == "" {
		return fmt.Errorf("classification.robot_marker must not be empty")
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown logging.level %q", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("unknown logging.format %q (use text or json)", c.Logging.Format)
	}
	return nil
}

// Rules returns the traffic classification rules.
func (c *Config) Rules() traffic.Rules {
	return traffic.Rules{
		RobotMarker:  c.Classification.RobotMarker,
		NoiseMarkers: append([]string(nil), c.Classification.NoiseMarkers...),
	}
}

// MaxMindPath returns the geolocation database path with ~ expanded.
func (c *Config) MaxMindPath() (string, error) {
	return expandPath(c.MaxMindDB)
}

// expandPath replaces a leading ~ with the user's home directory.
func expandPath(path string) (string, error) {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
