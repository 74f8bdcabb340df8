package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/five82/layerscope/internal/cache"
	"github.com/five82/layerscope/internal/fstree"
	"github.com/five82/layerscope/internal/logging"
)

// Config captures the layerscope settings.
type Config struct {
	BackendAddr    string
	RequestTimeout time.Duration
	LogPath        string
	LogLevel       string
	LogFormat      string
	CacheBudget    uint64
	PollInterval   time.Duration
	MetricsAddr    string
	Paths          Paths
}

// Paths describes where the backend stages the current layer.
type Paths struct {
	Namespace string
	LayerRoot string
	Reserved  []string
}

const (
	defaultConfigPath   = "~/.config/layerscope/config.toml"
	defaultLogPath      = "~/.local/state/layerscope/layerscope.log"
	defaultBackendAddr  = "127.0.0.1:7433"
	defaultLogLevel     = "info"
	defaultLogFormat    = "json"
	defaultPollInterval = 2 * time.Second
)

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return defaultConfigPath
}

// Default returns the configuration used when no file exists.
func Default() Config {
	budget, _ := cache.ParseBudget("")
	return Config{
		BackendAddr:  defaultBackendAddr,
		LogPath:      mustExpand(defaultLogPath),
		LogLevel:     defaultLogLevel,
		LogFormat:    defaultLogFormat,
		CacheBudget:  budget,
		PollInterval: defaultPollInterval,
		Paths: Paths{
			Namespace: fstree.DefaultNamespace,
			LayerRoot: fstree.DefaultLayerRoot,
			Reserved:  append([]string(nil), fstree.DefaultReserved...),
		},
	}
}

type rawConfig struct {
	BackendAddr    string `toml:"backend_addr"`
	RequestTimeout string `toml:"request_timeout"`
	LogPath        string `toml:"log_path"`
	LogLevel       string `toml:"log_level"`
	LogFormat      string `toml:"log_format"`
	CacheBudget    string `toml:"cache_budget"`
	PollInterval   string `toml:"poll_interval"`
	MetricsAddr    string `toml:"metrics_addr"`
	Paths          struct {
		Namespace string   `toml:"namespace"`
		LayerRoot string   `toml:"layer_root"`
		Reserved  []string `toml:"reserved"`
	} `toml:"paths"`
}

// Load locates and parses the config, falling back to defaults when missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw rawConfig
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if addr := strings.TrimSpace(raw.BackendAddr); addr != "" {
		cfg.BackendAddr = addr
	}
	if v := strings.TrimSpace(raw.RequestTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return Config{}, fmt.Errorf("parse config: request_timeout %q: invalid duration", v)
		}
		cfg.RequestTimeout = d
	}
	if v := strings.TrimSpace(raw.PollInterval); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("parse config: poll_interval %q: invalid duration", v)
		}
		cfg.PollInterval = d
	}
	if v := strings.TrimSpace(raw.LogPath); v != "" {
		cfg.LogPath = mustExpand(v)
	}
	if v := strings.ToLower(strings.TrimSpace(raw.LogLevel)); v != "" {
		cfg.LogLevel = v
	}
	if v := strings.ToLower(strings.TrimSpace(raw.LogFormat)); v != "" {
		if v != "json" && v != "console" {
			return Config{}, fmt.Errorf("parse config: log_format %q: want json or console", v)
		}
		cfg.LogFormat = v
	}
	if v := strings.TrimSpace(raw.CacheBudget); v != "" {
		budget, err := cache.ParseBudget(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
		cfg.CacheBudget = budget
	}
	cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)

	if v := strings.TrimSpace(raw.Paths.Namespace); v != "" {
		cfg.Paths.Namespace = v
	}
	if v := strings.TrimSpace(raw.Paths.LayerRoot); v != "" {
		cfg.Paths.LayerRoot = v
	}
	if raw.Paths.Reserved != nil {
		cfg.Paths.Reserved = filterStrings(raw.Paths.Reserved)
	}

	return cfg, nil
}

// Normalizer returns the path normalizer for the configured layout.
func (c Config) Normalizer() fstree.Normalizer {
	return fstree.Normalizer{
		Namespace: c.Paths.Namespace,
		LayerRoot: c.Paths.LayerRoot,
		Reserved:  append([]string(nil), c.Paths.Reserved...),
	}
}

// Logging returns the logger settings.
func (c Config) Logging() logging.Config {
	return logging.Config{Level: c.LogLevel, Format: c.LogFormat, OutputPath: c.LogPath}
}

func filterStrings(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
