// Package config loads and saves the correlation engine's persistent
// settings, mirroring the teacher project's TOML-backed config layer.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"
)

// Config holds the persistent defaults for the correlation CLIs: chunk
// sizing and masking flags shared by the chunked correlator, server
// binding, and browser/GUI display preferences.
type Config struct {
	// Correlation settings
	Correlation struct {
		ChunkInstrs        int  `toml:"chunk_instrs"`
		ToleranceInstrs    int  `toml:"tolerance_instrs"`
		IgnoreLdrStrOffset bool `toml:"ignore_ldr_str_offset"`
		IgnoreBOffset      bool `toml:"ignore_b_offset"`
	} `toml:"correlation"`

	// Symbol correlator settings
	SymCorrelate struct {
		NoVeneers      bool   `toml:"no_veneers"`
		MatchDataPools bool   `toml:"match_data_pools"`
		MatchLength    bool   `toml:"match_length"`
		MinLength      uint32 `toml:"min_length"`
	} `toml:"symcorrelate"`

	// Server settings
	Server struct {
		ListenAddr     string `toml:"listen_addr"`
		MaxConcurrency int    `toml:"max_concurrency"`
	} `toml:"server"`

	// Browser (TUI coverage browser) settings
	Browser struct {
		BytesPerLine int  `toml:"bytes_per_line"`
		ShowHoles    bool `toml:"show_holes"`
	} `toml:"browser"`

	// GUI settings
	GUI struct {
		WindowWidth  int `toml:"window_width"`
		WindowHeight int `toml:"window_height"`
	} `toml:"gui"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Correlation.ChunkInstrs = 4
	cfg.Correlation.ToleranceInstrs = 16
	cfg.Correlation.IgnoreLdrStrOffset = false
	cfg.Correlation.IgnoreBOffset = false

	cfg.SymCorrelate.NoVeneers = false
	cfg.SymCorrelate.MatchDataPools = true
	cfg.SymCorrelate.MatchLength = true
	cfg.SymCorrelate.MinLength = 8

	cfg.Server.ListenAddr = "127.0.0.1:8787"
	cfg.Server.MaxConcurrency = 4

	cfg.Browser.BytesPerLine = 16
	cfg.Browser.ShowHoles = true

	cfg.GUI.WindowWidth = 900
	cfg.GUI.WindowHeight = 600

	return cfg
}

// GetConfigPath returns the platform-specific config file path.
func GetConfigPath() string {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		configDir = filepath.Join(configDir, "armcorrelate")

	case "darwin", "linux":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.toml"
		}
		configDir = filepath.Join(homeDir, ".config", "armcorrelate")

	default:
		return "config.toml"
	}

	if err := os.MkdirAll(configDir, 0750); err != nil {
		return "config.toml"
	}

	return filepath.Join(configDir, "config.toml")
}

// GetLogPath returns the platform-specific log directory path.
func GetLogPath() string {
	var logDir string

	switch runtime.GOOS {
	case "windows":
		logDir = os.Getenv("APPDATA")
		if logDir == "" {
			logDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		logDir = filepath.Join(logDir, "armcorrelate", "logs")

	case "darwin", "linux":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "logs"
		}
		logDir = filepath.Join(homeDir, ".local", "share", "armcorrelate", "logs")

	default:
		return "logs"
	}

	if err := os.MkdirAll(logDir, 0750); err != nil {
		return "logs"
	}

	return logDir
}

// Load loads configuration from the default config file.
func Load() (*Config, error) {
	return LoadFrom(GetConfigPath())
}

// LoadFrom loads configuration from the specified file.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Save saves configuration to the default config file.
func (c *Config) Save() error {
	return c.SaveTo(GetConfigPath())
}

// SaveTo saves configuration to the specified file.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path) // #nosec G304 -- user config file path
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close config file: %w", closeErr)
		}
	}()

	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}
