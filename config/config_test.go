package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Correlation.ChunkInstrs != 4 {
		t.Errorf("Expected ChunkInstrs=4, got %d", cfg.Correlation.ChunkInstrs)
	}
	if cfg.Correlation.ToleranceInstrs != 16 {
		t.Errorf("Expected ToleranceInstrs=16, got %d", cfg.Correlation.ToleranceInstrs)
	}

	if !cfg.SymCorrelate.MatchDataPools {
		t.Error("Expected MatchDataPools=true")
	}
	if cfg.SymCorrelate.MinLength != 8 {
		t.Errorf("Expected MinLength=8, got %d", cfg.SymCorrelate.MinLength)
	}

	if cfg.Server.ListenAddr != "127.0.0.1:8787" {
		t.Errorf("Expected ListenAddr=127.0.0.1:8787, got %s", cfg.Server.ListenAddr)
	}

	if cfg.Browser.BytesPerLine != 16 {
		t.Errorf("Expected BytesPerLine=16, got %d", cfg.Browser.BytesPerLine)
	}

	if cfg.GUI.WindowWidth != 900 {
		t.Errorf("Expected WindowWidth=900, got %d", cfg.GUI.WindowWidth)
	}
}

func TestGetConfigPath(t *testing.T) {
	path := GetConfigPath()

	if path == "" {
		t.Error("GetConfigPath returned empty string")
	}

	if filepath.Base(path) != "config.toml" {
		t.Errorf("Expected path to end with config.toml, got %s", path)
	}

	switch runtime.GOOS {
	case "windows":
		if !filepath.IsAbs(path) && path != "config.toml" {
			t.Errorf("Expected absolute path on Windows, got %s", path)
		}

	case "darwin", "linux":
		dir := filepath.Dir(path)
		if filepath.Base(dir) != "armcorrelate" && path != "config.toml" {
			t.Errorf("Expected path in armcorrelate directory or fallback, got %s", path)
		}
	}
}

func TestGetLogPath(t *testing.T) {
	path := GetLogPath()

	if path == "" {
		t.Error("GetLogPath returned empty string")
	}

	switch runtime.GOOS {
	case "windows":
		if !filepath.IsAbs(path) && path != "logs" {
			t.Errorf("Expected absolute path on Windows, got %s", path)
		}

	case "darwin", "linux":
		if filepath.Base(path) != "logs" {
			t.Errorf("Expected path to end with logs, got %s", path)
		}
	}
}

func TestSaveAndLoad(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "test_config.toml")

	cfg := DefaultConfig()
	cfg.Correlation.ChunkInstrs = 8
	cfg.Correlation.IgnoreBOffset = true
	cfg.SymCorrelate.MinLength = 16
	cfg.Server.ListenAddr = "0.0.0.0:9000"

	if err := cfg.SaveTo(configPath); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Fatal("Config file was not created")
	}

	loaded, err := LoadFrom(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if loaded.Correlation.ChunkInstrs != 8 {
		t.Errorf("Expected ChunkInstrs=8, got %d", loaded.Correlation.ChunkInstrs)
	}
	if !loaded.Correlation.IgnoreBOffset {
		t.Error("Expected IgnoreBOffset=true")
	}
	if loaded.SymCorrelate.MinLength != 16 {
		t.Errorf("Expected MinLength=16, got %d", loaded.SymCorrelate.MinLength)
	}
	if loaded.Server.ListenAddr != "0.0.0.0:9000" {
		t.Errorf("Expected ListenAddr=0.0.0.0:9000, got %s", loaded.Server.ListenAddr)
	}
}

func TestLoadNonExistent(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "nonexistent.toml")

	cfg, err := LoadFrom(configPath)
	if err != nil {
		t.Fatalf("LoadFrom should not error on non-existent file: %v", err)
	}

	if cfg.Correlation.ChunkInstrs != 4 {
		t.Error("Expected default config when file doesn't exist")
	}
}

func TestLoadInvalidTOML(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "invalid.toml")

	invalidTOML := `
[correlation]
chunk_instrs = "not a number"  # Invalid: should be int
`
	if err := os.WriteFile(configPath, []byte(invalidTOML), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	_, err := LoadFrom(configPath)
	if err == nil {
		t.Error("Expected error when loading invalid TOML")
	}
}

func TestSaveCreatesDirectory(t *testing.T) {
	tempDir := t.TempDir()

	configPath := filepath.Join(tempDir, "subdir1", "subdir2", "config.toml")

	cfg := DefaultConfig()
	if err := cfg.SaveTo(configPath); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Error("Config file was not created")
	}

	dir := filepath.Dir(configPath)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		t.Error("Parent directories were not created")
	}
}
