package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/wricardo/fibtiles/game/engine"
)

func createValidConfig() *engine.GameConfig {
	config := engine.DefaultGameConfig()
	config.Name = "Test Config"
	config.Description = "Test configuration"
	return config
}

func writeConfigFile(t *testing.T, dir, name string, config *engine.GameConfig) {
	t.Helper()

	filename := name
	if filepath.Ext(filename) == "" {
		filename = name + ".json"
	}

	var data []byte
	var err error
	switch filepath.Ext(filename) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(config)
	default:
		data, err = json.MarshalIndent(config, "", "  ")
	}
	if err != nil {
		t.Fatalf("Failed to marshal config: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, filename), data, 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
}

func TestNewManager(t *testing.T) {
	t.Run("classic is the default", func(t *testing.T) {
		dir := t.TempDir()

		other := createValidConfig()
		other.Name = "Aaa"
		writeConfigFile(t, dir, "aaa", other)

		classic := createValidConfig()
		classic.Name = "Classic"
		writeConfigFile(t, dir, "classic", classic)

		manager, err := NewManager(dir)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		if got := manager.GetDefault().Name; got != "Classic" {
			t.Errorf("Expected default 'Classic', got '%s'", got)
		}
	})

	t.Run("first valid preset without classic", func(t *testing.T) {
		dir := t.TempDir()
		os.WriteFile(filepath.Join(dir, "broken.json"), []byte(`{`), 0644)

		sprint := createValidConfig()
		sprint.Name = "Sprint"
		writeConfigFile(t, dir, "sprint.yaml", sprint)

		manager, err := NewManager(dir)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		if got := manager.GetDefault().Name; got != "Sprint" {
			t.Errorf("Expected default 'Sprint', got '%s'", got)
		}
	})

	t.Run("non-existent directory", func(t *testing.T) {
		_, err := NewManager("/non/existent/path")
		if err == nil {
			t.Error("Expected error for non-existent directory")
		}
	})

	t.Run("empty directory uses built-in rules", func(t *testing.T) {
		manager, err := NewManager(t.TempDir())
		if err != nil {
			t.Fatalf("NewManager should succeed even without config files, got error: %v", err)
		}

		defaultConfig := manager.GetDefault()
		if defaultConfig == nil {
			t.Fatal("Expected default config to be available")
		}
		if defaultConfig.BoardSize != engine.DefaultBoardSize {
			t.Errorf("Expected board size %d, got %d", engine.DefaultBoardSize, defaultConfig.BoardSize)
		}
	})
}

func TestManager_LoadConfig(t *testing.T) {
	dir := t.TempDir()

	large := createValidConfig()
	large.Name = "Large"
	large.BoardSize = 5
	writeConfigFile(t, dir, "large", large)

	sprint := createValidConfig()
	sprint.Name = "Sprint"
	sprint.TargetTile = 233
	writeConfigFile(t, dir, "sprint.yaml", sprint)

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	t.Run("load json preset", func(t *testing.T) {
		config, err := manager.LoadConfig("large")
		if err != nil {
			t.Fatalf("Failed to load config: %v", err)
		}
		if config.BoardSize != 5 {
			t.Errorf("Expected board size 5, got %d", config.BoardSize)
		}
	})

	t.Run("load yaml preset", func(t *testing.T) {
		config, err := manager.LoadConfig("sprint")
		if err != nil {
			t.Fatalf("Failed to load config: %v", err)
		}
		if config.TargetTile != 233 {
			t.Errorf("Expected target 233, got %d", config.TargetTile)
		}
	})

	t.Run("load with extension", func(t *testing.T) {
		config, err := manager.LoadConfig("large.json")
		if err != nil {
			t.Fatalf("Failed to load config with extension: %v", err)
		}
		if config.Name != "Large" {
			t.Errorf("Expected config name 'Large', got '%s'", config.Name)
		}
	})

	t.Run("load from cache", func(t *testing.T) {
		config1, _ := manager.LoadConfig("large")
		config2, err := manager.LoadConfig("large.json")
		if err != nil {
			t.Fatalf("Failed to load config from cache: %v", err)
		}
		if config1 != config2 {
			t.Error("Expected config to be loaded from cache")
		}
	})

	t.Run("load non-existent config", func(t *testing.T) {
		_, err := manager.LoadConfig("non-existent")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("Expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("path traversal is not found", func(t *testing.T) {
		_, err := manager.LoadConfig("../etc/passwd")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("Expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("load invalid config", func(t *testing.T) {
		os.WriteFile(filepath.Join(dir, "invalid.json"), []byte(`{"name": ""}`), 0644)

		_, err := manager.LoadConfig("invalid")
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("unknown json field", func(t *testing.T) {
		os.WriteFile(filepath.Join(dir, "typo.json"), []byte(`{"name": "Typo", "grid_size": 4}`), 0644)

		_, err := manager.LoadConfig("typo")
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("load malformed JSON", func(t *testing.T) {
		os.WriteFile(filepath.Join(dir, "malformed.json"), []byte(`{"name": "Malformed", invalid json}`), 0644)

		_, err := manager.LoadConfig("malformed")
		if err == nil {
			t.Error("Expected error for malformed JSON")
		}
	})
}

func TestManager_ListConfigs(t *testing.T) {
	dir := t.TempDir()

	presets := []struct {
		filename string
		name     string
	}{
		{"classic", "Classic"},
		{"sprint.yaml", "Sprint"},
		{"large.yml", "Large"},
		{"zen", "Zen"},
	}
	for _, p := range presets {
		config := createValidConfig()
		config.Name = p.name
		writeConfigFile(t, dir, p.filename, config)
	}

	// Non-preset and broken files are skipped
	os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("readme"), 0644)
	os.WriteFile(filepath.Join(dir, "broken.json"), []byte(`{"name":`), 0644)

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	configList, err := manager.ListConfigs()
	if err != nil {
		t.Fatalf("Failed to list configs: %v", err)
	}
	if len(configList) != 4 {
		t.Fatalf("Expected 4 configs, got %d", len(configList))
	}

	want := []string{"classic", "large", "sprint", "zen"}
	for i, info := range configList {
		if info.ConfigID != want[i] {
			t.Errorf("Expected config %d to be '%s', got '%s'", i, want[i], info.ConfigID)
		}
		if info.BoardSize != engine.DefaultBoardSize {
			t.Errorf("Expected board size %d for %s, got %d", engine.DefaultBoardSize, info.ConfigID, info.BoardSize)
		}
	}
}

func TestManager_SaveConfig(t *testing.T) {
	dir := t.TempDir()
	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	t.Run("json", func(t *testing.T) {
		config := createValidConfig()
		config.Name = "Saved"
		config.Solver.Weights = map[string]float64{"corner": 3}
		if err := manager.SaveConfig("saved", config); err != nil {
			t.Fatalf("Failed to save config: %v", err)
		}
		if _, err := os.Stat(filepath.Join(dir, "saved.json")); err != nil {
			t.Errorf("Expected saved.json on disk: %v", err)
		}

		loaded, err := engine.LoadGameConfig(filepath.Join(dir, "saved.json"))
		if err != nil {
			t.Fatalf("Failed to read back config: %v", err)
		}
		if loaded.Solver.Weights["corner"] != 3 {
			t.Errorf("Expected corner weight 3, got %v", loaded.Solver.Weights["corner"])
		}
	})

	t.Run("yaml", func(t *testing.T) {
		config := createValidConfig()
		config.Name = "Saved YAML"
		if err := manager.SaveConfig("saved-yaml.yaml", config); err != nil {
			t.Fatalf("Failed to save config: %v", err)
		}

		loaded, err := engine.LoadGameConfig(filepath.Join(dir, "saved-yaml.yaml"))
		if err != nil {
			t.Fatalf("Failed to read back config: %v", err)
		}
		if loaded.Name != "Saved YAML" {
			t.Errorf("Expected 'Saved YAML', got '%s'", loaded.Name)
		}
	})

	t.Run("invalid config", func(t *testing.T) {
		config := createValidConfig()
		config.BoardSize = 1
		if err := manager.SaveConfig("bad", config); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("bad name", func(t *testing.T) {
		if err := manager.SaveConfig("../escape", createValidConfig()); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Expected ErrInvalidConfig, got %v", err)
		}
	})
}

func TestManager_RefreshCache(t *testing.T) {
	dir := t.TempDir()

	config := createValidConfig()
	config.Name = "Changeable"
	writeConfigFile(t, dir, "changeable", config)

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	loaded, _ := manager.LoadConfig("changeable")
	if loaded.BoardSize != 4 {
		t.Errorf("Expected initial board size 4, got %d", loaded.BoardSize)
	}

	config.BoardSize = 6
	writeConfigFile(t, dir, "changeable", config)

	manager.RefreshCache()

	reloaded, err := manager.LoadConfig("changeable")
	if err != nil {
		t.Fatalf("Failed to reload config: %v", err)
	}
	if reloaded.BoardSize != 6 {
		t.Errorf("Expected reloaded board size 6, got %d", reloaded.BoardSize)
	}
	if manager.GetDefault().BoardSize != 6 {
		t.Errorf("Expected default to follow the refreshed preset")
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	dir := t.TempDir()

	for i := 1; i <= 5; i++ {
		config := createValidConfig()
		config.Name = fmt.Sprintf("Config%d", i)
		writeConfigFile(t, dir, fmt.Sprintf("config%d", i), config)
	}

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 50)

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if _, err := manager.LoadConfig(fmt.Sprintf("config%d", id%5+1)); err != nil {
				errs <- err
			}
			if id%10 == 0 {
				manager.RefreshCache()
			}
		}(i)
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Unexpected error during concurrent access: %v", err)
	}
}

func TestManager_CachingBehavior(t *testing.T) {
	dir := t.TempDir()

	classic := createValidConfig()
	writeConfigFile(t, dir, "classic", classic)

	testConfig := createValidConfig()
	testConfig.Name = "Test"
	writeConfigFile(t, dir, "test.yaml", testConfig)

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	for i := 0; i < 10; i++ {
		config, err := manager.LoadConfig("test")
		if err != nil {
			t.Fatalf("Failed to load config on iteration %d: %v", i, err)
		}
		if config.Name != "Test" {
			t.Errorf("Unexpected config name on iteration %d", i)
		}
	}

	// The default config and the test config
	if manager.Count() != 2 {
		t.Errorf("Expected 2 configs in cache, got %d", manager.Count())
	}
}

// Count is a test-only view of the cache size
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.configs)
}
