// hot-reload_test.go: tests for dynamic configuration
//
// Copyright (c) 2025 Corvid Authors
// SPDX-License-Identifier: MPL-2.0
package corvid

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/corvid-db/corvid/eviction"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Databases = 1
	cfg.ReactorSetSize = 64
	e, err := New(cfg)
	if err != nil {
		t.Fatalf("New engine failed: %v", err)
	}
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestNewHotConfig(t *testing.T) {
	engine := newTestEngine(t)
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "test-config.yaml")

	initialConfig := `engine:
  max_memory: 1048576
  max_memory_policy: allkeys-lru
  max_memory_samples: 5
`
	if err := os.WriteFile(configPath, []byte(initialConfig), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	hc, err := NewHotConfig(engine, HotConfigOptions{
		ConfigPath:   configPath,
		PollInterval: 100 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewHotConfig failed: %v", err)
	}
	defer func() { _ = hc.Stop() }()

	if hc == nil {
		t.Fatal("expected non-nil HotConfig")
	}
	if hc.engine != engine {
		t.Error("HotConfig engine reference mismatch")
	}
	if hc.watcher == nil {
		t.Error("expected non-nil watcher")
	}
}

func TestNewHotConfig_EmptyPath(t *testing.T) {
	engine := newTestEngine(t)

	_, err := NewHotConfig(engine, HotConfigOptions{ConfigPath: ""})
	if err == nil {
		t.Error("expected error for empty config path")
	}
}

func TestHotConfig_StartStop(t *testing.T) {
	engine := newTestEngine(t)
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "test-config.yaml")

	if err := os.WriteFile(configPath, []byte("engine:\n  max_memory: 512\n"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	hc, err := NewHotConfig(engine, HotConfigOptions{
		ConfigPath:   configPath,
		PollInterval: 100 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewHotConfig failed: %v", err)
	}

	if err := hc.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	time.Sleep(50 * time.Millisecond)

	if err := hc.Stop(); err != nil {
		t.Errorf("Failed to stop: %v", err)
	}
}

func TestHotConfig_ConfigReload(t *testing.T) {
	engine := newTestEngine(t)
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "test-config.yaml")

	initialConfig := `engine:
  max_memory: 1000
  max_memory_policy: noeviction
`
	if err := os.WriteFile(configPath, []byte(initialConfig), 0644); err != nil {
		t.Fatalf("Failed to write initial config: %v", err)
	}

	var mu sync.Mutex
	reloadCount := 0
	reloadCh := make(chan Config, 2)

	hc, err := NewHotConfig(engine, HotConfigOptions{
		ConfigPath:   configPath,
		PollInterval: 50 * time.Millisecond,
		OnReload: func(oldConfig, newConfig Config) {
			mu.Lock()
			reloadCount++
			mu.Unlock()
			select {
			case reloadCh <- newConfig:
			default:
			}
		},
	})
	if err != nil {
		t.Fatalf("NewHotConfig failed: %v", err)
	}
	defer func() { _ = hc.Stop() }()

	if err := hc.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if !hc.watcher.IsRunning() {
		t.Fatal("watcher is not running after Start()")
	}

	select {
	case initialCfg := <-reloadCh:
		if initialCfg.MaxMemory != 1000 {
			t.Fatalf("initial config wrong: MaxMemory=%d, expected 1000", initialCfg.MaxMemory)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timeout waiting for initial config load")
	}

	time.Sleep(1500 * time.Millisecond)

	updatedConfig := `engine:
  max_memory: 2000
  max_memory_policy: allkeys-lru
`
	tempPath := configPath + ".tmp"
	if err := os.WriteFile(tempPath, []byte(updatedConfig), 0644); err != nil {
		t.Fatalf("Failed to write temp config: %v", err)
	}
	if err := os.Rename(tempPath, configPath); err != nil {
		t.Fatalf("Failed to rename config: %v", err)
	}

	select {
	case newConfig := <-reloadCh:
		if newConfig.MaxMemory != 2000 {
			t.Errorf("expected MaxMemory=2000, got %d", newConfig.MaxMemory)
		}
		if newConfig.MaxMemoryPolicy != eviction.AllKeysLRU {
			t.Errorf("expected AllKeysLRU, got %v", newConfig.MaxMemoryPolicy)
		}
	case <-time.After(3 * time.Second):
		mu.Lock()
		count := reloadCount
		mu.Unlock()
		t.Fatalf("timeout waiting for config reload, reloadCount=%d", count)
	}
}

func TestHotConfig_GetConfig(t *testing.T) {
	engine := newTestEngine(t)
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "test-config.yaml")

	if err := os.WriteFile(configPath, []byte("engine:\n  max_memory: 750\n"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	hc, err := NewHotConfig(engine, HotConfigOptions{
		ConfigPath:   configPath,
		PollInterval: 100 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewHotConfig failed: %v", err)
	}
	defer func() { _ = hc.Stop() }()

	cfg := hc.GetConfig()
	if cfg.MaxMemory != engine.config().MaxMemory {
		t.Error("expected engine's config before start")
	}

	if err := hc.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	time.Sleep(200 * time.Millisecond)

	cfg = hc.GetConfig()
	if cfg.MaxMemory != 750 {
		t.Errorf("expected MaxMemory=750, got %d", cfg.MaxMemory)
	}
}

func TestHotConfig_ParseConfig(t *testing.T) {
	engine := newTestEngine(t)
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "dummy.yaml")

	if err := os.WriteFile(configPath, []byte("engine: {}"), 0644); err != nil {
		t.Fatalf("Failed to write dummy config: %v", err)
	}

	hc, err := NewHotConfig(engine, HotConfigOptions{ConfigPath: configPath})
	if err != nil {
		t.Fatalf("NewHotConfig failed: %v", err)
	}
	defer func() { _ = hc.Stop() }()

	tests := []struct {
		name   string
		data   map[string]interface{}
		expect func(*testing.T, Config)
	}{
		{
			name: "valid config with all fields",
			data: map[string]interface{}{
				"engine": map[string]interface{}{
					"max_memory":            float64(5000),
					"max_memory_policy":     "allkeys-lfu",
					"max_memory_samples":    float64(6),
					"lfu_log_factor":        float64(2),
					"lfu_decay_time":        float64(3),
					"lazy_free_on_eviction": true,
				},
			},
			expect: func(t *testing.T, cfg Config) {
				if cfg.MaxMemory != 5000 {
					t.Errorf("MaxMemory: expected 5000, got %d", cfg.MaxMemory)
				}
				if cfg.MaxMemoryPolicy != eviction.AllKeysLFU {
					t.Errorf("MaxMemoryPolicy: expected AllKeysLFU, got %v", cfg.MaxMemoryPolicy)
				}
				if cfg.MaxMemorySamples != 6 {
					t.Errorf("MaxMemorySamples: expected 6, got %d", cfg.MaxMemorySamples)
				}
				if !cfg.LazyFreeOnEviction {
					t.Error("LazyFreeOnEviction: expected true")
				}
			},
		},
		{
			name: "missing engine section returns unchanged config",
			data: map[string]interface{}{
				"other": "value",
			},
			expect: func(t *testing.T, cfg Config) {
				if cfg.MaxMemory != engine.config().MaxMemory {
					t.Errorf("expected unchanged MaxMemory=%d, got %d", engine.config().MaxMemory, cfg.MaxMemory)
				}
			},
		},
		{
			name: "invalid policy name ignored",
			data: map[string]interface{}{
				"engine": map[string]interface{}{
					"max_memory_policy": "not-a-policy",
				},
			},
			expect: func(t *testing.T, cfg Config) {
				if cfg.MaxMemoryPolicy != engine.config().MaxMemoryPolicy {
					t.Errorf("expected policy unchanged, got %v", cfg.MaxMemoryPolicy)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := hc.parseConfig(tt.data)
			tt.expect(t, cfg)
		})
	}
}

func TestHotConfig_JSONFormat(t *testing.T) {
	engine := newTestEngine(t)
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "test-config.json")

	jsonConfig := `{
  "engine": {
    "max_memory": 3000,
    "max_memory_policy": "volatile-lru",
    "max_memory_samples": 5
  }
}`
	if err := os.WriteFile(configPath, []byte(jsonConfig), 0644); err != nil {
		t.Fatalf("Failed to write JSON config: %v", err)
	}

	reloadCh := make(chan Config, 1)
	hc, err := NewHotConfig(engine, HotConfigOptions{
		ConfigPath:   configPath,
		PollInterval: 100 * time.Millisecond,
		OnReload: func(oldConfig, newConfig Config) {
			select {
			case reloadCh <- newConfig:
			default:
			}
		},
	})
	if err != nil {
		t.Fatalf("NewHotConfig failed: %v", err)
	}
	defer func() { _ = hc.Stop() }()

	if err := hc.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	select {
	case cfg := <-reloadCh:
		if cfg.MaxMemory != 3000 {
			t.Errorf("expected MaxMemory=3000, got %d", cfg.MaxMemory)
		}
		if cfg.MaxMemoryPolicy != eviction.VolatileLRU {
			t.Errorf("expected VolatileLRU, got %v", cfg.MaxMemoryPolicy)
		}
	case <-time.After(2 * time.Second):
		t.Error("timeout waiting for JSON config load")
	}
}

func BenchmarkHotConfig_GetConfig(b *testing.B) {
	cfg := DefaultConfig()
	cfg.Databases = 1
	cfg.ReactorSetSize = 64
	engine, err := New(cfg)
	if err != nil {
		b.Fatalf("New engine failed: %v", err)
	}
	defer func() { _ = engine.Close() }()

	tempDir := b.TempDir()
	configPath := filepath.Join(tempDir, "bench-config.yaml")
	if err := os.WriteFile(configPath, []byte("engine: {max_memory: 1000}"), 0644); err != nil {
		b.Fatalf("Failed to write config: %v", err)
	}

	hc, err := NewHotConfig(engine, HotConfigOptions{ConfigPath: configPath})
	if err != nil {
		b.Fatalf("NewHotConfig failed: %v", err)
	}
	defer func() { _ = hc.Stop() }()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = hc.GetConfig()
	}
}
