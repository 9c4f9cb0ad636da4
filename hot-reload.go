// hot-reload.go: dynamic configuration with Argus integration
//
// Copyright (c) 2025 Corvid Authors
// SPDX-License-Identifier: MPL-2.0
package corvid

import (
	"fmt"
	"sync"
	"time"

	"github.com/agilira/argus"

	"github.com/corvid-db/corvid/eviction"
	"github.com/corvid-db/corvid/telemetry"
)

// HotConfig provides dynamic configuration reload capabilities using
// Argus. It watches a configuration file and applies the subset of Config
// that is safe to change without reconstructing the Engine: eviction
// policy, memory ceiling, sample count, LFU decay parameters, and the
// lazy-free-on-eviction flag.
// ReactorSetSize and Databases require engine reconstruction and are never
// hot-reloaded.
type HotConfig struct {
	engine  *Engine
	watcher *argus.Watcher
	mu      sync.RWMutex
	config  Config

	// OnReload is called after configuration is successfully reloaded.
	// This callback is optional and must be fast and non-blocking.
	OnReload func(oldConfig, newConfig Config)
}

// HotConfigOptions configures hot reload behavior.
type HotConfigOptions struct {
	// ConfigPath is the path to the configuration file to watch.
	// Supports JSON, YAML, TOML, HCL, INI, Properties formats.
	ConfigPath string

	// PollInterval is how often to check for configuration changes.
	// Default: 1 second. Minimum: 100ms.
	PollInterval time.Duration

	// OnReload is called after configuration is successfully reloaded.
	OnReload func(oldConfig, newConfig Config)

	// Logger for hot reload operations. If nil, uses the engine's logger.
	Logger telemetry.Logger
}

// NewHotConfig creates a new hot-reloadable configuration for an Engine.
// It starts watching the configuration file immediately.
//
// Example configuration file (YAML):
//
//	engine:
//	  max_memory: 67108864
//	  max_memory_policy: allkeys-lru
//	  max_memory_samples: 5
//	  lfu_log_factor: 10
//	  lfu_decay_time: 1
//	  lazy_free_on_eviction: true
//
// Supported configuration keys:
//   - engine.max_memory (int): Memory ceiling in bytes, 0 = unlimited
//   - engine.max_memory_policy (string): one of the Policy.String() names
//   - engine.max_memory_samples (int): Eviction pool sample count (1-64)
//   - engine.lfu_log_factor (float): LFU counter increment tuning
//   - engine.lfu_decay_time (int): LFU decay period in minutes
//   - engine.lazy_free_on_eviction (bool): route evictions through BW
//
// Note: Changes to ReactorSetSize or Databases require engine
// reconstruction and are not applied dynamically.
func NewHotConfig(engine *Engine, opts HotConfigOptions) (*HotConfig, error) {
	if opts.ConfigPath == "" {
		return nil, fmt.Errorf("config_path is required")
	}

	if opts.PollInterval == 0 {
		opts.PollInterval = 1 * time.Second
	} else if opts.PollInterval < 100*time.Millisecond {
		opts.PollInterval = 100 * time.Millisecond
	}

	if opts.Logger == nil {
		opts.Logger = engine.config().Logger
	}

	hc := &HotConfig{
		engine:   engine,
		OnReload: opts.OnReload,
		config:   engine.config(),
	}

	argusConfig := argus.Config{
		PollInterval: opts.PollInterval,
	}

	watcher, err := argus.UniversalConfigWatcherWithConfig(opts.ConfigPath, hc.handleConfigChange, argusConfig)
	if err != nil {
		return nil, err
	}
	hc.watcher = watcher

	return hc, nil
}

// Start begins watching the configuration file for changes.
func (hc *HotConfig) Start() error {
	if hc.watcher.IsRunning() {
		return nil
	}
	return hc.watcher.Start()
}

// Stop stops watching the configuration file.
func (hc *HotConfig) Stop() error {
	return hc.watcher.Stop()
}

// GetConfig returns the current configuration (thread-safe).
func (hc *HotConfig) GetConfig() Config {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	return hc.config
}

// handleConfigChange is called by Argus when configuration changes.
func (hc *HotConfig) handleConfigChange(configData map[string]interface{}) {
	hc.mu.Lock()
	oldConfig := hc.config
	newConfig := hc.parseConfig(configData)
	hc.config = newConfig
	hc.mu.Unlock()

	hc.engine.applyHotConfig(newConfig)

	if hc.OnReload != nil {
		hc.OnReload(oldConfig, newConfig)
	}
}

func parsePositiveUint(value interface{}) (uint64, bool) {
	switch v := value.(type) {
	case int:
		if v >= 0 {
			return uint64(v), true
		}
	case float64:
		if v >= 0 {
			return uint64(v), true
		}
	}
	return 0, false
}

func parseIntInRange(value interface{}, min, max int) (int, bool) {
	switch v := value.(type) {
	case int:
		if v >= min && v <= max {
			return v, true
		}
	case float64:
		if v >= float64(min) && v <= float64(max) {
			return int(v), true
		}
	}
	return 0, false
}

func parseNonNegativeFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		if v >= 0 {
			return v, true
		}
	case int:
		if v >= 0 {
			return float64(v), true
		}
	}
	return 0, false
}

func parseBool(value interface{}) (bool, bool) {
	b, ok := value.(bool)
	return b, ok
}

var policyByName = map[string]eviction.Policy{
	"noeviction":      eviction.NoEviction,
	"allkeys-lru":     eviction.AllKeysLRU,
	"allkeys-lfu":     eviction.AllKeysLFU,
	"allkeys-random":  eviction.AllKeysRandom,
	"volatile-lru":    eviction.VolatileLRU,
	"volatile-lfu":    eviction.VolatileLFU,
	"volatile-random": eviction.VolatileRandom,
	"volatile-ttl":    eviction.VolatileTTL,
}

func parsePolicy(value interface{}) (eviction.Policy, bool) {
	name, ok := value.(string)
	if !ok {
		return 0, false
	}
	p, ok := policyByName[name]
	return p, ok
}

// parseConfig extracts the hot-reloadable subset of Config from Argus
// config data, starting from the current configuration so unspecified
// keys are left unchanged.
func (hc *HotConfig) parseConfig(data map[string]interface{}) Config {
	config := hc.config

	section, ok := data["engine"].(map[string]interface{})
	if !ok {
		if _, hasMaxMemory := data["max_memory"]; hasMaxMemory {
			section = data
		} else {
			return config
		}
	}

	if maxMemory, ok := parsePositiveUint(section["max_memory"]); ok {
		config.MaxMemory = maxMemory
	}

	if policy, ok := parsePolicy(section["max_memory_policy"]); ok {
		config.MaxMemoryPolicy = policy
	}

	if samples, ok := parseIntInRange(section["max_memory_samples"], 1, 64); ok {
		config.MaxMemorySamples = samples
	}

	if factor, ok := parseNonNegativeFloat(section["lfu_log_factor"]); ok {
		config.LFULogFactor = factor
	}

	if decay, ok := parseIntInRange(section["lfu_decay_time"], 0, 1<<30); ok {
		config.LFUDecayMinutes = decay
	}

	if lazy, ok := parseBool(section["lazy_free_on_eviction"]); ok {
		config.LazyFreeOnEviction = lazy
	}

	return config
}
