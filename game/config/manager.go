// Package config handles loading, caching, and saving game settings presets
// from a directory of JSON files.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/virodrop/virodrop/game/engine"
	"github.com/virodrop/virodrop/game/service"
)

var (
	ErrConfigNotFound = errors.New("configuration not found")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// Manager handles settings loading and caching
type Manager struct {
	configDir string
	defaultID string
	settings  map[string]*engine.Settings
	mu        sync.RWMutex
}

// NewManager creates a new configuration manager
func NewManager(configDir string) (*Manager, error) {
	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("config directory does not exist: %s", configDir)
	}

	m := &Manager{
		configDir: configDir,
		settings:  make(map[string]*engine.Settings),
	}

	if err := m.pickDefault(); err != nil {
		return nil, fmt.Errorf("failed to determine default config: %w", err)
	}

	return m, nil
}

// LoadSettings loads a settings preset by config ID
func (m *Manager) LoadSettings(configID string) (*engine.Settings, error) {
	m.mu.RLock()
	// Check cache first
	if s, exists := m.settings[configID]; exists {
		m.mu.RUnlock()
		return s, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if s, exists := m.settings[configID]; exists {
		return s, nil
	}

	configPath := filepath.Join(m.configDir, m.filename(configID))
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	settings := engine.DefaultSettings()
	if err := json.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := engine.ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	m.settings[configID] = settings
	return settings, nil
}

// ListSettings returns information about all available presets
func (m *Manager) ListSettings() ([]service.ConfigInfo, error) {
	entries, err := os.ReadDir(m.configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	var configs []service.ConfigInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		configID := strings.TrimSuffix(entry.Name(), ".json")
		settings, err := m.LoadSettings(configID)
		if err != nil {
			// Skip invalid configs
			continue
		}

		configs = append(configs, service.ConfigInfo{
			Filename:    entry.Name(),
			ConfigID:    configID,
			Name:        settings.Name,
			Description: settings.Description,
			Speed:       string(settings.Speed),
			StartLevel:  settings.StartLevel,
		})
	}

	return configs, nil
}

// GetDefault returns the default config ID
func (m *Manager) GetDefault() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultID
}

// SetDefault sets the default preset by config ID
func (m *Manager) SetDefault(configID string) error {
	if _, err := m.LoadSettings(configID); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultID = configID
	return nil
}

// SaveSettings writes a settings preset to disk and updates the cache
func (m *Manager) SaveSettings(configID string, settings *engine.Settings) error {
	if err := engine.ValidateSettings(settings); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	configPath := filepath.Join(m.configDir, m.filename(configID))
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	m.mu.Lock()
	m.settings[configID] = settings
	m.mu.Unlock()

	return nil
}

// RefreshCache reloads all cached presets from disk
func (m *Manager) RefreshCache() error {
	m.mu.Lock()
	m.settings = make(map[string]*engine.Settings)
	m.mu.Unlock()

	return m.pickDefault()
}

// pickDefault chooses the default preset: classic.json when present,
// otherwise the first valid preset, otherwise a generated classic.json.
func (m *Manager) pickDefault() error {
	if _, err := m.LoadSettings("classic"); err == nil {
		m.mu.Lock()
		m.defaultID = "classic"
		m.mu.Unlock()
		return nil
	}

	configs, err := m.ListSettings()
	if err == nil && len(configs) > 0 {
		m.mu.Lock()
		m.defaultID = configs[0].ConfigID
		m.mu.Unlock()
		return nil
	}

	// Empty config directory, seed it with the built-in defaults
	if err := m.SaveSettings("classic", engine.DefaultSettings()); err != nil {
		return err
	}
	m.mu.Lock()
	m.defaultID = "classic"
	m.mu.Unlock()
	return nil
}

func (m *Manager) filename(configID string) string {
	if strings.HasSuffix(configID, ".json") {
		return configID
	}
	return configID + ".json"
}
