package config

import (
	"fmt"
	"maps"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Settings is an immutable snapshot of the per-event notification toggles.
// The dispatcher receives a snapshot for each tick so that a reload never
// changes behavior in the middle of a batch.
type Settings struct {
	// Enabled is the global kill switch. When false no notification is
	// delivered; jobs are still claimed and resolved so producers see a
	// terminal status.
	Enabled bool `yaml:"enabled"`

	// Events maps event/template names (e.g. "pickup-reminder") to an
	// explicit on/off toggle. Absent entries default to enabled.
	Events map[string]bool `yaml:"events"`
}

// EventEnabled reports whether notifications for the named event are enabled.
// Unknown events default to enabled.
func (s Settings) EventEnabled(name string) bool {
	if !s.Enabled {
		return false
	}
	if v, ok := s.Events[name]; ok {
		return v
	}
	return true
}

// SettingsManager loads notification settings from a YAML file and hands out
// value copies. A missing file yields the defaults (everything enabled).
type SettingsManager struct {
	path    string
	mu      sync.RWMutex
	current Settings
}

// NewSettingsManager creates a SettingsManager for the given YAML file and
// performs the initial load.
func NewSettingsManager(path string) (*SettingsManager, error) {
	m := &SettingsManager{path: path, current: defaultSettings()}
	if err := m.Reload(); err != nil {
		return nil, err
	}
	return m, nil
}

func defaultSettings() Settings {
	return Settings{Enabled: true, Events: map[string]bool{}}
}

// Reload re-reads the settings file. A missing file resets to defaults;
// a malformed file is an error and the previous snapshot stays in effect.
func (m *SettingsManager) Reload() error {
	raw, err := os.ReadFile(m.path)
	if os.IsNotExist(err) {
		m.mu.Lock()
		m.current = defaultSettings()
		m.mu.Unlock()
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading settings file %q: %w", m.path, err)
	}

	s := defaultSettings()
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return fmt.Errorf("parsing settings file %q: %w", m.path, err)
	}
	if s.Events == nil {
		s.Events = map[string]bool{}
	}

	m.mu.Lock()
	m.current = s
	m.mu.Unlock()
	return nil
}

// Snapshot returns a value copy of the current settings.
func (m *SettingsManager) Snapshot() Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.current
	s.Events = make(map[string]bool, len(m.current.Events))
	maps.Copy(s.Events, m.current.Events)
	return s
}
