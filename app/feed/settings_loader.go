package feed

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// settingsFile is the on-disk shape of operator defaults:
//
//	settings:
//	  showHiringPosts: true
//	  aiEnabled: false
type settingsFile struct {
	Settings map[string]bool `yaml:"settings"`
}

// SettingsLoader reads operator defaults from a YAML file and caches the
// resolved Settings.
type SettingsLoader struct {
	path     string
	settings Settings
	mu       sync.RWMutex
}

func NewSettingsLoader(path string) *SettingsLoader {
	return &SettingsLoader{
		path:     path,
		settings: DefaultSettings(),
	}
}

// Run loads the file. A missing file keeps the built-in defaults.
func (sl *SettingsLoader) Run() error {
	if sl.path == "" {
		return nil
	}
	if _, err := os.Stat(sl.path); errors.Is(err, os.ErrNotExist) {
		slog.Debug("Settings file not found, using defaults", "path", sl.path)
		return nil
	}

	rec, err := sl.parse()
	if err != nil {
		return fmt.Errorf("error loading %s: %w", sl.path, err)
	}

	if err := ValidateRecord(rec); err != nil {
		return fmt.Errorf("invalid settings %s: %w", sl.path, err)
	}

	settings := SettingsFromRecord(rec, DefaultSettings())

	sl.mu.Lock()
	defer sl.mu.Unlock()
	sl.settings = settings

	slog.Debug("Settings loaded", "path", sl.path, "keys", len(rec))
	return nil
}

// Get returns a copy of the cached defaults.
func (sl *SettingsLoader) Get() Settings {
	sl.mu.RLock()
	defer sl.mu.RUnlock()
	return sl.settings.Clone()
}

func (sl *SettingsLoader) parse() (map[string]bool, error) {
	data, err := os.ReadFile(sl.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var file settingsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if file.Settings == nil {
		file.Settings = map[string]bool{}
	}
	return file.Settings, nil
}

// ValidateRecord rejects keys that are not settings keys.
func ValidateRecord(rec map[string]bool) error {
	for key := range rec {
		if !knownKeys[key] {
			return fmt.Errorf("unknown settings key '%s'", key)
		}
	}
	return nil
}

var knownKeys = func() map[string]bool {
	keys := map[string]bool{
		KeyAIEnabled:           true,
		KeyOpaqueOverlay:       true,
		KeyHideRevealButton:    true,
		KeyExperimentalFilters: true,
		KeyExtensionEnabled:    true,
	}
	for _, info := range taxonomy {
		keys[info.Toggle] = true
	}
	return keys
}()
