package database

import (
	"time"
)

type SettingsRepository interface {
	GetSettings() (map[string]bool, error)
	GetSetting(key string) (*Setting, error)
	GetLastUpdated() (*time.Time, error)

	SaveSettings(record map[string]bool) error
}
