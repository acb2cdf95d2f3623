package database

import (
	"time"
)

type Setting struct {
	Key       string
	Value     bool
	UpdatedAt time.Time
}
