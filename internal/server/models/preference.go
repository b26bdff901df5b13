package models

import "time"

// Preference holds per-user extension settings. A row is created lazily on
// first read with defaults.
type Preference struct {
	UserID         string
	TargetLanguage string
	AutoSave       bool
	ShowPhonetics  bool
	UpdatedAt      time.Time
}
