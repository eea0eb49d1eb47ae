package models

import (
	"time"
)

// Severity values for Log.BeepType. "beep" drives the audible alarm on
// connected watchers; "silent" is stored and displayed only.
const (
	BeepTypeBeep   = "beep"
	BeepTypeSilent = "silent"
)

func ValidBeepType(v string) bool {
	return v == BeepTypeBeep || v == BeepTypeSilent
}

// Log is a single ingested event. Archived rows are immutable and never
// returned by the active-log queries; ArchivedAt is set exactly once,
// together with Archived, by the bulk archival.
type Log struct {
	ID       string  `gorm:"type:varchar(36);primaryKey" json:"id"`
	Message  string  `gorm:"type:text;not null" json:"message"`
	BeepType string  `gorm:"type:varchar(10);not null;index" json:"beepType"`
	Source   *string `gorm:"type:text" json:"source,omitempty"`

	Timestamp  time.Time  `gorm:"type:timestamptz;not null;index" json:"timestamp"`
	Archived   bool       `gorm:"not null;default:false;index" json:"archived"`
	ArchivedAt *time.Time `gorm:"type:timestamptz" json:"archivedAt,omitempty"`
}

func (Log) TableName() string {
	return "logs"
}
