package hub

import (
	"time"

	"beepstream/internal/models"
)

// Server-initiated event types pushed over /ws. Anything a client sends
// that is not one of these is treated as a peer control signal and
// relayed verbatim (see Hub.Relay).
const (
	EventNewLog             = "NEW_LOG"
	EventClearLogs          = "CLEAR_LOGS"
	EventArchivedAndCleared = "LOGS_ARCHIVED_AND_CLEARED"
)

type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// ArchivalNotice is the payload of LOGS_ARCHIVED_AND_CLEARED. Timestamp
// is the shared archivedAt of the affected rows.
type ArchivalNotice struct {
	Count     int64     `json:"count"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLogEvent(item models.Log) Event {
	return Event{Type: EventNewLog, Data: item}
}

func ClearLogsEvent() Event {
	return Event{Type: EventClearLogs}
}

func ArchivedAndClearedEvent(count int64, at time.Time) Event {
	return Event{Type: EventArchivedAndCleared, Data: ArchivalNotice{Count: count, Timestamp: at}}
}
