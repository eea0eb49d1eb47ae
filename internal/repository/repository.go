package repository

import (
	"context"
	"time"

	"beepstream/internal/models"
)

type ListArchivedParams struct {
	Limit  int
	Offset int
}

// LogRepository is the persistence contract for log records. Active means
// archived=false; archival and clear operate on the full active set in a
// single statement so they are atomic relative to concurrent creates.
type LogRepository interface {
	// CreateLog persists a new record. ID and Timestamp are assigned by
	// the store when unset.
	CreateLog(ctx context.Context, item *models.Log) error

	// ListActiveLogs returns all unarchived records, newest first.
	ListActiveLogs(ctx context.Context) ([]models.Log, error)

	// ListArchivedLogs returns archived records, most recently archived
	// first.
	ListArchivedLogs(ctx context.Context, params ListArchivedParams) ([]models.Log, error)

	// CountActiveBeeps counts active records with beep severity.
	CountActiveBeeps(ctx context.Context) (int64, error)

	// ArchiveActiveLogs marks every currently-active record archived with
	// the shared timestamp at, and returns the number of rows affected.
	ArchiveActiveLogs(ctx context.Context, at time.Time) (int64, error)

	// ClearActiveLogs permanently deletes every currently-active record.
	// Archived records are untouched.
	ClearActiveLogs(ctx context.Context) (int64, error)
}
