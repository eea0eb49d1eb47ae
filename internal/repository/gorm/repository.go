package gormrepository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"beepstream/internal/models"
	"beepstream/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateLog(ctx context.Context, item *models.Log) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.Timestamp.IsZero() {
		item.Timestamp = time.Now().UTC()
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) ListActiveLogs(ctx context.Context) ([]models.Log, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Log
	err := s.db.WithContext(ctx).
		Where("archived = ?", false).
		Order("timestamp DESC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListArchivedLogs(ctx context.Context, params repository.ListArchivedParams) ([]models.Log, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	limit := normalizeLimit(params.Limit, 200)
	offset := normalizeOffset(params.Offset)
	var items []models.Log
	err := s.db.WithContext(ctx).
		Where("archived = ?", true).
		Order("archived_at DESC").
		Order("timestamp DESC").
		Limit(limit).
		Offset(offset).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountActiveBeeps(ctx context.Context) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var n int64
	err := s.db.WithContext(ctx).
		Model(&models.Log{}).
		Where("archived = ?", false).
		Where("beep_type = ?", models.BeepTypeBeep).
		Count(&n).Error
	return n, err
}

// ArchiveActiveLogs is a single UPDATE, so rows inserted after the
// statement's snapshot stay active.
func (s *Store) ArchiveActiveLogs(ctx context.Context, at time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}
	res := s.db.WithContext(ctx).
		Model(&models.Log{}).
		Where("archived = ?", false).
		Updates(map[string]any{
			"archived":    true,
			"archived_at": at,
		})
	return res.RowsAffected, res.Error
}

func (s *Store) ClearActiveLogs(ctx context.Context) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Where("archived = ?", false).
		Delete(&models.Log{})
	return res.RowsAffected, res.Error
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
