package handler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"beepstream/internal/models"
	"beepstream/internal/repository"
)

// stubRepo is a test-only in-memory implementation of
// repository.LogRepository.
type stubRepo struct {
	mu   sync.Mutex
	logs []models.Log
	seq  int

	failCreate bool
	failList   bool
	failClear  bool
}

func (s *stubRepo) CreateLog(ctx context.Context, item *models.Log) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCreate {
		return errors.New("storage unavailable")
	}
	s.seq++
	if item.ID == "" {
		item.ID = fmt.Sprintf("log-%d", s.seq)
	}
	if item.Timestamp.IsZero() {
		item.Timestamp = time.Now().UTC()
	}
	s.logs = append(s.logs, *item)
	return nil
}

func (s *stubRepo) ListActiveLogs(ctx context.Context) ([]models.Log, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failList {
		return nil, errors.New("storage unavailable")
	}
	var out []models.Log
	for i := len(s.logs) - 1; i >= 0; i-- {
		if !s.logs[i].Archived {
			out = append(out, s.logs[i])
		}
	}
	return out, nil
}

func (s *stubRepo) ListArchivedLogs(ctx context.Context, params repository.ListArchivedParams) ([]models.Log, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Log
	for i := len(s.logs) - 1; i >= 0; i-- {
		if s.logs[i].Archived {
			out = append(out, s.logs[i])
		}
	}
	if params.Limit > 0 && len(out) > params.Limit {
		out = out[:params.Limit]
	}
	return out, nil
}

func (s *stubRepo) CountActiveBeeps(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, item := range s.logs {
		if !item.Archived && item.BeepType == models.BeepTypeBeep {
			n++
		}
	}
	return n, nil
}

func (s *stubRepo) ArchiveActiveLogs(ctx context.Context, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for i := range s.logs {
		if !s.logs[i].Archived {
			s.logs[i].Archived = true
			archivedAt := at
			s.logs[i].ArchivedAt = &archivedAt
			n++
		}
	}
	return n, nil
}

func (s *stubRepo) ClearActiveLogs(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failClear {
		return 0, errors.New("storage unavailable")
	}
	var kept []models.Log
	var n int64
	for _, item := range s.logs {
		if item.Archived {
			kept = append(kept, item)
		} else {
			n++
		}
	}
	s.logs = kept
	return n, nil
}

func (s *stubRepo) all() []models.Log {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Log, len(s.logs))
	copy(out, s.logs)
	return out
}
