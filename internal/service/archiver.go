package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"beepstream/internal/hub"
	"beepstream/internal/repository"
)

// ArchiveService performs the daily cutover: flip every active log to
// archived under one shared timestamp, then tell every live client to
// clear its view. The broadcast goes out even when nothing was archived
// so clients reset unconditionally at the daily boundary.
type ArchiveService struct {
	Repo   repository.LogRepository
	Hub    *hub.Hub
	Logger *zap.Logger
}

func (s *ArchiveService) ArchiveNow(ctx context.Context) (int64, error) {
	at := time.Now().UTC()
	count, err := s.Repo.ArchiveActiveLogs(ctx, at)
	if err != nil {
		return 0, err
	}
	if s.Logger != nil {
		s.Logger.Info("archived active logs", zap.Int64("count", count))
	}
	if s.Hub != nil {
		s.Hub.Broadcast(ctx, hub.ArchivedAndClearedEvent(count, at))
	}
	return count, nil
}
