package services

import (
	"context"
	"log/slog"

	"github.com/haze-team/haze-server/src/models"
	"github.com/haze-team/haze-server/src/repositories"
)

// LogService writes activity logs to the store and mirrors them to slog
type LogService struct {
	logs   repositories.LogStore
	logger *slog.Logger
}

func NewLogService(logs repositories.LogStore, logger *slog.Logger) *LogService {
	return &LogService{logs: logs, logger: logger.With("component", "activity")}
}

func (s *LogService) CreateLog(ctx context.Context, content string) error {
	s.logger.Info(content)
	return s.logs.Create(ctx, content)
}

func (s *LogService) FindAll(ctx context.Context, limit int64) ([]models.Log, error) {
	return s.logs.FindAll(ctx, limit)
}
