package services

import (
	"context"
	"fmt"

	"github.com/haze-team/haze-server/src/models"
	"github.com/haze-team/haze-server/src/repositories"
)

type ReportService struct {
	users     repositories.UserStore
	matchLogs *MatchLogService
}

func NewReportService(users repositories.UserStore, matchLogs *MatchLogService) *ReportService {
	return &ReportService{users: users, matchLogs: matchLogs}
}

// ReportUser adds one to the target's reported counter and records a
// reported match log for the pair
func (s *ReportService) ReportUser(ctx context.Context, userID, targetID string) error {
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return fmt.Errorf("report by %s: %w", userID, err)
	}
	if err := s.users.IncrementReported(ctx, targetID); err != nil {
		return fmt.Errorf("report %s: %w", targetID, err)
	}
	return s.matchLogs.Record(ctx, models.MatchStatusReported, userID, targetID)
}
