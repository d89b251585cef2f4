package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/haze-team/haze-server/src/models"
	"github.com/haze-team/haze-server/src/repositories"
)

type MatchLogService struct {
	users     repositories.UserStore
	matchLogs repositories.MatchLogStore
}

func NewMatchLogService(users repositories.UserStore, matchLogs repositories.MatchLogStore) *MatchLogService {
	return &MatchLogService{users: users, matchLogs: matchLogs}
}

// Record stores a match log for the pair. Every user id must exist.
func (s *MatchLogService) Record(ctx context.Context, status models.MatchStatus, userIDs ...string) error {
	if !status.Valid() {
		return fmt.Errorf("record match log: unknown status %q", status)
	}
	for _, id := range userIDs {
		if _, err := s.users.FindByID(ctx, id); err != nil {
			return fmt.Errorf("record %s match log: %w", status, err)
		}
	}

	now := time.Now()
	return s.matchLogs.Create(ctx, &models.MatchLog{
		ID:        uuid.NewString(),
		UserIDs:   userIDs,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	})
}
