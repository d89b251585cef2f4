package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/haze-team/haze-server/src/models"
	"github.com/haze-team/haze-server/src/repositories"
)

var ErrSelfBlock = errors.New("users cannot block themselves")

type BlockLogService struct {
	users     repositories.UserStore
	blockLogs repositories.BlockLogStore
}

func NewBlockLogService(users repositories.UserStore, blockLogs repositories.BlockLogStore) *BlockLogService {
	return &BlockLogService{users: users, blockLogs: blockLogs}
}

// BlockUser adds targetID to the user's block list, creating the list on first use
func (s *BlockLogService) BlockUser(ctx context.Context, userID, targetID string) (*models.BlockLog, error) {
	if err := s.validatePair(ctx, userID, targetID); err != nil {
		return nil, err
	}

	_, err := s.blockLogs.FindByUserID(ctx, userID)
	if errors.Is(err, models.ErrBlockLogNotFound) {
		return s.blockLogs.Create(ctx, userID, []string{targetID})
	}
	if err != nil {
		return nil, err
	}
	return s.blockLogs.AddBlockedUser(ctx, userID, targetID)
}

// UnblockUser removes targetID from the user's block list
func (s *BlockLogService) UnblockUser(ctx context.Context, userID, targetID string) (*models.BlockLog, error) {
	if err := s.validatePair(ctx, userID, targetID); err != nil {
		return nil, err
	}
	return s.blockLogs.RemoveBlockedUser(ctx, userID, targetID)
}

// FindBlockLog returns the user's block list, creating an empty one if none exists
func (s *BlockLogService) FindBlockLog(ctx context.Context, userID string) (*models.BlockLog, error) {
	blockLog, err := s.blockLogs.FindByUserID(ctx, userID)
	if errors.Is(err, models.ErrBlockLogNotFound) {
		return s.blockLogs.Create(ctx, userID, nil)
	}
	return blockLog, err
}

func (s *BlockLogService) validatePair(ctx context.Context, userID, targetID string) error {
	if userID == targetID {
		return ErrSelfBlock
	}
	for _, id := range []string{userID, targetID} {
		if _, err := s.users.FindByID(ctx, id); err != nil {
			return fmt.Errorf("validate %s: %w", id, err)
		}
	}
	return nil
}
