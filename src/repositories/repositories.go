// Package repositories persists users, images, block logs, match logs and
// activity logs. Every store has a MongoDB implementation and an
// in-memory one used for local development and tests.
package repositories

import (
	"context"

	"github.com/haze-team/haze-server/src/models"
)

type UserStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	IncrementReported(ctx context.Context, id string) error
}

type ImagesStore interface {
	FindByUserID(ctx context.Context, userID string) (*models.Images, error)
}

type BlockLogStore interface {
	FindByUserID(ctx context.Context, userID string) (*models.BlockLog, error)
	Create(ctx context.Context, userID string, blockUserIDs []string) (*models.BlockLog, error)
	AddBlockedUser(ctx context.Context, userID, blockUserID string) (*models.BlockLog, error)
	RemoveBlockedUser(ctx context.Context, userID, blockUserID string) (*models.BlockLog, error)
}

type MatchLogStore interface {
	Create(ctx context.Context, log *models.MatchLog) error
}

type LogStore interface {
	Create(ctx context.Context, content string) error
	FindAll(ctx context.Context, limit int64) ([]models.Log, error)
}

// Repositories groups the stores the server is wired with
type Repositories struct {
	Users     UserStore
	Images    ImagesStore
	BlockLogs BlockLogStore
	MatchLogs MatchLogStore
	Logs      LogStore
}
