package repositories

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/haze-team/haze-server/src/models"
)

// Memory keeps every collection in process memory. It backs
// STORE_DRIVER=memory and the tests of the packages above it.
type Memory struct {
	mu        sync.Mutex
	users     map[string]models.User
	images    map[string]models.Images
	blockLogs map[string]models.BlockLog
	matchLogs []models.MatchLog
	logs      []models.Log
}

func NewMemory() *Memory {
	return &Memory{
		users:     make(map[string]models.User),
		images:    make(map[string]models.Images),
		blockLogs: make(map[string]models.BlockLog),
	}
}

// Repositories exposes the memory store through the store interfaces
func (m *Memory) Repositories() Repositories {
	return Repositories{
		Users:     memoryUsers{m},
		Images:    memoryImages{m},
		BlockLogs: memoryBlockLogs{m},
		MatchLogs: memoryMatchLogs{m},
		Logs:      memoryLogs{m},
	}
}

// PutUser inserts or replaces a user
func (m *Memory) PutUser(user models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = user
}

// PutImages inserts or replaces the image set of images.UserID
func (m *Memory) PutImages(images models.Images) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.images[images.UserID] = images
}

// MatchLogs returns a copy of every recorded match log in insertion order
func (m *Memory) MatchLogs() []models.MatchLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.matchLogs)
}

// Logs returns a copy of every activity log in insertion order
func (m *Memory) Logs() []models.Log {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.logs)
}

func (m *Memory) User(id string) (models.User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	return user, ok
}

type memoryUsers struct{ m *Memory }

func (s memoryUsers) FindByID(_ context.Context, id string) (*models.User, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	user, ok := s.m.users[id]
	if !ok {
		return nil, models.ErrUserNotFound
	}
	return &user, nil
}

func (s memoryUsers) IncrementReported(_ context.Context, id string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	user, ok := s.m.users[id]
	if !ok {
		return models.ErrUserNotFound
	}
	user.Reported++
	user.UpdatedAt = time.Now()
	s.m.users[id] = user
	return nil
}

type memoryImages struct{ m *Memory }

func (s memoryImages) FindByUserID(_ context.Context, userID string) (*models.Images, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	images, ok := s.m.images[userID]
	if !ok {
		return nil, models.ErrImagesNotFound
	}
	return &images, nil
}

type memoryBlockLogs struct{ m *Memory }

func (s memoryBlockLogs) FindByUserID(_ context.Context, userID string) (*models.BlockLog, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	blockLog, ok := s.m.blockLogs[userID]
	if !ok {
		return nil, models.ErrBlockLogNotFound
	}
	blockLog.BlockUserIDs = slices.Clone(blockLog.BlockUserIDs)
	return &blockLog, nil
}

func (s memoryBlockLogs) Create(_ context.Context, userID string, blockUserIDs []string) (*models.BlockLog, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	now := time.Now()
	blockLog := models.BlockLog{
		UserID:       userID,
		BlockUserIDs: append([]string{}, blockUserIDs...),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.m.blockLogs[userID] = blockLog
	out := blockLog
	out.BlockUserIDs = slices.Clone(blockLog.BlockUserIDs)
	return &out, nil
}

func (s memoryBlockLogs) AddBlockedUser(_ context.Context, userID, blockUserID string) (*models.BlockLog, error) {
	return s.update(userID, func(ids []string) []string {
		if slices.Contains(ids, blockUserID) {
			return ids
		}
		return append(ids, blockUserID)
	})
}

func (s memoryBlockLogs) RemoveBlockedUser(_ context.Context, userID, blockUserID string) (*models.BlockLog, error) {
	return s.update(userID, func(ids []string) []string {
		return slices.DeleteFunc(ids, func(id string) bool { return id == blockUserID })
	})
}

func (s memoryBlockLogs) update(userID string, fn func([]string) []string) (*models.BlockLog, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	blockLog, ok := s.m.blockLogs[userID]
	if !ok {
		return nil, models.ErrBlockLogNotFound
	}
	blockLog.BlockUserIDs = fn(slices.Clone(blockLog.BlockUserIDs))
	blockLog.UpdatedAt = time.Now()
	s.m.blockLogs[userID] = blockLog
	out := blockLog
	out.BlockUserIDs = slices.Clone(blockLog.BlockUserIDs)
	return &out, nil
}

type memoryMatchLogs struct{ m *Memory }

func (s memoryMatchLogs) Create(_ context.Context, log *models.MatchLog) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	entry := *log
	entry.UserIDs = slices.Clone(log.UserIDs)
	s.m.matchLogs = append(s.m.matchLogs, entry)
	return nil
}

type memoryLogs struct{ m *Memory }

func (s memoryLogs) Create(_ context.Context, content string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	now := time.Now()
	s.m.logs = append(s.m.logs, models.Log{Content: content, CreatedAt: now, UpdatedAt: now})
	return nil
}

func (s memoryLogs) FindAll(_ context.Context, limit int64) ([]models.Log, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	logs := slices.Clone(s.m.logs)
	slices.Reverse(logs)
	if limit > 0 && int64(len(logs)) > limit {
		logs = logs[:limit]
	}
	return logs, nil
}
