package matching

import (
	"context"
	"errors"

	"github.com/haze-team/haze-server/src/models"
)

type UserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type ImagesRepository interface {
	FindByUserID(ctx context.Context, userID string) (*models.Images, error)
}

type BlockLogRepository interface {
	FindByUserID(ctx context.Context, userID string) (*models.BlockLog, error)
}

type MatchLogger interface {
	Record(ctx context.Context, status models.MatchStatus, userIDs ...string) error
}

type ActivityLogger interface {
	CreateLog(ctx context.Context, content string) error
}

type UserReporter interface {
	ReportUser(ctx context.Context, userID, targetID string) error
}

// ProfileURLResolver turns a stored image set into the URL shown to a partner
type ProfileURLResolver interface {
	ProfileURL(ctx context.Context, images *models.Images) (string, error)
}

// Emitter delivers server events to connections. Calls come from the
// engine loop and must not block.
type Emitter interface {
	Emit(id ConnID, event string, data any)
	Broadcast(event string, data any)
}

// Deps are the collaborators the engine calls into. ProfileURLs may be
// nil, in which case the first stored url is used.
type Deps struct {
	Users       UserRepository
	Images      ImagesRepository
	BlockLogs   BlockLogRepository
	MatchLogs   MatchLogger
	Activity    ActivityLogger
	Reports     UserReporter
	ProfileURLs ProfileURLResolver
	Emitter     Emitter
}

// Reasons carried by matching_failed
const (
	ReasonUserNotFound     = "user_not_found"
	ReasonImagesNotFound   = "images_not_found"
	ReasonLookupFailed     = "lookup_failed"
	ReasonMissingUserID    = "missing_user_id"
	ReasonDuplicateSession = "duplicate_session"
)

func failureReason(err error) string {
	switch {
	case errors.Is(err, models.ErrUserNotFound):
		return ReasonUserNotFound
	case errors.Is(err, models.ErrImagesNotFound):
		return ReasonImagesNotFound
	}
	return ReasonLookupFailed
}

type storedURL struct{}

func (storedURL) ProfileURL(_ context.Context, images *models.Images) (string, error) {
	if images == nil || len(images.URLs) == 0 {
		return "", models.ErrImagesNotFound
	}
	return images.URLs[0], nil
}
