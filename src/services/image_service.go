package services

import (
	"context"

	"github.com/haze-team/haze-server/src/models"
)

type Presigner interface {
	PresignGet(ctx context.Context, key string) (string, error)
}

// ImageService resolves the profile picture URL shown during introductions
type ImageService struct {
	presigner Presigner
}

// NewImageService returns a resolver that signs keys[0] when presigner is
// set and otherwise hands out urls[0] as stored
func NewImageService(presigner Presigner) *ImageService {
	return &ImageService{presigner: presigner}
}

func (s *ImageService) ProfileURL(ctx context.Context, images *models.Images) (string, error) {
	if images == nil {
		return "", models.ErrImagesNotFound
	}
	if s.presigner != nil && len(images.Keys) > 0 {
		return s.presigner.PresignGet(ctx, images.Keys[0])
	}
	if len(images.URLs) == 0 {
		return "", models.ErrImagesNotFound
	}
	return images.URLs[0], nil
}
