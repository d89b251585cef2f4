package models

import "errors"

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrImagesNotFound   = errors.New("images not found")
	ErrBlockLogNotFound = errors.New("block log not found")
)
