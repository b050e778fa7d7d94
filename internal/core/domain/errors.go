package domain

import "errors"

var (
	ErrInvalidScope         = errors.New("invalid subscription scope")
	ErrInvalidConfig        = errors.New("invalid channel configuration")
	ErrDoubleRelease        = errors.New("connection released more times than acquired")
	ErrConnection           = errors.New("connection failed")
	ErrNotConnected         = errors.New("not connected")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrInvalidNotification  = errors.New("invalid notification")
	ErrInvalidPayload       = errors.New("invalid payload")
	ErrNotificationNotFound = errors.New("notification not found")
)
