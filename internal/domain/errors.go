package domain

import "errors"

var (
	ErrEventActive     = errors.New("event already active in scope")
	ErrEventNotFound   = errors.New("event not found")
	ErrEventStarted    = errors.New("event already started")
	ErrEventStopped    = errors.New("event is stopped")
	ErrInvalidAmount   = errors.New("award amount must be positive")
	ErrInvalidDuration = errors.New("event duration must not be negative")
	ErrPotTooSmall     = errors.New("pot size must cover at least one award")

	ErrInvalidScope        = errors.New("scope id must not be empty")
	ErrInvalidNotification = errors.New("notification is missing its message id")
)
