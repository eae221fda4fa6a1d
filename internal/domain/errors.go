package domain

import "errors"

// Таксономия ошибок сервиса. Слой HTTP классифицирует их через errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrEmptySeries       = errors.New("series has no points")
	ErrConfiguration     = errors.New("integration is not configured")
	ErrUpstream          = errors.New("upstream service failure")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidTransition = errors.New("invalid status transition")
)
