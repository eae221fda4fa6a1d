package connectors

import (
	"fmt"
	"time"

	"github.com/xela07ax/devpulse/internal/domain"
)

// ThrottleError внешний API попросил подождать (429 или исчерпанный лимит GitHub).
type ThrottleError struct {
	RetryAfter time.Duration
	Cause      error
}

func (e *ThrottleError) Error() string {
	return fmt.Sprintf("throttled: retry after %v (cause: %v)", e.RetryAfter, e.Cause)
}

// Unwrap позволяет errors.Is(err, domain.ErrUpstream) для троттлинга.
func (e *ThrottleError) Unwrap() error {
	return e.Cause
}

// StatusError неуспешный HTTP-ответ внешнего API. Body обрезается и пишется только в лог.
type StatusError struct {
	Upstream string
	Status   int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Upstream, e.Status, e.Body)
}

func (e *StatusError) Unwrap() error {
	return domain.ErrUpstream
}

const maxErrorBody = 512

func truncate(b []byte) string {
	if len(b) > maxErrorBody {
		return string(b[:maxErrorBody]) + "..."
	}
	return string(b)
}
