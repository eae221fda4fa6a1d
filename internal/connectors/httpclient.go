package connectors

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/xela07ax/devpulse/internal/domain"
)

// readResponse читает тело и превращает неуспешный статус в типизированную ошибку.
// 429 и 403 с исчерпанным лимитом GitHub становятся ThrottleError, остальное StatusError.
// Смысл 404 зависит от API, его разбирает конкретный клиент.
func readResponse(upstream string, resp *http.Response, now time.Time) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read response: %w: %v", upstream, domain.ErrUpstream, err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}

	statusErr := &StatusError{Upstream: upstream, Status: resp.StatusCode, Body: truncate(body)}
	if resp.StatusCode == http.StatusTooManyRequests ||
		resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0" {
		return nil, &ThrottleError{RetryAfter: retryAfter(resp.Header, now), Cause: statusErr}
	}
	return nil, statusErr
}

// retryAfter понимает Retry-After (секунды или HTTP-дата) и X-RateLimit-Reset (unix time).
func retryAfter(h http.Header, now time.Time) time.Duration {
	if v := h.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			return time.Duration(secs) * time.Second
		}
		if at, err := http.ParseTime(v); err == nil && at.After(now) {
			return at.Sub(now)
		}
	}
	if v := h.Get("X-RateLimit-Reset"); v != "" {
		if unix, err := strconv.ParseInt(v, 10, 64); err == nil {
			if at := time.Unix(unix, 0); at.After(now) {
				return at.Sub(now)
			}
		}
	}
	return 0
}
