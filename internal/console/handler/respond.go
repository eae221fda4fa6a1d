package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/xela07ax/devpulse/internal/connectors"
	"github.com/xela07ax/devpulse/internal/domain"
	"github.com/xela07ax/devpulse/internal/infra"
)

// ErrorResponse тело любого неуспешного ответа.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError классифицирует ошибку сервиса в HTTP-статус.
// Детали сбоев внешних API остаются в логе, клиент видит общее сообщение.
func writeError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	var throttled *connectors.ThrottleError

	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrInvalidTransition):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrConfiguration):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.As(err, &throttled):
		if throttled.RetryAfter > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(throttled.RetryAfter.Seconds()))))
		}
		logger.Warn("upstream throttled", zap.String("trace_id", infra.TraceID(r.Context())), zap.Error(err))
		writeJSON(w, http.StatusBadGateway, ErrorResponse{Error: "upstream service is rate limited, try again later"})
	case errors.Is(err, domain.ErrUpstream):
		logger.Error("upstream failure", zap.String("trace_id", infra.TraceID(r.Context())), zap.Error(err))
		writeJSON(w, http.StatusBadGateway, ErrorResponse{Error: "upstream service is unavailable"})
	default:
		logger.Error("request failed", zap.String("trace_id", infra.TraceID(r.Context())), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}

const maxBodyBytes = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body", domain.ErrInvalidInput)
	}
	return nil
}

// pathID числовой {id} из маршрута chi.
func pathID(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: id %q must be a positive integer", domain.ErrInvalidInput, raw)
	}
	return id, nil
}
