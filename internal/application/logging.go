package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/example/trainer-scheduler/internal/calendar"
	"github.com/example/trainer-scheduler/internal/logging"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

// serviceLogger prefers the logger attached to ctx (the CLI tags it with the
// running command) over the service's own.
func serviceLogger(ctx context.Context, base *slog.Logger, service, operation string, attrs ...any) *slog.Logger {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = defaultLogger(base)
	}
	return logger.With(append([]any{"service", service, "operation", operation}, attrs...)...)
}

// ErrorKind is the error_kind label attached to failure logs.
func ErrorKind(err error) string {
	var vErr *ValidationError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrInvalidRange):
		return "invalid_range"
	case errors.As(err, &vErr), errors.Is(err, calendar.ErrInvalidDate), errors.Is(err, calendar.ErrInvalidTime):
		return "validation"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	}
	return "unexpected"
}
