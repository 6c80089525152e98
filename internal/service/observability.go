package service

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/alexanderramin/ascent/internal/domain"
	"github.com/alexanderramin/ascent/internal/repository"
)

// UseCaseEvent is reported once per hierarchy operation, after it returns.
type UseCaseEvent struct {
	Name      string
	StartedAt time.Time
	Duration  time.Duration
	Success   bool
	Err       error
	Fields    map[string]any
}

// UseCaseObserver receives hierarchy operation events.
type UseCaseObserver interface {
	ObserveUseCase(ctx context.Context, event UseCaseEvent)
}

type NoopUseCaseObserver struct{}

func (NoopUseCaseObserver) ObserveUseCase(context.Context, UseCaseEvent) {}

// Error kinds attached to failed events.
const (
	ErrorKindValidation = "validation"
	ErrorKindNotFound   = "not_found"
	ErrorKindStale      = "stale"
	ErrorKindStorage    = "storage"
)

// ErrorKind classifies an operation error for logging. Caller mistakes and
// discarded loads are not storage failures.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrValidation):
		return ErrorKindValidation
	case errors.Is(err, repository.ErrNotFound):
		return ErrorKindNotFound
	case errors.Is(err, ErrStaleLoad), errors.Is(err, ErrStoreClosed):
		return ErrorKindStale
	default:
		return ErrorKindStorage
	}
}

type slogUseCaseObserver struct {
	logger *slog.Logger
}

// NewLogUseCaseObserver logs every event through logger: successes at debug,
// rejected input and discarded loads at warn, storage failures at error.
func NewLogUseCaseObserver(logger *slog.Logger) UseCaseObserver {
	if logger == nil {
		return NoopUseCaseObserver{}
	}
	return &slogUseCaseObserver{logger: logger.With("component", "hierarchy")}
}

func (o *slogUseCaseObserver) ObserveUseCase(ctx context.Context, event UseCaseEvent) {
	attrs := []slog.Attr{
		slog.String("op", event.Name),
		slog.Duration("took", event.Duration),
	}
	keys := make([]string, 0, len(event.Fields))
	for k := range event.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, slog.Any(k, event.Fields[k]))
	}

	level := slog.LevelDebug
	if event.Err != nil {
		kind := ErrorKind(event.Err)
		attrs = append(attrs, slog.String("error_kind", kind), slog.String("error", event.Err.Error()))
		level = slog.LevelWarn
		if kind == ErrorKindStorage {
			level = slog.LevelError
		}
	}
	o.logger.LogAttrs(ctx, level, "hierarchy operation", attrs...)
}

func useCaseObserverOrNoop(observers []UseCaseObserver) UseCaseObserver {
	for _, obs := range observers {
		if obs != nil {
			return obs
		}
	}
	return NoopUseCaseObserver{}
}
