package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/alexanderramin/ascent/internal/domain"
	"github.com/alexanderramin/ascent/internal/repository"
	"github.com/stretchr/testify/assert"
)

func TestLogUseCaseObserver(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	obs := NewLogUseCaseObserver(logger)
	ctx := context.Background()

	obs.ObserveUseCase(ctx, UseCaseEvent{
		Name:     "reorder",
		Duration: 3 * time.Millisecond,
		Success:  true,
		Fields:   map[string]any{"parent_id": "r1"},
	})
	out := buf.String()
	assert.Contains(t, out, "level=DEBUG")
	assert.Contains(t, out, "component=hierarchy")
	assert.Contains(t, out, "op=reorder")
	assert.Contains(t, out, "parent_id=r1")

	buf.Reset()
	obs.ObserveUseCase(ctx, UseCaseEvent{Name: "remove", Err: domain.NewStorageError("removing node", errors.New("boom"))})
	out = buf.String()
	assert.Contains(t, out, "level=ERROR")
	assert.Contains(t, out, "error_kind=storage")
	assert.Contains(t, out, "boom")

	buf.Reset()
	obs.ObserveUseCase(ctx, UseCaseEvent{Name: "reorder", Err: domain.NewValidationError("order", "not a permutation")})
	out = buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "error_kind=validation")
}

func TestErrorKind(t *testing.T) {
	assert.Equal(t, "", ErrorKind(nil))
	assert.Equal(t, ErrorKindValidation, ErrorKind(domain.NewValidationError("x", "y")))
	assert.Equal(t, ErrorKindNotFound, ErrorKind(fmt.Errorf("node n1: %w", repository.ErrNotFound)))
	assert.Equal(t, ErrorKindStale, ErrorKind(ErrStaleLoad))
	assert.Equal(t, ErrorKindStale, ErrorKind(ErrStoreClosed))
	assert.Equal(t, ErrorKindStorage, ErrorKind(errors.New("disk gone")))
}

func TestNewLogUseCaseObserver_NilLogger(t *testing.T) {
	assert.IsType(t, NoopUseCaseObserver{}, NewLogUseCaseObserver(nil))
}
