package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation matches every *ValidationError via errors.Is.
	ErrValidation = errors.New("validation failed")

	// ErrStorage matches every *StorageError via errors.Is.
	ErrStorage = errors.New("storage failure")

	// ErrPromotionItem matches every *PromotionItemError via errors.Is.
	ErrPromotionItem = errors.New("promotion item failed")
)

// ValidationError reports malformed input to a core operation. It is always
// returned before any storage call is attempted.
type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Message: msg}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// StorageError reports that the storage collaborator was unreachable or
// rejected a request.
type StorageError struct {
	Op  string
	Err error
}

func NewStorageError(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err}
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// PromotionStage names the point at which migrating a staged step failed.
type PromotionStage string

const (
	StageLookup PromotionStage = "lookup"
	StageInsert PromotionStage = "insert"
	StageDelete PromotionStage = "delete"
)

// PromotionItemError reports that one staged step failed to migrate. The
// step stays eligible and is retried on the next worker run.
type PromotionItemError struct {
	StepID string
	Stage  PromotionStage
	Err    error
}

func (e *PromotionItemError) Error() string {
	return fmt.Sprintf("promoting step %s (%s): %v", e.StepID, e.Stage, e.Err)
}

func (e *PromotionItemError) Unwrap() error { return e.Err }

func (e *PromotionItemError) Is(target error) bool { return target == ErrPromotionItem }
