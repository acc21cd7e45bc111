package models

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by the document model, matcher and orchestrator.
var (
	// ErrMalformedDocument is a parse-time structural violation.
	ErrMalformedDocument = errors.New("malformed document")
	// ErrTemplateNotFound means no catalog template matched the request.
	ErrTemplateNotFound = errors.New("template not found")
	// ErrGenerationTimeout means the content pipeline exceeded its budget.
	ErrGenerationTimeout = errors.New("generation timeout")
	// ErrSlotGenerationFailed means one slot's capability call errored.
	ErrSlotGenerationFailed = errors.New("slot generation failed")
	// ErrInvalidProfile means a business profile is missing required fields.
	ErrInvalidProfile = errors.New("invalid business profile")
)

// MalformedError locates a structural violation inside a raw document.
type MalformedError struct {
	Path   string
	Reason string
}

func (e *MalformedError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("malformed document: %s", e.Reason)
	}
	return fmt.Sprintf("malformed document at %s: %s", e.Path, e.Reason)
}

// Unwrap lets errors.Is match ErrMalformedDocument.
func (e *MalformedError) Unwrap() error { return ErrMalformedDocument }

// SlotError records a failed generation for one content slot.
type SlotError struct {
	Slot string
	Err  error
}

func (e *SlotError) Error() string {
	return fmt.Sprintf("slot %s: %v", e.Slot, e.Err)
}

// Is matches ErrSlotGenerationFailed.
func (e *SlotError) Is(target error) bool { return target == ErrSlotGenerationFailed }

// Unwrap returns the capability error.
func (e *SlotError) Unwrap() error { return e.Err }
