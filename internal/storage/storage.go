// Package storage defines the persistence interface for templates and generation runs.
package storage

import (
	"context"
	"time"

	"github.com/hyperjump/sitewright/internal/document"
	"github.com/hyperjump/sitewright/internal/models"
)

// Run is a persisted generation run.
type Run struct {
	Report    models.GenerationReport `json:"report"`
	Profile   models.BusinessProfile  `json:"profile"`
	CreatedAt time.Time               `json:"created_at"`
}

// Storage defines template and run persistence operations.
type Storage interface {
	// Template operations
	SaveTemplate(ctx context.Context, doc *document.Document) error
	GetTemplate(ctx context.Context, id string) (*document.Document, error)
	DeleteTemplate(ctx context.Context, id string) error
	// ListTemplates returns templates in the order they were first saved.
	ListTemplates(ctx context.Context, offset, limit int) ([]*document.Document, error)

	// Run operations
	SaveRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, runID string) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]*Run, error)

	// Stats
	CountTemplates(ctx context.Context) (int64, error)
	CountRuns(ctx context.Context) (int64, error)

	Close() error
}
