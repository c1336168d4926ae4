// Package storage defines the persistence interface for templates, incoming
// documents, and audit findings.
package storage

import (
	"context"

	"github.com/contraudit/contraudit/internal/models"
)

// Storage persists templates, classified documents, and violations.
type Storage interface {
	// Template operations
	SaveTemplate(ctx context.Context, tpl *models.DocumentRecord) error
	GetTemplate(ctx context.Context, id string) (*models.DocumentRecord, error)
	ListTemplates(ctx context.Context, activeOnly bool) ([]*models.DocumentRecord, error)
	TemplateChunks(ctx context.Context, templateID string) ([]*models.Chunk, error)
	SetTemplateActive(ctx context.Context, id string, active bool) error

	// Incoming document operations
	SaveDocument(ctx context.Context, doc *models.DocumentRecord) error
	GetDocument(ctx context.Context, id string) (*models.DocumentRecord, error)
	ListDocuments(ctx context.Context, offset, limit int) ([]*models.DocumentRecord, error)
	UpdateUserChoice(ctx context.Context, docID, templateID string) error

	// Audit findings
	SaveViolations(ctx context.Context, docID string, violations []*models.Violation) error
	GetViolations(ctx context.Context, docID string) ([]*models.Violation, error)

	// Stats
	CountTemplates(ctx context.Context) (int64, error)
	CountDocuments(ctx context.Context) (int64, error)

	Close() error
}
