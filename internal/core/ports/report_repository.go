package ports

import (
	"context"

	"github.com/shogunlabs/reports-api/internal/core/domain"
)

// ListReportsFilter scopes a report listing. The service layer always sets
// it from the requester's access class, never from client input.
type ListReportsFilter struct {
	// ParticipantID restricts results to reports where the user is the
	// client or the sponsor. Empty means no restriction (full access).
	ParticipantID string
}

// ReportUpdate carries the independently optional progress/status fields.
type ReportUpdate struct {
	Progress *int
	Status   *string
}

// ReportRepository defines persistence operations for reports and their
// append-only collaboration thread.
type ReportRepository interface {
	Create(ctx context.Context, r *domain.Report) (*domain.Report, error)
	FindByID(ctx context.Context, id string) (*domain.Report, error)
	List(ctx context.Context, filter ListReportsFilter) ([]*domain.Report, error)
	Update(ctx context.Context, id string, upd ReportUpdate) (*domain.Report, error)

	// InsertAttachment appends a report-level attachment record.
	InsertAttachment(ctx context.Context, a *domain.Attachment) error
	FindAttachment(ctx context.Context, reportID, attachmentID string) (*domain.Attachment, error)
	ListAttachments(ctx context.Context, reportID string) ([]*domain.Attachment, error)

	// InsertMessage appends a chat message together with its optional
	// attachment in a single transaction; neither half may persist alone.
	InsertMessage(ctx context.Context, m *domain.ChatMessage) error
	ListMessages(ctx context.Context, reportID string) ([]*domain.ChatMessage, error)
	// FindChatAttachment resolves a chat attachment scoped to the report its
	// parent message belongs to.
	FindChatAttachment(ctx context.Context, reportID, attachmentID string) (*domain.Attachment, error)
}
