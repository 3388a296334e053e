package ports

import (
	"context"
	"io"

	"github.com/shogunlabs/reports-api/internal/core/domain"
)

// CreateReportInput carries all data needed to open a new report.
// RequesterID identifies the authenticated caller; authorization is derived
// from the persisted user record, not from these fields.
type CreateReportInput struct {
	RequesterID string
	Title       string
	Service     string
	Summary     string
	ClientID    string
	ShogunID    string // defaults to the requester when empty
	SponsorID   string // optional
	Status      string
	Tags        []string
}

// UpdateProgressInput carries the independently optional mutation fields.
type UpdateProgressInput struct {
	RequesterID string
	ReportID    string
	Progress    *int
	Status      *string
}

// FileUpload describes an incoming multipart file.
type FileUpload struct {
	Name    string
	Mime    string
	Size    int64
	Content io.Reader
}

// AttachFileInput registers a report-level attachment.
type AttachFileInput struct {
	RequesterID string
	ReportID    string
	File        FileUpload
}

// PostChatInput appends to the collaboration thread. Text may be empty only
// when File is present.
type PostChatInput struct {
	RequesterID string
	ReportID    string
	Text        string
	File        *FileUpload
}

// ReportDetail is the full view returned by Get: the report plus its
// attachments and chat thread, both ordered by creation time ascending.
type ReportDetail struct {
	Report      *domain.Report        `json:"report"`
	Attachments []*domain.Attachment  `json:"attachments"`
	Chat        []*domain.ChatMessage `json:"chat"`
	Access      string                `json:"access"`
}

// DownloadResult streams an attachment back to an authorized caller.
type DownloadResult struct {
	Name    string
	Mime    string
	Size    int64
	Content io.ReadCloser
}

// ReportService owns the report lifecycle and the collaboration thread.
type ReportService interface {
	Create(ctx context.Context, in CreateReportInput) (*domain.Report, error)
	List(ctx context.Context, requesterID string) ([]*domain.Report, error)
	Get(ctx context.Context, requesterID, reportID string) (*ReportDetail, error)
	UpdateProgress(ctx context.Context, in UpdateProgressInput) (*domain.Report, error)
	AttachFile(ctx context.Context, in AttachFileInput) (*domain.Attachment, error)
	PostChat(ctx context.Context, in PostChatInput) (*domain.ChatMessage, error)
	DownloadAttachment(ctx context.Context, requesterID, reportID, attachmentID string) (*DownloadResult, error)
	DownloadChatAttachment(ctx context.Context, requesterID, reportID, attachmentID string) (*DownloadResult, error)
}
