package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/shogunlabs/reports-api/internal/api/metrics"
	"github.com/shogunlabs/reports-api/internal/core/domain"
	"github.com/shogunlabs/reports-api/internal/core/ports"
)

// ReportService owns the report lifecycle: creation validation,
// progress/status mutation, attachment registration and chat append.
type ReportService struct {
	reports ports.ReportRepository
	users   ports.UserRepository
	blobs   ports.BlobStore
	log     zerolog.Logger
}

func NewReportService(reports ports.ReportRepository, users ports.UserRepository, blobs ports.BlobStore, log zerolog.Logger) *ReportService {
	return &ReportService{reports: reports, users: users, blobs: blobs, log: log}
}

// Create opens a new report. Only a shogun may call; the client, the
// assigned shogun (defaulting to the requester) and the optional sponsor
// must each hold their expected role, and the validation error names the
// offending party. Nothing is written on failure.
func (s *ReportService) Create(ctx context.Context, in ports.CreateReportInput) (*domain.Report, error) {
	requester, err := s.users.FindByID(ctx, in.RequesterID)
	if err != nil {
		return nil, err
	}
	requesterRoles := domain.DeriveRoles(*requester)
	if !requesterRoles.Has(domain.RoleShogun) && !requesterRoles.Has(domain.RoleShogunAdmin) {
		return nil, domain.ErrForbidden
	}

	if in.Title == "" {
		return nil, domain.NewValidationError("title", "is required")
	}
	if in.ClientID == "" {
		return nil, domain.NewValidationError("client_id", "is required")
	}

	if err := s.requireRole(ctx, in.ClientID, domain.RoleClient, "client_id"); err != nil {
		return nil, err
	}

	shogunID := in.ShogunID
	if shogunID == "" {
		shogunID = in.RequesterID
	}
	if err := s.requireRole(ctx, shogunID, domain.RoleShogun, "shogun_id"); err != nil {
		return nil, err
	}

	if in.SponsorID != "" {
		if err := s.requireRole(ctx, in.SponsorID, domain.RoleSponsor, "sponsor_id"); err != nil {
			return nil, err
		}
	}

	status := domain.NormalizeStatus(in.Status)
	if status == "" {
		status = domain.StatusStarting
	}

	now := time.Now().UTC()
	report := &domain.Report{
		Title:     in.Title,
		Service:   in.Service,
		Summary:   in.Summary,
		ClientID:  in.ClientID,
		ShogunID:  shogunID,
		SponsorID: in.SponsorID,
		Progress:  0,
		Status:    status,
		Tags:      in.Tags,
		CreatedAt: now,
		UpdatedAt: now,
	}

	created, err := s.reports.Create(ctx, report)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to create report")
		return nil, err
	}

	metrics.ReportsCreatedTotal.Inc()
	s.log.Info().Str("report_id", created.ID).Str("client_id", created.ClientID).Str("shogun_id", created.ShogunID).Msg("report created")
	return created, nil
}

func (s *ReportService) requireRole(ctx context.Context, userID, role, field string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if !domain.DeriveRoles(*user).Has(role) {
		return domain.NewValidationError(field, fmt.Sprintf("user %q does not hold the %q role", user.Username, role))
	}
	return nil
}

// List returns report summaries scoped to the requester: full access sees
// everything, everyone else only reports where they are client or sponsor.
func (s *ReportService) List(ctx context.Context, requesterID string) ([]*domain.Report, error) {
	requester, err := s.users.FindByID(ctx, requesterID)
	if err != nil {
		return nil, err
	}

	roles := domain.DeriveRoles(*requester)
	filter := ports.ListReportsFilter{}
	if !roles.Has(domain.RoleShogunAdmin) && !roles.Has(domain.RoleShogun) {
		filter.ParticipantID = requester.ID
	}
	return s.reports.List(ctx, filter)
}

// Get returns the full report including its collaboration thread.
func (s *ReportService) Get(ctx context.Context, requesterID, reportID string) (*ports.ReportDetail, error) {
	report, access, err := s.classify(ctx, requesterID, reportID)
	if err != nil {
		return nil, err
	}
	if !access.CanRead() {
		return nil, domain.ErrForbidden
	}

	attachments, err := s.reports.ListAttachments(ctx, reportID)
	if err != nil {
		return nil, err
	}
	chat, err := s.reports.ListMessages(ctx, reportID)
	if err != nil {
		return nil, err
	}

	return &ports.ReportDetail{
		Report:      report,
		Attachments: attachments,
		Chat:        chat,
		Access:      access.String(),
	}, nil
}

// UpdateProgress mutates progress and/or status. Progress is clamped into
// [0,100], the status label trimmed and truncated; both fields are
// independently optional.
func (s *ReportService) UpdateProgress(ctx context.Context, in ports.UpdateProgressInput) (*domain.Report, error) {
	_, access, err := s.classify(ctx, in.RequesterID, in.ReportID)
	if err != nil {
		return nil, err
	}
	if !access.CanEditProgress() {
		return nil, domain.ErrForbidden
	}

	upd := ports.ReportUpdate{}
	if in.Progress != nil {
		p := domain.ClampProgress(*in.Progress)
		upd.Progress = &p
	}
	if in.Status != nil {
		st := domain.NormalizeStatus(*in.Status)
		upd.Status = &st
	}

	updated, err := s.reports.Update(ctx, in.ReportID, upd)
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("report_id", in.ReportID).Str("access", access.String()).Msg("report progress updated")
	return updated, nil
}

// AttachFile uploads a report-level attachment. The blob write must succeed
// before the metadata row is inserted so metadata never points at a missing
// file. The uploader's identity and roles are snapshotted at upload time.
func (s *ReportService) AttachFile(ctx context.Context, in ports.AttachFileInput) (*domain.Attachment, error) {
	report, access, err := s.classify(ctx, in.RequesterID, in.ReportID)
	if err != nil {
		return nil, err
	}
	if !access.CanUploadReportFile() {
		return nil, domain.ErrForbidden
	}

	uploader, err := s.users.FindByID(ctx, in.RequesterID)
	if err != nil {
		return nil, err
	}

	attachment, err := s.storeFile(ctx, report.ID, "", uploader, in.File)
	if err != nil {
		return nil, err
	}

	if err := s.reports.InsertAttachment(ctx, attachment); err != nil {
		return nil, err
	}

	metrics.UploadsTotal.WithLabelValues("report").Inc()
	s.log.Info().Str("report_id", report.ID).Str("attachment_id", attachment.ID).Str("uploader", uploader.Username).Msg("attachment stored")
	return attachment, nil
}

// PostChat appends a message to the collaboration thread. The message and
// its attachment persist as a pair inside one repository transaction; a
// blob failure aborts before anything is written.
func (s *ReportService) PostChat(ctx context.Context, in ports.PostChatInput) (*domain.ChatMessage, error) {
	report, access, err := s.classify(ctx, in.RequesterID, in.ReportID)
	if err != nil {
		return nil, err
	}
	if !access.CanChat() {
		return nil, domain.ErrForbidden
	}

	if in.Text == "" && in.File == nil {
		return nil, domain.ErrEmptyMessage
	}

	author, err := s.users.FindByID(ctx, in.RequesterID)
	if err != nil {
		return nil, err
	}

	message := &domain.ChatMessage{
		ID:          uuid.NewString(),
		ReportID:    report.ID,
		AuthorID:    author.ID,
		AuthorName:  author.Username,
		AuthorRoles: domain.DeriveRoles(*author).Tags(),
		Text:        in.Text,
		CreatedAt:   time.Now().UTC(),
	}

	if in.File != nil {
		attachment, err := s.storeFile(ctx, report.ID, message.ID, author, *in.File)
		if err != nil {
			return nil, err
		}
		message.Attachment = attachment
		metrics.UploadsTotal.WithLabelValues("chat").Inc()
	}

	if err := s.reports.InsertMessage(ctx, message); err != nil {
		return nil, err
	}

	s.log.Info().Str("report_id", report.ID).Str("message_id", message.ID).Str("author", author.Username).Msg("chat message posted")
	return message, nil
}

// DownloadAttachment streams a report-level attachment. Access is
// re-derived from the parent report on every call; attachments outlive the
// session that uploaded them and cached decisions go stale.
func (s *ReportService) DownloadAttachment(ctx context.Context, requesterID, reportID, attachmentID string) (*ports.DownloadResult, error) {
	_, access, err := s.classify(ctx, requesterID, reportID)
	if err != nil {
		return nil, err
	}
	if !access.CanRead() {
		return nil, domain.ErrForbidden
	}

	attachment, err := s.reports.FindAttachment(ctx, reportID, attachmentID)
	if err != nil {
		return nil, err
	}
	return s.openBlob(ctx, attachment)
}

// DownloadChatAttachment streams a chat attachment after the same fresh
// classification. The attachment must belong to a message on this report.
func (s *ReportService) DownloadChatAttachment(ctx context.Context, requesterID, reportID, attachmentID string) (*ports.DownloadResult, error) {
	_, access, err := s.classify(ctx, requesterID, reportID)
	if err != nil {
		return nil, err
	}
	if !access.CanRead() {
		return nil, domain.ErrForbidden
	}

	attachment, err := s.reports.FindChatAttachment(ctx, reportID, attachmentID)
	if err != nil {
		return nil, err
	}
	return s.openBlob(ctx, attachment)
}

// classify loads the report and a fresh user record, then computes the
// requester's access class. This is the single authorization entry point
// for everything that touches an existing report.
func (s *ReportService) classify(ctx context.Context, requesterID, reportID string) (*domain.Report, domain.AccessClass, error) {
	report, err := s.reports.FindByID(ctx, reportID)
	if err != nil {
		return nil, domain.AccessNone, err
	}
	requester, err := s.users.FindByID(ctx, requesterID)
	if err != nil {
		return nil, domain.AccessNone, err
	}
	return report, domain.Classify(report, requester), nil
}

func (s *ReportService) storeFile(ctx context.Context, reportID, messageID string, uploader *domain.User, file ports.FileUpload) (*domain.Attachment, error) {
	id := uuid.NewString()
	key := fmt.Sprintf("reports/%s/%s", reportID, id)

	size, err := s.blobs.Put(ctx, key, file.Content, file.Mime)
	if err != nil {
		metrics.UploadsTotal.WithLabelValues("failed").Inc()
		return nil, &domain.UploadError{Cause: err}
	}

	return &domain.Attachment{
		ID:            id,
		ReportID:      reportID,
		MessageID:     messageID,
		Name:          file.Name,
		StorageKey:    key,
		Mime:          file.Mime,
		Size:          size,
		UploaderID:    uploader.ID,
		UploaderName:  uploader.Username,
		UploaderRoles: domain.DeriveRoles(*uploader).Tags(),
		CreatedAt:     time.Now().UTC(),
	}, nil
}

func (s *ReportService) openBlob(ctx context.Context, a *domain.Attachment) (*ports.DownloadResult, error) {
	content, err := s.blobs.Get(ctx, a.StorageKey)
	if err != nil {
		if errors.Is(err, domain.ErrAttachmentNotFound) {
			return nil, err
		}
		return nil, &domain.UploadError{Cause: err}
	}
	return &ports.DownloadResult{
		Name:    a.Name,
		Mime:    a.Mime,
		Size:    a.Size,
		Content: content,
	}, nil
}
