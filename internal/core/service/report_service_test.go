package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/shogunlabs/reports-api/internal/core/domain"
	"github.com/shogunlabs/reports-api/internal/core/ports"
)

type reportFixture struct {
	svc     *ReportService
	users   *stubUserRepo
	reports *stubReportRepo
	blobs   *memBlobStore

	gato    *domain.User // shogun
	shino   *domain.User // client
	sponsor *domain.User
	admin   *domain.User
	outcast *domain.User // client role, unrelated to any report
}

func newReportFixture(t *testing.T) *reportFixture {
	t.Helper()
	users := newStubUserRepo()
	reports := newStubReportRepo()
	blobs := newMemBlobStore()

	f := &reportFixture{
		svc:     NewReportService(reports, users, blobs, zerolog.Nop()),
		users:   users,
		reports: reports,
		blobs:   blobs,
	}
	f.gato = users.add(&domain.User{Username: "gato1", Roles: []string{domain.RoleShogun}, Active: true})
	f.shino = users.add(&domain.User{Username: "shino1", Roles: []string{domain.RoleClient}, Active: true})
	f.sponsor = users.add(&domain.User{Username: "daimyo1", Roles: []string{domain.RoleSponsor}, Active: true})
	f.admin = users.add(&domain.User{Username: "kage", Roles: []string{domain.RoleShogunAdmin}, Active: true})
	f.outcast = users.add(&domain.User{Username: "ronin", Roles: []string{domain.RoleClient}, Active: true})
	return f
}

func (f *reportFixture) createReport(t *testing.T, sponsorID string) *domain.Report {
	t.Helper()
	report, err := f.svc.Create(context.Background(), ports.CreateReportInput{
		RequesterID: f.gato.ID,
		Title:       "perimeter audit",
		Service:     "recon",
		ClientID:    f.shino.ID,
		SponsorID:   sponsorID,
	})
	if err != nil {
		t.Fatalf("create report: %v", err)
	}
	return report
}

func TestReportService_Create_Defaults(t *testing.T) {
	f := newReportFixture(t)

	report := f.createReport(t, "")
	if report.Progress != 0 {
		t.Fatalf("expected progress 0, got %d", report.Progress)
	}
	if report.Status != domain.StatusStarting {
		t.Fatalf("expected status %q, got %q", domain.StatusStarting, report.Status)
	}
	if report.ShogunID != f.gato.ID {
		t.Fatalf("expected shogun to default to requester")
	}
	if report.SponsorID != "" {
		t.Fatalf("expected no sponsor")
	}
}

func TestReportService_Create_AdminAllowed(t *testing.T) {
	f := newReportFixture(t)

	// Admins create reports too; the assigned shogun must still hold the
	// shogun tag, so the admin names one explicitly.
	report, err := f.svc.Create(context.Background(), ports.CreateReportInput{
		RequesterID: f.admin.ID,
		Title:       "delegated audit",
		Service:     "recon",
		ClientID:    f.shino.ID,
		ShogunID:    f.gato.ID,
	})
	if err != nil {
		t.Fatalf("admin create: %v", err)
	}
	if report.ShogunID != f.gato.ID {
		t.Fatalf("expected gato assigned, got %q", report.ShogunID)
	}
}

func TestReportService_Create_NonShogunForbidden(t *testing.T) {
	f := newReportFixture(t)

	_, err := f.svc.Create(context.Background(), ports.CreateReportInput{
		RequesterID: f.shino.ID,
		Title:       "self service",
		Service:     "recon",
		ClientID:    f.shino.ID,
	})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if len(f.reports.reports) != 0 {
		t.Fatalf("no report must be written")
	}
}

func TestReportService_Create_ClientRoleValidated(t *testing.T) {
	f := newReportFixture(t)

	// gato (a shogun, not a client) as the client id must fail.
	_, err := f.svc.Create(context.Background(), ports.CreateReportInput{
		RequesterID: f.gato.ID,
		Title:       "bad client",
		Service:     "recon",
		ClientID:    f.gato.ID,
	})

	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if ve.Field != "client_id" {
		t.Fatalf("validation error must name the offending party, got %q", ve.Field)
	}
	if len(f.reports.reports) != 0 {
		t.Fatalf("failed validation must perform no write")
	}
}

func TestReportService_Create_SponsorRoleValidated(t *testing.T) {
	f := newReportFixture(t)

	_, err := f.svc.Create(context.Background(), ports.CreateReportInput{
		RequesterID: f.gato.ID,
		Title:       "bad sponsor",
		Service:     "recon",
		ClientID:    f.shino.ID,
		SponsorID:   f.outcast.ID,
	})

	var ve *domain.ValidationError
	if !errors.As(err, &ve) || ve.Field != "sponsor_id" {
		t.Fatalf("expected sponsor_id validation error, got %v", err)
	}
}

func TestReportService_UpdateProgress_Clamped(t *testing.T) {
	f := newReportFixture(t)
	report := f.createReport(t, "")

	over := 250
	updated, err := f.svc.UpdateProgress(context.Background(), ports.UpdateProgressInput{
		RequesterID: f.gato.ID,
		ReportID:    report.ID,
		Progress:    &over,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Progress != 100 {
		t.Fatalf("expected clamp to 100, got %d", updated.Progress)
	}

	under := -5
	updated, err = f.svc.UpdateProgress(context.Background(), ports.UpdateProgressInput{
		RequesterID: f.gato.ID,
		ReportID:    report.ID,
		Progress:    &under,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Progress != 0 {
		t.Fatalf("expected clamp to 0, got %d", updated.Progress)
	}
}

func TestReportService_UpdateProgress_StatusTruncated(t *testing.T) {
	f := newReportFixture(t)
	report := f.createReport(t, "")

	long := "  " + strings.Repeat("z", 500)
	updated, err := f.svc.UpdateProgress(context.Background(), ports.UpdateProgressInput{
		RequesterID: f.gato.ID,
		ReportID:    report.ID,
		Status:      &long,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len([]rune(updated.Status)) != domain.MaxStatusLen {
		t.Fatalf("expected %d-rune status, got %d", domain.MaxStatusLen, len([]rune(updated.Status)))
	}
	// Progress untouched when only status is sent.
	if updated.Progress != 0 {
		t.Fatalf("progress must be independent of status updates")
	}
}

func TestReportService_UpdateProgress_SponsorAndOwnerForbidden(t *testing.T) {
	f := newReportFixture(t)
	report := f.createReport(t, f.sponsor.ID)

	p := 10
	for _, uid := range []string{f.sponsor.ID, f.shino.ID, f.outcast.ID} {
		_, err := f.svc.UpdateProgress(context.Background(), ports.UpdateProgressInput{
			RequesterID: uid,
			ReportID:    report.ID,
			Progress:    &p,
		})
		if !errors.Is(err, domain.ErrForbidden) {
			t.Fatalf("user %s: expected ErrForbidden, got %v", uid, err)
		}
	}

	// Admin passes even though not assigned.
	if _, err := f.svc.UpdateProgress(context.Background(), ports.UpdateProgressInput{
		RequesterID: f.admin.ID,
		ReportID:    report.ID,
		Progress:    &p,
	}); err != nil {
		t.Fatalf("admin update: %v", err)
	}
}

func TestReportService_List_Scoping(t *testing.T) {
	f := newReportFixture(t)
	f.createReport(t, "")
	withSponsor := f.createReport(t, f.sponsor.ID)

	all, err := f.svc.List(context.Background(), f.admin.ID)
	if err != nil {
		t.Fatalf("admin list: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("admin expected 2 reports, got %d", len(all))
	}

	mine, err := f.svc.List(context.Background(), f.sponsor.ID)
	if err != nil {
		t.Fatalf("sponsor list: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != withSponsor.ID {
		t.Fatalf("sponsor must only see sponsored reports, got %d", len(mine))
	}

	none, err := f.svc.List(context.Background(), f.outcast.ID)
	if err != nil {
		t.Fatalf("outcast list: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("unrelated client must see nothing, got %d", len(none))
	}
}

func TestReportService_Get_AccessChecked(t *testing.T) {
	f := newReportFixture(t)
	report := f.createReport(t, f.sponsor.ID)

	for _, uid := range []string{f.gato.ID, f.shino.ID, f.sponsor.ID, f.admin.ID} {
		if _, err := f.svc.Get(context.Background(), uid, report.ID); err != nil {
			t.Fatalf("user %s: expected access, got %v", uid, err)
		}
	}

	if _, err := f.svc.Get(context.Background(), f.outcast.ID, report.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("outcast: expected ErrForbidden, got %v", err)
	}
}

func TestReportService_AttachFile_RoundTrip(t *testing.T) {
	f := newReportFixture(t)
	report := f.createReport(t, "")
	payload := []byte("scroll contents")

	attachment, err := f.svc.AttachFile(context.Background(), ports.AttachFileInput{
		RequesterID: f.shino.ID, // owner may upload
		ReportID:    report.ID,
		File: ports.FileUpload{
			Name:    "scroll.pdf",
			Mime:    "application/pdf",
			Content: strings.NewReader(string(payload)),
		},
	})
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if attachment.UploaderName != "shino1" {
		t.Fatalf("uploader snapshot missing: %+v", attachment)
	}
	if len(attachment.UploaderRoles) != 1 || attachment.UploaderRoles[0] != domain.RoleClient {
		t.Fatalf("role snapshot missing: %v", attachment.UploaderRoles)
	}
	if attachment.Size != int64(len(payload)) {
		t.Fatalf("expected size %d, got %d", len(payload), attachment.Size)
	}

	result, err := f.svc.DownloadAttachment(context.Background(), f.gato.ID, report.ID, attachment.ID)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	defer result.Content.Close()

	data, err := io.ReadAll(result.Content)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != string(payload) {
		t.Fatalf("round-trip mismatch: %q", data)
	}
	if result.Name != "scroll.pdf" {
		t.Fatalf("display name lost: %q", result.Name)
	}
}

func TestReportService_AttachFile_SponsorExcluded(t *testing.T) {
	f := newReportFixture(t)
	report := f.createReport(t, f.sponsor.ID)

	_, err := f.svc.AttachFile(context.Background(), ports.AttachFileInput{
		RequesterID: f.sponsor.ID,
		ReportID:    report.ID,
		File:        ports.FileUpload{Name: "x", Content: strings.NewReader("x")},
	})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("sponsors must not upload report files, got %v", err)
	}
}

func TestReportService_AttachFile_BlobFailureNoMetadata(t *testing.T) {
	f := newReportFixture(t)
	report := f.createReport(t, "")
	f.blobs.putErr = errBlobDown

	_, err := f.svc.AttachFile(context.Background(), ports.AttachFileInput{
		RequesterID: f.gato.ID,
		ReportID:    report.ID,
		File:        ports.FileUpload{Name: "x", Content: strings.NewReader("x")},
	})

	var ue *domain.UploadError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UploadError, got %v", err)
	}
	if len(f.reports.attachments) != 0 {
		t.Fatalf("metadata must not be written when the blob upload fails")
	}
}

func TestReportService_PostChat_SponsorAllowed(t *testing.T) {
	f := newReportFixture(t)
	report := f.createReport(t, f.sponsor.ID)

	message, err := f.svc.PostChat(context.Background(), ports.PostChatInput{
		RequesterID: f.sponsor.ID,
		ReportID:    report.ID,
		Text:        "any progress?",
	})
	if err != nil {
		t.Fatalf("sponsor chat: %v", err)
	}
	if message.AuthorName != "daimyo1" {
		t.Fatalf("author snapshot missing: %+v", message)
	}

	detail, err := f.svc.Get(context.Background(), f.sponsor.ID, report.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(detail.Chat) != 1 {
		t.Fatalf("expected 1 message, got %d", len(detail.Chat))
	}
}

func TestReportService_PostChat_EmptyRejected(t *testing.T) {
	f := newReportFixture(t)
	report := f.createReport(t, "")

	_, err := f.svc.PostChat(context.Background(), ports.PostChatInput{
		RequesterID: f.gato.ID,
		ReportID:    report.ID,
	})
	if !errors.Is(err, domain.ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
}

func TestReportService_PostChat_OutcastForbidden(t *testing.T) {
	f := newReportFixture(t)
	report := f.createReport(t, "")

	_, err := f.svc.PostChat(context.Background(), ports.PostChatInput{
		RequesterID: f.outcast.ID,
		ReportID:    report.ID,
		Text:        "let me in",
	})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestReportService_PostChat_FileOnlyAndDownload(t *testing.T) {
	f := newReportFixture(t)
	report := f.createReport(t, f.sponsor.ID)
	payload := "sketch bytes"

	message, err := f.svc.PostChat(context.Background(), ports.PostChatInput{
		RequesterID: f.sponsor.ID,
		ReportID:    report.ID,
		File: &ports.FileUpload{
			Name:    "sketch.png",
			Mime:    "image/png",
			Content: strings.NewReader(payload),
		},
	})
	if err != nil {
		t.Fatalf("chat with file: %v", err)
	}
	if message.Attachment == nil {
		t.Fatalf("expected attachment on message")
	}
	if message.Attachment.MessageID != message.ID {
		t.Fatalf("attachment not linked to its parent message")
	}

	result, err := f.svc.DownloadChatAttachment(context.Background(), f.shino.ID, report.ID, message.Attachment.ID)
	if err != nil {
		t.Fatalf("download chat attachment: %v", err)
	}
	defer result.Content.Close()
	data, _ := io.ReadAll(result.Content)
	if string(data) != payload {
		t.Fatalf("round-trip mismatch: %q", data)
	}

	// Chat attachments are not reachable through the report-level endpoint.
	if _, err := f.svc.DownloadAttachment(context.Background(), f.gato.ID, report.ID, message.Attachment.ID); !errors.Is(err, domain.ErrAttachmentNotFound) {
		t.Fatalf("expected ErrAttachmentNotFound, got %v", err)
	}
}

func TestReportService_PostChat_InsertFailureIsAtomic(t *testing.T) {
	f := newReportFixture(t)
	report := f.createReport(t, "")
	f.reports.insertErr = errBlobDown

	_, err := f.svc.PostChat(context.Background(), ports.PostChatInput{
		RequesterID: f.gato.ID,
		ReportID:    report.ID,
		Text:        "hello",
		File:        &ports.FileUpload{Name: "x", Content: strings.NewReader("x")},
	})
	if err == nil {
		t.Fatalf("expected insert failure to propagate")
	}
	if len(f.reports.messages) != 0 {
		t.Fatalf("no message must persist when the transaction fails")
	}
}

func TestReportService_Download_OutcastForbidden(t *testing.T) {
	f := newReportFixture(t)
	report := f.createReport(t, "")

	attachment, err := f.svc.AttachFile(context.Background(), ports.AttachFileInput{
		RequesterID: f.gato.ID,
		ReportID:    report.ID,
		File:        ports.FileUpload{Name: "x", Content: strings.NewReader("x")},
	})
	if err != nil {
		t.Fatalf("attach: %v", err)
	}

	_, err = f.svc.DownloadAttachment(context.Background(), f.outcast.ID, report.ID, attachment.ID)
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}
