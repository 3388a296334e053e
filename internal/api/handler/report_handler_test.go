package handler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/shogunlabs/reports-api/internal/core/domain"
	"github.com/shogunlabs/reports-api/internal/core/ports"
)

type stubReportService struct {
	report  *domain.Report
	detail  *ports.ReportDetail
	message *domain.ChatMessage
	attach  *domain.Attachment
	result  *ports.DownloadResult
	err     error

	gotCreate ports.CreateReportInput
	gotUpdate ports.UpdateProgressInput
	gotAttach ports.AttachFileInput
	gotChat   ports.PostChatInput
}

func (s *stubReportService) Create(_ context.Context, in ports.CreateReportInput) (*domain.Report, error) {
	s.gotCreate = in
	return s.report, s.err
}

func (s *stubReportService) List(_ context.Context, _ string) ([]*domain.Report, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []*domain.Report{s.report}, nil
}

func (s *stubReportService) Get(_ context.Context, _, _ string) (*ports.ReportDetail, error) {
	return s.detail, s.err
}

func (s *stubReportService) UpdateProgress(_ context.Context, in ports.UpdateProgressInput) (*domain.Report, error) {
	s.gotUpdate = in
	return s.report, s.err
}

func (s *stubReportService) AttachFile(_ context.Context, in ports.AttachFileInput) (*domain.Attachment, error) {
	s.gotAttach = in
	if s.err != nil {
		return nil, s.err
	}
	return s.attach, nil
}

func (s *stubReportService) PostChat(_ context.Context, in ports.PostChatInput) (*domain.ChatMessage, error) {
	s.gotChat = in
	if s.err != nil {
		return nil, s.err
	}
	return s.message, nil
}

func (s *stubReportService) DownloadAttachment(_ context.Context, _, _, _ string) (*ports.DownloadResult, error) {
	return s.result, s.err
}

func (s *stubReportService) DownloadChatAttachment(_ context.Context, _, _, _ string) (*ports.DownloadResult, error) {
	return s.result, s.err
}

func newReportTestContext(t *testing.T, method, path, body, contentType string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	e.Validator = NewValidator()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", "u1")
	return c, rec
}

func multipartBody(t *testing.T, fields map[string]string, fileField, fileName, fileContent string) (string, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if fileField != "" {
		fw, err := w.CreateFormFile(fileField, fileName)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := fw.Write([]byte(fileContent)); err != nil {
			t.Fatalf("write file: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return buf.String(), w.FormDataContentType()
}

func TestReportHandler_Create_Returns201(t *testing.T) {
	svc := &stubReportService{report: &domain.Report{ID: "r1", Title: "perimeter audit"}}
	h := NewReportHandler(svc)

	c, rec := newReportTestContext(t, http.MethodPost, "/reports",
		`{"title":"perimeter audit","service":"recon","client_id":"u9"}`, echo.MIMEApplicationJSON)
	if err := h.Create(c); err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if svc.gotCreate.RequesterID != "u1" || svc.gotCreate.ClientID != "u9" {
		t.Fatalf("input not forwarded: %+v", svc.gotCreate)
	}
}

func TestReportHandler_Create_MissingTitle(t *testing.T) {
	h := NewReportHandler(&stubReportService{})

	c, _ := newReportTestContext(t, http.MethodPost, "/reports",
		`{"service":"recon","client_id":"u9"}`, echo.MIMEApplicationJSON)
	err := h.Create(c)

	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestReportHandler_Create_RequiresClaims(t *testing.T) {
	h := NewReportHandler(&stubReportService{})

	e := echo.New()
	e.Validator = NewValidator()
	req := httptest.NewRequest(http.MethodPost, "/reports", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())

	err := h.Create(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without claims, got %v", err)
	}
}

func TestReportHandler_UpdateProgress_OptionalFields(t *testing.T) {
	svc := &stubReportService{report: &domain.Report{ID: "r1"}}
	h := NewReportHandler(svc)

	c, rec := newReportTestContext(t, http.MethodPut, "/reports/r1/progress",
		`{"progress":40}`, echo.MIMEApplicationJSON)
	c.SetParamNames("id")
	c.SetParamValues("r1")

	if err := h.UpdateProgress(c); err != nil {
		t.Fatalf("update: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if svc.gotUpdate.Progress == nil || *svc.gotUpdate.Progress != 40 {
		t.Fatalf("progress not forwarded: %+v", svc.gotUpdate)
	}
	if svc.gotUpdate.Status != nil {
		t.Fatalf("absent status must stay nil, got %q", *svc.gotUpdate.Status)
	}
}

func TestReportHandler_Attach_MissingFile(t *testing.T) {
	h := NewReportHandler(&stubReportService{})

	body, ct := multipartBody(t, map[string]string{"note": "no file here"}, "", "", "")
	c, _ := newReportTestContext(t, http.MethodPost, "/reports/r1/attachment", body, ct)
	c.SetParamNames("id")
	c.SetParamValues("r1")

	err := h.Attach(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing file, got %v", err)
	}
}

func TestReportHandler_Attach_ForwardsFile(t *testing.T) {
	svc := &stubReportService{attach: &domain.Attachment{ID: "a1", Name: "scroll.pdf"}}
	h := NewReportHandler(svc)

	body, ct := multipartBody(t, nil, "file", "scroll.pdf", "scroll contents")
	c, rec := newReportTestContext(t, http.MethodPost, "/reports/r1/attachment", body, ct)
	c.SetParamNames("id")
	c.SetParamValues("r1")

	if err := h.Attach(c); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if svc.gotAttach.File.Name != "scroll.pdf" || svc.gotAttach.ReportID != "r1" {
		t.Fatalf("upload not forwarded: %+v", svc.gotAttach)
	}
}

func TestReportHandler_PostChat_TextOnly(t *testing.T) {
	svc := &stubReportService{message: &domain.ChatMessage{ID: "m1", Text: "hello"}}
	h := NewReportHandler(svc)

	body, ct := multipartBody(t, map[string]string{"message": "hello"}, "", "", "")
	c, rec := newReportTestContext(t, http.MethodPost, "/reports/r1/chat", body, ct)
	c.SetParamNames("id")
	c.SetParamValues("r1")

	if err := h.PostChat(c); err != nil {
		t.Fatalf("post chat: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if svc.gotChat.Text != "hello" || svc.gotChat.File != nil {
		t.Fatalf("unexpected input: %+v", svc.gotChat)
	}
}

func TestReportHandler_PostChat_OversizedFileRejected(t *testing.T) {
	svc := &stubReportService{}
	h := NewReportHandler(svc)

	body, ct := multipartBody(t, nil, "file", "huge.bin", strings.Repeat("x", maxUploadBytes+1))
	c, _ := newReportTestContext(t, http.MethodPost, "/reports/r1/chat", body, ct)
	c.SetParamNames("id")
	c.SetParamValues("r1")

	err := h.PostChat(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 for an oversized chat file, got %v", err)
	}
	if svc.gotChat.RequesterID != "" {
		t.Fatalf("service must not be called when the upload is rejected")
	}
}

func TestReportHandler_Attach_OversizedFileRejected(t *testing.T) {
	svc := &stubReportService{}
	h := NewReportHandler(svc)

	body, ct := multipartBody(t, nil, "file", "huge.bin", strings.Repeat("x", maxUploadBytes+1))
	c, _ := newReportTestContext(t, http.MethodPost, "/reports/r1/attachment", body, ct)
	c.SetParamNames("id")
	c.SetParamValues("r1")

	err := h.Attach(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 for an oversized attachment, got %v", err)
	}
}

func TestReportHandler_PostChat_EmptyRejectedByService(t *testing.T) {
	svc := &stubReportService{err: domain.ErrEmptyMessage}
	h := NewReportHandler(svc)

	body, ct := multipartBody(t, nil, "", "", "")
	c, _ := newReportTestContext(t, http.MethodPost, "/reports/r1/chat", body, ct)
	c.SetParamNames("id")
	c.SetParamValues("r1")

	if err := h.PostChat(c); !errors.Is(err, domain.ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
}

func TestReportHandler_Download_SetsDisposition(t *testing.T) {
	svc := &stubReportService{result: &ports.DownloadResult{
		Name:    "scroll.pdf",
		Mime:    "application/pdf",
		Content: io.NopCloser(strings.NewReader("scroll contents")),
	}}
	h := NewReportHandler(svc)

	c, rec := newReportTestContext(t, http.MethodGet, "/reports/r1/attachments/a1/download", "", "")
	c.SetParamNames("id", "attId")
	c.SetParamValues("r1", "a1")

	if err := h.DownloadAttachment(c); err != nil {
		t.Fatalf("download: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get(echo.HeaderContentDisposition); got != `attachment; filename="scroll.pdf"` {
		t.Fatalf("unexpected disposition: %q", got)
	}
	if rec.Body.String() != "scroll contents" {
		t.Fatalf("body not streamed: %q", rec.Body.String())
	}
}

func TestReportHandler_Download_NotFoundPropagates(t *testing.T) {
	svc := &stubReportService{err: domain.ErrAttachmentNotFound}
	h := NewReportHandler(svc)

	c, _ := newReportTestContext(t, http.MethodGet, "/reports/r1/chat/a9/download", "", "")
	c.SetParamNames("id", "attId")
	c.SetParamValues("r1", "a9")

	if err := h.DownloadChatAttachment(c); !errors.Is(err, domain.ErrAttachmentNotFound) {
		t.Fatalf("expected ErrAttachmentNotFound, got %v", err)
	}
}
