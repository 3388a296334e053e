package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/shogunlabs/reports-api/internal/core/ports"
)

// maxUploadBytes caps a single attachment upload.
const maxUploadBytes = 32 << 20 // 32 MiB

// ReportHandler handles report lifecycle and collaboration endpoints.
type ReportHandler struct {
	service ports.ReportService
}

func NewReportHandler(service ports.ReportService) *ReportHandler {
	return &ReportHandler{service: service}
}

// List returns report summaries scoped to the requester.
//
// @Summary      List reports
// @Tags         reports
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   domain.Report
// @Failure      401  {object}  errorResponse
// @Router       /reports [get]
func (h *ReportHandler) List(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	reports, err := h.service.List(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, reports)
}

// Create opens a new report (shogun or shogun-admin).
//
// @Summary      Create a report
// @Tags         reports
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createReportRequest  true  "Report details"
// @Success      201   {object}  domain.Report
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /reports [post]
func (h *ReportHandler) Create(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	var req createReportRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	report, err := h.service.Create(c.Request().Context(), ports.CreateReportInput{
		RequesterID: userID,
		Title:       req.Title,
		Service:     req.Service,
		Summary:     req.Summary,
		ClientID:    req.ClientID,
		ShogunID:    req.ShogunID,
		SponsorID:   req.SponsorID,
		Status:      req.Status,
		Tags:        req.Tags,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, report)
}

// Get returns the full report including attachments and chat.
//
// @Summary      Get a report
// @Tags         reports
// @Produce      json
// @Security     BearerAuth
// @Param        id  path      string  true  "Report id"
// @Success      200  {object}  ports.ReportDetail
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /reports/{id} [get]
func (h *ReportHandler) Get(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	detail, err := h.service.Get(c.Request().Context(), userID, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, detail)
}

// UpdateProgress mutates progress and/or status (full or assigned access).
//
// @Summary      Update report progress/status
// @Tags         reports
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string                 true  "Report id"
// @Param        body  body      updateProgressRequest  true  "Fields to update"
// @Success      200   {object}  domain.Report
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /reports/{id}/progress [put]
func (h *ReportHandler) UpdateProgress(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	var req updateProgressRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	report, err := h.service.UpdateProgress(c.Request().Context(), ports.UpdateProgressInput{
		RequesterID: userID,
		ReportID:    c.Param("id"),
		Progress:    req.Progress,
		Status:      req.Status,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, report)
}

// Attach uploads a report-level attachment (multipart "file" field).
//
// @Summary      Attach a file to a report
// @Tags         reports
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string  true  "Report id"
// @Param        file  formData  file    true  "File to attach"
// @Success      201   {object}  domain.Attachment
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Router       /reports/{id}/attachment [post]
func (h *ReportHandler) Attach(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	upload, closeFn, err := formFile(c, "file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return echo.NewHTTPError(http.StatusBadRequest, "missing file")
		}
		return err
	}
	defer closeFn()

	attachment, err := h.service.AttachFile(c.Request().Context(), ports.AttachFileInput{
		RequesterID: userID,
		ReportID:    c.Param("id"),
		File:        *upload,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, attachment)
}

// PostChat appends a chat message (multipart "message" and/or "file").
//
// @Summary      Post a chat message
// @Tags         reports
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string  true   "Report id"
// @Param        message  formData  string  false  "Message text"
// @Param        file     formData  file    false  "Optional attachment"
// @Success      201      {object}  domain.ChatMessage
// @Failure      400      {object}  errorResponse
// @Failure      403      {object}  errorResponse
// @Router       /reports/{id}/chat [post]
func (h *ReportHandler) PostChat(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	in := ports.PostChatInput{
		RequesterID: userID,
		ReportID:    c.Param("id"),
		Text:        c.FormValue("message"),
	}

	// A chat message without a file is fine, but a file that was sent and
	// failed (too large, unreadable) must not be silently dropped.
	upload, closeFn, err := formFile(c, "file")
	switch {
	case err == nil:
		defer closeFn()
		in.File = upload
	case errors.Is(err, http.ErrMissingFile):
	default:
		return err
	}

	message, err := h.service.PostChat(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, message)
}

// DownloadAttachment streams a report attachment to an authorized caller.
//
// @Summary      Download a report attachment
// @Tags         reports
// @Produce      octet-stream
// @Security     BearerAuth
// @Param        id     path  string  true  "Report id"
// @Param        attId  path  string  true  "Attachment id"
// @Success      200    {file}    binary
// @Failure      403    {object}  errorResponse
// @Failure      404    {object}  errorResponse
// @Router       /reports/{id}/attachments/{attId}/download [get]
func (h *ReportHandler) DownloadAttachment(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	result, err := h.service.DownloadAttachment(c.Request().Context(), userID, c.Param("id"), c.Param("attId"))
	if err != nil {
		return err
	}
	return streamDownload(c, result)
}

// DownloadChatAttachment streams a chat attachment to an authorized caller.
//
// @Summary      Download a chat attachment
// @Tags         reports
// @Produce      octet-stream
// @Security     BearerAuth
// @Param        id     path  string  true  "Report id"
// @Param        attId  path  string  true  "Attachment id"
// @Success      200    {file}    binary
// @Failure      403    {object}  errorResponse
// @Failure      404    {object}  errorResponse
// @Router       /reports/{id}/chat/{attId}/download [get]
func (h *ReportHandler) DownloadChatAttachment(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	result, err := h.service.DownloadChatAttachment(c.Request().Context(), userID, c.Param("id"), c.Param("attId"))
	if err != nil {
		return err
	}
	return streamDownload(c, result)
}

// formFile opens a multipart file field as a FileUpload. The returned close
// function must be called after the service consumed the content. An absent
// field (or a non-multipart body) surfaces as http.ErrMissingFile so callers
// can tell it apart from an upload that was sent and failed.
func formFile(c echo.Context, field string) (*ports.FileUpload, func(), error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil, http.ErrMissingFile
		}
		return nil, nil, echo.NewHTTPError(http.StatusBadRequest, "unreadable upload")
	}
	if fh.Size > maxUploadBytes {
		return nil, nil, echo.NewHTTPError(http.StatusRequestEntityTooLarge, "file too large")
	}

	src, err := fh.Open()
	if err != nil {
		return nil, nil, echo.NewHTTPError(http.StatusBadRequest, "unreadable file")
	}

	mime := fh.Header.Get("Content-Type")
	if mime == "" {
		mime = "application/octet-stream"
	}

	return &ports.FileUpload{
		Name:    fh.Filename,
		Mime:    mime,
		Size:    fh.Size,
		Content: src,
	}, func() { _ = src.Close() }, nil
}

func streamDownload(c echo.Context, result *ports.DownloadResult) error {
	defer result.Content.Close()
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", result.Name))
	return c.Stream(http.StatusOK, result.Mime, result.Content)
}
