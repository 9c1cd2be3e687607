package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/parts-inventory-api/internal/dto"
	"github.com/noah-isme/parts-inventory-api/internal/models"
	appErrors "github.com/noah-isme/parts-inventory-api/pkg/errors"
	"github.com/noah-isme/parts-inventory-api/pkg/response"
)

type attachmentService interface {
	AddFile(ctx context.Context, setID, title string, data []byte, filename string) (*models.Attachment, error)
	AddURL(ctx context.Context, setID, title, link string) (*models.Attachment, error)
	GetSet(ctx context.Context, setID string) (*models.AttachmentSetDetail, error)
	GetOne(ctx context.Context, setID, attachmentID string) (*models.Attachment, error)
	UpdateTitle(ctx context.Context, setID, attachmentID, title string) (*models.Attachment, error)
	Delete(ctx context.Context, setID, attachmentID string) error
	SetCover(ctx context.Context, setID string, attachmentID *string) (*models.AttachmentSet, error)
	FileData(ctx context.Context, setID, attachmentID string) (*models.FileData, error)
	DownloadURL(ctx context.Context, setID, attachmentID string) (*dto.AttachmentDownloadResponse, error)
	DownloadByToken(ctx context.Context, token string) (*models.FileData, error)
}

// AttachmentHandler serves attachment sets, uploads and downloads.
type AttachmentHandler struct {
	service        attachmentService
	maxUploadBytes int64
}

// NewAttachmentHandler constructs an attachment handler. maxUploadBytes caps the multipart body.
func NewAttachmentHandler(svc attachmentService, maxUploadBytes int64) *AttachmentHandler {
	return &AttachmentHandler{service: svc, maxUploadBytes: maxUploadBytes}
}

// GetSet godoc
// @Summary Get an attachment set with its attachments
// @Tags Attachments
// @Produce json
// @Param setId path string true "Attachment set ID"
// @Success 200 {object} response.Envelope
// @Router /attachment-sets/{setId} [get]
func (h *AttachmentHandler) GetSet(c *gin.Context) {
	set, err := h.service.GetSet(c.Request.Context(), c.Param("setId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, set)
}

// Upload godoc
// @Summary Upload an image or document
// @Description Content type is detected from the bytes. The first image becomes the cover.
// @Tags Attachments
// @Accept multipart/form-data
// @Produce json
// @Param setId path string true "Attachment set ID"
// @Param file formData file true "File"
// @Param title formData string false "Title"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /attachment-sets/{setId}/attachments [post]
func (h *AttachmentHandler) Upload(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}
	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, appErrors.InvalidOperation("upload attachment", fmt.Sprintf("request body exceeds %d bytes", h.maxUploadBytes)))
			return
		}
		response.Error(c, appErrors.InvalidOperation("upload attachment", "file is required"))
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.WrapInvalid(err, "upload attachment"))
		return
	}
	defer file.Close() //nolint:errcheck
	data, err := io.ReadAll(file)
	if err != nil {
		response.Error(c, appErrors.WrapInvalid(err, "upload attachment"))
		return
	}

	att, err := h.service.AddFile(c.Request.Context(), c.Param("setId"), c.PostForm("title"), data, header.Filename)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, att)
}

// AddURL godoc
// @Summary Attach a web link
// @Tags Attachments
// @Accept json
// @Produce json
// @Param setId path string true "Attachment set ID"
// @Param payload body dto.AddURLAttachmentRequest true "Link payload"
// @Success 201 {object} response.Envelope
// @Router /attachment-sets/{setId}/urls [post]
func (h *AttachmentHandler) AddURL(c *gin.Context) {
	var req dto.AddURLAttachmentRequest
	if !bindJSON(c, &req, "add url attachment") {
		return
	}
	att, err := h.service.AddURL(c.Request.Context(), c.Param("setId"), req.Title, req.URL)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, att)
}

// Get godoc
// @Summary Get one attachment
// @Tags Attachments
// @Produce json
// @Param setId path string true "Attachment set ID"
// @Param id path string true "Attachment ID"
// @Success 200 {object} response.Envelope
// @Router /attachment-sets/{setId}/attachments/{id} [get]
func (h *AttachmentHandler) Get(c *gin.Context) {
	att, err := h.service.GetOne(c.Request.Context(), c.Param("setId"), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, att)
}

// UpdateTitle godoc
// @Summary Rename an attachment
// @Tags Attachments
// @Accept json
// @Produce json
// @Param setId path string true "Attachment set ID"
// @Param id path string true "Attachment ID"
// @Param payload body dto.UpdateAttachmentTitleRequest true "Title payload"
// @Success 200 {object} response.Envelope
// @Router /attachment-sets/{setId}/attachments/{id} [patch]
func (h *AttachmentHandler) UpdateTitle(c *gin.Context) {
	var req dto.UpdateAttachmentTitleRequest
	if !bindJSON(c, &req, "update attachment") {
		return
	}
	att, err := h.service.UpdateTitle(c.Request.Context(), c.Param("setId"), c.Param("id"), req.Title)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, att)
}

// Delete godoc
// @Summary Delete an attachment
// @Description Stored content is kept; other attachments may reference it.
// @Tags Attachments
// @Param setId path string true "Attachment set ID"
// @Param id path string true "Attachment ID"
// @Success 204
// @Router /attachment-sets/{setId}/attachments/{id} [delete]
func (h *AttachmentHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("setId"), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// SetCover godoc
// @Summary Set or clear the cover attachment
// @Tags Attachments
// @Accept json
// @Produce json
// @Param setId path string true "Attachment set ID"
// @Param payload body dto.SetCoverRequest true "Cover payload"
// @Success 200 {object} response.Envelope
// @Router /attachment-sets/{setId}/cover [put]
func (h *AttachmentHandler) SetCover(c *gin.Context) {
	var req dto.SetCoverRequest
	if !bindJSON(c, &req, "set cover") {
		return
	}
	set, err := h.service.SetCover(c.Request.Context(), c.Param("setId"), req.AttachmentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, set)
}

// Content godoc
// @Summary Stream the stored content of a file attachment
// @Tags Attachments
// @Produce octet-stream
// @Param setId path string true "Attachment set ID"
// @Param id path string true "Attachment ID"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /attachment-sets/{setId}/attachments/{id}/content [get]
func (h *AttachmentHandler) Content(c *gin.Context) {
	file, err := h.service.FileData(c.Request.Context(), c.Param("setId"), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if file == nil {
		response.Error(c, appErrors.NotFound("Stored content of attachment", c.Param("id")))
		return
	}
	writeFile(c, file, "inline")
}

// DownloadURL godoc
// @Summary Issue a signed download link for a file attachment
// @Tags Attachments
// @Produce json
// @Param setId path string true "Attachment set ID"
// @Param id path string true "Attachment ID"
// @Success 200 {object} response.Envelope
// @Router /attachment-sets/{setId}/attachments/{id}/download-url [get]
func (h *AttachmentHandler) DownloadURL(c *gin.Context) {
	result, err := h.service.DownloadURL(c.Request.Context(), c.Param("setId"), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Download godoc
// @Summary Download attachment content with a signed token
// @Tags Attachments
// @Produce octet-stream
// @Param token query string true "Signed token"
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Router /attachments/download [get]
func (h *AttachmentHandler) Download(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		response.Error(c, appErrors.InvalidOperation("download attachment", "token is required"))
		return
	}
	file, err := h.service.DownloadByToken(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	writeFile(c, file, "attachment")
}

func writeFile(c *gin.Context, file *models.FileData, disposition string) {
	if file.Filename != "" {
		c.Header("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, file.Filename))
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
