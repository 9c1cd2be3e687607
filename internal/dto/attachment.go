package dto

import "github.com/noah-isme/parts-inventory-api/internal/models"

// AddURLAttachmentRequest attaches a web link.
type AddURLAttachmentRequest struct {
	Title string `json:"title" validate:"max=255"`
	URL   string `json:"url" validate:"required,url,startswith=http"`
}

// UpdateAttachmentTitleRequest renames an attachment.
type UpdateAttachmentTitleRequest struct {
	Title string `json:"title" validate:"max=255"`
}

// SetCoverRequest selects the cover; a null attachment id clears it.
type SetCoverRequest struct {
	AttachmentID *string `json:"attachment_id"`
}

// AttachmentDownloadResponse enriches an attachment with a signed download link.
type AttachmentDownloadResponse struct {
	models.Attachment
	DownloadURL string `json:"download_url"`
	ExpiresAt   int64  `json:"expires_at"`
}
