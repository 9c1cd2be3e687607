package models

import "time"

// AttachmentType is the variant of an attachment.
type AttachmentType string

const (
	AttachmentTypeImage AttachmentType = "IMAGE"
	AttachmentTypePDF   AttachmentType = "PDF"
	AttachmentTypeURL   AttachmentType = "URL"
)

// AttachmentSet owns the attachments of one part or kit.
type AttachmentSet struct {
	ID                string    `db:"id" json:"id"`
	CoverAttachmentID *string   `db:"cover_attachment_id" json:"cover_attachment_id"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}

// Attachment is either a stored file (IMAGE, PDF) referenced by a content-addressed
// storage key, or a bare URL. The two shapes never mix.
type Attachment struct {
	ID          string         `db:"id" json:"id"`
	SetID       string         `db:"set_id" json:"set_id"`
	Type        AttachmentType `db:"type" json:"type"`
	Title       string         `db:"title" json:"title"`
	StorageKey  *string        `db:"storage_key" json:"storage_key,omitempty"`
	Filename    *string        `db:"filename" json:"filename,omitempty"`
	ContentType *string        `db:"content_type" json:"content_type,omitempty"`
	SizeBytes   *int64         `db:"size_bytes" json:"size_bytes,omitempty"`
	URL         *string        `db:"url" json:"url,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
}

// HasFile reports whether the attachment references stored content.
func (a *Attachment) HasFile() bool {
	return a != nil && a.StorageKey != nil && *a.StorageKey != ""
}

// AttachmentSetDetail is a set together with its attachments in creation order.
type AttachmentSetDetail struct {
	AttachmentSet
	Attachments []Attachment `json:"attachments"`
}

// FileData is downloaded attachment content.
type FileData struct {
	Data        []byte
	ContentType string
	Filename    string
}
