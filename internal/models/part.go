package models

import (
	"time"

	"github.com/lib/pq"
)

// Part is an inventory item identified by a short generated key.
type Part struct {
	ID              string         `db:"id" json:"id"`
	Key             string         `db:"key" json:"key"`
	Name            string         `db:"name" json:"name"`
	Description     string         `db:"description" json:"description"`
	Manufacturer    string         `db:"manufacturer" json:"manufacturer"`
	PartType        string         `db:"part_type" json:"part_type"`
	Tags            pq.StringArray `db:"tags" json:"tags"`
	AttachmentSetID string         `db:"attachment_set_id" json:"attachment_set_id"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
}

// PartFilter narrows part listings.
type PartFilter struct {
	Search   string
	PartType string
	Tag      string
}

// Kit groups documentation for a set of parts and owns its own attachments.
type Kit struct {
	ID              string    `db:"id" json:"id"`
	Name            string    `db:"name" json:"name"`
	Description     string    `db:"description" json:"description"`
	AttachmentSetID string    `db:"attachment_set_id" json:"attachment_set_id"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}
