package models

import (
	"fmt"
	"time"
)

// Box is a physical storage box holding Capacity numbered locations.
type Box struct {
	BoxNo       int       `db:"box_no" json:"box_no"`
	Description string    `db:"description" json:"description"`
	Capacity    int       `db:"capacity" json:"capacity"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// BoxSummary adds occupancy figures for list views.
type BoxSummary struct {
	Box
	OccupiedLocations int `db:"occupied_locations" json:"occupied_locations"`
}

// LocationRef addresses one slot of one box.
type LocationRef struct {
	BoxNo int `db:"box_no" json:"box_no"`
	LocNo int `db:"loc_no" json:"loc_no"`
}

// String renders the user-facing "box-loc" form, e.g. "3-12".
func (l LocationRef) String() string {
	return fmt.Sprintf("%d-%d", l.BoxNo, l.LocNo)
}
