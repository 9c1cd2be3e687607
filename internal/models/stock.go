package models

import "time"

// StockEntry is one ledger row. A persisted entry always has Quantity >= 1.
type StockEntry struct {
	PartKey   string    `db:"part_key" json:"part_key"`
	BoxNo     int       `db:"box_no" json:"box_no"`
	LocNo     int       `db:"loc_no" json:"loc_no"`
	Quantity  int       `db:"quantity" json:"quantity"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Location returns the entry's slot.
func (e StockEntry) Location() LocationRef {
	return LocationRef{BoxNo: e.BoxNo, LocNo: e.LocNo}
}

// StockOperation labels a history row.
type StockOperation string

const (
	StockOperationAdd    StockOperation = "ADD"
	StockOperationRemove StockOperation = "REMOVE"
	StockOperationMove   StockOperation = "MOVE"
)

// QuantityHistory is an append-only record of one signed ledger change.
type QuantityHistory struct {
	ID        int64          `db:"id" json:"id"`
	PartKey   string         `db:"part_key" json:"part_key"`
	BoxNo     int            `db:"box_no" json:"box_no"`
	LocNo     int            `db:"loc_no" json:"loc_no"`
	Delta     int            `db:"delta" json:"delta"`
	Operation StockOperation `db:"operation" json:"operation"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}

// PartStock summarises where a part is stored.
type PartStock struct {
	PartKey   string       `json:"part_key"`
	Total     int          `json:"total"`
	Locations []StockEntry `json:"locations"`
}

// MoveResult reports both ends of a move after it was applied.
type MoveResult struct {
	Source      *StockEntry `json:"source,omitempty"`
	Destination *StockEntry `json:"destination"`
}
