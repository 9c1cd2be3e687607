package dto

// StockMutationRequest adds or removes Quantity at one location.
type StockMutationRequest struct {
	BoxNo    int `json:"box_no" binding:"required"`
	LocNo    int `json:"loc_no" binding:"required"`
	Quantity int `json:"quantity"`
}

// StockMoveRequest transfers Quantity between two locations.
type StockMoveRequest struct {
	SourceBoxNo      int `json:"source_box_no" binding:"required"`
	SourceLocNo      int `json:"source_loc_no" binding:"required"`
	DestinationBoxNo int `json:"destination_box_no" binding:"required"`
	DestinationLocNo int `json:"destination_loc_no" binding:"required"`
	Quantity         int `json:"quantity"`
}

// SuggestLocationQuery carries the optional preferred box.
type SuggestLocationQuery struct {
	BoxNo *int `form:"box_no"`
}
