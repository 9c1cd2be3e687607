package dto

// CreateBoxRequest creates a box with Capacity contiguous locations.
type CreateBoxRequest struct {
	Description string `json:"description" validate:"max=255"`
	Capacity    int    `json:"capacity" validate:"required,gt=0"`
}

// UpdateBoxRequest replaces the description and resizes the box.
type UpdateBoxRequest struct {
	Description string `json:"description" validate:"max=255"`
	Capacity    int    `json:"capacity" validate:"required,gt=0"`
}
