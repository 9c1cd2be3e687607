package dto

// CreatePartRequest registers a new part. The key is generated.
type CreatePartRequest struct {
	Name         string   `json:"name" validate:"required,max=255"`
	Description  string   `json:"description"`
	Manufacturer string   `json:"manufacturer" validate:"max=255"`
	PartType     string   `json:"part_type" validate:"max=100"`
	Tags         []string `json:"tags" validate:"dive,required,max=64"`
}

// UpdatePartRequest replaces the editable part fields.
type UpdatePartRequest struct {
	Name         string   `json:"name" validate:"required,max=255"`
	Description  string   `json:"description"`
	Manufacturer string   `json:"manufacturer" validate:"max=255"`
	PartType     string   `json:"part_type" validate:"max=100"`
	Tags         []string `json:"tags" validate:"dive,required,max=64"`
}

// PartQuery captures list filters from the query string.
type PartQuery struct {
	Search   string `form:"q"`
	PartType string `form:"type"`
	Tag      string `form:"tag"`
}

// CreateKitRequest registers a kit.
type CreateKitRequest struct {
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description"`
}
