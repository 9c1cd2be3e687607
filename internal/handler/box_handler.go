package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/parts-inventory-api/internal/dto"
	"github.com/noah-isme/parts-inventory-api/internal/models"
	"github.com/noah-isme/parts-inventory-api/pkg/response"
)

type boxService interface {
	Create(ctx context.Context, req dto.CreateBoxRequest) (*models.Box, error)
	Resize(ctx context.Context, boxNo int, req dto.UpdateBoxRequest) (*models.Box, error)
	Delete(ctx context.Context, boxNo int) error
	Get(ctx context.Context, boxNo int) (*models.Box, error)
	List(ctx context.Context) ([]models.BoxSummary, error)
	Contents(ctx context.Context, boxNo int) ([]models.StockEntry, error)
}

// BoxHandler handles box endpoints.
type BoxHandler struct {
	service boxService
}

// NewBoxHandler constructs a box handler.
func NewBoxHandler(svc boxService) *BoxHandler {
	return &BoxHandler{service: svc}
}

// List godoc
// @Summary List boxes with occupancy
// @Tags Boxes
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /boxes [get]
func (h *BoxHandler) List(c *gin.Context) {
	boxes, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, boxes, map[string]interface{}{"total": len(boxes)})
}

// Get godoc
// @Summary Get box
// @Tags Boxes
// @Produce json
// @Param boxNo path int true "Box number"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /boxes/{boxNo} [get]
func (h *BoxHandler) Get(c *gin.Context) {
	boxNo, ok := intParam(c, "boxNo", "load box")
	if !ok {
		return
	}
	box, err := h.service.Get(c.Request.Context(), boxNo)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, box)
}

// Create godoc
// @Summary Create box
// @Tags Boxes
// @Accept json
// @Produce json
// @Param payload body dto.CreateBoxRequest true "Box payload"
// @Success 201 {object} response.Envelope
// @Router /boxes [post]
func (h *BoxHandler) Create(c *gin.Context) {
	var req dto.CreateBoxRequest
	if !bindJSON(c, &req, "create box") {
		return
	}
	box, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, box)
}

// Update godoc
// @Summary Update box description and capacity
// @Tags Boxes
// @Accept json
// @Produce json
// @Param boxNo path int true "Box number"
// @Param payload body dto.UpdateBoxRequest true "Box payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /boxes/{boxNo} [put]
func (h *BoxHandler) Update(c *gin.Context) {
	boxNo, ok := intParam(c, "boxNo", "resize box")
	if !ok {
		return
	}
	var req dto.UpdateBoxRequest
	if !bindJSON(c, &req, "resize box") {
		return
	}
	box, err := h.service.Resize(c.Request.Context(), boxNo, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, box)
}

// Delete godoc
// @Summary Delete an empty box
// @Tags Boxes
// @Param boxNo path int true "Box number"
// @Success 204
// @Failure 400 {object} response.Envelope
// @Router /boxes/{boxNo} [delete]
func (h *BoxHandler) Delete(c *gin.Context) {
	boxNo, ok := intParam(c, "boxNo", "delete box")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), boxNo); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Contents godoc
// @Summary List the stock stored in a box
// @Tags Boxes
// @Produce json
// @Param boxNo path int true "Box number"
// @Success 200 {object} response.Envelope
// @Router /boxes/{boxNo}/contents [get]
func (h *BoxHandler) Contents(c *gin.Context) {
	boxNo, ok := intParam(c, "boxNo", "list box contents")
	if !ok {
		return
	}
	entries, err := h.service.Contents(c.Request.Context(), boxNo)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries)
}
