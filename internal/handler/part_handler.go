package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/parts-inventory-api/internal/dto"
	"github.com/noah-isme/parts-inventory-api/internal/models"
	appErrors "github.com/noah-isme/parts-inventory-api/pkg/errors"
	"github.com/noah-isme/parts-inventory-api/pkg/response"
)

type partService interface {
	Create(ctx context.Context, req dto.CreatePartRequest) (*models.Part, error)
	Get(ctx context.Context, key string) (*models.Part, error)
	List(ctx context.Context, query dto.PartQuery) ([]models.Part, error)
	Update(ctx context.Context, key string, req dto.UpdatePartRequest) (*models.Part, error)
	Delete(ctx context.Context, key string) error
}

// PartHandler handles part catalogue endpoints.
type PartHandler struct {
	service partService
}

// NewPartHandler constructs a part handler.
func NewPartHandler(svc partService) *PartHandler {
	return &PartHandler{service: svc}
}

// List godoc
// @Summary List parts
// @Tags Parts
// @Produce json
// @Param q query string false "Search key, name or description"
// @Param type query string false "Filter by part type"
// @Param tag query string false "Filter by tag"
// @Success 200 {object} response.Envelope
// @Router /parts [get]
func (h *PartHandler) List(c *gin.Context) {
	var query dto.PartQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.InvalidOperation("list parts", "invalid query: "+err.Error()))
		return
	}
	parts, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, parts, map[string]interface{}{"total": len(parts)})
}

// Get godoc
// @Summary Get part by key
// @Tags Parts
// @Produce json
// @Param key path string true "Part key"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /parts/{key} [get]
func (h *PartHandler) Get(c *gin.Context) {
	part, err := h.service.Get(c.Request.Context(), partKeyParam(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, part)
}

// Create godoc
// @Summary Create part
// @Description The part key is generated by the server.
// @Tags Parts
// @Accept json
// @Produce json
// @Param payload body dto.CreatePartRequest true "Part payload"
// @Success 201 {object} response.Envelope
// @Router /parts [post]
func (h *PartHandler) Create(c *gin.Context) {
	var req dto.CreatePartRequest
	if !bindJSON(c, &req, "create part") {
		return
	}
	part, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, part)
}

// Update godoc
// @Summary Update part
// @Tags Parts
// @Accept json
// @Produce json
// @Param key path string true "Part key"
// @Param payload body dto.UpdatePartRequest true "Part payload"
// @Success 200 {object} response.Envelope
// @Router /parts/{key} [put]
func (h *PartHandler) Update(c *gin.Context) {
	var req dto.UpdatePartRequest
	if !bindJSON(c, &req, "update part") {
		return
	}
	part, err := h.service.Update(c.Request.Context(), partKeyParam(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, part)
}

// Delete godoc
// @Summary Delete part with its stock and attachments
// @Tags Parts
// @Param key path string true "Part key"
// @Success 204
// @Router /parts/{key} [delete]
func (h *PartHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), partKeyParam(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
