package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/parts-inventory-api/internal/dto"
	"github.com/noah-isme/parts-inventory-api/internal/models"
	"github.com/noah-isme/parts-inventory-api/pkg/response"
)

type kitService interface {
	Create(ctx context.Context, req dto.CreateKitRequest) (*models.Kit, error)
	Get(ctx context.Context, id string) (*models.Kit, error)
	List(ctx context.Context) ([]models.Kit, error)
	Delete(ctx context.Context, id string) error
}

// KitHandler handles kit endpoints.
type KitHandler struct {
	service kitService
}

// NewKitHandler constructs a kit handler.
func NewKitHandler(svc kitService) *KitHandler {
	return &KitHandler{service: svc}
}

// List godoc
// @Summary List kits
// @Tags Kits
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /kits [get]
func (h *KitHandler) List(c *gin.Context) {
	kits, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, kits)
}

// Get godoc
// @Summary Get kit
// @Tags Kits
// @Produce json
// @Param id path string true "Kit ID"
// @Success 200 {object} response.Envelope
// @Router /kits/{id} [get]
func (h *KitHandler) Get(c *gin.Context) {
	kit, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, kit)
}

// Create godoc
// @Summary Create kit
// @Tags Kits
// @Accept json
// @Produce json
// @Param payload body dto.CreateKitRequest true "Kit payload"
// @Success 201 {object} response.Envelope
// @Router /kits [post]
func (h *KitHandler) Create(c *gin.Context) {
	var req dto.CreateKitRequest
	if !bindJSON(c, &req, "create kit") {
		return
	}
	kit, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, kit)
}

// Delete godoc
// @Summary Delete kit and its attachments
// @Tags Kits
// @Param id path string true "Kit ID"
// @Success 204
// @Router /kits/{id} [delete]
func (h *KitHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
