package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/parts-inventory-api/internal/dto"
	"github.com/noah-isme/parts-inventory-api/internal/models"
	appErrors "github.com/noah-isme/parts-inventory-api/pkg/errors"
	"github.com/noah-isme/parts-inventory-api/pkg/response"
)

type stockService interface {
	AddStock(ctx context.Context, partKey string, boxNo, locNo, qty int) (*models.StockEntry, error)
	RemoveStock(ctx context.Context, partKey string, boxNo, locNo, qty int) (*models.StockEntry, error)
	MoveStock(ctx context.Context, partKey string, srcBox, srcLoc, dstBox, dstLoc, qty int) (*models.MoveResult, error)
	PartStock(ctx context.Context, partKey string) (*models.PartStock, error)
	SuggestLocation(ctx context.Context, preferredBox *int) (*models.LocationRef, error)
	History(ctx context.Context, partKey string, limit int) ([]models.QuantityHistory, error)
}

// StockHandler exposes stock mutations and queries for a part.
type StockHandler struct {
	service stockService
}

// NewStockHandler constructs a stock handler.
func NewStockHandler(svc stockService) *StockHandler {
	return &StockHandler{service: svc}
}

func partKeyParam(c *gin.Context) string {
	return strings.ToUpper(strings.TrimSpace(c.Param("key")))
}

// Stock godoc
// @Summary Get locations and total quantity of a part
// @Tags Stock
// @Produce json
// @Param key path string true "Part key"
// @Success 200 {object} response.Envelope
// @Router /parts/{key}/stock [get]
func (h *StockHandler) Stock(c *gin.Context) {
	stock, err := h.service.PartStock(c.Request.Context(), partKeyParam(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stock)
}

// Add godoc
// @Summary Add quantity of a part at a location
// @Tags Stock
// @Accept json
// @Produce json
// @Param key path string true "Part key"
// @Param payload body dto.StockMutationRequest true "Location and quantity"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /parts/{key}/stock/add [post]
func (h *StockHandler) Add(c *gin.Context) {
	var req dto.StockMutationRequest
	if !bindJSON(c, &req, "add stock") {
		return
	}
	entry, err := h.service.AddStock(c.Request.Context(), partKeyParam(c), req.BoxNo, req.LocNo, req.Quantity)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry)
}

// Remove godoc
// @Summary Remove quantity of a part from a location
// @Description Data is null when the location no longer holds the part.
// @Tags Stock
// @Accept json
// @Produce json
// @Param key path string true "Part key"
// @Param payload body dto.StockMutationRequest true "Location and quantity"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /parts/{key}/stock/remove [post]
func (h *StockHandler) Remove(c *gin.Context) {
	var req dto.StockMutationRequest
	if !bindJSON(c, &req, "remove stock") {
		return
	}
	entry, err := h.service.RemoveStock(c.Request.Context(), partKeyParam(c), req.BoxNo, req.LocNo, req.Quantity)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry)
}

// Move godoc
// @Summary Move quantity of a part between locations
// @Tags Stock
// @Accept json
// @Produce json
// @Param key path string true "Part key"
// @Param payload body dto.StockMoveRequest true "Source, destination and quantity"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /parts/{key}/stock/move [post]
func (h *StockHandler) Move(c *gin.Context) {
	var req dto.StockMoveRequest
	if !bindJSON(c, &req, "move stock") {
		return
	}
	result, err := h.service.MoveStock(c.Request.Context(), partKeyParam(c),
		req.SourceBoxNo, req.SourceLocNo, req.DestinationBoxNo, req.DestinationLocNo, req.Quantity)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// History godoc
// @Summary Quantity history of a part, newest first
// @Tags Stock
// @Produce json
// @Param key path string true "Part key"
// @Param limit query int false "Maximum entries"
// @Success 200 {object} response.Envelope
// @Router /parts/{key}/history [get]
func (h *StockHandler) History(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, appErrors.InvalidOperation("read history", "limit must be an integer"))
			return
		}
		limit = parsed
	}
	history, err := h.service.History(c.Request.Context(), partKeyParam(c), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, history)
}

// Suggest godoc
// @Summary Suggest the lowest free location
// @Description Data is null when every location is occupied.
// @Tags Stock
// @Produce json
// @Param box_no query int false "Preferred box"
// @Success 200 {object} response.Envelope
// @Router /locations/suggest [get]
func (h *StockHandler) Suggest(c *gin.Context) {
	var query dto.SuggestLocationQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.InvalidOperation("suggest location", "invalid query: "+err.Error()))
		return
	}
	loc, err := h.service.SuggestLocation(c.Request.Context(), query.BoxNo)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, loc)
}
