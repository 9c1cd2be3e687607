package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/parts-inventory-api/internal/service"
	"github.com/noah-isme/parts-inventory-api/pkg/response"
)

type exportService interface {
	BoxContents(ctx context.Context, boxNo int, format string) (*service.ExportResult, error)
	PartStock(ctx context.Context, partKey string, format string) (*service.ExportResult, error)
}

// ExportHandler renders stock reports.
type ExportHandler struct {
	service exportService
}

// NewExportHandler constructs an export handler.
func NewExportHandler(svc exportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// BoxContents godoc
// @Summary Export box contents
// @Tags Exports
// @Produce text/csv,application/pdf
// @Param boxNo path int true "Box number"
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} binary
// @Router /boxes/{boxNo}/export [get]
func (h *ExportHandler) BoxContents(c *gin.Context) {
	boxNo, ok := intParam(c, "boxNo", "export box contents")
	if !ok {
		return
	}
	result, err := h.service.BoxContents(c.Request.Context(), boxNo, c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	writeExport(c, result)
}

// PartStock godoc
// @Summary Export part stock
// @Tags Exports
// @Produce text/csv,application/pdf
// @Param key path string true "Part key"
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} binary
// @Router /parts/{key}/stock/export [get]
func (h *ExportHandler) PartStock(c *gin.Context) {
	result, err := h.service.PartStock(c.Request.Context(), partKeyParam(c), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	writeExport(c, result)
}

func writeExport(c *gin.Context, result *service.ExportResult) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, result.ContentType, result.Data)
}
