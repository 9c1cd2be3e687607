package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/parts-inventory-api/internal/service"
	appErrors "github.com/noah-isme/parts-inventory-api/pkg/errors"
)

type exportServiceMock struct {
	format string
	err    error
}

func (m *exportServiceMock) BoxContents(ctx context.Context, boxNo int, format string) (*service.ExportResult, error) {
	m.format = format
	if m.err != nil {
		return nil, m.err
	}
	return &service.ExportResult{Filename: "box-1.csv", ContentType: "text/csv", Data: []byte("Location,Part,Quantity\n")}, nil
}

func (m *exportServiceMock) PartStock(ctx context.Context, partKey string, format string) (*service.ExportResult, error) {
	m.format = format
	if m.err != nil {
		return nil, m.err
	}
	return &service.ExportResult{Filename: "part-abcd.pdf", ContentType: "application/pdf", Data: []byte("%PDF")}, nil
}

func TestExportHandler(t *testing.T) {
	mockSvc := &exportServiceMock{}
	handler := NewExportHandler(mockSvc)

	c, w := newTestContext(http.MethodGet, "/boxes/1/export", "", gin.Param{Key: "boxNo", Value: "1"})
	handler.BoxContents(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="box-1.csv"`, w.Header().Get("Content-Disposition"))

	c, w = newTestContext(http.MethodGet, "/parts/ABCD/stock/export?format=pdf", "", gin.Param{Key: "key", Value: "ABCD"})
	handler.PartStock(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pdf", mockSvc.format)

	mockSvc.err = appErrors.InvalidOperation("export part stock", `unsupported export format "xlsx"`)
	c, w = newTestContext(http.MethodGet, "/parts/ABCD/stock/export?format=xlsx", "", gin.Param{Key: "key", Value: "ABCD"})
	handler.PartStock(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
