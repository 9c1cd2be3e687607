package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/parts-inventory-api/internal/models"
	appErrors "github.com/noah-isme/parts-inventory-api/pkg/errors"
)

type stockCall struct {
	op                             string
	key                            string
	box, loc, dstBox, dstLoc, qty int
}

type stockServiceMock struct {
	calls        []stockCall
	err          error
	entry        *models.StockEntry
	suggestion   *models.LocationRef
	lastPrefer   *int
	historyLimit int
}

func (m *stockServiceMock) AddStock(ctx context.Context, partKey string, boxNo, locNo, qty int) (*models.StockEntry, error) {
	m.calls = append(m.calls, stockCall{op: "add", key: partKey, box: boxNo, loc: locNo, qty: qty})
	return m.entry, m.err
}

func (m *stockServiceMock) RemoveStock(ctx context.Context, partKey string, boxNo, locNo, qty int) (*models.StockEntry, error) {
	m.calls = append(m.calls, stockCall{op: "remove", key: partKey, box: boxNo, loc: locNo, qty: qty})
	return m.entry, m.err
}

func (m *stockServiceMock) MoveStock(ctx context.Context, partKey string, srcBox, srcLoc, dstBox, dstLoc, qty int) (*models.MoveResult, error) {
	m.calls = append(m.calls, stockCall{op: "move", key: partKey, box: srcBox, loc: srcLoc, dstBox: dstBox, dstLoc: dstLoc, qty: qty})
	if m.err != nil {
		return nil, m.err
	}
	return &models.MoveResult{Destination: m.entry}, nil
}

func (m *stockServiceMock) PartStock(ctx context.Context, partKey string) (*models.PartStock, error) {
	return &models.PartStock{PartKey: partKey, Total: 5}, m.err
}

func (m *stockServiceMock) SuggestLocation(ctx context.Context, preferredBox *int) (*models.LocationRef, error) {
	m.lastPrefer = preferredBox
	return m.suggestion, m.err
}

func (m *stockServiceMock) History(ctx context.Context, partKey string, limit int) ([]models.QuantityHistory, error) {
	m.historyLimit = limit
	return []models.QuantityHistory{}, m.err
}

func TestStockHandlerMutations(t *testing.T) {
	mockSvc := &stockServiceMock{entry: &models.StockEntry{PartKey: "ABCD", BoxNo: 1, LocNo: 2, Quantity: 5}}
	handler := NewStockHandler(mockSvc)
	key := gin.Param{Key: "key", Value: "abcd"}

	c, w := newTestContext(http.MethodPost, "/parts/abcd/stock/add", `{"box_no":1,"loc_no":2,"quantity":5}`, key)
	handler.Add(c)
	require.Equal(t, http.StatusOK, w.Code)

	c, w = newTestContext(http.MethodPost, "/parts/abcd/stock/remove", `{"box_no":1,"loc_no":2,"quantity":2}`, key)
	handler.Remove(c)
	require.Equal(t, http.StatusOK, w.Code)

	c, w = newTestContext(http.MethodPost, "/parts/abcd/stock/move",
		`{"source_box_no":1,"source_loc_no":2,"destination_box_no":3,"destination_loc_no":4,"quantity":1}`, key)
	handler.Move(c)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, []stockCall{
		{op: "add", key: "ABCD", box: 1, loc: 2, qty: 5},
		{op: "remove", key: "ABCD", box: 1, loc: 2, qty: 2},
		{op: "move", key: "ABCD", box: 1, loc: 2, dstBox: 3, dstLoc: 4, qty: 1},
	}, mockSvc.calls)
}

func TestStockHandlerRemoveToZeroReturnsNull(t *testing.T) {
	handler := NewStockHandler(&stockServiceMock{})

	c, w := newTestContext(http.MethodPost, "/parts/ABCD/stock/remove", `{"box_no":1,"loc_no":1,"quantity":3}`, gin.Param{Key: "key", Value: "ABCD"})
	handler.Remove(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "null", string(decodeEnvelope(t, w).Data))
}

func TestStockHandlerInsufficientQuantity(t *testing.T) {
	handler := NewStockHandler(&stockServiceMock{err: appErrors.InsufficientQuantity(10, 5, "1-1")})

	c, w := newTestContext(http.MethodPost, "/parts/ABCD/stock/remove", `{"box_no":1,"loc_no":1,"quantity":10}`, gin.Param{Key: "key", Value: "ABCD"})
	handler.Remove(c)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, appErrors.CodeInsufficientQuantity, decodeEnvelope(t, w).Error.Code)
}

func TestStockHandlerMissingLocationFields(t *testing.T) {
	mockSvc := &stockServiceMock{}
	handler := NewStockHandler(mockSvc)

	c, w := newTestContext(http.MethodPost, "/parts/ABCD/stock/add", `{"quantity":1}`, gin.Param{Key: "key", Value: "ABCD"})
	handler.Add(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, mockSvc.calls)
}

func TestStockHandlerSuggestAndHistory(t *testing.T) {
	mockSvc := &stockServiceMock{suggestion: &models.LocationRef{BoxNo: 2, LocNo: 1}}
	handler := NewStockHandler(mockSvc)

	c, w := newTestContext(http.MethodGet, "/locations/suggest?box_no=2", "")
	handler.Suggest(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, mockSvc.lastPrefer)
	assert.Equal(t, 2, *mockSvc.lastPrefer)
	var loc models.LocationRef
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &loc))
	assert.Equal(t, models.LocationRef{BoxNo: 2, LocNo: 1}, loc)

	c, w = newTestContext(http.MethodGet, "/locations/suggest", "")
	handler.Suggest(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, mockSvc.lastPrefer)

	c, w = newTestContext(http.MethodGet, "/parts/ABCD/history?limit=5", "", gin.Param{Key: "key", Value: "ABCD"})
	handler.History(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, mockSvc.historyLimit)

	c, w = newTestContext(http.MethodGet, "/parts/ABCD/history?limit=x", "", gin.Param{Key: "key", Value: "ABCD"})
	handler.History(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
