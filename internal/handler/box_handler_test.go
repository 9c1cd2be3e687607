package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/parts-inventory-api/internal/dto"
	"github.com/noah-isme/parts-inventory-api/internal/models"
	appErrors "github.com/noah-isme/parts-inventory-api/pkg/errors"
)

type boxServiceMock struct {
	box         *models.Box
	err         error
	lastBoxNo   int
	lastCreate  dto.CreateBoxRequest
	lastResize  dto.UpdateBoxRequest
	deleteCalls int
}

func (m *boxServiceMock) Create(ctx context.Context, req dto.CreateBoxRequest) (*models.Box, error) {
	m.lastCreate = req
	return m.box, m.err
}

func (m *boxServiceMock) Resize(ctx context.Context, boxNo int, req dto.UpdateBoxRequest) (*models.Box, error) {
	m.lastBoxNo = boxNo
	m.lastResize = req
	return m.box, m.err
}

func (m *boxServiceMock) Delete(ctx context.Context, boxNo int) error {
	m.lastBoxNo = boxNo
	m.deleteCalls++
	return m.err
}

func (m *boxServiceMock) Get(ctx context.Context, boxNo int) (*models.Box, error) {
	m.lastBoxNo = boxNo
	return m.box, m.err
}

func (m *boxServiceMock) List(ctx context.Context) ([]models.BoxSummary, error) {
	if m.box == nil {
		return nil, m.err
	}
	return []models.BoxSummary{{Box: *m.box, OccupiedLocations: 1}}, m.err
}

func (m *boxServiceMock) Contents(ctx context.Context, boxNo int) ([]models.StockEntry, error) {
	m.lastBoxNo = boxNo
	return []models.StockEntry{{PartKey: "ABCD", BoxNo: boxNo, LocNo: 1, Quantity: 3}}, m.err
}

// newTestContext builds a gin context for a handler call with optional JSON body and path params.
func newTestContext(method, target, body string, params ...gin.Param) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	c.Request = req
	c.Params = params
	return c, w
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Meta map[string]interface{} `json:"meta"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestBoxHandlerCreate(t *testing.T) {
	mockSvc := &boxServiceMock{box: &models.Box{BoxNo: 1, Capacity: 4}}
	handler := NewBoxHandler(mockSvc)

	c, w := newTestContext(http.MethodPost, "/boxes", `{"description":"Resistors","capacity":4}`)
	handler.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, dto.CreateBoxRequest{Description: "Resistors", Capacity: 4}, mockSvc.lastCreate)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	var box models.Box
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &box))
	assert.Equal(t, 1, box.BoxNo)
}

func TestBoxHandlerRejectsBadInput(t *testing.T) {
	handler := NewBoxHandler(&boxServiceMock{})

	c, w := newTestContext(http.MethodPost, "/boxes", `{"capacity":`)
	handler.Create(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, appErrors.CodeInvalidOperation, decodeEnvelope(t, w).Error.Code)

	c, w = newTestContext(http.MethodGet, "/boxes/abc", "", gin.Param{Key: "boxNo", Value: "abc"})
	handler.Get(c)
	require.Equal(t, http.StatusBadRequest, w.Code)

	c, w = newTestContext(http.MethodDelete, "/boxes/0", "", gin.Param{Key: "boxNo", Value: "0"})
	handler.Delete(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBoxHandlerMapsServiceErrors(t *testing.T) {
	mockSvc := &boxServiceMock{err: appErrors.NotFound("Box", "7")}
	handler := NewBoxHandler(mockSvc)

	c, w := newTestContext(http.MethodGet, "/boxes/7", "", gin.Param{Key: "boxNo", Value: "7"})
	handler.Get(c)
	require.Equal(t, http.StatusNotFound, w.Code)
	env := decodeEnvelope(t, w)
	assert.Equal(t, appErrors.CodeNotFound, env.Error.Code)
	assert.Equal(t, "Box 7 not found", env.Error.Message)

	mockSvc.err = appErrors.InvalidOperation("delete box", "Box 7 contains parts, which must be moved or removed first")
	c, w = newTestContext(http.MethodDelete, "/boxes/7", "", gin.Param{Key: "boxNo", Value: "7"})
	handler.Delete(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 1, mockSvc.deleteCalls)
}

func TestBoxHandlerUpdateAndContents(t *testing.T) {
	mockSvc := &boxServiceMock{box: &models.Box{BoxNo: 2, Capacity: 6}}
	handler := NewBoxHandler(mockSvc)

	c, w := newTestContext(http.MethodPut, "/boxes/2", `{"description":"Caps","capacity":6}`, gin.Param{Key: "boxNo", Value: "2"})
	handler.Update(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, mockSvc.lastBoxNo)
	assert.Equal(t, 6, mockSvc.lastResize.Capacity)

	c, w = newTestContext(http.MethodGet, "/boxes/2/contents", "", gin.Param{Key: "boxNo", Value: "2"})
	handler.Contents(c)
	require.Equal(t, http.StatusOK, w.Code)
	var entries []models.StockEntry
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "ABCD", entries[0].PartKey)

	c, w = newTestContext(http.MethodGet, "/boxes", "")
	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decodeEnvelope(t, w).Meta["total"])
}
