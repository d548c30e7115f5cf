package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skolaris/skolaris-api/internal/models"
	appErrors "github.com/skolaris/skolaris-api/pkg/errors"
	"github.com/skolaris/skolaris-api/pkg/response"
)

type dataServiceMock struct {
	selectResp interface{}
	selectErr  error
	insertResp interface{}
	insertErr  error
	updateResp []models.Record
	updateErr  error
	deleteResp *models.DeleteResult
	deleteErr  error

	lastTable  string
	lastSingle bool
	lastValues url.Values
	lastBody   json.RawMessage
}

func (m *dataServiceMock) Select(ctx context.Context, table string, values url.Values, single bool) (interface{}, error) {
	m.lastTable = table
	m.lastValues = values
	m.lastSingle = single
	return m.selectResp, m.selectErr
}

func (m *dataServiceMock) Insert(ctx context.Context, table string, body json.RawMessage) (interface{}, error) {
	m.lastTable = table
	m.lastBody = body
	return m.insertResp, m.insertErr
}

func (m *dataServiceMock) Update(ctx context.Context, table string, values url.Values, body json.RawMessage) ([]models.Record, error) {
	m.lastTable = table
	m.lastValues = values
	m.lastBody = body
	return m.updateResp, m.updateErr
}

func (m *dataServiceMock) Delete(ctx context.Context, table string, values url.Values) (*models.DeleteResult, error) {
	m.lastTable = table
	m.lastValues = values
	return m.deleteResp, m.deleteErr
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) response.Envelope {
	t.Helper()
	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	return envelope
}

func TestDataHandlerGet(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &dataServiceMock{selectResp: []models.Record{{"id": "s1"}}}
	handler := NewDataHandler(mock)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, `/tables/students?eq=["level","10"]&limit=5`, nil)
	c.Params = gin.Params{{Key: "table", Value: "students"}}

	handler.Get(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "students", mock.lastTable)
	assert.False(t, mock.lastSingle)
	assert.Equal(t, `["level","10"]`, mock.lastValues.Get("eq"))
}

func TestDataHandlerGetSingle(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &dataServiceMock{selectResp: models.Record{"id": "s1"}}
	handler := NewDataHandler(mock)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/tables/students?single=true", nil)
	c.Params = gin.Params{{Key: "table", Value: "students"}}

	handler.Get(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mock.lastSingle)
}

func TestDataHandlerGetUnknownTable(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &dataServiceMock{selectErr: appErrors.ErrUnknownTable}
	handler := NewDataHandler(mock)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/tables/evil_table", nil)
	c.Params = gin.Params{{Key: "table", Value: "evil_table"}}

	handler.Get(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	envelope := decodeEnvelope(t, w)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, appErrors.ErrUnknownTable.Code, envelope.Error.Code)
}

func TestDataHandlerPost(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &dataServiceMock{insertResp: models.Record{"id": "s9"}}
	handler := NewDataHandler(mock)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body := []byte(`{"full_name":"Raka","level":"10"}`)
	c.Request = httptest.NewRequest(http.MethodPost, "/tables/students", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "table", Value: "students"}}

	handler.Post(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, string(body), string(mock.lastBody))
}

func TestDataHandlerPostInvalidJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &dataServiceMock{}
	handler := NewDataHandler(mock)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/tables/students", bytes.NewReader([]byte(`{"broken`)))
	c.Params = gin.Params{{Key: "table", Value: "students"}}

	handler.Post(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, mock.lastTable)
}

func TestDataHandlerPostGateRejection(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &dataServiceMock{insertErr: appErrors.ErrYearArchived}
	handler := NewDataHandler(mock)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/tables/grades", bytes.NewReader([]byte(`{"academic_year_id":"y-old","score":90}`)))
	c.Params = gin.Params{{Key: "table", Value: "grades"}}

	handler.Post(c)

	require.Equal(t, http.StatusForbidden, w.Code)
	envelope := decodeEnvelope(t, w)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "YEAR_ARCHIVED", envelope.Error.Code)
}

func TestDataHandlerPatch(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &dataServiceMock{updateResp: []models.Record{{"id": "s1", "level": "11"}}}
	handler := NewDataHandler(mock)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPatch, `/tables/students?eq=["id","s1"]`, bytes.NewReader([]byte(`{"level":"11"}`)))
	c.Params = gin.Params{{Key: "table", Value: "students"}}

	handler.Patch(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `["id","s1"]`, mock.lastValues.Get("eq"))
}

func TestDataHandlerPatchEmptyBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &dataServiceMock{}
	handler := NewDataHandler(mock)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPatch, `/tables/students?eq=["id","s1"]`, bytes.NewReader(nil))
	c.Params = gin.Params{{Key: "table", Value: "students"}}

	handler.Patch(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, mock.lastTable)
}

func TestDataHandlerDelete(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &dataServiceMock{deleteResp: &models.DeleteResult{Message: "deleted 2 row(s) from students", RowCount: 2}}
	handler := NewDataHandler(mock)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodDelete, `/tables/students?eq=["level","10"]`, nil)
	c.Params = gin.Params{{Key: "table", Value: "students"}}

	handler.Delete(c)

	require.Equal(t, http.StatusOK, w.Code)
	envelope := decodeEnvelope(t, w)
	payload, ok := envelope.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(2), payload["rowCount"])
}

func TestDataHandlerDeleteWithoutFilters(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &dataServiceMock{deleteErr: appErrors.Clone(appErrors.ErrMalformedFilter, "delete requires at least one filter predicate")}
	handler := NewDataHandler(mock)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodDelete, "/tables/students", nil)
	c.Params = gin.Params{{Key: "table", Value: "students"}}

	handler.Delete(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}
