package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/skolaris/skolaris-api/internal/models"
	appErrors "github.com/skolaris/skolaris-api/pkg/errors"
	"github.com/skolaris/skolaris-api/pkg/response"
)

type dataService interface {
	Select(ctx context.Context, table string, values url.Values, single bool) (interface{}, error)
	Insert(ctx context.Context, table string, body json.RawMessage) (interface{}, error)
	Update(ctx context.Context, table string, values url.Values, body json.RawMessage) ([]models.Record, error)
	Delete(ctx context.Context, table string, values url.Values) (*models.DeleteResult, error)
}

// DataHandler exposes the generic table endpoints.
type DataHandler struct {
	service dataService
}

// NewDataHandler constructs a data handler.
func NewDataHandler(svc dataService) *DataHandler {
	return &DataHandler{service: svc}
}

// Get godoc
// @Summary Query a table
// @Description Read rows from an allow-listed table using filter predicates
// @Tags Tables
// @Produce json
// @Param table path string true "Table name"
// @Param select query string false "Column list or *"
// @Param eq query string false "Equality predicate as [field, value] tuple (repeatable)"
// @Param neq query string false "Not-equal predicate"
// @Param in query string false "Membership predicate, value must be an array"
// @Param gt query string false "Greater-than predicate"
// @Param lt query string false "Less-than predicate"
// @Param gte query string false "Greater-or-equal predicate"
// @Param lte query string false "Less-or-equal predicate"
// @Param order query string false "column or column,asc"
// @Param limit query int false "Row limit, 1-1000"
// @Param single query bool false "Return exactly one record"
// @Success 200 {object} response.Envelope
// @Router /tables/{table} [get]
func (h *DataHandler) Get(c *gin.Context) {
	single, _ := strconv.ParseBool(c.Query("single"))

	result, err := h.service.Select(c.Request.Context(), c.Param("table"), c.Request.URL.Query(), single)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Post godoc
// @Summary Insert into a table
// @Description Insert one object or an array of objects as a single statement
// @Tags Tables
// @Accept json
// @Produce json
// @Param table path string true "Table name"
// @Success 201 {object} response.Envelope
// @Router /tables/{table} [post]
func (h *DataHandler) Post(c *gin.Context) {
	body, err := readBody(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.service.Insert(c.Request.Context(), c.Param("table"), body)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Patch godoc
// @Summary Update rows in a table
// @Description Apply a SET payload to rows matched by eq/neq/in predicates
// @Tags Tables
// @Accept json
// @Produce json
// @Param table path string true "Table name"
// @Success 200 {object} response.Envelope
// @Router /tables/{table} [patch]
func (h *DataHandler) Patch(c *gin.Context) {
	body, err := readBody(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	records, err := h.service.Update(c.Request.Context(), c.Param("table"), c.Request.URL.Query(), body)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// Delete godoc
// @Summary Delete rows from a table
// @Description Delete rows matched by eq/neq/in predicates; refuses an empty WHERE
// @Tags Tables
// @Produce json
// @Param table path string true "Table name"
// @Success 200 {object} response.Envelope
// @Router /tables/{table} [delete]
func (h *DataHandler) Delete(c *gin.Context) {
	result, err := h.service.Delete(c.Request.Context(), c.Param("table"), c.Request.URL.Query())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

func readBody(c *gin.Context) (json.RawMessage, error) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "failed to read request body")
	}
	if len(raw) == 0 || !json.Valid(raw) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "request body must be valid JSON")
	}
	return raw, nil
}
