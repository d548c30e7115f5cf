package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/skolaris/skolaris-api/internal/models"
	"github.com/skolaris/skolaris-api/internal/service"
	appErrors "github.com/skolaris/skolaris-api/pkg/errors"
	"github.com/skolaris/skolaris-api/pkg/response"
)

type yearService interface {
	List(ctx context.Context, filter models.YearFilter) ([]models.AcademicYear, *models.Pagination, error)
	Create(ctx context.Context, req service.CreateYearRequest, actor *models.JWTClaims) (*models.AcademicYear, error)
	Get(ctx context.Context, id string) (*models.AcademicYear, error)
	Status(ctx context.Context, id string) (*models.YearStatus, error)
	Activate(ctx context.Context, id string, actor *models.JWTClaims) (*models.AcademicYear, error)
	Archive(ctx context.Context, id string, actor *models.JWTClaims) (*models.ArchiveResult, error)
}

// YearHandler exposes academic-year lifecycle endpoints.
type YearHandler struct {
	service yearService
}

// NewYearHandler constructs a year handler.
func NewYearHandler(svc yearService) *YearHandler {
	return &YearHandler{service: svc}
}

// List godoc
// @Summary List academic years
// @Tags Years
// @Produce json
// @Param isCurrent query bool false "Filter by current flag"
// @Param isArchived query bool false "Filter by archived flag"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /years [get]
func (h *YearHandler) List(c *gin.Context) {
	var filter models.YearFilter
	if raw := c.Query("isCurrent"); raw != "" {
		if val, err := strconv.ParseBool(raw); err == nil {
			filter.IsCurrent = &val
		}
	}
	if raw := c.Query("isArchived"); raw != "" {
		if val, err := strconv.ParseBool(raw); err == nil {
			filter.IsArchived = &val
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	years, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, years, pagination)
}

// Create godoc
// @Summary Create an academic year
// @Tags Years
// @Accept json
// @Produce json
// @Param payload body service.CreateYearRequest true "Year payload"
// @Success 201 {object} response.Envelope
// @Router /years [post]
func (h *YearHandler) Create(c *gin.Context) {
	var req service.CreateYearRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	year, err := h.service.Create(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, year)
}

// Get godoc
// @Summary Get an academic year
// @Tags Years
// @Produce json
// @Param id path string true "Year ID"
// @Success 200 {object} response.Envelope
// @Router /years/{id} [get]
func (h *YearHandler) Get(c *gin.Context) {
	year, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, year, nil)
}

// Status godoc
// @Summary Get the lifecycle status of a year
// @Tags Years
// @Produce json
// @Param id path string true "Year ID"
// @Success 200 {object} response.Envelope
// @Router /years/{id}/status [get]
func (h *YearHandler) Status(c *gin.Context) {
	status, err := h.service.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// Activate godoc
// @Summary Activate an academic year
// @Description Makes the year the single current one; archived years are refused
// @Tags Years
// @Produce json
// @Param id path string true "Year ID"
// @Success 200 {object} response.Envelope
// @Router /years/{id}/activate [post]
func (h *YearHandler) Activate(c *gin.Context) {
	year, err := h.service.Activate(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, year, nil)
}

// Archive godoc
// @Summary Archive an academic year
// @Description Snapshots every grade of the year and freezes it permanently
// @Tags Years
// @Produce json
// @Param id path string true "Year ID"
// @Success 200 {object} response.Envelope
// @Router /years/{id}/archive [post]
func (h *YearHandler) Archive(c *gin.Context) {
	result, err := h.service.Archive(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
