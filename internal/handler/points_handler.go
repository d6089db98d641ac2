package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gema-points-api/internal/models"
	"github.com/noah-isme/gema-points-api/internal/service"
	appErrors "github.com/noah-isme/gema-points-api/pkg/errors"
	"github.com/noah-isme/gema-points-api/pkg/response"
)

// PointsHandler exposes the award, balance and history endpoints.
type PointsHandler struct {
	awards *service.AwardService
}

// NewPointsHandler constructs PointsHandler.
func NewPointsHandler(awards *service.AwardService) *PointsHandler {
	return &PointsHandler{awards: awards}
}

// Award godoc
// @Summary Award or deduct points
// @Description Records a point event for a student within the category bounds
// @Tags Points
// @Accept json
// @Produce json
// @Param payload body service.AwardRequest true "Award payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /points/awards [post]
func (h *PointsHandler) Award(c *gin.Context) {
	var req service.AwardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid award payload"))
		return
	}
	req.ActorID = actorIDFromContext(c)

	event, err := h.awards.Award(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, event)
}

// Balance godoc
// @Summary Current point balance
// @Description Balance is derived from the ledger, never stored
// @Tags Points
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/balance [get]
func (h *PointsHandler) Balance(c *gin.Context) {
	studentID := c.Param("id")
	balance, err := h.awards.Balance(c.Request.Context(), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, models.StudentBalance{StudentID: studentID, Balance: balance}, nil)
}

// History godoc
// @Summary Point event history
// @Tags Points
// @Produce json
// @Param id path string true "Student ID"
// @Param category query string false "Filter by category"
// @Param from query string false "Date from (YYYY-MM-DD)"
// @Param to query string false "Date to (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/points [get]
func (h *PointsHandler) History(c *gin.Context) {
	var filter models.PointEventFilter
	filter.StudentID = c.Param("id")
	filter.CategoryID = c.Query("category")
	filter.DateFrom = parseDateQuery(c, "from")
	filter.DateTo = parseDateQuery(c, "to")
	filter.Page, filter.PageSize = parsePage(c)

	events, pagination, err := h.awards.History(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events, pagination)
}
