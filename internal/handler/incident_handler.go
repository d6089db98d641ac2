package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gema-points-api/internal/models"
	"github.com/noah-isme/gema-points-api/internal/service"
	appErrors "github.com/noah-isme/gema-points-api/pkg/errors"
	"github.com/noah-isme/gema-points-api/pkg/response"
)

// IncidentHandler exposes incident endpoints. Incidents are immutable, so
// only list, detail and create exist.
type IncidentHandler struct {
	incidents *service.IncidentService
}

// NewIncidentHandler constructs IncidentHandler.
func NewIncidentHandler(incidents *service.IncidentService) *IncidentHandler {
	return &IncidentHandler{incidents: incidents}
}

// List godoc
// @Summary List incidents
// @Tags Incidents
// @Produce json
// @Param student query string false "Filter by student"
// @Param severity query string false "Filter by severity (LOW, MEDIUM, HIGH)"
// @Param from query string false "Date from (YYYY-MM-DD)"
// @Param to query string false "Date to (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /incidents [get]
func (h *IncidentHandler) List(c *gin.Context) {
	var filter models.IncidentFilter
	filter.StudentID = c.Query("student")
	if severity := c.Query("severity"); severity != "" {
		filter.Severities = []models.IncidentSeverity{models.IncidentSeverity(severity)}
	}
	filter.DateFrom = parseDateQuery(c, "from")
	filter.DateTo = parseDateQuery(c, "to")
	filter.Page, filter.PageSize = parsePage(c)

	incidents, pagination, err := h.incidents.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, incidents, pagination)
}

// Get godoc
// @Summary Get incident detail
// @Tags Incidents
// @Produce json
// @Param id path string true "Incident ID"
// @Success 200 {object} response.Envelope
// @Router /incidents/{id} [get]
func (h *IncidentHandler) Get(c *gin.Context) {
	incident, err := h.incidents.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, incident, nil)
}

// Create godoc
// @Summary Log an incident
// @Tags Incidents
// @Accept json
// @Produce json
// @Param payload body service.CreateIncidentRequest true "Incident payload"
// @Success 201 {object} response.Envelope
// @Router /incidents [post]
func (h *IncidentHandler) Create(c *gin.Context) {
	var req service.CreateIncidentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid incident payload"))
		return
	}
	req.ActorID = actorIDFromContext(c)

	incident, err := h.incidents.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, incident)
}
