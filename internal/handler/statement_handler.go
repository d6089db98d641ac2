package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gema-points-api/internal/service"
	appErrors "github.com/noah-isme/gema-points-api/pkg/errors"
	"github.com/noah-isme/gema-points-api/pkg/response"
)

// StatementHandler serves point statement downloads.
type StatementHandler struct {
	statements *service.StatementService
}

// NewStatementHandler constructs StatementHandler.
func NewStatementHandler(statements *service.StatementService) *StatementHandler {
	return &StatementHandler{statements: statements}
}

// Download godoc
// @Summary Download a point statement
// @Description Renders the student's full ledger as CSV or PDF
// @Tags Points
// @Produce octet-stream
// @Param id path string true "Student ID"
// @Param format query string false "csv or pdf" default(csv)
// @Param from query string false "Date from (YYYY-MM-DD)"
// @Param to query string false "Date to (YYYY-MM-DD)"
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/statement [get]
func (h *StatementHandler) Download(c *gin.Context) {
	format := service.StatementFormat(c.DefaultQuery("format", "csv"))
	if format != service.StatementFormatCSV && format != service.StatementFormatPDF {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf"))
		return
	}

	statement, err := h.statements.Render(
		c.Request.Context(),
		c.Param("id"),
		parseDateQuery(c, "from"),
		parseDateQuery(c, "to"),
		format,
	)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", statement.FileName))
	c.Data(http.StatusOK, statement.ContentType, statement.Content)
}
