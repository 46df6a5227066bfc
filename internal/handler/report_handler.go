package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hall-adp-api/internal/dto"
	"github.com/noah-isme/hall-adp-api/pkg/response"
)

type occupancyReporter interface {
	OccupancyReport(ctx context.Context, query dto.OccupancyReportQuery) (*dto.ReportFile, error)
}

// ReportHandler exposes the occupancy export.
type ReportHandler struct {
	reports occupancyReporter
}

// NewReportHandler constructs handler.
func NewReportHandler(reports occupancyReporter) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// Occupancy godoc
// @Summary Occupancy report
// @Description Bed-by-bed occupancy export for one block or the whole hall
// @Tags Reports
// @Produce text/csv
// @Produce application/pdf
// @Param block query string false "Block, all blocks when omitted"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /admin/occupancy-report [get]
func (h *ReportHandler) Occupancy(c *gin.Context) {
	file, err := h.reports.OccupancyReport(c.Request.Context(), dto.OccupancyReportQuery{
		Block:  c.Query("block"),
		Format: c.Query("format"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Payload)
}
