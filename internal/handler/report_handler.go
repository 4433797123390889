package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/unicesmag/labcontrol/internal/dto"
	"github.com/unicesmag/labcontrol/internal/middleware"
	"github.com/unicesmag/labcontrol/internal/models"
	"github.com/unicesmag/labcontrol/internal/service"
	"github.com/unicesmag/labcontrol/internal/view"
	"github.com/unicesmag/labcontrol/pkg/response"
)

type reportService interface {
	ParseDateRange(start, end string) (*models.DateRange, error)
	Query(ctx context.Context, rng *models.DateRange) ([]models.LabRecord, error)
	Export(ctx context.Context, rng *models.DateRange, format string) (*service.ExportFile, error)
}

// ReportHandler serves the report preview and downloads.
type ReportHandler struct {
	pages
	reports reportService
}

// NewReportHandler constructs a report handler.
func NewReportHandler(reports reportService, sessions *middleware.SessionManager, renderer view.Renderer) *ReportHandler {
	return &ReportHandler{pages: pages{sessions: sessions, view: renderer}, reports: reports}
}

// Page shows the filter form prefilled with the remembered range.
func (h *ReportHandler) Page(c *gin.Context) {
	start, end := h.sessions.DateRange(c)
	h.render(c, http.StatusOK, "reports.html", gin.H{"StartDate": start, "EndDate": end})
}

// PreviewAll shows every record and forgets the remembered range so the
// download matches the preview.
func (h *ReportHandler) PreviewAll(c *gin.Context) {
	_ = h.sessions.SetDateRange(c, "", "")
	records, err := h.reports.Query(c.Request.Context(), nil)
	if err != nil {
		response.Error(c, h.view, err)
		return
	}
	h.render(c, http.StatusOK, "reports.html", gin.H{"Records": records, "StartDate": "", "EndDate": ""})
}

// Preview filters by the submitted range and remembers it for the download.
func (h *ReportHandler) Preview(c *gin.Context) {
	var req dto.ReportFilterRequest
	_ = c.ShouldBind(&req)

	rng, err := h.reports.ParseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		h.render(c, http.StatusUnprocessableEntity, "reports.html",
			gin.H{"StartDate": req.StartDate, "EndDate": req.EndDate},
			middleware.Flash{Category: middleware.FlashWarning, Message: response.Message(err)})
		return
	}
	_ = h.sessions.SetDateRange(c, req.StartDate, req.EndDate)

	records, err := h.reports.Query(c.Request.Context(), rng)
	if err != nil {
		response.Error(c, h.view, err)
		return
	}
	h.render(c, http.StatusOK, "reports.html", gin.H{"Records": records, "StartDate": req.StartDate, "EndDate": req.EndDate})
}

// Download streams the report. Explicit query dates win over the remembered
// range; with neither, every record is exported.
func (h *ReportHandler) Download(c *gin.Context) {
	var req dto.ReportFilterRequest
	_ = c.ShouldBindQuery(&req)

	start, end := req.StartDate, req.EndDate
	if !req.HasRange() {
		start, end = h.sessions.DateRange(c)
	}

	rng, err := h.reports.ParseDateRange(start, end)
	if err != nil {
		response.Error(c, h.view, err)
		return
	}

	file, err := h.reports.Export(c.Request.Context(), rng, req.Format)
	if err != nil {
		response.Error(c, h.view, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Data)
}
