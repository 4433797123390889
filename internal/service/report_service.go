package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/unicesmag/labcontrol/internal/models"
	appErrors "github.com/unicesmag/labcontrol/pkg/errors"
	"github.com/unicesmag/labcontrol/pkg/export"
)

const (
	recordCachePrefix  = "labcontrol:records:"
	recordCachePattern = recordCachePrefix + "*"

	reportSheet          = "Reporte"
	reportTitle          = "Reporte de Control de Laboratorios de Sistemas"
	reportFilenamePrefix = "reporte_control_laboratorios_sistemas_"
	dateLayout           = "2006-01-02"

	FormatXLSX = "xlsx"
	FormatCSV  = "csv"
	FormatPDF  = "pdf"
)

// ReportHeaders are the export columns, in order. The record id is omitted.
var ReportHeaders = []string{
	"Fecha",
	"Laboratorio",
	"Nombres",
	"Correo electrónico",
	"Programa",
	"Hora de ingreso",
	"Hora de salida",
	"Observaciones",
	"Respuesta",
}

var dayPrefixPattern = regexp.MustCompile(`^\d+ days?,? `)

type labRecordLister interface {
	List(ctx context.Context, filter models.RecordFilter) ([]models.LabRecord, error)
}

// ExportFile is a generated report ready to be streamed as an attachment.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ReportService lists, filters and exports lab records.
type ReportService struct {
	repo      labRecordLister
	cache     *CacheService
	metrics   *MetricsService
	renderers map[string]export.Renderer
	logger    *zap.Logger
	now       func() time.Time
}

// NewReportService wires the report service with the xlsx, csv and pdf renderers.
func NewReportService(repo labRecordLister, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		repo:    repo,
		cache:   cache,
		metrics: metrics,
		renderers: map[string]export.Renderer{
			FormatXLSX: export.NewXLSXExporter(reportSheet),
			FormatCSV:  export.NewCSVExporter(),
			FormatPDF:  export.NewPDFExporter(reportTitle),
		},
		logger: logger,
		now:    time.Now,
	}
}

// ParseDateRange converts the YYYY-MM-DD bounds of the report form into a
// half-open range covering both days entirely. A missing bound means no filter.
func (s *ReportService) ParseDateRange(start, end string) (*models.DateRange, error) {
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	if start == "" || end == "" {
		return nil, nil
	}

	from, err := time.ParseInLocation(dateLayout, start, time.Local)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "La fecha inicial no es válida.")
	}
	to, err := time.ParseInLocation(dateLayout, end, time.Local)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "La fecha final no es válida.")
	}
	if from.After(to) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "La fecha inicial debe ser anterior a la fecha final.")
	}
	return &models.DateRange{From: from, To: to.AddDate(0, 0, 1)}, nil
}

// List returns records for the admin view, newest first.
func (s *ReportService) List(ctx context.Context, rng *models.DateRange) ([]models.LabRecord, error) {
	return s.load(ctx, models.RecordFilter{Range: rng, NewestFirst: true})
}

// Query returns records in storage order for previews and exports.
func (s *ReportService) Query(ctx context.Context, rng *models.DateRange) ([]models.LabRecord, error) {
	return s.load(ctx, models.RecordFilter{Range: rng})
}

// Export renders the records in range using format, which defaults to xlsx.
func (s *ReportService) Export(ctx context.Context, rng *models.DateRange, format string) (*ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = FormatXLSX
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("Formato de reporte no soportado: %s", format))
	}

	records, err := s.Query(ctx, rng)
	if err != nil {
		return nil, err
	}

	data, err := renderer.Render(BuildReportDataset(records))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
	}
	s.metrics.RecordExport(format)

	return &ExportFile{
		Filename:    ReportFilename(s.now(), renderer.Extension()),
		ContentType: renderer.ContentType(),
		Data:        data,
	}, nil
}

func (s *ReportService) load(ctx context.Context, filter models.RecordFilter) ([]models.LabRecord, error) {
	key := recordCacheKey(filter)
	var cached []models.LabRecord
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, nil
	}

	records, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list lab records")
	}
	_ = s.cache.Set(ctx, key, records, 0)
	return records, nil
}

func recordCacheKey(filter models.RecordFilter) string {
	scope := "all"
	if filter.Range != nil {
		scope = filter.Range.From.Format("20060102") + "-" + filter.Range.To.Format("20060102")
	}
	order := "storage"
	if filter.NewestFirst {
		order = "newest"
	}
	return recordCachePrefix + scope + ":" + order
}

// BuildReportDataset maps records onto ReportHeaders.
func BuildReportDataset(records []models.LabRecord) export.Dataset {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.RegisteredAt.Format(dateLayout),
			r.LabID,
			r.InstructorName,
			r.Email,
			r.Program,
			FormatClock(r.CheckIn),
			FormatClock(r.CheckOut),
			r.Observation,
			r.Response(),
		})
	}
	return export.Dataset{Headers: ReportHeaders, Rows: rows}
}

// FormatClock renders a stored time of day as HH:MM:SS, dropping any leading
// day count produced by interval arithmetic. Unparseable values pass through.
func FormatClock(raw string) string {
	cleaned := dayPrefixPattern.ReplaceAllString(strings.TrimSpace(raw), "")
	t, err := parseClock(cleaned)
	if err != nil {
		return cleaned
	}
	return t.Format("15:04:05")
}

// ReportFilename stamps the export name with the generation time.
func ReportFilename(at time.Time, ext string) string {
	return reportFilenamePrefix + at.Format("20060102_150405") + "." + ext
}
