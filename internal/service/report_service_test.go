package service

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/unicesmag/labcontrol/internal/models"
	"github.com/unicesmag/labcontrol/internal/repository"
	appErrors "github.com/unicesmag/labcontrol/pkg/errors"
)

type countingLister struct {
	*fakeLabRecordRepo
	calls int
}

func (c *countingLister) List(ctx context.Context, filter models.RecordFilter) ([]models.LabRecord, error) {
	c.calls++
	return c.fakeLabRecordRepo.List(ctx, filter)
}

func seedRecords(repo *fakeLabRecordRepo) {
	days := []time.Time{
		time.Date(2024, 3, 1, 8, 0, 0, 0, time.Local),
		time.Date(2024, 3, 2, 23, 59, 59, 0, time.Local),
		time.Date(2024, 3, 3, 0, 0, 0, 0, time.Local),
	}
	for i, day := range days {
		id := []string{"a", "b", "c"}[i]
		repo.records[id] = models.LabRecord{
			ID:             id,
			RegisteredAt:   day,
			LabID:          "Lab-" + id,
			InstructorName: "Ana Pérez",
			Email:          "ana@unicesmag.edu.co",
			Program:        "Ingeniería",
			CheckIn:        "08:00:00",
			CheckOut:       "10:00:00",
			Observation:    "Sin novedad",
		}
		repo.order = append(repo.order, id)
	}
}

func TestParseDateRange(t *testing.T) {
	svc := NewReportService(nil, nil, nil, nil)

	rng, err := svc.ParseDateRange("", "")
	require.NoError(t, err)
	assert.Nil(t, rng)

	rng, err = svc.ParseDateRange("2024-03-01", "")
	require.NoError(t, err)
	assert.Nil(t, rng)

	rng, err = svc.ParseDateRange("2024-03-01", "2024-03-02")
	require.NoError(t, err)
	require.NotNil(t, rng)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.Local), rng.From)
	assert.Equal(t, time.Date(2024, 3, 3, 0, 0, 0, 0, time.Local), rng.To)

	_, err = svc.ParseDateRange("2024-03-05", "2024-03-01")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.ParseDateRange("01/03/2024", "2024-03-05")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestReportServiceRangeIsInclusiveOfEndDay(t *testing.T) {
	repo := newFakeLabRecordRepo()
	seedRecords(repo)
	svc := NewReportService(repo, nil, nil, nil)

	rng, err := svc.ParseDateRange("2024-03-01", "2024-03-02")
	require.NoError(t, err)

	records, err := svc.Query(context.Background(), rng)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "a", records[0].ID)
	assert.Equal(t, "b", records[1].ID)

	newest, err := svc.List(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, newest, 3)
	assert.Equal(t, "c", newest[0].ID)
}

func TestReportServiceCachesQueries(t *testing.T) {
	lister := &countingLister{fakeLabRecordRepo: newFakeLabRecordRepo()}
	seedRecords(lister.fakeLabRecordRepo)
	memory := repository.NewMemoryCacheRepository(time.Minute)
	cacheSvc := NewCacheService(memory, nil, time.Minute, zap.NewNop(), true)
	svc := NewReportService(lister, cacheSvc, nil, nil)

	_, err := svc.Query(context.Background(), nil)
	require.NoError(t, err)
	cached, err := svc.Query(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, cached, 3)
	assert.Equal(t, 1, lister.calls)

	require.NoError(t, cacheSvc.Invalidate(context.Background(), recordCachePattern))
	_, err = svc.Query(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, lister.calls)
}

func TestReportServiceExportXLSX(t *testing.T) {
	repo := newFakeLabRecordRepo()
	seedRecords(repo)
	resolved := "Cable cambiado"
	rec := repo.records["a"]
	rec.IncidentResponse = &resolved
	repo.records["a"] = rec

	svc := NewReportService(repo, nil, NewMetricsService(), nil)
	svc.now = func() time.Time { return time.Date(2024, 3, 9, 14, 5, 7, 0, time.Local) }

	file, err := svc.Export(context.Background(), nil, "")
	require.NoError(t, err)
	assert.Equal(t, "reporte_control_laboratorios_sistemas_20240309_140507.xlsx", file.Filename)

	wb, err := excelize.OpenReader(bytes.NewReader(file.Data))
	require.NoError(t, err)
	defer wb.Close()

	rows, err := wb.GetRows(reportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, ReportHeaders, rows[0])
	assert.Equal(t, []string{"2024-03-01", "Lab-a", "Ana Pérez", "ana@unicesmag.edu.co", "Ingeniería", "08:00:00", "10:00:00", "Sin novedad", "Cable cambiado"}, rows[1])
}

func TestReportServiceExportFormats(t *testing.T) {
	repo := newFakeLabRecordRepo()
	seedRecords(repo)
	svc := NewReportService(repo, nil, nil, nil)

	csvFile, err := svc.Export(context.Background(), nil, "CSV")
	require.NoError(t, err)
	assert.Contains(t, csvFile.Filename, ".csv")
	assert.Contains(t, string(csvFile.Data), "Lab-b")

	pdfFile, err := svc.Export(context.Background(), nil, "pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", pdfFile.ContentType)

	_, err = svc.Export(context.Background(), nil, "docx")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "08:05:00", FormatClock("8:05"))
	assert.Equal(t, "14:30:00", FormatClock("0 days 14:30:00"))
	assert.Equal(t, "09:00:00", FormatClock("1 day, 09:00:00"))
	assert.Equal(t, "n/a", FormatClock("n/a"))
}
