package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/unicesmag/labcontrol/internal/dto"
	"github.com/unicesmag/labcontrol/internal/models"
	appErrors "github.com/unicesmag/labcontrol/pkg/errors"
)

type labRecordRepository interface {
	Create(ctx context.Context, record *models.LabRecord) error
	FindByID(ctx context.Context, id string) (*models.LabRecord, error)
	UpdateReturningPrevious(ctx context.Context, record *models.LabRecord) (*string, error)
	Delete(ctx context.Context, id string) error
}

type incidentNotifier interface {
	IncidentResponseChanged(ctx context.Context, notice IncidentNotice) error
}

// RecordValidationError reports why a submitted form was rejected and keeps
// the submitted values so the form can be shown again.
type RecordValidationError struct {
	Cause *appErrors.Error
	Input dto.RecordForm
}

func (e *RecordValidationError) Error() string { return e.Cause.Error() }

func (e *RecordValidationError) Unwrap() error { return e.Cause }

// RecordUpdateResult describes a persisted update. NotificationErr is set when
// the incident response changed but the email could not be delivered; the
// update itself is committed regardless.
type RecordUpdateResult struct {
	Record          *models.LabRecord
	ResponseChanged bool
	NotificationErr error
}

// RecordService validates and persists lab check-in records.
type RecordService struct {
	repo      labRecordRepository
	notifier  incidentNotifier
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewRecordService creates an instance of RecordService.
func NewRecordService(repo labRecordRepository, notifier incidentNotifier, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *RecordService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	registerRecordValidations(validate)
	return &RecordService{
		repo:      repo,
		notifier:  notifier,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// Create validates the front-desk form and stores a new record stamped with
// the current time.
func (s *RecordService) Create(ctx context.Context, form dto.RecordForm) (*models.LabRecord, error) {
	record, err := s.buildRecord(form)
	if err != nil {
		return nil, err
	}
	record.ID = uuid.NewString()
	record.RegisteredAt = s.now().Truncate(time.Second)

	err = s.repo.Create(ctx, record)
	s.metrics.RecordWrite("create", err)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save lab record")
	}

	s.invalidateReports(ctx, "create", record.ID)
	return record, nil
}

// Get returns a record by ID.
func (s *RecordService) Get(ctx context.Context, id string) (*models.LabRecord, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "record not found")
	}
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lab record")
	}
	return record, nil
}

// Update rewrites every field of a record and notifies the instructor when the
// incident response changed. The email is sent after the commit.
func (s *RecordService) Update(ctx context.Context, id string, form dto.RecordUpdateForm) (*RecordUpdateResult, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "record not found")
	}

	record, err := s.buildRecord(form.RecordForm)
	if err != nil {
		return nil, err
	}
	registeredAt, err := parseTimestamp(form.RegisteredAt)
	if err != nil {
		return nil, &RecordValidationError{
			Cause: appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "La fecha de registro no es válida."),
			Input: form.RecordForm,
		}
	}
	record.ID = id
	record.RegisteredAt = registeredAt
	record.IncidentResponse = StoredIncidentResponse(form.IncidentResponse)

	previous, err := s.repo.UpdateReturningPrevious(ctx, record)
	s.metrics.RecordWrite("update", err)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update lab record")
	}
	s.invalidateReports(ctx, "update", id)

	result := &RecordUpdateResult{Record: record}
	if NormalizeIncidentResponse(previous) == NormalizeIncidentResponse(record.IncidentResponse) {
		return result, nil
	}

	result.ResponseChanged = true
	if s.notifier == nil {
		s.logger.Warn("incident response changed but no notifier is configured", zap.String("record_id", id))
		return result, nil
	}
	result.NotificationErr = s.notifier.IncidentResponseChanged(ctx, IncidentNotice{
		RecordID:    record.ID,
		Recipient:   record.Email,
		Observation: record.Observation,
		Response:    record.Response(),
	})
	return result, nil
}

// Delete removes a record. Unknown ids succeed without touching the table.
func (s *RecordService) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return nil
	}
	err := s.repo.Delete(ctx, id)
	s.metrics.RecordWrite("delete", err)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete lab record")
	}
	s.invalidateReports(ctx, "delete", id)
	return nil
}

// buildRecord validates the form in the order the front desk sees the
// warnings: missing fields, name, email, then time order.
func (s *RecordService) buildRecord(form dto.RecordForm) (*models.LabRecord, error) {
	clean := dto.RecordForm{
		LabID:          strings.TrimSpace(form.LabID),
		InstructorName: strings.TrimSpace(form.InstructorName),
		Email:          strings.TrimSpace(form.Email),
		Program:        strings.TrimSpace(form.Program),
		CheckIn:        strings.TrimSpace(form.CheckIn),
		CheckOut:       strings.TrimSpace(form.CheckOut),
		Observation:    strings.TrimSpace(form.Observation),
	}

	if err := s.validator.Struct(clean); err != nil {
		return nil, &RecordValidationError{Cause: classifyValidation(err), Input: form}
	}

	checkIn, errIn := parseClock(clean.CheckIn)
	checkOut, errOut := parseClock(clean.CheckOut)
	if errIn != nil || errOut != nil {
		return nil, &RecordValidationError{
			Cause: appErrors.Clone(appErrors.ErrInvalidTimeOrder, "Las horas de ingreso y salida deben tener el formato HH:MM."),
			Input: form,
		}
	}
	if !checkOut.After(checkIn) {
		return nil, &RecordValidationError{
			Cause: appErrors.Clone(appErrors.ErrInvalidTimeOrder, "La hora de salida debe ser después de la hora de ingreso."),
			Input: form,
		}
	}

	return &models.LabRecord{
		LabID:          clean.LabID,
		InstructorName: clean.InstructorName,
		Email:          clean.Email,
		Program:        clean.Program,
		CheckIn:        checkIn.Format("15:04:05"),
		CheckOut:       checkOut.Format("15:04:05"),
		Observation:    clean.Observation,
	}, nil
}

func classifyValidation(err error) *appErrors.Error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "Datos del formulario no válidos.")
	}

	var badName, badEmail bool
	for _, fe := range fieldErrs {
		switch {
		case fe.Tag() == "required":
			return appErrors.Clone(appErrors.ErrMissingField, "Todos los campos son obligatorios.")
		case fe.Field() == "InstructorName":
			badName = true
		case fe.Field() == "Email":
			badEmail = true
		}
	}
	if badName {
		return appErrors.Clone(appErrors.ErrInvalidName, "El nombre del docente solo puede contener letras y espacios.")
	}
	if badEmail {
		return appErrors.Clone(appErrors.ErrInvalidEmail, "Correo electrónico no válido. Debe ser un correo institucional.")
	}
	return appErrors.Clone(appErrors.ErrValidation, "Datos del formulario no válidos.")
}

// invalidateReports drops cached report lists after a write. A failure only
// leaves reports stale until CACHE_TTL expires, so the write still succeeds.
func (s *RecordService) invalidateReports(ctx context.Context, op, id string) {
	if err := s.cache.Invalidate(ctx, recordCachePattern); err != nil {
		s.logger.Error("report cache left stale after record write",
			zap.String("operation", op),
			zap.String("record_id", id),
			zap.Error(err),
		)
	}
}

// NormalizeIncidentResponse collapses NULL, blank and "none" into the empty
// string so that only meaningful edits count as a change.
func NormalizeIncidentResponse(value *string) string {
	if value == nil {
		return ""
	}
	trimmed := strings.TrimSpace(*value)
	if strings.EqualFold(trimmed, "none") {
		return ""
	}
	return trimmed
}

// StoredIncidentResponse converts the submitted text into the column value:
// NULL when it normalizes to empty, the trimmed text otherwise.
func StoredIncidentResponse(raw string) *string {
	normalized := NormalizeIncidentResponse(&raw)
	if normalized == "" {
		return nil
	}
	return &normalized
}
