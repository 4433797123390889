package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/unicesmag/labcontrol/internal/dto"
	"github.com/unicesmag/labcontrol/internal/middleware"
	"github.com/unicesmag/labcontrol/internal/models"
	"github.com/unicesmag/labcontrol/internal/service"
	"github.com/unicesmag/labcontrol/internal/view"
	appErrors "github.com/unicesmag/labcontrol/pkg/errors"
	"github.com/unicesmag/labcontrol/pkg/response"
)

type recordService interface {
	Create(ctx context.Context, form dto.RecordForm) (*models.LabRecord, error)
	Get(ctx context.Context, id string) (*models.LabRecord, error)
	Update(ctx context.Context, id string, form dto.RecordUpdateForm) (*service.RecordUpdateResult, error)
	Delete(ctx context.Context, id string) error
}

type recordLister interface {
	List(ctx context.Context, rng *models.DateRange) ([]models.LabRecord, error)
}

const (
	msgRecordCreated   = "Datos registrados exitosamente."
	msgRecordUpdated   = "Datos actualizados exitosamente."
	msgResponseSent    = "Datos actualizados y respuesta enviada al docente."
	msgResponseFailed  = "Datos actualizados, pero no se pudo enviar el correo al docente."
	msgRecordDeleted   = "Registro eliminado."
	msgRecordNotFound  = "El registro solicitado no existe."
	msgUnreadableInput = "No se pudo leer el formulario."
)

// RecordHandler serves the front-desk form and the administrator record views.
type RecordHandler struct {
	pages
	records recordService
	reports recordLister
	logger  *zap.Logger
}

// NewRecordHandler creates a new record handler.
func NewRecordHandler(records recordService, reports recordLister, sessions *middleware.SessionManager, renderer view.Renderer, logger *zap.Logger) *RecordHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecordHandler{pages: pages{sessions: sessions, view: renderer}, records: records, reports: reports, logger: logger}
}

// Index shows the empty check-in form.
func (h *RecordHandler) Index(c *gin.Context) {
	h.render(c, http.StatusOK, "index.html", gin.H{"Form": dto.RecordForm{}})
}

// Create stores a submitted check-in. Rejected input is shown again with
// the reason.
func (h *RecordHandler) Create(c *gin.Context) {
	var form dto.RecordForm
	if err := c.ShouldBind(&form); err != nil {
		h.render(c, http.StatusBadRequest, "index.html", gin.H{"Form": form}, middleware.Flash{Category: middleware.FlashError, Message: msgUnreadableInput})
		return
	}

	if _, err := h.records.Create(c.Request.Context(), form); err != nil {
		var vErr *service.RecordValidationError
		if errors.As(err, &vErr) {
			h.render(c, http.StatusUnprocessableEntity, "index.html", gin.H{"Form": vErr.Input}, middleware.Flash{Category: middleware.FlashWarning, Message: vErr.Cause.Message})
			return
		}
		response.Error(c, h.view, err)
		return
	}

	h.flash(c, middleware.FlashSuccess, msgRecordCreated)
	response.Redirect(c, "/")
}

// Admin lists every record, newest first.
func (h *RecordHandler) Admin(c *gin.Context) {
	records, err := h.reports.List(c.Request.Context(), nil)
	if err != nil {
		response.Error(c, h.view, err)
		return
	}
	h.render(c, http.StatusOK, "admin.html", gin.H{"Records": records, "Actions": true})
}

// GoBack returns to the admin list.
func (h *RecordHandler) GoBack(c *gin.Context) {
	response.Redirect(c, "/admin")
}

// Edit shows the edit form of one record.
func (h *RecordHandler) Edit(c *gin.Context) {
	id := c.Param("id")
	record, err := h.records.Get(c.Request.Context(), id)
	if err != nil {
		h.failRecord(c, err)
		return
	}
	h.render(c, http.StatusOK, "edit.html", gin.H{"ID": id, "Form": updateFormOf(record)})
}

// Update rewrites a record and reports whether the instructor was notified.
func (h *RecordHandler) Update(c *gin.Context) {
	id := c.Param("id")
	var form dto.RecordUpdateForm
	if err := c.ShouldBind(&form); err != nil {
		h.render(c, http.StatusBadRequest, "edit.html", gin.H{"ID": id, "Form": form}, middleware.Flash{Category: middleware.FlashError, Message: msgUnreadableInput})
		return
	}

	result, err := h.records.Update(c.Request.Context(), id, form)
	if err != nil {
		var vErr *service.RecordValidationError
		if errors.As(err, &vErr) {
			h.render(c, http.StatusUnprocessableEntity, "edit.html", gin.H{"ID": id, "Form": form}, middleware.Flash{Category: middleware.FlashWarning, Message: vErr.Cause.Message})
			return
		}
		h.failRecord(c, err)
		return
	}

	switch {
	case result.NotificationErr != nil:
		h.logger.Warn("incident response saved without notification",
			zap.String("record_id", id),
			zap.String("actor_id", currentUserID(c)),
			zap.Error(result.NotificationErr))
		h.flash(c, middleware.FlashWarning, msgResponseFailed)
	case result.ResponseChanged:
		h.flash(c, middleware.FlashSuccess, msgResponseSent)
	default:
		h.flash(c, middleware.FlashSuccess, msgRecordUpdated)
	}
	response.Redirect(c, "/admin")
}

// Delete removes a record and returns to the list.
func (h *RecordHandler) Delete(c *gin.Context) {
	if err := h.records.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, h.view, err)
		return
	}
	h.flash(c, middleware.FlashSuccess, msgRecordDeleted)
	response.Redirect(c, "/admin")
}

func (h *RecordHandler) failRecord(c *gin.Context, err error) {
	if errors.Is(err, appErrors.ErrNotFound) {
		h.flash(c, middleware.FlashWarning, msgRecordNotFound)
		response.Redirect(c, "/admin")
		return
	}
	response.Error(c, h.view, err)
}

func updateFormOf(r *models.LabRecord) dto.RecordUpdateForm {
	return dto.RecordUpdateForm{
		RecordForm: dto.RecordForm{
			LabID:          r.LabID,
			InstructorName: r.InstructorName,
			Email:          r.Email,
			Program:        r.Program,
			CheckIn:        r.CheckIn,
			CheckOut:       r.CheckOut,
			Observation:    r.Observation,
		},
		RegisteredAt:     r.RegisteredAt.Format("2006-01-02T15:04:05"),
		IncidentResponse: r.Response(),
	}
}
