package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	appErrors "github.com/unicesmag/labcontrol/pkg/errors"
	"github.com/unicesmag/labcontrol/pkg/mailer"
)

const incidentSubject = "Control de Laboratorios de Sistemas - Respuesta a su Incidencia"

const incidentBodyTemplate = `Estimado/a usuario/a,

Le informamos que hemos actualizado la respuesta a su incidencia registrada en el sistema de Control de Laboratorios de Sistemas.

Detalles de la incidencia:
%s

Respuesta a su incidencia:
%s

Atentamente,
Equipo de Soporte Técnico
Universidad CESMAG

(Por favor, no responda a este correo si no requiere atención adicional)
`

type mailSender interface {
	Send(ctx context.Context, msg mailer.Message) error
}

// IncidentNotice carries what the instructor is told about their incident.
type IncidentNotice struct {
	RecordID    string
	Recipient   string
	Observation string
	Response    string
}

// NotificationService emails instructors when an incident response changes.
type NotificationService struct {
	sender  mailSender
	metrics *MetricsService
	logger  *zap.Logger
}

// NewNotificationService constructs a NotificationService.
func NewNotificationService(sender mailSender, metrics *MetricsService, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{sender: sender, metrics: metrics, logger: logger}
}

// IncidentResponseChanged sends the incident response email. Delivery
// failures come back as NOTIFICATION_FAILED errors for the caller to report.
func (s *NotificationService) IncidentResponseChanged(ctx context.Context, notice IncidentNotice) error {
	msg := mailer.Message{
		To:      notice.Recipient,
		Subject: incidentSubject,
		Body:    ComposeIncidentBody(notice.Observation, notice.Response),
	}

	err := s.sender.Send(ctx, msg)
	s.metrics.RecordNotification(err)
	if err != nil {
		s.logger.Warn("incident notification failed",
			zap.String("record_id", notice.RecordID),
			zap.String("recipient", notice.Recipient),
			zap.Error(err),
		)
		return appErrors.Wrap(err, appErrors.ErrNotification.Code, appErrors.ErrNotification.Status, appErrors.ErrNotification.Message)
	}

	s.logger.Info("incident notification sent",
		zap.String("record_id", notice.RecordID),
		zap.String("recipient", notice.Recipient),
	)
	return nil
}

// ComposeIncidentBody renders the fixed notification template.
func ComposeIncidentBody(observation, response string) string {
	if strings.TrimSpace(response) == "" {
		response = "(sin respuesta)"
	}
	return fmt.Sprintf(incidentBodyTemplate, observation, response)
}
