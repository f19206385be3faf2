package main

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"bitbucket.org/mmdatafocus/seguros_backend/config"
	"bitbucket.org/mmdatafocus/seguros_backend/models"
)

const maxIntentosNotificacion = 5

// NotificacionProcessor drains the outbound-mail outbox: rows committed by
// workflows are published to the mail-out Pub/Sub topic after the fact, so a
// failed publish never rolls back business state and a crashed instance
// leaves the rows pendiente for the next pass.
type NotificacionProcessor struct {
	Interval  time.Duration
	BatchSize int

	topicOnce sync.Once
}

func NewNotificacionProcessor() *NotificacionProcessor {
	return &NotificacionProcessor{
		Interval:  30 * time.Second,
		BatchSize: 50,
	}
}

func (p *NotificacionProcessor) Run(ctx context.Context) {
	logger := config.GetLogger()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		p.processOnce(ctx, logger)
		select {
		case <-ctx.Done():
			return
		case <-time.After(p.Interval):
		}
	}
}

func (p *NotificacionProcessor) processOnce(ctx context.Context, logger *logrus.Logger) {
	if !config.NotificationDispatchEnabled() {
		return
	}

	p.topicOnce.Do(func() {
		client, err := config.GetClient(ctx)
		if err != nil {
			config.LogError(logger, "notificacion_processor", "processOnce", "pubsub client init", nil, err)
			return
		}
		if _, err := config.CreateTopicIfNotExists(client, os.Getenv("PUBSUB_TOPIC")); err != nil {
			config.LogError(logger, "notificacion_processor", "processOnce", "ensuring topic", nil, err)
		}
	})

	pendientes, err := models.GetNotificacionesPendientes(ctx, p.BatchSize)
	if err != nil {
		config.LogError(logger, "notificacion_processor", "processOnce", "loading outbox", nil, err)
		return
	}

	db := config.GetDB()
	for _, n := range pendientes {
		referenceId := 0
		referenceType := ""
		switch {
		case n.AlertaId != nil:
			referenceId = *n.AlertaId
			referenceType = "alerta"
		case n.SiniestroId != nil:
			referenceId = *n.SiniestroId
			referenceType = "siniestro"
		}

		_, err := config.PublishNotificationWithResult(ctx, config.PubSubMessage{
			ID:            n.ID,
			QueuedAt:      n.CreatedAt,
			ReferenceId:   referenceId,
			ReferenceType: referenceType,
			Destinatario:  n.Destinatarios,
			Asunto:        n.Asunto,
			Cuerpo:        n.Cuerpo,
			CorrelationId: n.CorrelationId,
		})

		campos := map[string]interface{}{"intentos": n.Intentos + 1}
		if err != nil {
			campos["error"] = err.Error()
			if n.Intentos+1 >= maxIntentosNotificacion {
				campos["estado"] = models.EstadoNotificacionFallida
			}
			config.LogError(logger, "notificacion_processor", "processOnce", "publishing notification", n.ID, err)
		} else {
			now := time.Now().UTC()
			campos["estado"] = models.EstadoNotificacionEnviada
			campos["fecha_envio"] = now
			campos["error"] = ""
		}

		if updErr := db.WithContext(ctx).Model(&models.NotificacionEmail{}).
			Where("id = ?", n.ID).
			Updates(campos).Error; updErr != nil {
			config.LogError(logger, "notificacion_processor", "processOnce", "marking outbox row", n.ID, updErr)
		}
	}
}
