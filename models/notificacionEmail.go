package models

import (
	"context"
	"time"

	"gorm.io/gorm"

	"bitbucket.org/mmdatafocus/seguros_backend/config"
)

// NotificacionEmail is the outbound-mail outbox: rows are written inside the
// caller's transaction, a dispatcher publishes them to Pub/Sub after commit
// and marks them enviada. The actual SMTP send happens in the mailer service.
type NotificacionEmail struct {
	ID            int                `gorm:"primary_key" json:"id"`
	AlertaId      *int               `gorm:"index;default:null" json:"alerta_id"`
	SiniestroId   *int               `gorm:"index;default:null" json:"siniestro_id"`
	Destinatarios string             `gorm:"size:500;not null" json:"destinatarios"`
	Asunto        string             `gorm:"size:500;not null" json:"asunto"`
	Cuerpo        string             `gorm:"type:mediumtext" json:"cuerpo"`
	Estado        EstadoNotificacion `gorm:"type:enum('pendiente','enviada','fallida');default:pendiente;index" json:"estado"`
	Error         string             `gorm:"size:500" json:"error"`
	Intentos      int                `gorm:"default:0" json:"intentos"`
	CorrelationId string             `gorm:"size:64" json:"correlation_id"`
	FechaEnvio    *time.Time         `gorm:"default:null" json:"fecha_envio"`
	CreatedAt     time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

// EncolarNotificacion writes an outbox row inside the caller's transaction.
// Nothing is published here; dispatch runs after commit.
func EncolarNotificacion(tx *gorm.DB, notificacion *NotificacionEmail) error {
	notificacion.Estado = EstadoNotificacionPendiente
	return tx.Create(notificacion).Error
}

// GetNotificacionesPendientes claims up to limit undispatched rows.
func GetNotificacionesPendientes(ctx context.Context, limit int) ([]*NotificacionEmail, error) {
	db := config.GetDB()
	var notificaciones []*NotificacionEmail
	if err := db.WithContext(ctx).
		Where("estado = ?", EstadoNotificacionPendiente).
		Order("id").
		Limit(limit).
		Find(&notificaciones).Error; err != nil {
		return nil, err
	}
	return notificaciones, nil
}
