package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/seguros_backend/config"
)

// SiniestroEmail is an ingested inbox message, tied (or not yet tied) to a
// claim. Created on ingestion, mutated only by the classification pipeline,
// terminal once vinculado or descartado.
type SiniestroEmail struct {
	ID             int                       `gorm:"primary_key" json:"id"`
	MessageId      string                    `gorm:"size:255;uniqueIndex;not null" json:"message_id"`
	SiniestroId    *int                      `gorm:"index;default:null" json:"siniestro_id"`
	Remitente      string                    `gorm:"size:255" json:"remitente"`
	Asunto         string                    `gorm:"size:500" json:"asunto"`
	Cuerpo         string                    `gorm:"type:mediumtext" json:"cuerpo"`
	FechaRecepcion time.Time                 `gorm:"not null" json:"fecha_recepcion"`
	Clasificacion  ClasificacionCorreo       `gorm:"type:enum('reporte_siniestro','respuesta_broker','recibo_indemnizacion','no_clasificado');default:no_clasificado" json:"clasificacion"`
	Estado         EstadoProcesamientoCorreo `gorm:"type:enum('pendiente','vinculado','descartado');default:pendiente;index" json:"estado"`
	NotaRevision   string                    `gorm:"size:500" json:"nota_revision"`

	// Fields extracted from the delimited report block.
	Responsable  string `gorm:"size:255" json:"responsable"`
	FechaReporte string `gorm:"size:50" json:"fecha_reporte"`
	Problema     string `gorm:"type:text" json:"problema"`
	Causa        string `gorm:"type:text" json:"causa"`
	Periferico   string `gorm:"size:255" json:"periferico"`
	Marca        string `gorm:"size:100" json:"marca"`
	Modelo       string `gorm:"size:100" json:"modelo"`
	Serie        string `gorm:"size:100" json:"serie"`
	Activo       string `gorm:"size:100" json:"activo"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// ExisteCorreoProcesado reports whether a message id was already ingested.
// Dedup key for re-scans of the same mailbox.
func ExisteCorreoProcesado(ctx context.Context, messageId string) (bool, error) {
	db := config.GetDB()
	var count int64
	if err := db.WithContext(ctx).Model(&SiniestroEmail{}).
		Where("message_id = ?", messageId).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetCorreosPendientes lists messages waiting for manual review.
func GetCorreosPendientes(ctx context.Context, limit int) ([]*SiniestroEmail, error) {
	db := config.GetDB()
	var correos []*SiniestroEmail
	dbCtx := db.WithContext(ctx).
		Where("estado = ?", ProcesamientoPendiente).
		Order("fecha_recepcion")
	if limit > 0 {
		dbCtx = dbCtx.Limit(limit)
	}
	if err := dbCtx.Find(&correos).Error; err != nil {
		return nil, err
	}
	return correos, nil
}
