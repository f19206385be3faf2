package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/seguros_backend/config"
	"bitbucket.org/mmdatafocus/seguros_backend/utils"
)

// Documento is a checklist entry for a claim: required entries are seeded at
// registration, Recibido flips when the file arrives. A claim's checklist is
// complete when every required entry has been received.
type Documento struct {
	ID            int           `gorm:"primary_key" json:"id"`
	SiniestroId   int           `gorm:"index;not null" json:"siniestro_id"`
	TipoDocumento TipoDocumento `gorm:"type:enum('denuncia','informe_tecnico','proforma','fotografia','recibo_indemnizacion','otro');not null" json:"tipo_documento"`
	Nombre        string        `gorm:"size:255" json:"nombre"`
	ObjectKey     string        `gorm:"size:500" json:"object_key"`
	ContentType   string        `gorm:"size:100" json:"content_type"`
	ThumbnailKey  string        `gorm:"size:500" json:"thumbnail_key"`
	Requerido     *bool         `gorm:"not null;default:false" json:"requerido"`
	Recibido      *bool         `gorm:"not null;default:false" json:"recibido"`
	FechaRecibido *time.Time    `gorm:"default:null" json:"fecha_recibido"`
	CreatedAt     time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}

// ChecklistInicial is the required-document set seeded on claim registration.
func ChecklistInicial(siniestroId int) []*Documento {
	requeridos := []TipoDocumento{
		TipoDocumentoDenuncia,
		TipoDocumentoInformeTecnico,
		TipoDocumentoProforma,
		TipoDocumentoFotografia,
	}
	docs := make([]*Documento, 0, len(requeridos))
	for _, tipo := range requeridos {
		docs = append(docs, &Documento{
			SiniestroId:   siniestroId,
			TipoDocumento: tipo,
			Requerido:     utils.NewTrue(),
			Recibido:      utils.NewFalse(),
		})
	}
	return docs
}

// ChecklistCompleto reports whether every required document of the claim has
// been received.
func ChecklistCompleto(ctx context.Context, siniestroId int) (bool, error) {
	db := config.GetDB()
	var faltantes int64
	if err := db.WithContext(ctx).Model(&Documento{}).
		Where("siniestro_id = ? AND requerido = true AND recibido = false", siniestroId).
		Count(&faltantes).Error; err != nil {
		return false, err
	}
	return faltantes == 0, nil
}
