package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/seguros_backend/config"
)

// CadenciaAlertaDias is the re-fire interval for cadence alert kinds.
const CadenciaAlertaDias = 8

// Alerta references exactly one subject entity; the other two refs stay null.
type Alerta struct {
	ID            int              `gorm:"primary_key" json:"id"`
	Tipo          TipoAlerta       `gorm:"type:enum('vencimiento_poliza','pago_pendiente','pronto_pago','documentacion_pendiente','respuesta_pendiente');not null;index" json:"tipo"`
	Referencia    ReferenciaAlerta `gorm:"type:enum('poliza','factura','siniestro');not null" json:"referencia"`
	PolizaId      *int             `gorm:"index;default:null" json:"poliza_id"`
	FacturaId     *int             `gorm:"index;default:null" json:"factura_id"`
	SiniestroId   *int             `gorm:"index;default:null" json:"siniestro_id"`
	Titulo        string           `gorm:"size:255;not null" json:"titulo"`
	Mensaje       string           `gorm:"type:text" json:"mensaje"`
	Destinatarios string           `gorm:"size:500" json:"destinatarios"`
	Estado        EstadoAlerta     `gorm:"type:enum('pendiente','enviada','leida','atendida');default:pendiente;index" json:"estado"`
	FechaCreacion time.Time        `gorm:"not null;index" json:"fecha_creacion"`
	FechaEnvio    *time.Time       `gorm:"default:null" json:"fecha_envio"`
	CreatedAt     time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

// ReferenciaId returns the id of whichever entity the alert points at.
func (a *Alerta) ReferenciaId() int {
	switch a.Referencia {
	case ReferenciaAlertaPoliza:
		if a.PolizaId != nil {
			return *a.PolizaId
		}
	case ReferenciaAlertaFactura:
		if a.FacturaId != nil {
			return *a.FacturaId
		}
	case ReferenciaAlertaSiniestro:
		if a.SiniestroId != nil {
			return *a.SiniestroId
		}
	}
	return 0
}

// ClaveAlerta identifies the (entity, kind) pair the cadence bookkeeping
// tracks.
type ClaveAlerta struct {
	Tipo         TipoAlerta
	Referencia   ReferenciaAlerta
	ReferenciaId int
}

// UltimasAlertas returns the most recent creation time per (entity, kind)
// pair. This is the snapshot the derivation engine consults for duplicate
// suppression and cadence.
func UltimasAlertas(ctx context.Context) (map[ClaveAlerta]time.Time, error) {
	db := config.GetDB()

	type fila struct {
		Tipo           TipoAlerta
		Referencia     ReferenciaAlerta
		PolizaId       *int
		FacturaId      *int
		SiniestroId    *int
		UltimaCreacion time.Time
	}
	var filas []fila
	if err := db.WithContext(ctx).Model(&Alerta{}).
		Select("tipo, referencia, poliza_id, factura_id, siniestro_id, MAX(fecha_creacion) as ultima_creacion").
		Group("tipo, referencia, poliza_id, factura_id, siniestro_id").
		Scan(&filas).Error; err != nil {
		return nil, err
	}

	ultimas := make(map[ClaveAlerta]time.Time, len(filas))
	for _, f := range filas {
		a := Alerta{
			Referencia:  f.Referencia,
			PolizaId:    f.PolizaId,
			FacturaId:   f.FacturaId,
			SiniestroId: f.SiniestroId,
		}
		clave := ClaveAlerta{Tipo: f.Tipo, Referencia: f.Referencia, ReferenciaId: a.ReferenciaId()}
		ultimas[clave] = f.UltimaCreacion
	}
	return ultimas, nil
}
