package models

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"bitbucket.org/mmdatafocus/seguros_backend/config"
	"bitbucket.org/mmdatafocus/seguros_backend/utils"
)

// DiasAvisoVencimiento is the expiry-warning window: a policy whose end date
// falls inside it is por_vencer.
const DiasAvisoVencimiento = 30

type Poliza struct {
	ID                    int                  `gorm:"primary_key" json:"id"`
	NumeroPoliza          string               `gorm:"size:100;index;not null" json:"numero_poliza" binding:"required"`
	CompaniaAseguradoraId int                  `gorm:"index;not null" json:"compania_aseguradora_id" binding:"required"`
	CompaniaAseguradora   *CompaniaAseguradora `json:"compania_aseguradora,omitempty"`
	CorredorId            int                  `gorm:"index;not null" json:"corredor_id" binding:"required"`
	Corredor              *CorredorSeguros     `json:"corredor,omitempty"`
	TipoPolizaId          int                  `gorm:"index;not null" json:"tipo_poliza_id" binding:"required"`
	SumaAsegurada         decimal.Decimal      `gorm:"type:decimal(20,2);not null" json:"suma_asegurada" binding:"required"`
	Coberturas            string               `gorm:"type:text" json:"coberturas"`
	FechaInicio           time.Time            `gorm:"not null" json:"fecha_inicio" binding:"required"`
	FechaFin              time.Time            `gorm:"not null" json:"fecha_fin" binding:"required"`
	Estado                EstadoPoliza         `gorm:"type:enum('vigente','por_vencer','vencida','cancelada');default:vigente" json:"estado"`
	Observaciones         string               `gorm:"type:text" json:"observaciones"`
	Facturas              []*Factura           `json:"facturas,omitempty"`
	BienesAsegurados      []*BienAsegurado     `json:"bienes_asegurados,omitempty"`
	CreatedAt             time.Time            `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time            `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewPoliza struct {
	NumeroPoliza          string          `json:"numero_poliza" binding:"required"`
	CompaniaAseguradoraId int             `json:"compania_aseguradora_id" binding:"required"`
	CorredorId            int             `json:"corredor_id" binding:"required"`
	TipoPolizaId          int             `json:"tipo_poliza_id" binding:"required"`
	SumaAsegurada         decimal.Decimal `json:"suma_asegurada" binding:"required"`
	Coberturas            string          `json:"coberturas"`
	FechaInicio           time.Time       `json:"fecha_inicio" binding:"required"`
	FechaFin              time.Time       `json:"fecha_fin" binding:"required"`
	Observaciones         string          `json:"observaciones"`
}

// EstadoPolizaEn derives the state of a policy window at a given day.
// vencida if the window already ended, por_vencer inside the warning window,
// vigente inside the coverage window. A policy whose window has not started
// is reported vigente-to-be as vigente is the safest default for listing.
func EstadoPolizaEn(hoy, fechaInicio, fechaFin time.Time) EstadoPoliza {
	hoy = truncateDay(hoy)
	fechaInicio = truncateDay(fechaInicio)
	fechaFin = truncateDay(fechaFin)

	if fechaFin.Before(hoy) {
		return EstadoPolizaVencida
	}
	limiteAviso := hoy.AddDate(0, 0, DiasAvisoVencimiento)
	if !fechaFin.After(limiteAviso) {
		return EstadoPolizaPorVencer
	}
	return EstadoPolizaVigente
}

// Overlaps is the inclusive window-overlap test used for duplicate-policy
// validation: [aStart,aEnd] and [bStart,bEnd] share at least one day.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !truncateDay(aStart).After(truncateDay(bEnd)) && !truncateDay(bStart).After(truncateDay(aEnd))
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Validate checks the creation invariants. Overlap against stored policies is
// checked separately because it needs the database.
func (p *NewPoliza) Validate() error {
	if !p.FechaInicio.Before(p.FechaFin) {
		return utils.NewValidationError("fecha_inicio", "debe ser anterior a fecha_fin")
	}
	if !p.SumaAsegurada.IsPositive() {
		return utils.NewValidationError("suma_asegurada", "debe ser mayor que cero")
	}
	return nil
}

// ValidarSolapamiento rejects a second policy with the same number whose
// coverage window overlaps an existing one (inclusive on both ends).
func ValidarSolapamiento(ctx context.Context, numeroPoliza string, fechaInicio, fechaFin time.Time, exceptId int) error {
	db := config.GetDB()
	var count int64
	dbCtx := db.WithContext(ctx).Model(&Poliza{}).
		Where("numero_poliza = ?", numeroPoliza).
		Where("fecha_inicio <= ? AND ? <= fecha_fin", fechaFin, fechaInicio)
	if exceptId > 0 {
		dbCtx = dbCtx.Where("id != ?", exceptId)
	}
	if err := dbCtx.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return utils.NewValidationError("numero_poliza", "ya existe una poliza con ese numero en el periodo")
	}
	return nil
}

func GetPolizaById(ctx context.Context, id int) (*Poliza, error) {
	db := config.GetDB()
	var poliza Poliza
	if err := db.WithContext(ctx).
		Preload("CompaniaAseguradora").
		Preload("Corredor").
		First(&poliza, id).Error; err != nil {
		return nil, err
	}
	return &poliza, nil
}
