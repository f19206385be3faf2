package models

import (
	"context"
	"os"
	"time"

	"bitbucket.org/mmdatafocus/seguros_backend/config"
)

// Catalog tables referenced by policies and claims.

type TipoPoliza struct {
	ID          int       `gorm:"primary_key" json:"id"`
	Nombre      string    `gorm:"size:100;uniqueIndex;not null" json:"nombre" binding:"required"`
	Descripcion string    `gorm:"size:255" json:"descripcion"`
	Activo      *bool     `gorm:"not null;default:true" json:"activo"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TipoSiniestroPorDefecto is the claim type assigned to claims opened
// automatically from report emails. TIPO_SINIESTRO_REPORTE selects it by
// name, otherwise the first active type applies.
func TipoSiniestroPorDefecto(ctx context.Context) (*TipoSiniestro, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("activo = true")
	if nombre := os.Getenv("TIPO_SINIESTRO_REPORTE"); nombre != "" {
		dbCtx = dbCtx.Where("nombre = ?", nombre)
	}
	var tipo TipoSiniestro
	if err := dbCtx.Order("id").First(&tipo).Error; err != nil {
		return nil, err
	}
	return &tipo, nil
}

type TipoSiniestro struct {
	ID          int       `gorm:"primary_key" json:"id"`
	Nombre      string    `gorm:"size:100;uniqueIndex;not null" json:"nombre" binding:"required"`
	Descripcion string    `gorm:"size:255" json:"descripcion"`
	Activo      *bool     `gorm:"not null;default:true" json:"activo"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
