package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/seguros_backend/config"
	"bitbucket.org/mmdatafocus/seguros_backend/utils"
)

type BienAsegurado struct {
	ID           int       `gorm:"primary_key" json:"id"`
	PolizaId     int       `gorm:"index;not null" json:"poliza_id" binding:"required"`
	Nombre       string    `gorm:"size:255;not null" json:"nombre" binding:"required"`
	Marca        string    `gorm:"size:100" json:"marca"`
	Modelo       string    `gorm:"size:100" json:"modelo"`
	Serie        string    `gorm:"size:100;index" json:"serie"`
	CodigoActivo string    `gorm:"size:100;index" json:"codigo_activo"`
	Responsable  string    `gorm:"size:255" json:"responsable"`
	Ubicacion    string    `gorm:"size:255" json:"ubicacion"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewBienAsegurado struct {
	PolizaId     int    `json:"poliza_id" binding:"required"`
	Nombre       string `json:"nombre" binding:"required"`
	Marca        string `json:"marca"`
	Modelo       string `json:"modelo"`
	Serie        string `json:"serie"`
	CodigoActivo string `json:"codigo_activo"`
	Responsable  string `json:"responsable"`
	Ubicacion    string `json:"ubicacion"`
}

func GetBienAseguradoById(ctx context.Context, id int) (*BienAsegurado, error) {
	db := config.GetDB()
	var bien BienAsegurado
	if err := db.WithContext(ctx).First(&bien, id).Error; err != nil {
		return nil, err
	}
	return &bien, nil
}

// ResolverBienPorCodigo resolves an extracted asset code or serial to exactly
// one covered asset. Zero or multiple matches is an ambiguous resolution, the
// caller keeps the source email pendiente.
func ResolverBienPorCodigo(ctx context.Context, codigoActivo string, serie string) (*BienAsegurado, error) {
	db := config.GetDB()
	var bienes []*BienAsegurado

	dbCtx := db.WithContext(ctx).Model(&BienAsegurado{})
	switch {
	case codigoActivo != "" && serie != "":
		dbCtx = dbCtx.Where("codigo_activo = ? OR serie = ?", codigoActivo, serie)
	case codigoActivo != "":
		dbCtx = dbCtx.Where("codigo_activo = ?", codigoActivo)
	case serie != "":
		dbCtx = dbCtx.Where("serie = ?", serie)
	default:
		return nil, utils.ErrAmbiguousResolution
	}

	if err := dbCtx.Find(&bienes).Error; err != nil {
		return nil, err
	}
	if len(bienes) != 1 {
		return nil, utils.ErrAmbiguousResolution
	}
	return bienes[0], nil
}
