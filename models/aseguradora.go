package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/seguros_backend/config"
)

type CompaniaAseguradora struct {
	ID             int       `gorm:"primary_key" json:"id"`
	Nombre         string    `gorm:"size:255;not null" json:"nombre" binding:"required"`
	Ruc            string    `gorm:"size:13;uniqueIndex;not null" json:"ruc" binding:"required"`
	CorreoContacto string    `gorm:"size:255" json:"correo_contacto"`
	Telefono       string    `gorm:"size:50" json:"telefono"`
	Activa         *bool     `gorm:"not null;default:true" json:"activa"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type CorredorSeguros struct {
	ID             int       `gorm:"primary_key" json:"id"`
	Nombre         string    `gorm:"size:255;not null" json:"nombre" binding:"required"`
	Ruc            string    `gorm:"size:13;uniqueIndex;not null" json:"ruc" binding:"required"`
	CorreoContacto string    `gorm:"size:255;not null" json:"correo_contacto" binding:"required"`
	Telefono       string    `gorm:"size:50" json:"telefono"`
	Activo         *bool     `gorm:"not null;default:true" json:"activo"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func GetCompaniaAseguradoraById(ctx context.Context, id int) (*CompaniaAseguradora, error) {
	db := config.GetDB()
	var compania CompaniaAseguradora
	if err := db.WithContext(ctx).First(&compania, id).Error; err != nil {
		return nil, err
	}
	return &compania, nil
}

// GetCorredorById returns the broker; its contact email is the recipient of
// claim notifications.
func GetCorredorById(ctx context.Context, id int) (*CorredorSeguros, error) {
	db := config.GetDB()
	var corredor CorredorSeguros
	if err := db.WithContext(ctx).First(&corredor, id).Error; err != nil {
		return nil, err
	}
	return &corredor, nil
}
