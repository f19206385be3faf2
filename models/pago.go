package models

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"bitbucket.org/mmdatafocus/seguros_backend/config"
	"bitbucket.org/mmdatafocus/seguros_backend/utils"
)

type Pago struct {
	ID         int             `gorm:"primary_key" json:"id"`
	FacturaId  int             `gorm:"index;not null" json:"factura_id" binding:"required"`
	FechaPago  time.Time       `gorm:"not null" json:"fecha_pago" binding:"required"`
	Monto      decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"monto" binding:"required"`
	FormaPago  FormaPago       `gorm:"type:enum('transferencia','cheque','efectivo','debito');default:transferencia" json:"forma_pago"`
	Referencia string          `gorm:"size:100" json:"referencia"`
	Estado     EstadoPago      `gorm:"type:enum('pendiente','aprobado','rechazado');default:pendiente" json:"estado"`
	CreatedAt  time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewPago struct {
	FechaPago  time.Time       `json:"fecha_pago" binding:"required"`
	Monto      decimal.Decimal `json:"monto" binding:"required"`
	FormaPago  FormaPago       `json:"forma_pago"`
	Referencia string          `json:"referencia"`
	Estado     EstadoPago      `json:"estado"`
}

// ValidarMontoPago enforces the payment cap: cumulative approved payments may
// never exceed the invoice total.
func ValidarMontoPago(montoTotal, totalPagado, nuevoMonto decimal.Decimal) error {
	if !nuevoMonto.IsPositive() {
		return utils.NewValidationError("monto", "debe ser mayor que cero")
	}
	if totalPagado.Add(nuevoMonto).GreaterThan(montoTotal) {
		return utils.NewValidationError("monto", "los pagos acumulados superan el monto total de la factura")
	}
	return nil
}

func GetPagosByFactura(ctx context.Context, facturaId int) ([]*Pago, error) {
	db := config.GetDB()
	var pagos []*Pago
	if err := db.WithContext(ctx).
		Where("factura_id = ?", facturaId).
		Order("fecha_pago").
		Find(&pagos).Error; err != nil {
		return nil, err
	}
	return pagos, nil
}
