package models

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"bitbucket.org/mmdatafocus/seguros_backend/config"
	"bitbucket.org/mmdatafocus/seguros_backend/utils"
)

// Rates fixed by regulation; the discount pair (5%, 20 days) follows the
// institution's payment policy.
var (
	TasaIva                 = decimal.NewFromFloat(0.15)
	TasaContribSuper        = decimal.NewFromFloat(0.035)
	TasaContribCampesino    = decimal.NewFromFloat(0.005)
	TasaDescuentoProntoPago = decimal.NewFromFloat(0.05)
)

// DiasDescuentoProntoPago is the early-payment window in days from emission.
const DiasDescuentoProntoPago = 20

type Factura struct {
	ID                    int             `gorm:"primary_key" json:"id"`
	PolizaId              int             `gorm:"index;not null" json:"poliza_id" binding:"required"`
	Poliza                *Poliza         `json:"poliza,omitempty"`
	NumeroFactura         string          `gorm:"size:100;uniqueIndex;not null" json:"numero_factura" binding:"required"`
	FechaEmision          time.Time       `gorm:"not null" json:"fecha_emision" binding:"required"`
	FechaVencimiento      time.Time       `gorm:"not null" json:"fecha_vencimiento" binding:"required"`
	Subtotal              decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"subtotal" binding:"required"`
	Iva                   decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"iva"`
	ContribucionSuper     decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"contribucion_super"`
	ContribucionCampesino decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"contribucion_campesino"`
	Retenciones           decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"retenciones"`
	DescuentoProntoPago   decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"descuento_pronto_pago"`
	MontoTotal            decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"monto_total"`
	Estado                EstadoFactura   `gorm:"type:enum('pendiente','parcial','pagada','vencida');default:pendiente" json:"estado"`
	Pagos                 []*Pago         `json:"pagos,omitempty"`
	CreatedAt             time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewFactura struct {
	PolizaId         int             `json:"poliza_id" binding:"required"`
	NumeroFactura    string          `json:"numero_factura" binding:"required"`
	FechaEmision     time.Time       `json:"fecha_emision" binding:"required"`
	FechaVencimiento time.Time       `json:"fecha_vencimiento" binding:"required"`
	Subtotal         decimal.Decimal `json:"subtotal" binding:"required"`
	Retenciones      decimal.Decimal `json:"retenciones"`
}

// TotalesFactura is the derived monetary breakdown of an invoice.
type TotalesFactura struct {
	Iva                   decimal.Decimal
	ContribucionSuper     decimal.Decimal
	ContribucionCampesino decimal.Decimal
	Descuento             decimal.Decimal
	MontoTotal            decimal.Decimal
}

// CalcularTotalesFactura derives the full monetary breakdown. Every component
// is rounded to 2 decimal places (half up) before entering the sum, so the
// stored pieces always add up to the stored total. The early-payment discount
// applies only within the window.
func CalcularTotalesFactura(subtotal, retenciones decimal.Decimal, diasDesdeEmision int) (TotalesFactura, error) {
	if subtotal.IsNegative() {
		return TotalesFactura{}, utils.NewValidationError("subtotal", "no puede ser negativo")
	}
	if retenciones.IsNegative() {
		return TotalesFactura{}, utils.NewValidationError("retenciones", "no puede ser negativo")
	}

	iva := subtotal.Mul(TasaIva).Round(2)
	contribSuper := subtotal.Mul(TasaContribSuper).Round(2)
	contribCampesino := subtotal.Mul(TasaContribCampesino).Round(2)

	descuento := decimal.Zero
	if diasDesdeEmision <= DiasDescuentoProntoPago {
		descuento = subtotal.Mul(TasaDescuentoProntoPago).Round(2)
	}

	montoTotal := subtotal.
		Add(iva).
		Add(contribSuper).
		Add(contribCampesino).
		Sub(retenciones).
		Sub(descuento).
		Round(2)

	return TotalesFactura{
		Iva:                   iva,
		ContribucionSuper:     contribSuper,
		ContribucionCampesino: contribCampesino,
		Descuento:             descuento,
		MontoTotal:            montoTotal,
	}, nil
}

// EstadoFacturaEn derives the invoice state from approved payments and the
// due date. Fully covered wins over overdue.
func EstadoFacturaEn(hoy time.Time, fechaVencimiento time.Time, montoTotal, totalPagado decimal.Decimal) EstadoFactura {
	if totalPagado.GreaterThanOrEqual(montoTotal) && montoTotal.IsPositive() {
		return EstadoFacturaPagada
	}
	if truncateDay(fechaVencimiento).Before(truncateDay(hoy)) {
		return EstadoFacturaVencida
	}
	if totalPagado.IsPositive() {
		return EstadoFacturaParcial
	}
	return EstadoFacturaPendiente
}

// DiasDesdeEmision counts whole days between emission and today.
func DiasDesdeEmision(fechaEmision, hoy time.Time) int {
	return int(truncateDay(hoy).Sub(truncateDay(fechaEmision)).Hours() / 24)
}

func GetFacturaById(ctx context.Context, id int) (*Factura, error) {
	db := config.GetDB()
	var factura Factura
	if err := db.WithContext(ctx).Preload("Pagos").First(&factura, id).Error; err != nil {
		return nil, err
	}
	return &factura, nil
}

// TotalPagadoAprobado sums the approved payments of an invoice.
func TotalPagadoAprobado(ctx context.Context, facturaId int) (decimal.Decimal, error) {
	db := config.GetDB()
	var total decimal.NullDecimal
	if err := db.WithContext(ctx).Model(&Pago{}).
		Where("factura_id = ? AND estado = ?", facturaId, EstadoPagoAprobado).
		Select("SUM(monto)").Scan(&total).Error; err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}
