package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"bitbucket.org/mmdatafocus/seguros_backend/config"
	"bitbucket.org/mmdatafocus/seguros_backend/models"
	"bitbucket.org/mmdatafocus/seguros_backend/utils"
)

// CrearFactura persists an invoice with its full derived breakdown. The
// early-payment discount is provisional: it stands while the invoice can
// still be paid inside the window and is dropped by the state refresh once
// the window closes unpaid.
func CrearFactura(ctx context.Context, input *models.NewFactura, now time.Time) (*models.Factura, error) {
	db := config.GetDB()
	logger := config.GetLogger()

	if !input.FechaEmision.Before(input.FechaVencimiento) {
		return nil, utils.NewValidationError("fecha_emision", "debe ser anterior a fecha_vencimiento")
	}
	if err := utils.ValidateResourceId[models.Poliza](ctx, input.PolizaId); err != nil {
		return nil, err
	}
	if err := utils.ValidateUnique[models.Factura](ctx, "numero_factura", input.NumeroFactura, 0); err != nil {
		return nil, err
	}

	totales, err := models.CalcularTotalesFactura(input.Subtotal, input.Retenciones,
		models.DiasDesdeEmision(input.FechaEmision, now))
	if err != nil {
		return nil, err
	}

	factura := &models.Factura{
		PolizaId:              input.PolizaId,
		NumeroFactura:         input.NumeroFactura,
		FechaEmision:          input.FechaEmision,
		FechaVencimiento:      input.FechaVencimiento,
		Subtotal:              input.Subtotal.Round(2),
		Iva:                   totales.Iva,
		ContribucionSuper:     totales.ContribucionSuper,
		ContribucionCampesino: totales.ContribucionCampesino,
		Retenciones:           input.Retenciones.Round(2),
		DescuentoProntoPago:   totales.Descuento,
		MontoTotal:            totales.MontoTotal,
		Estado:                models.EstadoFacturaPendiente,
	}

	if err := db.WithContext(ctx).Create(factura).Error; err != nil {
		config.LogError(logger, moduleName, "CrearFactura", "invoice creation failed", input, err)
		return nil, err
	}
	return factura, nil
}

// RegistrarPago records a payment against an invoice and, when approved,
// recomputes the invoice totals (discount pinned to the payment date) and its
// state. Serialized per invoice with an advisory lock so two payments cannot
// both pass the cap check.
func RegistrarPago(ctx context.Context, facturaId int, input *models.NewPago, now time.Time) (*models.Pago, error) {
	db := config.GetDB()
	logger := config.GetLogger()

	estado := input.Estado
	if estado == "" {
		estado = models.EstadoPagoPendiente
	}

	pago := &models.Pago{
		FacturaId:  facturaId,
		FechaPago:  input.FechaPago,
		Monto:      input.Monto.Round(2),
		FormaPago:  input.FormaPago,
		Referencia: input.Referencia,
		Estado:     estado,
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := acquireFacturaLock(tx, facturaId); err != nil {
			return err
		}
		defer releaseFacturaLock(tx, facturaId)

		var factura models.Factura
		if err := tx.First(&factura, facturaId).Error; err != nil {
			return err
		}

		totalPagado, err := totalAprobadoTx(tx, facturaId)
		if err != nil {
			return err
		}
		if err := models.ValidarMontoPago(factura.MontoTotal, totalPagado, pago.Monto); err != nil {
			return err
		}

		if err := tx.Create(pago).Error; err != nil {
			return err
		}

		if pago.Estado == models.EstadoPagoAprobado {
			return recomputarFacturaTx(tx, &factura, pago.FechaPago, now)
		}
		return nil
	})
	if err != nil {
		if !utils.IsValidationError(err) {
			config.LogError(logger, moduleName, "RegistrarPago", "payment registration failed", facturaId, err)
		}
		return nil, err
	}
	return pago, nil
}

// AprobarPago flips a pending payment to aprobado/rechazado and recomputes
// the invoice. The cap is re-checked under the invoice lock at approval time:
// the registration check only saw the approved total of that moment, and
// other pending payments may have been approved since.
func AprobarPago(ctx context.Context, pagoId int, estado models.EstadoPago, now time.Time) error {
	if estado != models.EstadoPagoAprobado && estado != models.EstadoPagoRechazado {
		return utils.NewValidationError("estado", "debe ser aprobado o rechazado")
	}

	db := config.GetDB()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var pago models.Pago
		if err := tx.First(&pago, pagoId).Error; err != nil {
			return err
		}
		if pago.Estado != models.EstadoPagoPendiente {
			return utils.NewValidationError("estado", "el pago ya fue resuelto")
		}

		if err := acquireFacturaLock(tx, pago.FacturaId); err != nil {
			return err
		}
		defer releaseFacturaLock(tx, pago.FacturaId)

		var factura models.Factura
		if err := tx.First(&factura, pago.FacturaId).Error; err != nil {
			return err
		}

		if estado == models.EstadoPagoAprobado {
			totalPagado, err := totalAprobadoTx(tx, pago.FacturaId)
			if err != nil {
				return err
			}
			if err := models.ValidarMontoPago(factura.MontoTotal, totalPagado, pago.Monto); err != nil {
				return err
			}
		}

		if err := tx.Model(&pago).Update("estado", estado).Error; err != nil {
			return err
		}
		return recomputarFacturaTx(tx, &factura, pago.FechaPago, now)
	})
}

// recomputarFacturaTx rederives the invoice breakdown and state after a
// payment event. The discount window is measured against the payment date so
// an approved early payment keeps its discount permanently.
func recomputarFacturaTx(tx *gorm.DB, factura *models.Factura, fechaPago time.Time, now time.Time) error {
	totales, err := models.CalcularTotalesFactura(factura.Subtotal, factura.Retenciones,
		models.DiasDesdeEmision(factura.FechaEmision, fechaPago))
	if err != nil {
		return err
	}

	totalPagado, err := totalAprobadoTx(tx, factura.ID)
	if err != nil {
		return err
	}

	estado := models.EstadoFacturaEn(now, factura.FechaVencimiento, totales.MontoTotal, totalPagado)
	return tx.Model(factura).Updates(map[string]interface{}{
		"iva":                    totales.Iva,
		"contribucion_super":     totales.ContribucionSuper,
		"contribucion_campesino": totales.ContribucionCampesino,
		"descuento_pronto_pago":  totales.Descuento,
		"monto_total":            totales.MontoTotal,
		"estado":                 estado,
	}).Error
}

func totalAprobadoTx(tx *gorm.DB, facturaId int) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	if err := tx.Model(&models.Pago{}).
		Where("factura_id = ? AND estado = ?", facturaId, models.EstadoPagoAprobado).
		Select("SUM(monto)").Scan(&total).Error; err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}

func acquireFacturaLock(tx *gorm.DB, facturaId int) error {
	lockName := fmt.Sprintf("factura:%d", facturaId)
	var ok int
	if err := tx.Raw("SELECT GET_LOCK(?, 30)", lockName).Scan(&ok).Error; err != nil {
		return err
	}
	if ok != 1 {
		return fmt.Errorf("could not acquire payment lock for factura_id=%d", facturaId)
	}
	return nil
}

func releaseFacturaLock(tx *gorm.DB, facturaId int) {
	lockName := fmt.Sprintf("factura:%d", facturaId)
	var _ok int
	_ = tx.Raw("SELECT RELEASE_LOCK(?)", lockName).Scan(&_ok).Error
}
