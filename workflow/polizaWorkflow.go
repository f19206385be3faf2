package workflow

import (
	"context"
	"time"

	"gorm.io/gorm"

	"bitbucket.org/mmdatafocus/seguros_backend/config"
	"bitbucket.org/mmdatafocus/seguros_backend/models"
	"bitbucket.org/mmdatafocus/seguros_backend/utils"
)

// CrearPoliza validates and persists a policy. The duplicate check is the
// inclusive window-overlap rule on numero_poliza.
func CrearPoliza(ctx context.Context, input *models.NewPoliza, now time.Time) (*models.Poliza, error) {
	logger := config.GetLogger()

	if err := input.Validate(); err != nil {
		return nil, err
	}
	if err := utils.ValidateResourceId[models.CompaniaAseguradora](ctx, input.CompaniaAseguradoraId); err != nil {
		return nil, err
	}
	if err := utils.ValidateResourceId[models.CorredorSeguros](ctx, input.CorredorId); err != nil {
		return nil, err
	}
	if err := models.ValidarSolapamiento(ctx, input.NumeroPoliza, input.FechaInicio, input.FechaFin, 0); err != nil {
		return nil, err
	}

	poliza := &models.Poliza{
		NumeroPoliza:          input.NumeroPoliza,
		CompaniaAseguradoraId: input.CompaniaAseguradoraId,
		CorredorId:            input.CorredorId,
		TipoPolizaId:          input.TipoPolizaId,
		SumaAsegurada:         input.SumaAsegurada.Round(2),
		Coberturas:            input.Coberturas,
		FechaInicio:           input.FechaInicio,
		FechaFin:              input.FechaFin,
		Estado:                models.EstadoPolizaEn(now, input.FechaInicio, input.FechaFin),
		Observaciones:         input.Observaciones,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(poliza).Error; err != nil {
		config.LogError(logger, moduleName, "CrearPoliza", "policy creation failed", input, err)
		return nil, err
	}
	return poliza, nil
}

// RefrescarEstadosPolizas rederives every non-cancelled policy's state from
// its window at hoy. Cheap enough to run daily over the whole table.
func RefrescarEstadosPolizas(ctx context.Context, hoy time.Time) (int, error) {
	db := config.GetDB()
	logger := config.GetLogger()

	var polizas []models.Poliza
	if err := db.WithContext(ctx).
		Where("estado != ?", models.EstadoPolizaCancelada).
		Find(&polizas).Error; err != nil {
		return 0, err
	}

	cambios := 0
	for i := range polizas {
		p := &polizas[i]
		estado := models.EstadoPolizaEn(hoy, p.FechaInicio, p.FechaFin)
		if estado == p.Estado {
			continue
		}
		res := db.WithContext(ctx).Model(&models.Poliza{}).
			Where("id = ? AND estado = ?", p.ID, p.Estado).
			Update("estado", estado)
		if res.Error != nil {
			config.LogError(logger, moduleName, "RefrescarEstadosPolizas", "state update failed", p.ID, res.Error)
			return cambios, res.Error
		}
		if res.RowsAffected > 0 {
			cambios++
		}
	}
	return cambios, nil
}

// RefrescarEstadosFacturas rederives every open invoice's state and discount
// eligibility at hoy. An invoice past the discount window with no approved
// payment loses its provisional discount here.
func RefrescarEstadosFacturas(ctx context.Context, hoy time.Time) (int, error) {
	db := config.GetDB()
	logger := config.GetLogger()

	var facturas []models.Factura
	if err := db.WithContext(ctx).
		Where("estado != ?", models.EstadoFacturaPagada).
		Find(&facturas).Error; err != nil {
		return 0, err
	}

	cambios := 0
	for i := range facturas {
		f := &facturas[i]
		err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := acquireFacturaLock(tx, f.ID); err != nil {
				return err
			}
			defer releaseFacturaLock(tx, f.ID)

			totalPagado, err := totalAprobadoTx(tx, f.ID)
			if err != nil {
				return err
			}

			// discount eligibility at hoy, unless an approved payment
			// already pinned it inside the window
			dias := models.DiasDesdeEmision(f.FechaEmision, hoy)
			if totalPagado.IsPositive() && !f.DescuentoProntoPago.IsZero() {
				dias = 0
			}
			totales, err := models.CalcularTotalesFactura(f.Subtotal, f.Retenciones, dias)
			if err != nil {
				return err
			}

			estado := models.EstadoFacturaEn(hoy, f.FechaVencimiento, totales.MontoTotal, totalPagado)
			if estado == f.Estado && totales.MontoTotal.Equal(f.MontoTotal) {
				return nil
			}

			cambios++
			return tx.Model(&models.Factura{}).Where("id = ?", f.ID).
				Updates(map[string]interface{}{
					"descuento_pronto_pago": totales.Descuento,
					"monto_total":           totales.MontoTotal,
					"estado":                estado,
				}).Error
		})
		if err != nil {
			config.LogError(logger, moduleName, "RefrescarEstadosFacturas", "invoice refresh failed", f.ID, err)
			return cambios, err
		}
	}
	return cambios, nil
}
