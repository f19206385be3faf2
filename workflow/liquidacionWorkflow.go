package workflow

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"bitbucket.org/mmdatafocus/seguros_backend/config"
	"bitbucket.org/mmdatafocus/seguros_backend/models"
	"bitbucket.org/mmdatafocus/seguros_backend/utils"
)

// NewLiquidacion is the settlement registration input. The indemnity already
// came from the receipt; registering the deposit closes the countdown.
type NewLiquidacion struct {
	FechaLiquidacion time.Time       `json:"fecha_liquidacion" binding:"required"`
	MontoIndemnizado decimal.Decimal `json:"monto_indemnizado" binding:"required"`
	PerdidaBruta     decimal.Decimal `json:"perdida_bruta"`
	Deducible        decimal.Decimal `json:"deducible"`
	Depreciacion     decimal.Decimal `json:"depreciacion"`
	Referencia       string          `json:"referencia"`
}

// RegistrarLiquidacion moves a claim to liquidado, stamping the settlement
// amounts in the same conditional update. Valid from pendiente_liquidacion
// and from vencido (late settlement is still settlement).
func RegistrarLiquidacion(ctx context.Context, siniestroId int, input *NewLiquidacion, now time.Time) (*ResultadoTransicion, error) {
	if !input.MontoIndemnizado.IsPositive() {
		return nil, utils.NewValidationError("monto_indemnizado", "debe ser mayor que cero")
	}

	extra := map[string]interface{}{
		"monto_indemnizado": input.MontoIndemnizado.Round(2),
		"fecha_liquidacion": input.FechaLiquidacion,
	}
	if !input.PerdidaBruta.IsZero() {
		extra["perdida_bruta"] = input.PerdidaBruta.Round(2)
	}
	if !input.Deducible.IsZero() {
		extra["deducible"] = input.Deducible.Round(2)
	}
	if !input.Depreciacion.IsZero() {
		extra["depreciacion"] = input.Depreciacion.Round(2)
	}

	return AplicarTransicion(ctx, siniestroId, models.EventoRegistrarLiquidacion, now, extra)
}

// CambioEstadoSiniestro records one timeout-driven state change.
type CambioEstadoSiniestro struct {
	SiniestroId    int                    `json:"siniestro_id"`
	Numero         string                 `json:"numero"`
	EstadoAnterior models.EstadoSiniestro `json:"estado_anterior"`
	EstadoNuevo    models.EstadoSiniestro `json:"estado_nuevo"`
}

// AvanzarPlazosLiquidacion expires every claim whose settlement deadline has
// passed. Purely a comparison against stored timestamps; each expiry goes
// through the same conditional-update path, so a concurrent settlement wins
// the race cleanly.
func AvanzarPlazosLiquidacion(ctx context.Context, now time.Time) ([]CambioEstadoSiniestro, error) {
	db := config.GetDB()
	logger := config.GetLogger()

	var vencidos []models.Siniestro
	if err := db.WithContext(ctx).Model(&models.Siniestro{}).
		Where("estado = ? AND fecha_limite_liquidacion IS NOT NULL AND fecha_limite_liquidacion < ?",
			models.EstadoSiniestroPendienteLiquidacion, now).
		Find(&vencidos).Error; err != nil {
		return nil, err
	}

	cambios := make([]CambioEstadoSiniestro, 0, len(vencidos))
	for _, siniestro := range vencidos {
		resultado, err := AplicarTransicion(ctx, siniestro.ID, models.EventoExpirarLiquidacion, now, nil)
		if err != nil {
			return cambios, err
		}
		if !resultado.Aplicada {
			// settled (or rejected) between the scan and the update; skip
			logger.WithField("siniestro", siniestro.Numero).
				Info("settlement expiry skipped: " + resultado.MotivoRechazo)
			continue
		}
		cambios = append(cambios, CambioEstadoSiniestro{
			SiniestroId:    siniestro.ID,
			Numero:         siniestro.Numero,
			EstadoAnterior: resultado.EstadoAnterior,
			EstadoNuevo:    resultado.EstadoNuevo,
		})
	}

	if len(cambios) > 0 {
		logger.WithField("count", len(cambios)).Info("settlement deadlines expired")
	}
	return cambios, nil
}
