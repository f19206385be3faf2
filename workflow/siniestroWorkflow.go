package workflow

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"bitbucket.org/mmdatafocus/seguros_backend/config"
	"bitbucket.org/mmdatafocus/seguros_backend/models"
	"bitbucket.org/mmdatafocus/seguros_backend/utils"
)

const moduleName = "workflow"

// transicion maps a lifecycle event to the states it may leave from and the
// state it lands on. EventoRechazar is handled apart: any non-terminal state
// may be rejected.
type transicion struct {
	Desde []models.EstadoSiniestro
	Hacia models.EstadoSiniestro
}

var tablaTransiciones = map[models.EventoSiniestro]transicion{
	models.EventoNotificarBroker: {
		Desde: []models.EstadoSiniestro{models.EstadoSiniestroRegistrado},
		Hacia: models.EstadoSiniestroNotificadoBroker,
	},
	models.EventoConfirmarDocumentos: {
		Desde: []models.EstadoSiniestro{models.EstadoSiniestroNotificadoBroker},
		Hacia: models.EstadoSiniestroDocumentacionLista,
	},
	models.EventoEnviarAseguradora: {
		Desde: []models.EstadoSiniestro{models.EstadoSiniestroDocumentacionLista},
		Hacia: models.EstadoSiniestroEnviadoAseguradora,
	},
	models.EventoRecibirRecibo: {
		Desde: []models.EstadoSiniestro{models.EstadoSiniestroEnviadoAseguradora},
		Hacia: models.EstadoSiniestroReciboRecibido,
	},
	models.EventoFirmarRecibo: {
		Desde: []models.EstadoSiniestro{models.EstadoSiniestroReciboRecibido},
		Hacia: models.EstadoSiniestroReciboFirmado,
	},
	models.EventoIniciarLiquidacion: {
		Desde: []models.EstadoSiniestro{models.EstadoSiniestroReciboFirmado},
		Hacia: models.EstadoSiniestroPendienteLiquidacion,
	},
	models.EventoExpirarLiquidacion: {
		Desde: []models.EstadoSiniestro{models.EstadoSiniestroPendienteLiquidacion},
		Hacia: models.EstadoSiniestroVencido,
	},
	models.EventoRegistrarLiquidacion: {
		Desde: []models.EstadoSiniestro{
			models.EstadoSiniestroPendienteLiquidacion,
			models.EstadoSiniestroVencido,
		},
		Hacia: models.EstadoSiniestroLiquidado,
	},
	models.EventoCerrar: {
		Desde: []models.EstadoSiniestro{models.EstadoSiniestroLiquidado},
		Hacia: models.EstadoSiniestroCerrado,
	},
}

// SiguienteEstado resolves the target state for an event fired at the current
// state. The second return is false when the transition is illegal.
func SiguienteEstado(actual models.EstadoSiniestro, evento models.EventoSiniestro) (models.EstadoSiniestro, bool) {
	if evento == models.EventoRechazar {
		if actual.IsTerminal() {
			return "", false
		}
		return models.EstadoSiniestroRechazado, true
	}
	t, ok := tablaTransiciones[evento]
	if !ok {
		return "", false
	}
	for _, desde := range t.Desde {
		if desde == actual {
			return t.Hacia, true
		}
	}
	return "", false
}

// ResultadoTransicion is the outcome of a transition attempt. A rejected
// attempt is a business outcome, not an error: state stays untouched and the
// reason is recorded for the caller to log or surface.
type ResultadoTransicion struct {
	Aplicada       bool                   `json:"aplicada"`
	EstadoAnterior models.EstadoSiniestro `json:"estado_anterior"`
	EstadoNuevo    models.EstadoSiniestro `json:"estado_nuevo,omitempty"`
	MotivoRechazo  string                 `json:"motivo_rechazo,omitempty"`
}

func rechazada(actual models.EstadoSiniestro, motivo string) *ResultadoTransicion {
	return &ResultadoTransicion{
		Aplicada:       false,
		EstadoAnterior: actual,
		MotivoRechazo:  motivo,
	}
}

// sellosPara returns the timestamp columns stamped when entering a state.
func sellosPara(destino models.EstadoSiniestro, now time.Time) map[string]interface{} {
	campos := map[string]interface{}{}
	switch destino {
	case models.EstadoSiniestroNotificadoBroker:
		campos["fecha_notificacion_broker"] = now
	case models.EstadoSiniestroDocumentacionLista:
		campos["fecha_respuesta_broker"] = now
	case models.EstadoSiniestroEnviadoAseguradora:
		campos["fecha_envio_aseguradora"] = now
	case models.EstadoSiniestroReciboRecibido:
		campos["fecha_recepcion_recibo"] = now
	case models.EstadoSiniestroReciboFirmado:
		campos["fecha_firma_recibo"] = now
	case models.EstadoSiniestroPendienteLiquidacion:
		// entering the settlement countdown arms the 72h deadline
		campos["fecha_limite_liquidacion"] = models.FechaLimiteDesde(now)
	case models.EstadoSiniestroLiquidado:
		campos["fecha_liquidacion"] = now
	case models.EstadoSiniestroCerrado:
		campos["fecha_cierre"] = now
	}
	return campos
}

// AplicarTransicion applies a lifecycle event to a claim with
// at-most-one-writer semantics: a per-claim advisory lock plus a conditional
// UPDATE ... WHERE estado = ?. A failed conditional update means another
// writer already moved the claim; that is a rejected outcome, never an error.
// extra carries additional columns the caller wants stamped in the same
// update (e.g. settlement amounts, rejection reason).
func AplicarTransicion(ctx context.Context, siniestroId int, evento models.EventoSiniestro, now time.Time, extra map[string]interface{}) (*ResultadoTransicion, error) {
	db := config.GetDB()
	logger := config.GetLogger()

	var resultado *ResultadoTransicion
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := AcquireSiniestroLock(tx, siniestroId); err != nil {
			return err
		}
		defer ReleaseSiniestroLock(tx, siniestroId)

		var siniestro models.Siniestro
		if err := tx.First(&siniestro, siniestroId).Error; err != nil {
			return err
		}

		destino, ok := SiguienteEstado(siniestro.Estado, evento)
		if !ok {
			resultado = rechazada(siniestro.Estado,
				fmt.Sprintf("evento %s no permitido desde %s", evento, siniestro.Estado))
			return nil
		}

		campos := sellosPara(destino, now)
		campos["estado"] = destino
		for k, v := range extra {
			campos[k] = v
		}

		res := tx.Model(&models.Siniestro{}).
			Where("id = ? AND estado = ?", siniestroId, siniestro.Estado).
			Updates(campos)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// someone else already transitioned it
			resultado = rechazada(siniestro.Estado, "el siniestro fue modificado por otro proceso")
			return nil
		}

		if err := encolarNotificacionTransicion(ctx, tx, &siniestro, destino, now); err != nil {
			return err
		}

		resultado = &ResultadoTransicion{
			Aplicada:       true,
			EstadoAnterior: siniestro.Estado,
			EstadoNuevo:    destino,
		}
		return nil
	})
	if err != nil {
		config.LogError(logger, moduleName, "AplicarTransicion", "transition transaction failed", siniestroId, err)
		return nil, err
	}
	return resultado, nil
}

// encolarNotificacionTransicion writes outbox mail for the transitions that
// notify someone: broker notification on notificado_broker, closure notice on
// cerrado.
func encolarNotificacionTransicion(ctx context.Context, tx *gorm.DB, siniestro *models.Siniestro, destino models.EstadoSiniestro, now time.Time) error {
	switch destino {
	case models.EstadoSiniestroNotificadoBroker:
		poliza, err := models.GetPolizaById(ctx, siniestro.PolizaId)
		if err != nil {
			return err
		}
		if poliza.Corredor == nil || !utils.IsValidEmail(poliza.Corredor.CorreoContacto) {
			return nil
		}
		correlationId, _ := utils.GetCorrelationIdFromContext(ctx)
		return models.EncolarNotificacion(tx, &models.NotificacionEmail{
			SiniestroId:   &siniestro.ID,
			Destinatarios: poliza.Corredor.CorreoContacto,
			CorrelationId: correlationId,
			Asunto:        fmt.Sprintf("NOTIFICACION SINIESTRO %s", siniestro.Numero),
			Cuerpo: fmt.Sprintf(
				"Se notifica el siniestro %s sobre la poliza %s.\n\nDescripcion: %s\nCausa: %s\nFecha de reporte: %s\n",
				siniestro.Numero, poliza.NumeroPoliza, siniestro.Descripcion, siniestro.Causa,
				siniestro.FechaReporte.Format("2006-01-02")),
		})
	}
	return nil
}

// CrearSiniestro registers a claim: allocates the SIN-YYYY-NNNN number under
// the numbering lock, persists it in registrado and seeds the required
// document checklist.
func CrearSiniestro(ctx context.Context, input *models.NewSiniestro, now time.Time) (*models.Siniestro, error) {
	db := config.GetDB()
	logger := config.GetLogger()

	if err := utils.ValidateResourceId[models.Poliza](ctx, input.PolizaId); err != nil {
		return nil, err
	}
	if err := utils.ValidateResourceId[models.BienAsegurado](ctx, input.BienAseguradoId); err != nil {
		return nil, err
	}
	if err := utils.ValidateResourceId[models.TipoSiniestro](ctx, input.TipoSiniestroId); err != nil {
		return nil, err
	}

	fechaReporte := input.FechaReporte
	if fechaReporte.IsZero() {
		fechaReporte = now
	}

	siniestro := &models.Siniestro{
		PolizaId:        input.PolizaId,
		BienAseguradoId: input.BienAseguradoId,
		TipoSiniestroId: input.TipoSiniestroId,
		Descripcion:     input.Descripcion,
		Causa:           input.Causa,
		ReportadoPor:    input.ReportadoPor,
		MontoEstimado:   input.MontoEstimado,
		FechaReporte:    fechaReporte,
		Estado:          models.EstadoSiniestroRegistrado,
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		anio := fechaReporte.Year()
		if err := AcquireNumeracionLock(tx, anio); err != nil {
			return err
		}
		defer ReleaseNumeracionLock(tx, anio)

		numero, err := models.GenerarNumeroSiniestro(tx, anio)
		if err != nil {
			return err
		}
		siniestro.Numero = numero

		if err := tx.Create(siniestro).Error; err != nil {
			return err
		}

		for _, doc := range models.ChecklistInicial(siniestro.ID) {
			if err := tx.Create(doc).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		config.LogError(logger, moduleName, "CrearSiniestro", "claim registration failed", input, err)
		return nil, err
	}
	return siniestro, nil
}
