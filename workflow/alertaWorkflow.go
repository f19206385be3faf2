package workflow

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"bitbucket.org/mmdatafocus/seguros_backend/config"
	"bitbucket.org/mmdatafocus/seguros_backend/models"
)

// Thresholds for the monitored conditions.
const (
	diasUmbralPagoPendiente = 7
	diasVentanaProntoPago   = 5
	diasUmbralDocumentacion = 30
	diasUmbralRespuesta     = 8
)

// Snapshot rows: the minimal entity views the derivation engine needs. They
// carry no DB handles so derivation stays pure and testable at a fixed now.

type PolizaSnapshot struct {
	Id           int
	NumeroPoliza string
	FechaFin     time.Time
	Estado       models.EstadoPoliza
}

type FacturaSnapshot struct {
	Id               int
	NumeroFactura    string
	FechaEmision     time.Time
	FechaVencimiento time.Time
	Estado           models.EstadoFactura
	MontoTotal       decimal.Decimal
}

type SiniestroSnapshot struct {
	Id                      int
	Numero                  string
	Estado                  models.EstadoSiniestro
	FechaReporte            time.Time
	FechaNotificacionBroker *time.Time
	FechaEnvioAseguradora   *time.Time
	ChecklistCompleto       bool
}

// SnapshotAlertas is the consistent view of the system the engine evaluates.
type SnapshotAlertas struct {
	Polizas        []PolizaSnapshot
	Facturas       []FacturaSnapshot
	Siniestros     []SiniestroSnapshot
	UltimasAlertas map[models.ClaveAlerta]time.Time
}

// DerivarAlertas computes the alerts due at now. Idempotent: running twice at
// the same now over the same snapshot-plus-created-alerts produces nothing
// new, because every emitted alert would appear in UltimasAlertas with the
// same timestamp and fail the eligibility check.
func DerivarAlertas(snapshot SnapshotAlertas, now time.Time) []*models.Alerta {
	var alertas []*models.Alerta

	emitir := func(a *models.Alerta) {
		clave := models.ClaveAlerta{Tipo: a.Tipo, Referencia: a.Referencia, ReferenciaId: a.ReferenciaId()}
		ultima, existe := snapshot.UltimasAlertas[clave]
		if existe {
			if !a.Tipo.IsCadence() {
				return // one-shot already fired
			}
			if now.Sub(ultima) < models.CadenciaAlertaDias*24*time.Hour {
				return // cadence window not yet elapsed
			}
		}
		a.FechaCreacion = now
		a.Estado = models.EstadoAlertaPendiente
		alertas = append(alertas, a)
	}

	hoy := diaDe(now)

	for i := range snapshot.Polizas {
		p := snapshot.Polizas[i]
		if p.Estado == models.EstadoPolizaCancelada {
			continue
		}
		diasRestantes := diasEntre(hoy, diaDe(p.FechaFin))
		if diasRestantes < 0 || diasRestantes > models.DiasAvisoVencimiento {
			continue
		}
		emitir(&models.Alerta{
			Tipo:       models.TipoAlertaVencimientoPoliza,
			Referencia: models.ReferenciaAlertaPoliza,
			PolizaId:   &p.Id,
			Titulo:     fmt.Sprintf("Poliza %s por vencer", p.NumeroPoliza),
			Mensaje: fmt.Sprintf("La poliza %s vence el %s (%d dias restantes).",
				p.NumeroPoliza, p.FechaFin.Format("2006-01-02"), diasRestantes),
		})
	}

	for i := range snapshot.Facturas {
		f := snapshot.Facturas[i]
		if f.Estado == models.EstadoFacturaPagada {
			continue
		}

		diasParaVencer := diasEntre(hoy, diaDe(f.FechaVencimiento))
		if diasParaVencer >= 0 && diasParaVencer <= diasUmbralPagoPendiente {
			emitir(&models.Alerta{
				Tipo:       models.TipoAlertaPagoPendiente,
				Referencia: models.ReferenciaAlertaFactura,
				FacturaId:  &f.Id,
				Titulo:     fmt.Sprintf("Factura %s proxima a vencer", f.NumeroFactura),
				Mensaje: fmt.Sprintf("La factura %s por %s vence el %s.",
					f.NumeroFactura, f.MontoTotal.StringFixed(2), f.FechaVencimiento.Format("2006-01-02")),
			})
		}

		diasEmision := diasEntre(diaDe(f.FechaEmision), hoy)
		limiteDescuento := models.DiasDescuentoProntoPago
		if diasEmision >= limiteDescuento-diasVentanaProntoPago && diasEmision <= limiteDescuento {
			emitir(&models.Alerta{
				Tipo:       models.TipoAlertaProntoPago,
				Referencia: models.ReferenciaAlertaFactura,
				FacturaId:  &f.Id,
				Titulo:     fmt.Sprintf("Descuento pronto pago por expirar: factura %s", f.NumeroFactura),
				Mensaje: fmt.Sprintf("La ventana de descuento por pronto pago de la factura %s cierra en %d dias.",
					f.NumeroFactura, limiteDescuento-diasEmision),
			})
		}
	}

	for i := range snapshot.Siniestros {
		s := snapshot.Siniestros[i]
		if s.Estado.IsTerminal() {
			continue
		}

		if !s.ChecklistCompleto && diasEntre(diaDe(s.FechaReporte), hoy) >= diasUmbralDocumentacion {
			emitir(&models.Alerta{
				Tipo:        models.TipoAlertaDocumentacionPendiente,
				Referencia:  models.ReferenciaAlertaSiniestro,
				SiniestroId: &s.Id,
				Titulo:      fmt.Sprintf("Documentacion pendiente: siniestro %s", s.Numero),
				Mensaje: fmt.Sprintf("El siniestro %s reportado el %s aun no completa su documentacion requerida.",
					s.Numero, s.FechaReporte.Format("2006-01-02")),
			})
		}

		var esperaDesde *time.Time
		switch s.Estado {
		case models.EstadoSiniestroNotificadoBroker:
			esperaDesde = s.FechaNotificacionBroker
		case models.EstadoSiniestroEnviadoAseguradora:
			esperaDesde = s.FechaEnvioAseguradora
		}
		if esperaDesde != nil && now.Sub(*esperaDesde) >= diasUmbralRespuesta*24*time.Hour {
			emitir(&models.Alerta{
				Tipo:        models.TipoAlertaRespuestaPendiente,
				Referencia:  models.ReferenciaAlertaSiniestro,
				SiniestroId: &s.Id,
				Titulo:      fmt.Sprintf("Sin respuesta: siniestro %s", s.Numero),
				Mensaje: fmt.Sprintf("El siniestro %s lleva %d dias en %s sin respuesta.",
					s.Numero, int(now.Sub(*esperaDesde).Hours()/24), s.Estado),
			})
		}
	}

	return alertas
}

func diaDe(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// diasEntre counts whole days from a to b (negative when b precedes a).
func diasEntre(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}

// CargarSnapshotAlertas reads the evaluation snapshot in one pass. Runs under
// the store's transaction isolation; eventual consistency across one
// scheduling tick is acceptable.
func CargarSnapshotAlertas(ctx context.Context) (SnapshotAlertas, error) {
	db := config.GetDB()
	var snapshot SnapshotAlertas

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var polizas []models.Poliza
		if err := tx.Find(&polizas).Error; err != nil {
			return err
		}
		for _, p := range polizas {
			snapshot.Polizas = append(snapshot.Polizas, PolizaSnapshot{
				Id:           p.ID,
				NumeroPoliza: p.NumeroPoliza,
				FechaFin:     p.FechaFin,
				Estado:       p.Estado,
			})
		}

		var facturas []models.Factura
		if err := tx.Find(&facturas).Error; err != nil {
			return err
		}
		for _, f := range facturas {
			snapshot.Facturas = append(snapshot.Facturas, FacturaSnapshot{
				Id:               f.ID,
				NumeroFactura:    f.NumeroFactura,
				FechaEmision:     f.FechaEmision,
				FechaVencimiento: f.FechaVencimiento,
				Estado:           f.Estado,
				MontoTotal:       f.MontoTotal,
			})
		}

		var siniestros []models.Siniestro
		if err := tx.Find(&siniestros).Error; err != nil {
			return err
		}

		// one query for the whole checklist instead of one per claim
		var incompletos []int
		if err := tx.Model(&models.Documento{}).
			Where("requerido = true AND recibido = false").
			Distinct("siniestro_id").
			Pluck("siniestro_id", &incompletos).Error; err != nil {
			return err
		}
		pendienteDocs := make(map[int]bool, len(incompletos))
		for _, id := range incompletos {
			pendienteDocs[id] = true
		}

		for _, s := range siniestros {
			snapshot.Siniestros = append(snapshot.Siniestros, SiniestroSnapshot{
				Id:                      s.ID,
				Numero:                  s.Numero,
				Estado:                  s.Estado,
				FechaReporte:            s.FechaReporte,
				FechaNotificacionBroker: s.FechaNotificacionBroker,
				FechaEnvioAseguradora:   s.FechaEnvioAseguradora,
				ChecklistCompleto:       !pendienteDocs[s.ID],
			})
		}

		ultimas, err := models.UltimasAlertas(ctx)
		if err != nil {
			return err
		}
		snapshot.UltimasAlertas = ultimas
		return nil
	})
	if err != nil {
		return snapshot, err
	}
	return snapshot, nil
}

// GenerarAlertas runs one full derivation pass: load snapshot, derive, persist
// the due alerts and queue one outbox notification per alert.
func GenerarAlertas(ctx context.Context, now time.Time) (int, error) {
	db := config.GetDB()
	logger := config.GetLogger()

	snapshot, err := CargarSnapshotAlertas(ctx)
	if err != nil {
		config.LogError(logger, moduleName, "GenerarAlertas", "snapshot load failed", nil, err)
		return 0, err
	}

	alertas := DerivarAlertas(snapshot, now)
	if len(alertas) == 0 {
		return 0, nil
	}

	destinatarios := os.Getenv("ALERTAS_DESTINATARIOS")

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, alerta := range alertas {
			alerta.Destinatarios = destinatarios
			if err := tx.Create(alerta).Error; err != nil {
				return err
			}
			if destinatarios == "" {
				continue
			}
			if err := models.EncolarNotificacion(tx, &models.NotificacionEmail{
				AlertaId:      &alerta.ID,
				Destinatarios: destinatarios,
				Asunto:        alerta.Titulo,
				Cuerpo:        alerta.Mensaje,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		config.LogError(logger, moduleName, "GenerarAlertas", "alert persistence failed", len(alertas), err)
		return 0, err
	}

	logger.WithField("count", len(alertas)).Info("alerts generated")
	return len(alertas), nil
}
