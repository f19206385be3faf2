package workflow

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"bitbucket.org/mmdatafocus/seguros_backend/models"
)

func enDia(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func clavesDe(alertas []*models.Alerta) map[models.ClaveAlerta]bool {
	claves := make(map[models.ClaveAlerta]bool, len(alertas))
	for _, a := range alertas {
		claves[models.ClaveAlerta{Tipo: a.Tipo, Referencia: a.Referencia, ReferenciaId: a.ReferenciaId()}] = true
	}
	return claves
}

// registrar folds freshly derived alerts back into the snapshot the way the
// scheduled job does after persisting them.
func registrar(snapshot *SnapshotAlertas, alertas []*models.Alerta) {
	if snapshot.UltimasAlertas == nil {
		snapshot.UltimasAlertas = map[models.ClaveAlerta]time.Time{}
	}
	for _, a := range alertas {
		clave := models.ClaveAlerta{Tipo: a.Tipo, Referencia: a.Referencia, ReferenciaId: a.ReferenciaId()}
		snapshot.UltimasAlertas[clave] = a.FechaCreacion
	}
}

func TestDerivarAlertasVencimientoPoliza(t *testing.T) {
	now := enDia(2026, 3, 1)

	tests := []struct {
		name     string
		fechaFin time.Time
		estado   models.EstadoPoliza
		want     bool
	}{
		{"ends in 31 days", now.AddDate(0, 0, 31), models.EstadoPolizaVigente, false},
		{"ends in 30 days", now.AddDate(0, 0, 30), models.EstadoPolizaPorVencer, true},
		{"ends in 1 day", now.AddDate(0, 0, 1), models.EstadoPolizaPorVencer, true},
		{"ends today", now, models.EstadoPolizaPorVencer, true},
		{"already ended", now.AddDate(0, 0, -1), models.EstadoPolizaVencida, false},
		{"cancelled policies are skipped", now.AddDate(0, 0, 10), models.EstadoPolizaCancelada, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snapshot := SnapshotAlertas{
				Polizas: []PolizaSnapshot{{Id: 1, NumeroPoliza: "POL-2026-0001", FechaFin: tt.fechaFin, Estado: tt.estado}},
			}
			alertas := DerivarAlertas(snapshot, now)
			if got := len(alertas) == 1; got != tt.want {
				t.Fatalf("derived %d alerts, want fired=%v", len(alertas), tt.want)
			}
			if tt.want && alertas[0].Tipo != models.TipoAlertaVencimientoPoliza {
				t.Errorf("tipo = %s, want vencimiento_poliza", alertas[0].Tipo)
			}
		})
	}
}

func TestDerivarAlertasPagoPendiente(t *testing.T) {
	now := enDia(2026, 3, 1)
	base := FacturaSnapshot{
		Id:            7,
		NumeroFactura: "FAC-2026-0001",
		FechaEmision:  now.AddDate(0, 0, -40), // well past the discount window
		MontoTotal:    decimal.NewFromInt(1140),
		Estado:        models.EstadoFacturaPendiente,
	}

	tests := []struct {
		name        string
		vencimiento time.Time
		estado      models.EstadoFactura
		want        bool
	}{
		{"due in 8 days", now.AddDate(0, 0, 8), models.EstadoFacturaPendiente, false},
		{"due in 7 days", now.AddDate(0, 0, 7), models.EstadoFacturaPendiente, true},
		{"due today", now, models.EstadoFacturaPendiente, true},
		{"already overdue", now.AddDate(0, 0, -1), models.EstadoFacturaVencida, false},
		{"paid invoices are skipped", now.AddDate(0, 0, 3), models.EstadoFacturaPagada, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := base
			f.FechaVencimiento = tt.vencimiento
			f.Estado = tt.estado
			alertas := DerivarAlertas(SnapshotAlertas{Facturas: []FacturaSnapshot{f}}, now)
			if got := len(alertas) == 1; got != tt.want {
				t.Fatalf("derived %d alerts, want fired=%v", len(alertas), tt.want)
			}
			if tt.want && alertas[0].Tipo != models.TipoAlertaPagoPendiente {
				t.Errorf("tipo = %s, want pago_pendiente", alertas[0].Tipo)
			}
		})
	}
}

func TestDerivarAlertasProntoPago(t *testing.T) {
	now := enDia(2026, 3, 21)

	tests := []struct {
		name        string
		diasEmision int
		want        bool
	}{
		{"14 days since emission", 14, false},
		{"15 days since emission", 15, true},
		{"20 days since emission", 20, true},
		{"21 days since emission", 21, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := FacturaSnapshot{
				Id:               3,
				NumeroFactura:    "FAC-2026-0002",
				FechaEmision:     now.AddDate(0, 0, -tt.diasEmision),
				FechaVencimiento: now.AddDate(0, 0, 45), // outside the payment warning
				MontoTotal:       decimal.NewFromInt(500),
				Estado:           models.EstadoFacturaPendiente,
			}
			alertas := DerivarAlertas(SnapshotAlertas{Facturas: []FacturaSnapshot{f}}, now)
			if got := len(alertas) == 1; got != tt.want {
				t.Fatalf("derived %d alerts, want fired=%v", len(alertas), tt.want)
			}
			if tt.want && alertas[0].Tipo != models.TipoAlertaProntoPago {
				t.Errorf("tipo = %s, want pronto_pago", alertas[0].Tipo)
			}
		})
	}
}

func TestDerivarAlertasDocumentacionPendiente(t *testing.T) {
	now := enDia(2026, 3, 31)

	tests := []struct {
		name      string
		diasDesde int
		checklist bool
		estado    models.EstadoSiniestro
		want      bool
	}{
		{"29 days with incomplete checklist", 29, false, models.EstadoSiniestroRegistrado, false},
		{"30 days with incomplete checklist", 30, false, models.EstadoSiniestroRegistrado, true},
		{"45 days with incomplete checklist", 45, false, models.EstadoSiniestroNotificadoBroker, true},
		{"complete checklist never fires", 60, true, models.EstadoSiniestroRegistrado, false},
		{"terminal claim never fires", 60, false, models.EstadoSiniestroRechazado, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := SiniestroSnapshot{
				Id:                11,
				Numero:            "SIN-2026-0001",
				Estado:            tt.estado,
				FechaReporte:      now.AddDate(0, 0, -tt.diasDesde),
				ChecklistCompleto: tt.checklist,
			}
			alertas := DerivarAlertas(SnapshotAlertas{Siniestros: []SiniestroSnapshot{s}}, now)
			var fired bool
			for _, a := range alertas {
				if a.Tipo == models.TipoAlertaDocumentacionPendiente {
					fired = true
				}
			}
			if fired != tt.want {
				t.Fatalf("documentacion_pendiente fired=%v, want %v (%d alerts)", fired, tt.want, len(alertas))
			}
		})
	}
}

func TestDerivarAlertasRespuestaPendiente(t *testing.T) {
	now := enDia(2026, 4, 10)

	desde := now.Add(-diasUmbralRespuesta * 24 * time.Hour)
	casi := now.Add(-diasUmbralRespuesta*24*time.Hour + time.Hour)

	tests := []struct {
		name         string
		estado       models.EstadoSiniestro
		notificacion *time.Time
		envio        *time.Time
		want         bool
	}{
		{"8 full days waiting for broker", models.EstadoSiniestroNotificadoBroker, &desde, nil, true},
		{"just under 8 days waiting for broker", models.EstadoSiniestroNotificadoBroker, &casi, nil, false},
		{"8 full days waiting for insurer", models.EstadoSiniestroEnviadoAseguradora, nil, &desde, true},
		{"waiting state without a timestamp", models.EstadoSiniestroNotificadoBroker, nil, nil, false},
		{"non-waiting state never fires", models.EstadoSiniestroReciboRecibido, &desde, &desde, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := SiniestroSnapshot{
				Id:                      21,
				Numero:                  "SIN-2026-0002",
				Estado:                  tt.estado,
				FechaReporte:            now, // keeps documentacion_pendiente out of the way
				FechaNotificacionBroker: tt.notificacion,
				FechaEnvioAseguradora:   tt.envio,
				ChecklistCompleto:       true,
			}
			alertas := DerivarAlertas(SnapshotAlertas{Siniestros: []SiniestroSnapshot{s}}, now)
			var fired bool
			for _, a := range alertas {
				if a.Tipo == models.TipoAlertaRespuestaPendiente {
					fired = true
				}
			}
			if fired != tt.want {
				t.Fatalf("respuesta_pendiente fired=%v, want %v", fired, tt.want)
			}
		})
	}
}

func TestDerivarAlertasIdempotenteAlMismoInstante(t *testing.T) {
	now := enDia(2026, 3, 1)
	snapshot := SnapshotAlertas{
		Polizas: []PolizaSnapshot{
			{Id: 1, NumeroPoliza: "POL-2026-0001", FechaFin: now.AddDate(0, 0, 10), Estado: models.EstadoPolizaPorVencer},
		},
		Facturas: []FacturaSnapshot{
			{Id: 2, NumeroFactura: "FAC-2026-0001", FechaEmision: now.AddDate(0, 0, -18),
				FechaVencimiento: now.AddDate(0, 0, 5), MontoTotal: decimal.NewFromInt(100),
				Estado: models.EstadoFacturaPendiente},
		},
	}

	primera := DerivarAlertas(snapshot, now)
	if len(primera) != 3 { // vencimiento_poliza + pago_pendiente + pronto_pago
		t.Fatalf("first pass derived %d alerts, want 3", len(primera))
	}

	registrar(&snapshot, primera)

	segunda := DerivarAlertas(snapshot, now)
	if len(segunda) != 0 {
		t.Fatalf("second pass at the same instant derived %d alerts, want 0", len(segunda))
	}
}

func TestDerivarAlertasUnDisparoNoSeRepite(t *testing.T) {
	inicio := enDia(2026, 3, 1)
	snapshot := SnapshotAlertas{
		Polizas: []PolizaSnapshot{
			{Id: 1, NumeroPoliza: "POL-2026-0001", FechaFin: inicio.AddDate(0, 0, 25), Estado: models.EstadoPolizaPorVencer},
		},
	}

	primera := DerivarAlertas(snapshot, inicio)
	if len(primera) != 1 {
		t.Fatalf("first pass derived %d alerts, want 1", len(primera))
	}
	registrar(&snapshot, primera)

	// Days later the policy is still inside the warning window, but the
	// one-shot alert must not fire again.
	for dias := 1; dias <= 20; dias++ {
		otra := DerivarAlertas(snapshot, inicio.AddDate(0, 0, dias))
		if len(otra) != 0 {
			t.Fatalf("day +%d re-derived %d one-shot alerts", dias, len(otra))
		}
	}
}

func TestDerivarAlertasCadenciaCadaOchoDias(t *testing.T) {
	inicio := enDia(2026, 3, 1)
	notificado := inicio.Add(-diasUmbralRespuesta * 24 * time.Hour)
	snapshot := SnapshotAlertas{
		Siniestros: []SiniestroSnapshot{{
			Id:                      5,
			Numero:                  "SIN-2026-0003",
			Estado:                  models.EstadoSiniestroNotificadoBroker,
			FechaReporte:            inicio,
			FechaNotificacionBroker: &notificado,
			ChecklistCompleto:       true,
		}},
	}

	emitidas := 0
	// Daily job over 24 days: the reminder must land on days 0, 8 and 16.
	for dias := 0; dias < 24; dias++ {
		now := inicio.AddDate(0, 0, dias)
		alertas := DerivarAlertas(snapshot, now)
		for _, a := range alertas {
			if a.Tipo != models.TipoAlertaRespuestaPendiente {
				t.Fatalf("day +%d: unexpected alert %s", dias, a.Tipo)
			}
			emitidas++
			if dias%models.CadenciaAlertaDias != 0 {
				t.Fatalf("day +%d: cadence alert fired off-schedule", dias)
			}
		}
		registrar(&snapshot, alertas)
	}

	if emitidas != 3 {
		t.Fatalf("emitted %d cadence alerts over 24 days, want 3", emitidas)
	}
}
