package workflow

import (
	"sync"
	"testing"

	"bitbucket.org/mmdatafocus/seguros_backend/models"
)

var todosEstados = []models.EstadoSiniestro{
	models.EstadoSiniestroRegistrado,
	models.EstadoSiniestroNotificadoBroker,
	models.EstadoSiniestroDocumentacionLista,
	models.EstadoSiniestroEnviadoAseguradora,
	models.EstadoSiniestroReciboRecibido,
	models.EstadoSiniestroReciboFirmado,
	models.EstadoSiniestroPendienteLiquidacion,
	models.EstadoSiniestroVencido,
	models.EstadoSiniestroLiquidado,
	models.EstadoSiniestroCerrado,
	models.EstadoSiniestroRechazado,
}

func TestSiguienteEstadoCaminoFeliz(t *testing.T) {
	pasos := []struct {
		desde  models.EstadoSiniestro
		evento models.EventoSiniestro
		hacia  models.EstadoSiniestro
	}{
		{models.EstadoSiniestroRegistrado, models.EventoNotificarBroker, models.EstadoSiniestroNotificadoBroker},
		{models.EstadoSiniestroNotificadoBroker, models.EventoConfirmarDocumentos, models.EstadoSiniestroDocumentacionLista},
		{models.EstadoSiniestroDocumentacionLista, models.EventoEnviarAseguradora, models.EstadoSiniestroEnviadoAseguradora},
		{models.EstadoSiniestroEnviadoAseguradora, models.EventoRecibirRecibo, models.EstadoSiniestroReciboRecibido},
		{models.EstadoSiniestroReciboRecibido, models.EventoFirmarRecibo, models.EstadoSiniestroReciboFirmado},
		{models.EstadoSiniestroReciboFirmado, models.EventoIniciarLiquidacion, models.EstadoSiniestroPendienteLiquidacion},
		{models.EstadoSiniestroPendienteLiquidacion, models.EventoRegistrarLiquidacion, models.EstadoSiniestroLiquidado},
		{models.EstadoSiniestroLiquidado, models.EventoCerrar, models.EstadoSiniestroCerrado},
	}

	for _, p := range pasos {
		hacia, ok := SiguienteEstado(p.desde, p.evento)
		if !ok {
			t.Errorf("%s + %s: expected legal transition", p.desde, p.evento)
			continue
		}
		if hacia != p.hacia {
			t.Errorf("%s + %s = %s, want %s", p.desde, p.evento, hacia, p.hacia)
		}
	}
}

func TestSiguienteEstadoVencimientoYRecuperacion(t *testing.T) {
	// A claim past the settlement deadline goes vencido, and a late
	// settlement still lands on liquidado from there.
	hacia, ok := SiguienteEstado(models.EstadoSiniestroPendienteLiquidacion, models.EventoExpirarLiquidacion)
	if !ok || hacia != models.EstadoSiniestroVencido {
		t.Fatalf("expirar from pendiente_liquidacion = (%s, %v), want vencido", hacia, ok)
	}
	hacia, ok = SiguienteEstado(models.EstadoSiniestroVencido, models.EventoRegistrarLiquidacion)
	if !ok || hacia != models.EstadoSiniestroLiquidado {
		t.Fatalf("liquidar from vencido = (%s, %v), want liquidado", hacia, ok)
	}
}

func TestSiguienteEstadoTransicionesIlegales(t *testing.T) {
	ilegales := []struct {
		desde  models.EstadoSiniestro
		evento models.EventoSiniestro
	}{
		{models.EstadoSiniestroRegistrado, models.EventoConfirmarDocumentos},
		{models.EstadoSiniestroRegistrado, models.EventoRecibirRecibo},
		{models.EstadoSiniestroNotificadoBroker, models.EventoNotificarBroker},
		{models.EstadoSiniestroDocumentacionLista, models.EventoRecibirRecibo},
		{models.EstadoSiniestroEnviadoAseguradora, models.EventoEnviarAseguradora},
		{models.EstadoSiniestroReciboRecibido, models.EventoIniciarLiquidacion},
		{models.EstadoSiniestroVencido, models.EventoExpirarLiquidacion},
		{models.EstadoSiniestroLiquidado, models.EventoRegistrarLiquidacion},
		{models.EstadoSiniestroRegistrado, models.EventoSiniestro("evento_desconocido")},
	}

	for _, p := range ilegales {
		if hacia, ok := SiguienteEstado(p.desde, p.evento); ok {
			t.Errorf("%s + %s unexpectedly allowed, lands on %s", p.desde, p.evento, hacia)
		}
	}
}

func TestSiguienteEstadoTerminalesInmutables(t *testing.T) {
	eventos := []models.EventoSiniestro{
		models.EventoNotificarBroker,
		models.EventoConfirmarDocumentos,
		models.EventoEnviarAseguradora,
		models.EventoRecibirRecibo,
		models.EventoFirmarRecibo,
		models.EventoIniciarLiquidacion,
		models.EventoExpirarLiquidacion,
		models.EventoRegistrarLiquidacion,
		models.EventoCerrar,
		models.EventoRechazar,
	}
	terminales := []models.EstadoSiniestro{models.EstadoSiniestroCerrado, models.EstadoSiniestroRechazado}

	for _, estado := range terminales {
		for _, evento := range eventos {
			if hacia, ok := SiguienteEstado(estado, evento); ok {
				t.Errorf("%s + %s unexpectedly allowed, lands on %s", estado, evento, hacia)
			}
		}
	}
}

func TestSiguienteEstadoRechazarDesdeNoTerminales(t *testing.T) {
	for _, estado := range todosEstados {
		hacia, ok := SiguienteEstado(estado, models.EventoRechazar)
		if estado.IsTerminal() {
			if ok {
				t.Errorf("rechazar from terminal %s unexpectedly allowed", estado)
			}
			continue
		}
		if !ok || hacia != models.EstadoSiniestroRechazado {
			t.Errorf("rechazar from %s = (%s, %v), want rechazado", estado, hacia, ok)
		}
	}
}

// fakeSiniestro mimics the conditional-update guard used against the
// database: the state only changes when the expected current state still
// holds at commit time.
type fakeSiniestro struct {
	mu     sync.Mutex
	estado models.EstadoSiniestro
}

func (f *fakeSiniestro) aplicar(evento models.EventoSiniestro) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	hacia, ok := SiguienteEstado(f.estado, evento)
	if !ok {
		return false
	}
	f.estado = hacia
	return true
}

func TestTransicionConcurrenteAplicaUnaVez(t *testing.T) {
	for corrida := 0; corrida < 100; corrida++ {
		fake := &fakeSiniestro{estado: models.EstadoSiniestroRegistrado}

		const workers = 25
		var wg sync.WaitGroup
		var mu sync.Mutex
		aplicadas := 0

		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if fake.aplicar(models.EventoNotificarBroker) {
					mu.Lock()
					aplicadas++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		if aplicadas != 1 {
			t.Fatalf("run %d: %d workers applied the transition, want exactly 1", corrida, aplicadas)
		}
		if fake.estado != models.EstadoSiniestroNotificadoBroker {
			t.Fatalf("run %d: final state %s, want notificado_broker", corrida, fake.estado)
		}
	}
}
