package workflow

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"bitbucket.org/mmdatafocus/seguros_backend/config"
	"bitbucket.org/mmdatafocus/seguros_backend/models"
	"bitbucket.org/mmdatafocus/seguros_backend/utils"
)

// Round trip against a real MySQL instance: open a claim, walk one
// transition, retry it, and check the timestamp ledger and the outbox row.
// Skipped unless INTEGRATION_TESTS=1 and the DB_* variables point at a
// disposable database.
func TestAplicarTransicionIntegracion(t *testing.T) {
	if os.Getenv("INTEGRATION_TESTS") != "1" {
		t.Skip("set INTEGRATION_TESTS=1 and DB_* to run against MySQL")
	}

	config.ConnectDatabaseWithRetry()
	models.MigrateTable()
	db := config.GetDB()
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	sufijo := time.Now().UnixNano() % 1_000_000_000

	activo := true
	compania := models.CompaniaAseguradora{
		Nombre: "Aseguradora de prueba",
		Ruc:    fmt.Sprintf("1%012d", sufijo),
		Activa: &activo,
	}
	if err := db.Create(&compania).Error; err != nil {
		t.Fatalf("crear compania: %v", err)
	}
	corredor := models.CorredorSeguros{
		Nombre:         "Corredor de prueba",
		Ruc:            fmt.Sprintf("2%012d", sufijo),
		CorreoContacto: "corredor@example.com",
		Activo:         &activo,
	}
	if err := db.Create(&corredor).Error; err != nil {
		t.Fatalf("crear corredor: %v", err)
	}
	tipoPoliza := models.TipoPoliza{Nombre: fmt.Sprintf("equipos-%d", sufijo), Activo: &activo}
	if err := db.Create(&tipoPoliza).Error; err != nil {
		t.Fatalf("crear tipo de poliza: %v", err)
	}
	tipoSiniestro := models.TipoSiniestro{Nombre: fmt.Sprintf("dano-%d", sufijo), Activo: &activo}
	if err := db.Create(&tipoSiniestro).Error; err != nil {
		t.Fatalf("crear tipo de siniestro: %v", err)
	}

	poliza := models.Poliza{
		NumeroPoliza:          fmt.Sprintf("POL-IT-%d", sufijo),
		CompaniaAseguradoraId: compania.ID,
		CorredorId:            corredor.ID,
		TipoPolizaId:          tipoPoliza.ID,
		SumaAsegurada:         decimal.NewFromInt(50000),
		FechaInicio:           now.AddDate(0, -1, 0),
		FechaFin:              now.AddDate(1, 0, 0),
		Estado:                models.EstadoPolizaVigente,
	}
	if err := db.Create(&poliza).Error; err != nil {
		t.Fatalf("crear poliza: %v", err)
	}
	bien := models.BienAsegurado{
		PolizaId: poliza.ID,
		Nombre:   "Laptop de prueba",
		Serie:    fmt.Sprintf("SER%d", sufijo),
	}
	if err := db.Create(&bien).Error; err != nil {
		t.Fatalf("crear bien: %v", err)
	}

	siniestro, err := CrearSiniestro(ctx, &models.NewSiniestro{
		PolizaId:        poliza.ID,
		BienAseguradoId: bien.ID,
		TipoSiniestroId: tipoSiniestro.ID,
		Descripcion:     "pantalla rota en traslado",
		ReportadoPor:    "integracion",
		MontoEstimado:   decimal.NewFromInt(800),
	}, now)
	if err != nil {
		t.Fatalf("crear siniestro: %v", err)
	}
	if !models.EsNumeroSiniestro(siniestro.Numero) {
		t.Fatalf("numero asignado invalido: %q", siniestro.Numero)
	}

	resultado, err := AplicarTransicion(ctx, siniestro.ID, models.EventoNotificarBroker, now, nil)
	if err != nil {
		t.Fatalf("aplicar transicion: %v", err)
	}
	if !resultado.Aplicada || resultado.EstadoNuevo != models.EstadoSiniestroNotificadoBroker {
		t.Fatalf("resultado inesperado: %+v", resultado)
	}

	// Replaying the same event must be a business rejection, not an error.
	repetido, err := AplicarTransicion(ctx, siniestro.ID, models.EventoNotificarBroker, now, nil)
	if err != nil {
		t.Fatalf("reintentar transicion: %v", err)
	}
	if repetido.Aplicada {
		t.Fatalf("la transicion repetida se aplico dos veces: %+v", repetido)
	}

	var recargado models.Siniestro
	if err := db.First(&recargado, siniestro.ID).Error; err != nil {
		t.Fatalf("recargar siniestro: %v", err)
	}
	if recargado.Estado != models.EstadoSiniestroNotificadoBroker {
		t.Fatalf("estado = %q, esperaba %q", recargado.Estado, models.EstadoSiniestroNotificadoBroker)
	}
	if recargado.FechaNotificacionBroker == nil {
		t.Fatal("fecha_notificacion_broker sin sellar")
	}

	var notificaciones int64
	err = db.Model(&models.NotificacionEmail{}).
		Where("siniestro_id = ?", siniestro.ID).
		Count(&notificaciones).Error
	if err != nil {
		t.Fatalf("contar notificaciones: %v", err)
	}
	if notificaciones != 1 {
		t.Fatalf("notificaciones encoladas = %d, esperaba 1", notificaciones)
	}
}

// Two pending full-amount payments both pass registration, but approval
// re-checks the cap under the invoice lock, so only one of them can be
// approved.
func TestAprobarPagoIntegracion(t *testing.T) {
	if os.Getenv("INTEGRATION_TESTS") != "1" {
		t.Skip("set INTEGRATION_TESTS=1 and DB_* to run against MySQL")
	}

	config.ConnectDatabaseWithRetry()
	models.MigrateTable()
	db := config.GetDB()
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	sufijo := time.Now().UnixNano() % 1_000_000_000

	activo := true
	compania := models.CompaniaAseguradora{
		Nombre: "Aseguradora de prueba",
		Ruc:    fmt.Sprintf("3%012d", sufijo),
		Activa: &activo,
	}
	if err := db.Create(&compania).Error; err != nil {
		t.Fatalf("crear compania: %v", err)
	}
	corredor := models.CorredorSeguros{
		Nombre:         "Corredor de prueba",
		Ruc:            fmt.Sprintf("4%012d", sufijo),
		CorreoContacto: "corredor@example.com",
		Activo:         &activo,
	}
	if err := db.Create(&corredor).Error; err != nil {
		t.Fatalf("crear corredor: %v", err)
	}
	tipoPoliza := models.TipoPoliza{Nombre: fmt.Sprintf("pagos-%d", sufijo), Activo: &activo}
	if err := db.Create(&tipoPoliza).Error; err != nil {
		t.Fatalf("crear tipo de poliza: %v", err)
	}
	poliza := models.Poliza{
		NumeroPoliza:          fmt.Sprintf("POL-PG-%d", sufijo),
		CompaniaAseguradoraId: compania.ID,
		CorredorId:            corredor.ID,
		TipoPolizaId:          tipoPoliza.ID,
		SumaAsegurada:         decimal.NewFromInt(50000),
		FechaInicio:           now.AddDate(0, -2, 0),
		FechaFin:              now.AddDate(1, 0, 0),
		Estado:                models.EstadoPolizaVigente,
	}
	if err := db.Create(&poliza).Error; err != nil {
		t.Fatalf("crear poliza: %v", err)
	}

	factura, err := CrearFactura(ctx, &models.NewFactura{
		PolizaId:         poliza.ID,
		NumeroFactura:    fmt.Sprintf("FA-IT-%d", sufijo),
		FechaEmision:     now.AddDate(0, 0, -30),
		FechaVencimiento: now.AddDate(0, 0, 30),
		Subtotal:         decimal.NewFromInt(100),
	}, now)
	if err != nil {
		t.Fatalf("crear factura: %v", err)
	}

	registrar := func() *models.Pago {
		t.Helper()
		pago, err := RegistrarPago(ctx, factura.ID, &models.NewPago{
			FechaPago: now,
			Monto:     factura.MontoTotal,
			FormaPago: models.FormaPagoTransferencia,
			Estado:    models.EstadoPagoPendiente,
		}, now)
		if err != nil {
			t.Fatalf("registrar pago: %v", err)
		}
		return pago
	}
	primero := registrar()
	segundo := registrar()

	if err := AprobarPago(ctx, primero.ID, models.EstadoPagoAprobado, now); err != nil {
		t.Fatalf("aprobar primero: %v", err)
	}
	err = AprobarPago(ctx, segundo.ID, models.EstadoPagoAprobado, now)
	if err == nil {
		t.Fatal("el segundo pago se aprobo sobre una factura ya cubierta")
	}
	if !utils.IsValidationError(err) {
		t.Fatalf("esperaba error de validacion, fue %v", err)
	}

	var recargada models.Factura
	if err := db.First(&recargada, factura.ID).Error; err != nil {
		t.Fatalf("recargar factura: %v", err)
	}
	if recargada.Estado != models.EstadoFacturaPagada {
		t.Fatalf("estado = %q, esperaba %q", recargada.Estado, models.EstadoFacturaPagada)
	}
	var aprobados int64
	err = db.Model(&models.Pago{}).
		Where("factura_id = ? AND estado = ?", factura.ID, models.EstadoPagoAprobado).
		Count(&aprobados).Error
	if err != nil {
		t.Fatalf("contar pagos aprobados: %v", err)
	}
	if aprobados != 1 {
		t.Fatalf("pagos aprobados = %d, esperaba 1", aprobados)
	}
}
