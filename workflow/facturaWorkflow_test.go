package workflow

import (
	"testing"

	"github.com/shopspring/decimal"

	"bitbucket.org/mmdatafocus/seguros_backend/models"
	"bitbucket.org/mmdatafocus/seguros_backend/utils"
)

// fakeCajaPagos replays the payment flow in memory with the same cap checks
// as the persistent one: once at registration against the approved total of
// that moment, and again when a pending payment is approved.
type fakeCajaPagos struct {
	montoTotal decimal.Decimal
	estados    []models.EstadoPago
	montos     []decimal.Decimal
}

func (c *fakeCajaPagos) aprobado() decimal.Decimal {
	total := decimal.Zero
	for i, estado := range c.estados {
		if estado == models.EstadoPagoAprobado {
			total = total.Add(c.montos[i])
		}
	}
	return total
}

func (c *fakeCajaPagos) registrar(monto decimal.Decimal) (int, error) {
	if err := models.ValidarMontoPago(c.montoTotal, c.aprobado(), monto); err != nil {
		return 0, err
	}
	c.estados = append(c.estados, models.EstadoPagoPendiente)
	c.montos = append(c.montos, monto)
	return len(c.estados) - 1, nil
}

func (c *fakeCajaPagos) resolver(id int, estado models.EstadoPago) error {
	if estado == models.EstadoPagoAprobado {
		if err := models.ValidarMontoPago(c.montoTotal, c.aprobado(), c.montos[id]); err != nil {
			return err
		}
	}
	c.estados[id] = estado
	return nil
}

// Two full-amount payments can both sit pendiente, since registration checks
// against the approved total of that moment. Approval must re-check, so only
// one of them can ever be approved.
func TestAprobarPagoReverificaTope(t *testing.T) {
	caja := &fakeCajaPagos{montoTotal: decimal.NewFromInt(100)}

	primero, err := caja.registrar(decimal.NewFromInt(100))
	if err != nil {
		t.Fatalf("registrar primero: %v", err)
	}
	segundo, err := caja.registrar(decimal.NewFromInt(100))
	if err != nil {
		t.Fatalf("registrar segundo: %v", err)
	}

	if err := caja.resolver(primero, models.EstadoPagoAprobado); err != nil {
		t.Fatalf("aprobar primero: %v", err)
	}
	err = caja.resolver(segundo, models.EstadoPagoAprobado)
	if err == nil {
		t.Fatal("el segundo pago se aprobo sobre una factura ya cubierta")
	}
	if !utils.IsValidationError(err) {
		t.Fatalf("esperaba error de validacion, fue %v", err)
	}
	if !caja.aprobado().Equal(decimal.NewFromInt(100)) {
		t.Fatalf("total aprobado = %s, esperaba 100", caja.aprobado())
	}
}

// A rejected payment does not consume the cap, so its amount can be
// registered and approved again.
func TestAprobarPagoRechazadoLiberaTope(t *testing.T) {
	caja := &fakeCajaPagos{montoTotal: decimal.NewFromInt(100)}

	primero, _ := caja.registrar(decimal.NewFromInt(60))
	segundo, _ := caja.registrar(decimal.NewFromInt(60))

	if err := caja.resolver(primero, models.EstadoPagoAprobado); err != nil {
		t.Fatalf("aprobar primero: %v", err)
	}
	if err := caja.resolver(segundo, models.EstadoPagoRechazado); err != nil {
		t.Fatalf("rechazar segundo: %v", err)
	}

	tercero, err := caja.registrar(decimal.NewFromInt(40))
	if err != nil {
		t.Fatalf("registrar tercero: %v", err)
	}
	if err := caja.resolver(tercero, models.EstadoPagoAprobado); err != nil {
		t.Fatalf("aprobar tercero: %v", err)
	}
	if !caja.aprobado().Equal(decimal.NewFromInt(100)) {
		t.Fatalf("total aprobado = %s, esperaba 100", caja.aprobado())
	}
}
