package models

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"bitbucket.org/mmdatafocus/seguros_backend/utils"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestCalcularTotalesFactura(t *testing.T) {
	tests := []struct {
		name        string
		subtotal    string
		retenciones string
		dias        int
		iva         string
		super       string
		campesino   string
		descuento   string
		total       string
	}{
		{
			name:     "subtotal 1000 inside discount window",
			subtotal: "1000", retenciones: "0", dias: 5,
			iva: "150.00", super: "35.00", campesino: "5.00",
			descuento: "50.00", total: "1140.00",
		},
		{
			name:     "discount applies on day 20 exactly",
			subtotal: "1000", retenciones: "0", dias: 20,
			iva: "150.00", super: "35.00", campesino: "5.00",
			descuento: "50.00", total: "1140.00",
		},
		{
			name:     "no discount on day 21",
			subtotal: "1000", retenciones: "0", dias: 21,
			iva: "150.00", super: "35.00", campesino: "5.00",
			descuento: "0.00", total: "1190.00",
		},
		{
			name:     "retenciones subtract from the total",
			subtotal: "1000", retenciones: "100", dias: 30,
			iva: "150.00", super: "35.00", campesino: "5.00",
			descuento: "0.00", total: "1090.00",
		},
		{
			name:     "each component rounded before summing",
			subtotal: "33.33", retenciones: "0", dias: 1,
			// iva 4.9995 -> 5.00, super 1.16655 -> 1.17, campesino 0.16665 -> 0.17,
			// descuento 1.6665 -> 1.67
			iva: "5.00", super: "1.17", campesino: "0.17",
			descuento: "1.67", total: "38.00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			totales, err := CalcularTotalesFactura(dec(tt.subtotal), dec(tt.retenciones), tt.dias)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			comprobar := func(campo string, got decimal.Decimal, want string) {
				if got.StringFixed(2) != want {
					t.Errorf("%s = %s, want %s", campo, got.StringFixed(2), want)
				}
			}
			comprobar("iva", totales.Iva, tt.iva)
			comprobar("contribucion_super", totales.ContribucionSuper, tt.super)
			comprobar("contribucion_campesino", totales.ContribucionCampesino, tt.campesino)
			comprobar("descuento", totales.Descuento, tt.descuento)
			comprobar("monto_total", totales.MontoTotal, tt.total)
		})
	}
}

func TestCalcularTotalesFacturaDeterminista(t *testing.T) {
	// Same inputs must always yield the same breakdown.
	primera, err := CalcularTotalesFactura(dec("847.29"), dec("12.50"), 14)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 50; i++ {
		otra, err := CalcularTotalesFactura(dec("847.29"), dec("12.50"), 14)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !otra.MontoTotal.Equal(primera.MontoTotal) {
			t.Fatalf("run %d: total %s != %s", i, otra.MontoTotal, primera.MontoTotal)
		}
	}
}

func TestCalcularTotalesFacturaRechazaNegativos(t *testing.T) {
	if _, err := CalcularTotalesFactura(dec("-1"), dec("0"), 0); err == nil {
		t.Fatal("expected error for negative subtotal")
	} else if !utils.IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}

	if _, err := CalcularTotalesFactura(dec("100"), dec("-5"), 0); err == nil {
		t.Fatal("expected error for negative retenciones")
	}
}

func TestEstadoFacturaEn(t *testing.T) {
	hoy := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	manana := hoy.AddDate(0, 0, 1)
	ayer := hoy.AddDate(0, 0, -1)

	tests := []struct {
		name        string
		vencimiento time.Time
		total       string
		pagado      string
		want        EstadoFactura
	}{
		{"unpaid before due date", manana, "100", "0", EstadoFacturaPendiente},
		{"unpaid past due date", ayer, "100", "0", EstadoFacturaVencida},
		{"partially paid before due date", manana, "100", "40", EstadoFacturaParcial},
		{"partially paid past due date", ayer, "100", "40", EstadoFacturaVencida},
		{"fully paid wins over due date", ayer, "100", "100", EstadoFacturaPagada},
		{"due today is not yet vencida", hoy, "100", "0", EstadoFacturaPendiente},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EstadoFacturaEn(hoy, tt.vencimiento, dec(tt.total), dec(tt.pagado))
			if got != tt.want {
				t.Errorf("EstadoFacturaEn = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestValidarMontoPago(t *testing.T) {
	tests := []struct {
		name    string
		total   string
		pagado  string
		nuevo   string
		wantErr bool
	}{
		{"payment within remainder", "100", "40", "60", false},
		{"payment exceeding remainder", "100", "40", "60.01", true},
		{"zero payment", "100", "0", "0", true},
		{"negative payment", "100", "0", "-5", true},
		{"full payment on untouched invoice", "100", "0", "100", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidarMontoPago(dec(tt.total), dec(tt.pagado), dec(tt.nuevo))
			if tt.wantErr && err == nil {
				t.Fatal("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr && err != nil {
				var vErr *utils.ValidationError
				if !errors.As(err, &vErr) {
					t.Fatalf("expected validation error, got %T", err)
				}
			}
		})
	}
}
