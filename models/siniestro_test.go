package models

import (
	"testing"
	"time"
)

func TestEsNumeroSiniestro(t *testing.T) {
	tests := []struct {
		s    string
		want bool
	}{
		{"SIN-2026-0001", true},
		{"SIN-2026-9999", true},
		{"SIN-26-0001", false},
		{"SIN-2026-001", false},
		{"sin-2026-0001", false},
		{"SIN-2026-0001X", false},
		{"POL-2026-0001", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := EsNumeroSiniestro(tt.s); got != tt.want {
			t.Errorf("EsNumeroSiniestro(%q) = %v, want %v", tt.s, got, tt.want)
		}
	}
}

func TestFechaLimiteDesde(t *testing.T) {
	inicio := time.Date(2026, 4, 10, 9, 30, 0, 0, time.UTC)
	limite := FechaLimiteDesde(inicio)

	if want := inicio.Add(PlazoLiquidacionHoras * time.Hour); !limite.Equal(want) {
		t.Fatalf("FechaLimiteDesde = %v, want %v", limite, want)
	}
	// Just before the deadline the claim is still inside the window.
	if !inicio.Add(71 * time.Hour).Before(limite) {
		t.Error("71h after start should still be inside the settlement window")
	}
	if inicio.Add(73 * time.Hour).Before(limite) {
		t.Error("73h after start should be past the settlement window")
	}
}
