package correo

import (
	"errors"
	"testing"

	"bitbucket.org/mmdatafocus/seguros_backend/models"
)

const cuerpoReporteCompleto = `Estimados,

Se reporta el siguiente siniestro.

--- INICIO REPORTE ---
RESPONSABLE: Maria Lopez
FECHA_REPORTE: 2026-03-10
PROBLEMA: No enciende
CAUSA: Descarga electrica
PERIFERICO: Laptop
MARCA: Dell
MODELO: Latitude 5420
SERIE: 7HXKQ34
ACTIVO: 02002001648
--- FIN REPORTE ---

Saludos.`

func extractorFijo(texto string) ExtractorTexto {
	return func([]byte) (string, error) { return texto, nil }
}

func extractorQueFalla(err error) ExtractorTexto {
	return func([]byte) (string, error) { return "", err }
}

func TestClasificarReporteCompleto(t *testing.T) {
	m := Mensaje{
		Asunto: "[SINIESTRO] Laptop dañada en bodega",
		Cuerpo: cuerpoReporteCompleto,
		Adjuntos: []Adjunto{
			{Nombre: "foto1.jpg", ContentType: "image/jpeg", Datos: []byte("jpg")},
			{Nombre: "detalle.pdf", ContentType: "application/pdf", Datos: []byte("pdf")},
			{Nombre: "foto2.png", ContentType: "image/png", Datos: []byte("png")},
		},
	}

	r, err := Clasificar(m, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Tipo != models.ClasificacionReporteSiniestro {
		t.Fatalf("tipo = %s, want reporte_siniestro", r.Tipo)
	}
	if r.EsReporteMalformado() {
		t.Fatalf("complete report flagged malformed, missing: %v", r.CamposFaltantes)
	}
	if r.Reporte.Responsable != "Maria Lopez" || r.Reporte.Serie != "7HXKQ34" {
		t.Errorf("parsed fields = %+v", r.Reporte)
	}
	if r.Reporte.Activo != "02002001648" {
		t.Errorf("activo = %q, want 02002001648", r.Reporte.Activo)
	}
	if len(r.Reporte.Fotos) != 2 {
		t.Errorf("captured %d photos, want 2 (pdf excluded)", len(r.Reporte.Fotos))
	}
}

func TestClasificarReporteSinActivoEsValido(t *testing.T) {
	cuerpo := `--- INICIO REPORTE ---
RESPONSABLE: Juan Perez
FECHA_REPORTE: 2026-03-11
PROBLEMA: Pantalla rota
CAUSA: Caida
PERIFERICO: Monitor
MARCA: Epson
MODELO: EB-X05
SERIE: X9C0112233
--- FIN REPORTE ---`

	r, err := Clasificar(Mensaje{Asunto: "[SINIESTRO] Monitor", Cuerpo: cuerpo}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.EsReporteMalformado() {
		t.Fatalf("report without ACTIVO flagged malformed: %v", r.CamposFaltantes)
	}
	if r.Reporte.Activo != "" {
		t.Errorf("activo = %q, want empty", r.Reporte.Activo)
	}
}

func TestClasificarReporteMalformado(t *testing.T) {
	tests := []struct {
		name      string
		cuerpo    string
		faltantes []string
	}{
		{
			"missing keys inside the block",
			"--- INICIO REPORTE ---\nRESPONSABLE: Ana\nPROBLEMA: Falla\n--- FIN REPORTE ---",
			[]string{"FECHA_REPORTE", "CAUSA", "PERIFERICO", "MARCA", "MODELO", "SERIE"},
		},
		{
			"no delimiters at all",
			"RESPONSABLE: Ana\nPROBLEMA: Falla",
			[]string{"RESPONSABLE", "FECHA_REPORTE", "PROBLEMA", "CAUSA", "PERIFERICO", "MARCA", "MODELO", "SERIE"},
		},
		{
			"keys outside the block are ignored",
			"RESPONSABLE: fuera\n--- INICIO REPORTE ---\nPROBLEMA: Falla\n--- FIN REPORTE ---\nCAUSA: fuera",
			[]string{"RESPONSABLE", "FECHA_REPORTE", "CAUSA", "PERIFERICO", "MARCA", "MODELO", "SERIE"},
		},
		{
			"blank values count as missing",
			"--- INICIO REPORTE ---\nRESPONSABLE:\nFECHA_REPORTE: 2026-01-01\nPROBLEMA: x\nCAUSA: x\nPERIFERICO: x\nMARCA: x\nMODELO: x\nSERIE: x\n--- FIN REPORTE ---",
			[]string{"RESPONSABLE"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Clasificar(Mensaje{Asunto: "[SINIESTRO] equipo", Cuerpo: tt.cuerpo}, nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !r.EsReporteMalformado() {
				t.Fatal("expected malformed report")
			}
			if len(r.CamposFaltantes) != len(tt.faltantes) {
				t.Fatalf("missing = %v, want %v", r.CamposFaltantes, tt.faltantes)
			}
			for i, campo := range tt.faltantes {
				if r.CamposFaltantes[i] != campo {
					t.Fatalf("missing = %v, want %v", r.CamposFaltantes, tt.faltantes)
				}
			}
		})
	}
}

func TestClasificarRespuestaBroker(t *testing.T) {
	tests := []struct {
		asunto string
		numero string
	}{
		{"RESPUESTA SINIESTRO SIN-2026-0001", "SIN-2026-0001"},
		{"RE: RESPUESTA SINIESTRO SIN-2026-0042 documentos adjuntos", "SIN-2026-0042"},
		{"Fwd: RESPUESTA SINIESTRO SIN-2025-9310", "SIN-2025-9310"},
		// Casing is normalized; the captured number comes back uppercase.
		{"respuesta siniestro sin-2026-0001", "SIN-2026-0001"},
		{"Re: Respuesta Siniestro SIN-2026-0007", "SIN-2026-0007"},
	}
	for _, tt := range tests {
		r, err := Clasificar(Mensaje{Asunto: tt.asunto}, nil)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", tt.asunto, err)
		}
		if r.Tipo != models.ClasificacionRespuestaBroker {
			t.Errorf("%q: tipo = %s, want respuesta_broker", tt.asunto, r.Tipo)
		}
		if r.NumeroSiniestro != tt.numero {
			t.Errorf("%q: numero = %q, want %q", tt.asunto, r.NumeroSiniestro, tt.numero)
		}
	}

	// Malformed claim numbers never match.
	for _, asunto := range []string{
		"RESPUESTA SINIESTRO SIN-26-0001",
		"RESPUESTA SINIESTRO 2026-0001",
		"RESPUESTA RECLAMO SIN-2026-0001",
	} {
		r, err := Clasificar(Mensaje{Asunto: asunto}, nil)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", asunto, err)
		}
		if r.Tipo == models.ClasificacionRespuestaBroker {
			t.Errorf("%q unexpectedly classified as broker response", asunto)
		}
	}
}

const textoReciboPdf = `COMPANIA DE SEGUROS EQUINOCCIAL
RECIBO DE INDEMNIZACION
RECLAMO N° 220613
AC: 02002001648
SE: 7HXKQ34
RECIBI DE SEGUROS EQUINOCCIAL LA SUMA DE 598.84
PERDIDA BRUTA 730.00
DEDUCIBLE 73.00
DEPRECIACION 58.16
PERDIDA NETA 598.84`

func TestClasificarReciboIndemnizacion(t *testing.T) {
	m := Mensaje{
		Asunto:   "Recibo de Indemnización - reclamo 220613",
		Adjuntos: []Adjunto{{Nombre: "recibo.pdf", ContentType: "application/pdf", Datos: []byte("pdf")}},
	}

	r, err := Clasificar(m, extractorFijo(textoReciboPdf))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Tipo != models.ClasificacionReciboIndemnizacion {
		t.Fatalf("tipo = %s, want recibo_indemnizacion", r.Tipo)
	}

	recibo := r.Recibo
	if recibo.NumeroReclamo != "220613" {
		t.Errorf("numero_reclamo = %q, want 220613", recibo.NumeroReclamo)
	}
	if recibo.CodigoActivo != "02002001648" || recibo.Serie != "7HXKQ34" {
		t.Errorf("codes = (%q, %q)", recibo.CodigoActivo, recibo.Serie)
	}
	comprobar := func(campo, got, want string) {
		if got != want {
			t.Errorf("%s = %s, want %s", campo, got, want)
		}
	}
	comprobar("valor_indemnizacion", recibo.ValorIndemnizacion.StringFixed(2), "598.84")
	comprobar("perdida_bruta", recibo.PerdidaBruta.StringFixed(2), "730.00")
	comprobar("deducible", recibo.Deducible.StringFixed(2), "73.00")
	comprobar("depreciacion", recibo.Depreciacion.StringFixed(2), "58.16")
}

func TestClasificarReciboSinCodigosNoClasifica(t *testing.T) {
	m := Mensaje{
		Asunto:   "RECIBO DE INDEMNIZACION",
		Adjuntos: []Adjunto{{Nombre: "recibo.pdf", ContentType: "application/pdf", Datos: []byte("pdf")}},
	}
	r, err := Clasificar(m, extractorFijo("LA SUMA DE 100.00\nsin codigos de activo ni serie"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Tipo != models.ClasificacionNoClasificado {
		t.Fatalf("tipo = %s, want no_clasificado", r.Tipo)
	}
}

func TestClasificarReciboSinPdfNoClasifica(t *testing.T) {
	m := Mensaje{
		Asunto:   "RECIBO DE INDEMNIZACION",
		Adjuntos: []Adjunto{{Nombre: "foto.jpg", ContentType: "image/jpeg", Datos: []byte("jpg")}},
	}
	r, err := Clasificar(m, extractorQueFalla(errors.New("must not be called")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Tipo != models.ClasificacionNoClasificado {
		t.Fatalf("tipo = %s, want no_clasificado", r.Tipo)
	}
}

func TestClasificarReciboErrorExtractorSePropaga(t *testing.T) {
	m := Mensaje{
		Asunto:   "RECIBO DE INDEMNIZACION",
		Adjuntos: []Adjunto{{Nombre: "recibo.pdf", ContentType: "application/pdf", Datos: []byte("pdf")}},
	}
	quiero := errors.New("pdf corrupto")
	if _, err := Clasificar(m, extractorQueFalla(quiero)); !errors.Is(err, quiero) {
		t.Fatalf("err = %v, want %v", err, quiero)
	}
}

func TestEsAsuntoReciboInsensibleAAcentos(t *testing.T) {
	tests := []struct {
		asunto string
		want   bool
	}{
		{"RECIBO DE INDEMNIZACION", true},
		{"Recibo de Indemnización", true},
		{"RE: recibo de indemnizacion adjunto", true},
		{"Recibo de pago", false},
		{"Indemnizacion pendiente", false},
	}
	for _, tt := range tests {
		if got := esAsuntoRecibo(tt.asunto); got != tt.want {
			t.Errorf("esAsuntoRecibo(%q) = %v, want %v", tt.asunto, got, tt.want)
		}
	}
}

func TestClasificarNoClasificado(t *testing.T) {
	for _, asunto := range []string{
		"Consulta general",
		"SINIESTRO sin prefijo correcto",
		"",
	} {
		r, err := Clasificar(Mensaje{Asunto: asunto, Cuerpo: "hola"}, nil)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", asunto, err)
		}
		if r.Tipo != models.ClasificacionNoClasificado {
			t.Errorf("%q: tipo = %s, want no_clasificado", asunto, r.Tipo)
		}
	}
}

func TestExtraerReciboMontosConSeparadores(t *testing.T) {
	texto := `AC: 02002001932
LA SUMA DE 1,234.56
PERDIDA BRUTA 12 500.00
DEDUCIBLE 1,250.00`

	recibo := ExtraerRecibo(texto)
	if recibo == nil {
		t.Fatal("expected a receipt")
	}
	if got := recibo.ValorIndemnizacion.StringFixed(2); got != "1234.56" {
		t.Errorf("valor_indemnizacion = %s, want 1234.56", got)
	}
	if got := recibo.PerdidaBruta.StringFixed(2); got != "12500.00" {
		t.Errorf("perdida_bruta = %s, want 12500.00", got)
	}
	if got := recibo.Deducible.StringFixed(2); got != "1250.00" {
		t.Errorf("deducible = %s, want 1250.00", got)
	}
}

func TestExtraerReciboPerdidaNetaComoRespaldo(t *testing.T) {
	// Without a LA SUMA DE / RECIBI DE line, the net loss fills in the
	// indemnity value.
	recibo := ExtraerRecibo("SE: 7HXKQ34\nPERDIDA NETA 450.00")
	if recibo == nil {
		t.Fatal("expected a receipt")
	}
	if got := recibo.ValorIndemnizacion.StringFixed(2); got != "450.00" {
		t.Errorf("valor_indemnizacion = %s, want 450.00", got)
	}
}

func TestExtraerReciboVariantesDeReclamo(t *testing.T) {
	tests := []struct {
		texto  string
		numero string
	}{
		{"AC: X1\nRECLAMO N° 220613", "220613"},
		{"AC: X1\nRECLAMO Nº 220613", "220613"},
		{"AC: X1\nRECLAMO N 220613", "220613"},
		{"AC: X1\nRECLAMO N° 22061", ""}, // five digits, not a claim number
	}
	for _, tt := range tests {
		recibo := ExtraerRecibo(tt.texto)
		if recibo == nil {
			t.Fatalf("%q: expected a receipt", tt.texto)
		}
		if recibo.NumeroReclamo != tt.numero {
			t.Errorf("%q: numero_reclamo = %q, want %q", tt.texto, recibo.NumeroReclamo, tt.numero)
		}
	}
}
