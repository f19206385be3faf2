package correo

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"bitbucket.org/mmdatafocus/seguros_backend/models"
	"bitbucket.org/mmdatafocus/seguros_backend/utils"
)

const (
	prefijoReporte  = "[SINIESTRO]"
	inicioReporte   = "--- INICIO REPORTE ---"
	finReporte      = "--- FIN REPORTE ---"
	asuntoRecibo    = "RECIBO DE INDEMNIZACION"
	campoActivo     = "ACTIVO"
	campoPeriferico = "PERIFERICO"
)

// camposRequeridos are the keys a report block must carry. ACTIVO is the
// only optional key.
var camposRequeridos = []string{
	"RESPONSABLE", "FECHA_REPORTE", "PROBLEMA", "CAUSA",
	campoPeriferico, "MARCA", "MODELO", "SERIE",
}

var (
	respuestaBrokerRe = regexp.MustCompile(`RESPUESTA SINIESTRO (SIN-\d{4}-\d{4})`)

	codigoActivoRe  = regexp.MustCompile(`AC:\s*(\w+)`)
	serieReciboRe   = regexp.MustCompile(`SE:\s*(\w+)`)
	numeroReclamoRe = regexp.MustCompile(`RECLAMO N[°º]?\s*(\d{6})`)
	montoLineaRe    = regexp.MustCompile(`([\d\s,]+\.\d{2})\s*$`)

	acentos = strings.NewReplacer(
		"Á", "A", "É", "E", "Í", "I", "Ó", "O", "Ú", "U",
		"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u",
		"Ñ", "N", "ñ", "n",
	)
)

// ExtractorTexto obtains plain text from a PDF attachment. Injected so
// classification stays pure and testable.
type ExtractorTexto func(datos []byte) (string, error)

// Clasificar maps one message to its processing outcome. It never touches
// the database; applying the outcome to the claim lifecycle is a separate
// step.
func Clasificar(m Mensaje, extractor ExtractorTexto) (*Resultado, error) {
	asunto := strings.TrimSpace(m.Asunto)

	if strings.HasPrefix(asunto, prefijoReporte) {
		return clasificarReporte(m), nil
	}

	// Broker replies arrive with inconsistent casing; normalize before
	// matching so the captured claim number is always uppercase.
	if match := respuestaBrokerRe.FindStringSubmatch(strings.ToUpper(asunto)); match != nil {
		return &Resultado{
			Tipo:            models.ClasificacionRespuestaBroker,
			NumeroSiniestro: match[1],
		}, nil
	}

	if esAsuntoRecibo(asunto) {
		return clasificarRecibo(m, extractor)
	}

	return &Resultado{Tipo: models.ClasificacionNoClasificado}, nil
}

// esAsuntoRecibo matches the receipt subject ignoring case and accents, so
// "Recibo de Indemnización" and "RECIBO DE INDEMNIZACION" both qualify.
func esAsuntoRecibo(asunto string) bool {
	normalizado := strings.ToUpper(acentos.Replace(asunto))
	return strings.Contains(normalizado, asuntoRecibo)
}

func clasificarReporte(m Mensaje) *Resultado {
	campos := parsearBloqueReporte(m.Cuerpo)

	var faltantes []string
	for _, clave := range camposRequeridos {
		if strings.TrimSpace(campos[clave]) == "" {
			faltantes = append(faltantes, clave)
		}
	}
	if len(faltantes) > 0 {
		return &Resultado{
			Tipo:            models.ClasificacionReporteSiniestro,
			CamposFaltantes: faltantes,
		}
	}

	reporte := &ReporteSiniestro{
		Responsable:  campos["RESPONSABLE"],
		FechaReporte: campos["FECHA_REPORTE"],
		Problema:     campos["PROBLEMA"],
		Causa:        campos["CAUSA"],
		Periferico:   campos[campoPeriferico],
		Marca:        campos["MARCA"],
		Modelo:       campos["MODELO"],
		Serie:        campos["SERIE"],
		Activo:       campos[campoActivo],
	}
	for _, adj := range m.Adjuntos {
		if adj.EsImagen() {
			reporte.Fotos = append(reporte.Fotos, adj)
		}
	}

	return &Resultado{Tipo: models.ClasificacionReporteSiniestro, Reporte: reporte}
}

// parsearBloqueReporte reads CLAVE: valor lines between the report
// delimiters. Lines outside the block are ignored.
func parsearBloqueReporte(cuerpo string) map[string]string {
	campos := make(map[string]string)

	inicio := strings.Index(cuerpo, inicioReporte)
	if inicio < 0 {
		return campos
	}
	cuerpo = cuerpo[inicio+len(inicioReporte):]
	if fin := strings.Index(cuerpo, finReporte); fin >= 0 {
		cuerpo = cuerpo[:fin]
	}

	for _, linea := range strings.Split(cuerpo, "\n") {
		clave, valor, ok := strings.Cut(linea, ":")
		if !ok {
			continue
		}
		clave = strings.ToUpper(strings.TrimSpace(clave))
		if clave == "" {
			continue
		}
		campos[clave] = strings.TrimSpace(valor)
	}
	return campos
}

func clasificarRecibo(m Mensaje, extractor ExtractorTexto) (*Resultado, error) {
	for _, adj := range m.Adjuntos {
		if !adj.EsPdf() {
			continue
		}
		texto, err := extractor(adj.Datos)
		if err != nil {
			return nil, err
		}
		if recibo := ExtraerRecibo(texto); recibo != nil {
			return &Resultado{Tipo: models.ClasificacionReciboIndemnizacion, Recibo: recibo}, nil
		}
	}
	// Receipt subject without a parseable PDF carries no linkable data.
	return &Resultado{Tipo: models.ClasificacionNoClasificado}, nil
}

// ExtraerRecibo scrapes the identifying codes and amounts from receipt PDF
// text. Returns nil when neither the asset code nor the serial is present,
// since the receipt could never be linked to a claim.
func ExtraerRecibo(texto string) *ReciboIndemnizacion {
	recibo := &ReciboIndemnizacion{}

	if match := codigoActivoRe.FindStringSubmatch(texto); match != nil {
		recibo.CodigoActivo = match[1]
	}
	if match := serieReciboRe.FindStringSubmatch(texto); match != nil {
		recibo.Serie = match[1]
	}
	if recibo.CodigoActivo == "" && recibo.Serie == "" {
		return nil
	}

	if match := numeroReclamoRe.FindStringSubmatch(texto); match != nil {
		recibo.NumeroReclamo = match[1]
	}

	for _, linea := range strings.Split(texto, "\n") {
		normalizada := strings.ToUpper(acentos.Replace(linea))
		monto, ok := montoAlFinal(linea)
		if !ok {
			continue
		}
		switch {
		case strings.Contains(normalizada, "LA SUMA DE") || strings.Contains(normalizada, "RECIBI DE"):
			recibo.ValorIndemnizacion = monto
		case strings.Contains(normalizada, "PERDIDA BRUTA"):
			recibo.PerdidaBruta = monto
		case strings.Contains(normalizada, "DEDUCIBLE"):
			recibo.Deducible = monto
		case strings.Contains(normalizada, "DEPRECIACI") || strings.Contains(normalizada, "DEPECIAC"):
			recibo.Depreciacion = monto
		case strings.Contains(normalizada, "PERDIDA NETA") && recibo.ValorIndemnizacion.IsZero():
			recibo.ValorIndemnizacion = monto
		}
	}

	return recibo
}

// montoAlFinal parses a trailing amount like "1 234,56 ... 1,234.56",
// tolerating thousand separators and stray spaces inside the digits.
func montoAlFinal(linea string) (decimal.Decimal, bool) {
	match := montoLineaRe.FindStringSubmatch(strings.TrimSpace(linea))
	if match == nil {
		return decimal.Decimal{}, false
	}
	limpio := strings.NewReplacer(",", "", " ", "").Replace(match[1])
	monto, err := utils.ParseDecimal(limpio)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return monto, true
}
