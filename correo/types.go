package correo

import (
	"time"

	"github.com/shopspring/decimal"

	"bitbucket.org/mmdatafocus/seguros_backend/models"
)

// Mensaje is the transport-independent view of one inbox message, the input
// of classification.
type Mensaje struct {
	// SeqNum identifies the message inside its IMAP session, used to flag
	// it seen once processed. Zero for messages built outside a session.
	SeqNum    uint32
	MessageId string
	Remitente string
	Asunto    string
	Cuerpo    string
	Fecha     time.Time
	Adjuntos  []Adjunto
}

type Adjunto struct {
	Nombre      string
	ContentType string
	Datos       []byte
}

// EsImagen reports image/* attachments, captured as damage photos.
func (a Adjunto) EsImagen() bool {
	return len(a.ContentType) >= 6 && a.ContentType[:6] == "image/"
}

func (a Adjunto) EsPdf() bool {
	return a.ContentType == "application/pdf"
}

// ReporteSiniestro holds the key-value block of a claim-report email.
type ReporteSiniestro struct {
	Responsable  string
	FechaReporte string
	Problema     string
	Causa        string
	Periferico   string
	Marca        string
	Modelo       string
	Serie        string
	Activo       string // optional
	Fotos        []Adjunto
}

// ReciboIndemnizacion holds the fields scraped from a receipt PDF.
type ReciboIndemnizacion struct {
	NumeroReclamo      string
	Serie              string
	CodigoActivo       string
	ValorIndemnizacion decimal.Decimal
	PerdidaBruta       decimal.Decimal
	Deducible          decimal.Decimal
	Depreciacion       decimal.Decimal
}

// Resultado is the classification outcome for one message. Exactly one of
// the payload pointers is set, matching Tipo.
type Resultado struct {
	Tipo models.ClasificacionCorreo

	Reporte *ReporteSiniestro
	// CamposFaltantes is set instead of Reporte when the report block is
	// malformed; the message stays pendiente for manual handling.
	CamposFaltantes []string

	// NumeroSiniestro is the claim number lifted verbatim from a broker
	// response subject.
	NumeroSiniestro string

	Recibo *ReciboIndemnizacion
}

// EsReporteMalformado reports a [SINIESTRO] message whose body block failed
// validation.
func (r *Resultado) EsReporteMalformado() bool {
	return r.Tipo == models.ClasificacionReporteSiniestro && len(r.CamposFaltantes) > 0
}
