package models

type EstadoPoliza string

const (
	EstadoPolizaVigente   EstadoPoliza = "vigente"
	EstadoPolizaPorVencer EstadoPoliza = "por_vencer"
	EstadoPolizaVencida   EstadoPoliza = "vencida"
	EstadoPolizaCancelada EstadoPoliza = "cancelada"
)

type EstadoFactura string

const (
	EstadoFacturaPendiente EstadoFactura = "pendiente"
	EstadoFacturaParcial   EstadoFactura = "parcial"
	EstadoFacturaPagada    EstadoFactura = "pagada"
	EstadoFacturaVencida   EstadoFactura = "vencida"
)

type EstadoPago string

const (
	EstadoPagoPendiente EstadoPago = "pendiente"
	EstadoPagoAprobado  EstadoPago = "aprobado"
	EstadoPagoRechazado EstadoPago = "rechazado"
)

type FormaPago string

const (
	FormaPagoTransferencia FormaPago = "transferencia"
	FormaPagoCheque        FormaPago = "cheque"
	FormaPagoEfectivo      FormaPago = "efectivo"
	FormaPagoDebito        FormaPago = "debito"
)

type EstadoSiniestro string

const (
	EstadoSiniestroRegistrado           EstadoSiniestro = "registrado"
	EstadoSiniestroNotificadoBroker     EstadoSiniestro = "notificado_broker"
	EstadoSiniestroDocumentacionLista   EstadoSiniestro = "documentacion_lista"
	EstadoSiniestroEnviadoAseguradora   EstadoSiniestro = "enviado_aseguradora"
	EstadoSiniestroReciboRecibido       EstadoSiniestro = "recibo_recibido"
	EstadoSiniestroReciboFirmado        EstadoSiniestro = "recibo_firmado"
	EstadoSiniestroPendienteLiquidacion EstadoSiniestro = "pendiente_liquidacion"
	EstadoSiniestroVencido              EstadoSiniestro = "vencido"
	EstadoSiniestroLiquidado            EstadoSiniestro = "liquidado"
	EstadoSiniestroCerrado              EstadoSiniestro = "cerrado"
	EstadoSiniestroRechazado            EstadoSiniestro = "rechazado"
)

// IsTerminal reports whether no transition leaves the state.
func (s EstadoSiniestro) IsTerminal() bool {
	return s == EstadoSiniestroCerrado || s == EstadoSiniestroRechazado
}

// EventoSiniestro is the closed set of lifecycle events a claim can receive.
// State never changes except through one of these.
type EventoSiniestro string

const (
	EventoNotificarBroker      EventoSiniestro = "notificar_broker"
	EventoConfirmarDocumentos  EventoSiniestro = "confirmar_documentos"
	EventoEnviarAseguradora    EventoSiniestro = "enviar_aseguradora"
	EventoRecibirRecibo        EventoSiniestro = "recibir_recibo"
	EventoFirmarRecibo         EventoSiniestro = "firmar_recibo"
	EventoIniciarLiquidacion   EventoSiniestro = "iniciar_liquidacion"
	EventoExpirarLiquidacion   EventoSiniestro = "expirar_liquidacion"
	EventoRegistrarLiquidacion EventoSiniestro = "registrar_liquidacion"
	EventoCerrar               EventoSiniestro = "cerrar"
	EventoRechazar             EventoSiniestro = "rechazar"
)

type TipoAlerta string

const (
	TipoAlertaVencimientoPoliza      TipoAlerta = "vencimiento_poliza"
	TipoAlertaPagoPendiente          TipoAlerta = "pago_pendiente"
	TipoAlertaProntoPago             TipoAlerta = "pronto_pago"
	TipoAlertaDocumentacionPendiente TipoAlerta = "documentacion_pendiente"
	TipoAlertaRespuestaPendiente     TipoAlerta = "respuesta_pendiente"
)

// IsCadence reports whether the alert kind re-fires on an interval while its
// condition holds, as opposed to firing once per threshold crossing.
func (t TipoAlerta) IsCadence() bool {
	return t == TipoAlertaDocumentacionPendiente || t == TipoAlertaRespuestaPendiente
}

type EstadoAlerta string

const (
	EstadoAlertaPendiente EstadoAlerta = "pendiente"
	EstadoAlertaEnviada   EstadoAlerta = "enviada"
	EstadoAlertaLeida     EstadoAlerta = "leida"
	EstadoAlertaAtendida  EstadoAlerta = "atendida"
)

// ReferenciaAlerta names the single entity an alert points at.
type ReferenciaAlerta string

const (
	ReferenciaAlertaPoliza    ReferenciaAlerta = "poliza"
	ReferenciaAlertaFactura   ReferenciaAlerta = "factura"
	ReferenciaAlertaSiniestro ReferenciaAlerta = "siniestro"
)

type ClasificacionCorreo string

const (
	ClasificacionReporteSiniestro    ClasificacionCorreo = "reporte_siniestro"
	ClasificacionRespuestaBroker     ClasificacionCorreo = "respuesta_broker"
	ClasificacionReciboIndemnizacion ClasificacionCorreo = "recibo_indemnizacion"
	ClasificacionNoClasificado       ClasificacionCorreo = "no_clasificado"
)

type EstadoProcesamientoCorreo string

const (
	ProcesamientoPendiente  EstadoProcesamientoCorreo = "pendiente"
	ProcesamientoVinculado  EstadoProcesamientoCorreo = "vinculado"
	ProcesamientoDescartado EstadoProcesamientoCorreo = "descartado"
)

type TipoDocumento string

const (
	TipoDocumentoDenuncia            TipoDocumento = "denuncia"
	TipoDocumentoInformeTecnico      TipoDocumento = "informe_tecnico"
	TipoDocumentoProforma            TipoDocumento = "proforma"
	TipoDocumentoFotografia          TipoDocumento = "fotografia"
	TipoDocumentoReciboIndemnizacion TipoDocumento = "recibo_indemnizacion"
	TipoDocumentoOtro                TipoDocumento = "otro"
)

type EstadoNotificacion string

const (
	EstadoNotificacionPendiente EstadoNotificacion = "pendiente"
	EstadoNotificacionEnviada   EstadoNotificacion = "enviada"
	EstadoNotificacionFallida   EstadoNotificacion = "fallida"
)
