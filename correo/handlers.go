package correo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"bitbucket.org/mmdatafocus/seguros_backend/config"
	"bitbucket.org/mmdatafocus/seguros_backend/models"
	"bitbucket.org/mmdatafocus/seguros_backend/utils"
	"bitbucket.org/mmdatafocus/seguros_backend/workflow"
)

const moduleName = "correo"

// AlmacenFotos stores a damage photo and returns its object and thumbnail
// keys. Implemented by the bucket layer; kept as an interface so message
// handling can be tested without cloud storage.
type AlmacenFotos interface {
	GuardarFoto(ctx context.Context, siniestroId int, nombre string, contentType string, datos []byte) (objectKey string, thumbnailKey string, err error)
}

// Procesador applies classification outcomes to the claim lifecycle.
type Procesador struct {
	Fotos     AlmacenFotos
	Extractor ExtractorTexto
}

func NewProcesador(fotos AlmacenFotos) *Procesador {
	return &Procesador{Fotos: fotos, Extractor: ExtraerTextoPdf}
}

// ProcesarMensaje ingests one inbox message: dedups by message id,
// classifies it and applies the matching lifecycle step. Business outcomes
// (unknown claim, ambiguous asset, wrong state) leave the stored email
// pendiente; only infrastructure failures come back as errors.
func (p *Procesador) ProcesarMensaje(ctx context.Context, m Mensaje, now time.Time) (*models.SiniestroEmail, error) {
	db := config.GetDB()
	logger := config.GetLogger()

	if m.MessageId != "" {
		visto, err := models.ExisteCorreoProcesado(ctx, m.MessageId)
		if err != nil {
			return nil, err
		}
		if visto {
			return nil, nil
		}
	}

	resultado, err := Clasificar(m, p.extractor())
	if err != nil {
		config.LogError(logger, moduleName, "ProcesarMensaje", "classification failed", m.Asunto, err)
		return nil, fmt.Errorf("%w: clasificando %s: %v", utils.ErrTransientIO, m.MessageId, err)
	}

	fechaRecepcion := m.Fecha
	if fechaRecepcion.IsZero() {
		fechaRecepcion = now
	}
	correo := &models.SiniestroEmail{
		MessageId:      m.MessageId,
		Remitente:      m.Remitente,
		Asunto:         m.Asunto,
		Cuerpo:         m.Cuerpo,
		FechaRecepcion: fechaRecepcion,
		Clasificacion:  resultado.Tipo,
		Estado:         models.ProcesamientoPendiente,
	}

	switch resultado.Tipo {
	case models.ClasificacionReporteSiniestro:
		err = p.procesarReporte(ctx, correo, resultado, now)
	case models.ClasificacionRespuestaBroker:
		err = p.procesarRespuestaBroker(ctx, correo, resultado.NumeroSiniestro, now)
	case models.ClasificacionReciboIndemnizacion:
		err = p.procesarRecibo(ctx, correo, resultado.Recibo, now)
	default:
		correo.Estado = models.ProcesamientoDescartado
		correo.NotaRevision = "asunto no reconocido o sin datos vinculables"
	}
	if err != nil {
		return nil, err
	}

	if err := db.WithContext(ctx).Create(correo).Error; err != nil {
		config.LogError(logger, moduleName, "ProcesarMensaje", "persisting email", m.MessageId, err)
		return nil, err
	}

	if correo.Estado == models.ProcesamientoVinculado && correo.SiniestroId != nil &&
		resultado.Reporte != nil && len(resultado.Reporte.Fotos) > 0 {
		p.guardarFotos(ctx, *correo.SiniestroId, resultado.Reporte.Fotos, now)
	}

	return correo, nil
}

func (p *Procesador) extractor() ExtractorTexto {
	if p.Extractor != nil {
		return p.Extractor
	}
	return ExtraerTextoPdf
}

// procesarReporte fills the extracted block and tries to open a claim
// automatically when the reported asset resolves to exactly one covered
// asset. Anything short of that keeps the email pendiente.
func (p *Procesador) procesarReporte(ctx context.Context, correo *models.SiniestroEmail, resultado *Resultado, now time.Time) error {
	if resultado.EsReporteMalformado() {
		correo.NotaRevision = fmt.Sprintf("reporte incompleto, faltan campos: %s",
			strings.Join(resultado.CamposFaltantes, ", "))
		return nil
	}

	reporte := resultado.Reporte
	correo.Responsable = reporte.Responsable
	correo.FechaReporte = reporte.FechaReporte
	correo.Problema = reporte.Problema
	correo.Causa = reporte.Causa
	correo.Periferico = reporte.Periferico
	correo.Marca = reporte.Marca
	correo.Modelo = reporte.Modelo
	correo.Serie = reporte.Serie
	correo.Activo = reporte.Activo

	bien, err := models.ResolverBienPorCodigo(ctx, reporte.Activo, reporte.Serie)
	if err != nil {
		if errors.Is(err, utils.ErrAmbiguousResolution) {
			correo.NotaRevision = "no se pudo identificar el bien asegurado"
			return nil
		}
		return err
	}

	tipo, err := models.TipoSiniestroPorDefecto(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			correo.NotaRevision = "sin tipo de siniestro configurado para reportes"
			return nil
		}
		return err
	}

	siniestro, err := workflow.CrearSiniestro(ctx, &models.NewSiniestro{
		PolizaId:        bien.PolizaId,
		BienAseguradoId: bien.ID,
		TipoSiniestroId: tipo.ID,
		Descripcion:     reporte.Problema,
		Causa:           reporte.Causa,
		ReportadoPor:    reporte.Responsable,
		FechaReporte:    now,
	}, now)
	if err != nil {
		return err
	}

	correo.SiniestroId = &siniestro.ID
	correo.Estado = models.ProcesamientoVinculado
	return nil
}

func (p *Procesador) procesarRespuestaBroker(ctx context.Context, correo *models.SiniestroEmail, numero string, now time.Time) error {
	siniestro, err := models.GetSiniestroByNumero(ctx, numero)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			correo.NotaRevision = fmt.Sprintf("siniestro %s no encontrado", numero)
			return nil
		}
		return err
	}

	resultado, err := workflow.AplicarTransicion(ctx, siniestro.ID, models.EventoConfirmarDocumentos, now, nil)
	if err != nil {
		return err
	}
	if !resultado.Aplicada {
		correo.SiniestroId = &siniestro.ID
		correo.NotaRevision = resultado.MotivoRechazo
		return nil
	}

	correo.SiniestroId = &siniestro.ID
	correo.Estado = models.ProcesamientoVinculado
	return nil
}

func (p *Procesador) procesarRecibo(ctx context.Context, correo *models.SiniestroEmail, recibo *ReciboIndemnizacion, now time.Time) error {
	correo.Serie = recibo.Serie
	correo.Activo = recibo.CodigoActivo

	siniestro, err := buscarSiniestroParaRecibo(ctx, recibo)
	if err != nil {
		if errors.Is(err, utils.ErrAmbiguousResolution) {
			correo.NotaRevision = "no se pudo vincular el recibo a un siniestro enviado a la aseguradora"
			return nil
		}
		return err
	}

	extra := map[string]interface{}{
		"monto_indemnizado": recibo.ValorIndemnizacion,
		"perdida_bruta":     recibo.PerdidaBruta,
		"deducible":         recibo.Deducible,
		"depreciacion":      recibo.Depreciacion,
	}
	if recibo.NumeroReclamo != "" {
		extra["numero_reclamo"] = recibo.NumeroReclamo
	}

	resultado, err := workflow.AplicarTransicion(ctx, siniestro.ID, models.EventoRecibirRecibo, now, extra)
	if err != nil {
		return err
	}
	if !resultado.Aplicada {
		correo.SiniestroId = &siniestro.ID
		correo.NotaRevision = resultado.MotivoRechazo
		return nil
	}

	correo.SiniestroId = &siniestro.ID
	correo.Estado = models.ProcesamientoVinculado
	return nil
}

// buscarSiniestroParaRecibo resolves a receipt to the claim it pays, in
// order: claim number on the receipt, then serial, then asset code, always
// restricted to claims waiting at the insurer.
func buscarSiniestroParaRecibo(ctx context.Context, recibo *ReciboIndemnizacion) (*models.Siniestro, error) {
	db := config.GetDB()

	if recibo.NumeroReclamo != "" {
		var siniestro models.Siniestro
		err := db.WithContext(ctx).
			Where("numero_reclamo = ? AND estado = ?", recibo.NumeroReclamo, models.EstadoSiniestroEnviadoAseguradora).
			First(&siniestro).Error
		if err == nil {
			return &siniestro, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	for _, filtro := range []struct{ codigo, serie string }{
		{"", recibo.Serie},
		{recibo.CodigoActivo, ""},
	} {
		if filtro.codigo == "" && filtro.serie == "" {
			continue
		}
		bien, err := models.ResolverBienPorCodigo(ctx, filtro.codigo, filtro.serie)
		if err != nil {
			if errors.Is(err, utils.ErrAmbiguousResolution) {
				continue
			}
			return nil, err
		}

		var siniestros []*models.Siniestro
		err = db.WithContext(ctx).
			Where("bien_asegurado_id = ? AND estado = ?", bien.ID, models.EstadoSiniestroEnviadoAseguradora).
			Find(&siniestros).Error
		if err != nil {
			return nil, err
		}
		if len(siniestros) == 1 {
			return siniestros[0], nil
		}
	}

	return nil, utils.ErrAmbiguousResolution
}

// guardarFotos uploads damage photos and records them in the claim's
// document checklist. Upload failures are logged per photo, never fatal:
// the claim and email are already linked.
func (p *Procesador) guardarFotos(ctx context.Context, siniestroId int, fotos []Adjunto, now time.Time) {
	if p.Fotos == nil {
		return
	}
	db := config.GetDB()
	logger := config.GetLogger()

	guardadas := 0
	for _, foto := range fotos {
		objectKey, thumbKey, err := p.Fotos.GuardarFoto(ctx, siniestroId, foto.Nombre, foto.ContentType, foto.Datos)
		if err != nil {
			config.LogError(logger, moduleName, "guardarFotos", "uploading photo", foto.Nombre, err)
			continue
		}
		doc := &models.Documento{
			SiniestroId:   siniestroId,
			TipoDocumento: models.TipoDocumentoFotografia,
			Nombre:        foto.Nombre,
			ObjectKey:     objectKey,
			ContentType:   foto.ContentType,
			ThumbnailKey:  thumbKey,
			Requerido:     utils.NewFalse(),
			Recibido:      utils.NewTrue(),
			FechaRecibido: &now,
		}
		if err := db.WithContext(ctx).Create(doc).Error; err != nil {
			config.LogError(logger, moduleName, "guardarFotos", "persisting photo document", foto.Nombre, err)
			continue
		}
		guardadas++
	}

	if guardadas > 0 {
		err := db.WithContext(ctx).Model(&models.Documento{}).
			Where("siniestro_id = ? AND tipo_documento = ? AND requerido = true", siniestroId, models.TipoDocumentoFotografia).
			Updates(map[string]interface{}{"recibido": true, "fecha_recibido": now}).Error
		if err != nil {
			config.LogError(logger, moduleName, "guardarFotos", "marking checklist photo", siniestroId, err)
		}
	}
}
