package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"bitbucket.org/mmdatafocus/seguros_backend/config"
	"bitbucket.org/mmdatafocus/seguros_backend/models"
	"bitbucket.org/mmdatafocus/seguros_backend/utils"
)

const maxUploadSizeBytes int64 = 20 * 1024 * 1024

var documentoMimeTypes = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/png":       true,
}

var imagenMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// almacenFotosGCS stores claim-damage photos in the documents bucket. It is
// the storage backend handed to the email pipeline.
type almacenFotosGCS struct{}

func (almacenFotosGCS) GuardarFoto(ctx context.Context, siniestroId int, nombre string, contentType string, datos []byte) (string, string, error) {
	objectKey := documentoObjectKey(siniestroId, "fotos", nombre)
	if err := utils.UploadBytesToGCS(ctx, objectKey, datos, contentType); err != nil {
		return "", "", err
	}

	thumbnailKey, err := crearMiniatura(ctx, objectKey, datos)
	if err != nil {
		// The photo itself is stored; a missing thumbnail is cosmetic.
		config.LogError(config.GetLogger(), "uploads", "GuardarFoto", "thumbnail generation", objectKey, err)
		thumbnailKey = ""
	}
	return objectKey, thumbnailKey, nil
}

func documentoObjectKey(siniestroId int, categoria string, nombre string) string {
	ext := strings.ToLower(path.Ext(nombre))
	return fmt.Sprintf("siniestros/%d/%s/%s%s", siniestroId, categoria, uuid.NewString(), ext)
}

// crearMiniatura renders a 200px-wide JPEG thumbnail next to the original.
func crearMiniatura(ctx context.Context, objectKey string, datos []byte) (string, error) {
	img, err := imaging.Decode(bytes.NewReader(datos))
	if err != nil {
		return "", err
	}
	thumbnail := imaging.Resize(img, 200, 0, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumbnail, imaging.JPEG); err != nil {
		return "", err
	}

	thumbnailKey := miniaturaObjectKey(objectKey)
	if err := utils.UploadBytesToGCS(ctx, thumbnailKey, buf.Bytes(), "image/jpeg"); err != nil {
		return "", err
	}
	return thumbnailKey, nil
}

func miniaturaObjectKey(objectKey string) string {
	dir := path.Dir(objectKey)
	filename := path.Base(objectKey)
	return path.Join(dir, "thumbnails", filename)
}

// subirDocumentoHandler receives a multipart checklist document for a claim,
// stores it and flips the matching required checklist entry.
func subirDocumentoHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()
		ctx := c.Request.Context()

		siniestroId, err := strconv.Atoi(c.Param("id"))
		if err != nil || siniestroId <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "id invalido"})
			return
		}

		tipo := models.TipoDocumento(c.PostForm("tipo_documento"))
		switch tipo {
		case models.TipoDocumentoDenuncia, models.TipoDocumentoInformeTecnico,
			models.TipoDocumentoProforma, models.TipoDocumentoFotografia,
			models.TipoDocumentoReciboIndemnizacion, models.TipoDocumentoOtro:
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "tipo_documento invalido"})
			return
		}

		siniestro, err := models.GetSiniestroById(ctx, siniestroId)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "siniestro no encontrado"})
			return
		}

		fileHeader, err := c.FormFile("archivo")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "archivo requerido"})
			return
		}
		if fileHeader.Size > maxUploadSizeBytes {
			c.JSON(http.StatusBadRequest, gin.H{"error": "el archivo excede el limite de 20MB"})
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no se pudo leer el archivo"})
			return
		}
		defer file.Close()

		datos, err := io.ReadAll(io.LimitReader(file, maxUploadSizeBytes+1))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no se pudo leer el archivo"})
			return
		}

		contentType := fileHeader.Header.Get("Content-Type")
		if contentType == "" {
			contentType = http.DetectContentType(datos)
		}
		if !documentoMimeTypes[contentType] {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("tipo de archivo no soportado: %s", contentType)})
			return
		}

		objectKey := documentoObjectKey(siniestro.ID, string(tipo), fileHeader.Filename)
		if err := utils.UploadBytesToGCS(ctx, objectKey, datos, contentType); err != nil {
			config.LogError(logger, "uploads", "subirDocumentoHandler", "uploading object", objectKey, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "no se pudo almacenar el archivo"})
			return
		}

		thumbnailKey := ""
		if imagenMimeTypes[contentType] {
			thumbnailKey, err = crearMiniatura(ctx, objectKey, datos)
			if err != nil {
				config.LogError(logger, "uploads", "subirDocumentoHandler", "thumbnail generation", objectKey, err)
				thumbnailKey = ""
			}
		}

		now := time.Now().UTC()
		doc := &models.Documento{
			SiniestroId:   siniestro.ID,
			TipoDocumento: tipo,
			Nombre:        fileHeader.Filename,
			ObjectKey:     objectKey,
			ContentType:   contentType,
			ThumbnailKey:  thumbnailKey,
			Requerido:     utils.NewFalse(),
			Recibido:      utils.NewTrue(),
			FechaRecibido: &now,
		}

		db := config.GetDB()
		if err := db.WithContext(ctx).Create(doc).Error; err != nil {
			config.LogError(logger, "uploads", "subirDocumentoHandler", "persisting document", objectKey, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "no se pudo registrar el documento"})
			return
		}

		// Receiving a file satisfies the seeded checklist entry of its kind.
		err = db.WithContext(ctx).Model(&models.Documento{}).
			Where("siniestro_id = ? AND tipo_documento = ? AND requerido = true AND recibido = false", siniestro.ID, tipo).
			Updates(map[string]interface{}{"recibido": true, "fecha_recibido": now}).Error
		if err != nil {
			config.LogError(logger, "uploads", "subirDocumentoHandler", "marking checklist", siniestro.ID, err)
		}

		completo, err := models.ChecklistCompleto(ctx, siniestro.ID)
		if err != nil {
			completo = false
		}

		c.JSON(http.StatusCreated, gin.H{
			"documento":            doc,
			"checklist_completo":   completo,
			"object_key":           objectKey,
			"thumbnail_object_key": thumbnailKey,
		})
	}
}

// descargarDocumentoHandler streams a stored document back to the caller.
func descargarDocumentoHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		documentoId, err := strconv.Atoi(c.Param("id"))
		if err != nil || documentoId <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "id invalido"})
			return
		}

		db := config.GetDB()
		var doc models.Documento
		if err := db.WithContext(ctx).First(&doc, documentoId).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "documento no encontrado"})
			return
		}
		if doc.ObjectKey == "" {
			c.JSON(http.StatusNotFound, gin.H{"error": "documento sin archivo"})
			return
		}

		objectKey := doc.ObjectKey
		if c.Query("miniatura") == "true" && doc.ThumbnailKey != "" {
			objectKey = doc.ThumbnailKey
		}

		datos, contentType, err := utils.ReadBytesFromGCS(ctx, objectKey)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			c.JSON(http.StatusNotFound, gin.H{"error": "archivo no encontrado"})
			return
		}
		if contentType == "" {
			contentType = doc.ContentType
		}

		c.Data(http.StatusOK, contentType, datos)
	}
}
