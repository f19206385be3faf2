package main

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"bitbucket.org/mmdatafocus/seguros_backend/config"
	"bitbucket.org/mmdatafocus/seguros_backend/models"
	"bitbucket.org/mmdatafocus/seguros_backend/utils"
	"bitbucket.org/mmdatafocus/seguros_backend/workflow"
)

// respondError maps the error taxonomy onto HTTP statuses: validation and
// business-rule failures are 400s with detail, missing records 404, anything
// else a logged 500.
func respondError(c *gin.Context, funcName string, err error) {
	logger := config.GetLogger()

	var validationErr *utils.ValidationError
	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validacion fallida", "campos": validationErr.Fields})
	case errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "registro no encontrado"})
	default:
		var bindErrs validator.ValidationErrors
		if errors.As(err, &bindErrs) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "validacion fallida", "campos": utils.ProcessValidationErrors(err)})
			return
		}
		config.LogError(logger, "handlers", funcName, "unhandled error", nil, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "error interno"})
	}
}

func pathId(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id invalido"})
		return 0, false
	}
	return id, true
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func loginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "username y password son requeridos"})
			return
		}
		info, err := models.Login(c.Request.Context(), req.Username, req.Password)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "credenciales invalidas"})
			return
		}
		c.JSON(http.StatusOK, info)
	}
}

func crearPolizaHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewPoliza
		if err := c.ShouldBindJSON(&input); err != nil {
			respondError(c, "crearPolizaHandler", err)
			return
		}
		poliza, err := workflow.CrearPoliza(c.Request.Context(), &input, time.Now().UTC())
		if err != nil {
			respondError(c, "crearPolizaHandler", err)
			return
		}
		c.JSON(http.StatusCreated, poliza)
	}
}

func listarPolizasHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		db := config.GetDB()
		dbCtx := db.WithContext(c.Request.Context()).
			Preload("CompaniaAseguradora").
			Preload("Corredor").
			Order("fecha_fin")
		if estado := c.Query("estado"); estado != "" {
			dbCtx = dbCtx.Where("estado = ?", estado)
		}
		limit := config.SearchLimit
		if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 && v <= 100 {
			limit = v
		}
		offset := 0
		if v, err := strconv.Atoi(c.Query("offset")); err == nil && v > 0 {
			offset = v
		}

		var polizas []*models.Poliza
		if err := dbCtx.Limit(limit).Offset(offset).Find(&polizas).Error; err != nil {
			respondError(c, "listarPolizasHandler", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"polizas": polizas, "limit": limit, "offset": offset})
	}
}

func getPolizaHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		poliza, err := models.GetPolizaById(c.Request.Context(), id)
		if err != nil {
			respondError(c, "getPolizaHandler", err)
			return
		}
		c.JSON(http.StatusOK, poliza)
	}
}

func crearFacturaHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewFactura
		if err := c.ShouldBindJSON(&input); err != nil {
			respondError(c, "crearFacturaHandler", err)
			return
		}
		factura, err := workflow.CrearFactura(c.Request.Context(), &input, time.Now().UTC())
		if err != nil {
			respondError(c, "crearFacturaHandler", err)
			return
		}
		c.JSON(http.StatusCreated, factura)
	}
}

func getFacturaHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		factura, err := models.GetFacturaById(c.Request.Context(), id)
		if err != nil {
			respondError(c, "getFacturaHandler", err)
			return
		}
		c.JSON(http.StatusOK, factura)
	}
}

func registrarPagoHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var input models.NewPago
		if err := c.ShouldBindJSON(&input); err != nil {
			respondError(c, "registrarPagoHandler", err)
			return
		}
		pago, err := workflow.RegistrarPago(c.Request.Context(), id, &input, time.Now().UTC())
		if err != nil {
			respondError(c, "registrarPagoHandler", err)
			return
		}
		c.JSON(http.StatusCreated, pago)
	}
}

type aprobarPagoRequest struct {
	Estado models.EstadoPago `json:"estado" binding:"required"`
}

func aprobarPagoHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var req aprobarPagoRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, "aprobarPagoHandler", err)
			return
		}
		if req.Estado != models.EstadoPagoAprobado && req.Estado != models.EstadoPagoRechazado {
			c.JSON(http.StatusBadRequest, gin.H{"error": "estado debe ser aprobado o rechazado"})
			return
		}
		if isAdmin, _ := utils.GetIsAdminFromContext(c.Request.Context()); !isAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "solo un administrador puede resolver pagos"})
			return
		}
		if err := workflow.AprobarPago(c.Request.Context(), id, req.Estado, time.Now().UTC()); err != nil {
			respondError(c, "aprobarPagoHandler", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"pago_id": id, "estado": req.Estado})
	}
}

func crearSiniestroHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewSiniestro
		if err := c.ShouldBindJSON(&input); err != nil {
			respondError(c, "crearSiniestroHandler", err)
			return
		}
		if input.ReportadoPor == "" {
			input.ReportadoPor, _ = utils.GetUsernameFromContext(c.Request.Context())
		}
		siniestro, err := workflow.CrearSiniestro(c.Request.Context(), &input, time.Now().UTC())
		if err != nil {
			respondError(c, "crearSiniestroHandler", err)
			return
		}
		c.JSON(http.StatusCreated, siniestro)
	}
}

func getSiniestroHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		siniestro, err := models.GetSiniestroById(c.Request.Context(), id)
		if err != nil {
			respondError(c, "getSiniestroHandler", err)
			return
		}
		c.JSON(http.StatusOK, siniestro)
	}
}

type transicionRequest struct {
	Evento models.EventoSiniestro `json:"evento" binding:"required"`
	Motivo string                 `json:"motivo"`
}

func transicionSiniestroHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var req transicionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, "transicionSiniestroHandler", err)
			return
		}

		var extra map[string]interface{}
		if req.Evento == models.EventoRechazar {
			if req.Motivo == "" {
				c.JSON(http.StatusBadRequest, gin.H{"error": "motivo es requerido para rechazar"})
				return
			}
			extra = map[string]interface{}{"motivo_rechazo": req.Motivo}
		}

		resultado, err := workflow.AplicarTransicion(c.Request.Context(), id, req.Evento, time.Now().UTC(), extra)
		if err != nil {
			respondError(c, "transicionSiniestroHandler", err)
			return
		}
		status := http.StatusOK
		if !resultado.Aplicada {
			status = http.StatusConflict
		}
		c.JSON(status, resultado)
	}
}

func liquidacionSiniestroHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var input workflow.NewLiquidacion
		if err := c.ShouldBindJSON(&input); err != nil {
			respondError(c, "liquidacionSiniestroHandler", err)
			return
		}
		resultado, err := workflow.RegistrarLiquidacion(c.Request.Context(), id, &input, time.Now().UTC())
		if err != nil {
			respondError(c, "liquidacionSiniestroHandler", err)
			return
		}
		status := http.StatusOK
		if !resultado.Aplicada {
			status = http.StatusConflict
		}
		c.JSON(status, resultado)
	}
}

func correosPendientesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 50
		if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 && v <= 200 {
			limit = v
		}
		correos, err := models.GetCorreosPendientes(c.Request.Context(), limit)
		if err != nil {
			respondError(c, "correosPendientesHandler", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"correos": correos})
	}
}

// Manual job triggers. Same code paths as the periodic processors; useful for
// ops and for forcing a run right after configuration changes.

func jobAlertasHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		generadas, err := workflow.GenerarAlertas(c.Request.Context(), time.Now().UTC())
		if err != nil {
			respondError(c, "jobAlertasHandler", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"alertas_generadas": generadas})
	}
}

func jobEstadosHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		now := time.Now().UTC()

		polizas, err := workflow.RefrescarEstadosPolizas(ctx, now)
		if err != nil {
			respondError(c, "jobEstadosHandler", err)
			return
		}
		facturas, err := workflow.RefrescarEstadosFacturas(ctx, now)
		if err != nil {
			respondError(c, "jobEstadosHandler", err)
			return
		}
		vencidos, err := workflow.AvanzarPlazosLiquidacion(ctx, now)
		if err != nil {
			respondError(c, "jobEstadosHandler", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"polizas_actualizadas":  polizas,
			"facturas_actualizadas": facturas,
			"siniestros_vencidos":   len(vencidos),
		})
	}
}

func jobCorreosHandler(procesador *InboxProcessor) gin.HandlerFunc {
	return func(c *gin.Context) {
		procesados, err := procesador.ScanOnce(c.Request.Context())
		if err != nil {
			respondError(c, "jobCorreosHandler", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"correos_procesados": procesados})
	}
}
