package models

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"bitbucket.org/mmdatafocus/seguros_backend/config"
)

// PlazoLiquidacionHoras is the settlement countdown: once a claim enters
// pendiente_liquidacion it has this long before expiring.
const PlazoLiquidacionHoras = 72

var numeroSiniestroRe = regexp.MustCompile(`^SIN-(\d{4})-(\d{4})$`)

type Siniestro struct {
	ID               int             `gorm:"primary_key" json:"id"`
	Numero           string          `gorm:"size:20;uniqueIndex;not null" json:"numero"`
	PolizaId         int             `gorm:"index;not null" json:"poliza_id" binding:"required"`
	Poliza           *Poliza         `json:"poliza,omitempty"`
	BienAseguradoId  int             `gorm:"index;not null" json:"bien_asegurado_id" binding:"required"`
	BienAsegurado    *BienAsegurado  `json:"bien_asegurado,omitempty"`
	TipoSiniestroId  int             `gorm:"index;not null" json:"tipo_siniestro_id" binding:"required"`
	Descripcion      string          `gorm:"type:text;not null" json:"descripcion" binding:"required"`
	Causa            string          `gorm:"type:text" json:"causa"`
	ReportadoPor     string          `gorm:"size:255" json:"reportado_por"`
	Estado           EstadoSiniestro `gorm:"type:enum('registrado','notificado_broker','documentacion_lista','enviado_aseguradora','recibo_recibido','recibo_firmado','pendiente_liquidacion','vencido','liquidado','cerrado','rechazado');default:registrado" json:"estado"`
	MotivoRechazo    string          `gorm:"size:255" json:"motivo_rechazo"`
	NumeroReclamo    string          `gorm:"size:20;index" json:"numero_reclamo"`
	MontoEstimado    decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"monto_estimado"`
	MontoIndemnizado decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"monto_indemnizado"`
	PerdidaBruta     decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"perdida_bruta"`
	Deducible        decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"deducible"`
	Depreciacion     decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"depreciacion"`

	// Timestamp ledger, one per lifecycle milestone.
	FechaReporte            time.Time  `gorm:"not null" json:"fecha_reporte"`
	FechaNotificacionBroker *time.Time `gorm:"default:null" json:"fecha_notificacion_broker"`
	FechaRespuestaBroker    *time.Time `gorm:"default:null" json:"fecha_respuesta_broker"`
	FechaEnvioAseguradora   *time.Time `gorm:"default:null" json:"fecha_envio_aseguradora"`
	FechaRecepcionRecibo    *time.Time `gorm:"default:null" json:"fecha_recepcion_recibo"`
	FechaFirmaRecibo        *time.Time `gorm:"default:null" json:"fecha_firma_recibo"`
	FechaLimiteLiquidacion  *time.Time `gorm:"index;default:null" json:"fecha_limite_liquidacion"`
	FechaLiquidacion        *time.Time `gorm:"default:null" json:"fecha_liquidacion"`
	FechaCierre             *time.Time `gorm:"default:null" json:"fecha_cierre"`

	Correos    []*SiniestroEmail `json:"correos,omitempty"`
	Documentos []*Documento      `json:"documentos,omitempty"`
	CreatedAt  time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewSiniestro struct {
	PolizaId        int             `json:"poliza_id" binding:"required"`
	BienAseguradoId int             `json:"bien_asegurado_id" binding:"required"`
	TipoSiniestroId int             `json:"tipo_siniestro_id" binding:"required"`
	Descripcion     string          `json:"descripcion" binding:"required"`
	Causa           string          `json:"causa"`
	ReportadoPor    string          `json:"reportado_por"`
	MontoEstimado   decimal.Decimal `json:"monto_estimado"`
	FechaReporte    time.Time       `json:"fecha_reporte"`
}

// EsNumeroSiniestro reports whether s has the SIN-YYYY-NNNN shape.
func EsNumeroSiniestro(s string) bool {
	return numeroSiniestroRe.MatchString(s)
}

// GenerarNumeroSiniestro allocates the next SIN-YYYY-NNNN for the report
// year. Must run inside the caller's transaction while holding the claim
// numbering advisory lock, otherwise two claims can take the same number.
func GenerarNumeroSiniestro(tx *gorm.DB, anio int) (string, error) {
	prefix := fmt.Sprintf("SIN-%04d-", anio)
	var ultimo string
	err := tx.Model(&Siniestro{}).
		Where("numero LIKE ?", prefix+"%").
		Order("numero DESC").
		Limit(1).
		Pluck("numero", &ultimo).Error
	if err != nil {
		return "", err
	}

	next := 1
	if m := numeroSiniestroRe.FindStringSubmatch(ultimo); m != nil {
		fmt.Sscanf(m[2], "%d", &next)
		next++
	}
	return fmt.Sprintf("%s%04d", prefix, next), nil
}

func GetSiniestroById(ctx context.Context, id int) (*Siniestro, error) {
	db := config.GetDB()
	var siniestro Siniestro
	if err := db.WithContext(ctx).
		Preload("Poliza").
		Preload("BienAsegurado").
		Preload("Documentos").
		First(&siniestro, id).Error; err != nil {
		return nil, err
	}
	return &siniestro, nil
}

func GetSiniestroByNumero(ctx context.Context, numero string) (*Siniestro, error) {
	db := config.GetDB()
	var siniestro Siniestro
	if err := db.WithContext(ctx).
		Where("numero = ?", numero).
		First(&siniestro).Error; err != nil {
		return nil, err
	}
	return &siniestro, nil
}

// FechaLimiteDesde computes the settlement deadline from the moment the claim
// entered pendiente_liquidacion.
func FechaLimiteDesde(inicio time.Time) time.Time {
	return inicio.Add(PlazoLiquidacionHoras * time.Hour)
}
