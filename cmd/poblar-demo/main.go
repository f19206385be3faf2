package main

import (
	"context"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"bitbucket.org/mmdatafocus/seguros_backend/config"
	"bitbucket.org/mmdatafocus/seguros_backend/models"
	"bitbucket.org/mmdatafocus/seguros_backend/utils"
	"bitbucket.org/mmdatafocus/seguros_backend/workflow"
)

// Seeds a small demo dataset: one insurer, one broker, catalog types, an
// operator user, a policy with covered assets and one invoice. Safe to
// re-run: existing rows are matched by their natural keys.
func main() {
	config.ConnectDatabaseWithRetry()
	models.MigrateTable()

	ctx := context.Background()
	db := config.GetDB()
	now := time.Now().UTC()

	compania := &models.CompaniaAseguradora{
		Nombre:         "Seguros Equinoccial",
		Ruc:            "1790093808001",
		CorreoContacto: "siniestros@equinoccial.example",
		Telefono:       "+593 2 255 0000",
		Activa:         utils.NewTrue(),
	}
	if err := db.Where("ruc = ?", compania.Ruc).FirstOrCreate(compania).Error; err != nil {
		log.Fatalf("seeding insurer: %v", err)
	}

	corredor := &models.CorredorSeguros{
		Nombre:         "Tecniseguros",
		Ruc:            "1790012345001",
		CorreoContacto: "broker@tecniseguros.example",
		Telefono:       "+593 2 333 0000",
		Activo:         utils.NewTrue(),
	}
	if err := db.Where("ruc = ?", corredor.Ruc).FirstOrCreate(corredor).Error; err != nil {
		log.Fatalf("seeding broker: %v", err)
	}

	tipoPoliza := &models.TipoPoliza{
		Nombre:      "equipo_electronico",
		Descripcion: "Poliza de equipo electronico",
		Activo:      utils.NewTrue(),
	}
	if err := db.Where("nombre = ?", tipoPoliza.Nombre).FirstOrCreate(tipoPoliza).Error; err != nil {
		log.Fatalf("seeding policy type: %v", err)
	}

	tipoSiniestro := &models.TipoSiniestro{
		Nombre:      "dano_equipo",
		Descripcion: "Dano de equipo asegurado",
		Activo:      utils.NewTrue(),
	}
	if err := db.Where("nombre = ?", tipoSiniestro.Nombre).FirstOrCreate(tipoSiniestro).Error; err != nil {
		log.Fatalf("seeding claim type: %v", err)
	}

	password, err := utils.HashPassword("cambiar123")
	if err != nil {
		log.Fatalf("hashing demo password: %v", err)
	}
	usuario := &models.Usuario{
		Username: "operador",
		Nombre:   "Operador Demo",
		Email:    "operador@seguros.example",
		Password: string(password),
		Rol:      models.RolUsuarioOperador,
		Activo:   utils.NewTrue(),
	}
	if err := db.Where("username = ?", usuario.Username).FirstOrCreate(usuario).Error; err != nil {
		log.Fatalf("seeding user: %v", err)
	}

	var poliza models.Poliza
	err = db.Where("numero_poliza = ?", "POL-2026-0001").First(&poliza).Error
	if err != nil {
		creada, err := workflow.CrearPoliza(ctx, &models.NewPoliza{
			NumeroPoliza:          "POL-2026-0001",
			CompaniaAseguradoraId: compania.ID,
			CorredorId:            corredor.ID,
			TipoPolizaId:          tipoPoliza.ID,
			SumaAsegurada:         decimal.NewFromInt(250000),
			Coberturas:            "Dano accidental, robo, variacion de voltaje",
			FechaInicio:           now.AddDate(0, -6, 0),
			FechaFin:              now.AddDate(0, 6, 0),
		}, now)
		if err != nil {
			log.Fatalf("seeding policy: %v", err)
		}
		poliza = *creada
	}

	bienes := []*models.BienAsegurado{
		{
			PolizaId:     poliza.ID,
			Nombre:       "Laptop Dell Latitude 5440",
			Marca:        "Dell",
			Modelo:       "Latitude 5440",
			Serie:        "7HXKQ34",
			CodigoActivo: "02002001648",
			Responsable:  "Maria Torres",
			Ubicacion:    "Edificio Matriz, piso 3",
		},
		{
			PolizaId:     poliza.ID,
			Nombre:       "Proyector Epson PowerLite",
			Marca:        "Epson",
			Modelo:       "PowerLite X49",
			Serie:        "X5T0023119",
			CodigoActivo: "02002001932",
			Responsable:  "Carlos Vega",
			Ubicacion:    "Sala de capacitacion",
		},
	}
	for _, bien := range bienes {
		if err := db.Where("codigo_activo = ?", bien.CodigoActivo).FirstOrCreate(bien).Error; err != nil {
			log.Fatalf("seeding asset %s: %v", bien.CodigoActivo, err)
		}
	}

	var factura models.Factura
	err = db.Where("numero_factura = ?", "FAC-2026-0001").First(&factura).Error
	if err != nil {
		if _, err := workflow.CrearFactura(ctx, &models.NewFactura{
			PolizaId:         poliza.ID,
			NumeroFactura:    "FAC-2026-0001",
			FechaEmision:     now.AddDate(0, 0, -5),
			FechaVencimiento: now.AddDate(0, 1, 0),
			Subtotal:         decimal.NewFromInt(1000),
		}, now); err != nil {
			log.Fatalf("seeding invoice: %v", err)
		}
	}

	log.Println("demo data ready")
}
