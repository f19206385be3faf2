package models

import (
	"github.com/sirupsen/logrus"

	"bitbucket.org/mmdatafocus/seguros_backend/config"
)

// MigrateTable runs the GORM auto-migrations for every table of the module.
// AutoMigrate can issue blocking DDL, so startup allows skipping it via
// SKIP_MIGRATIONS and running it as a separate job.
func MigrateTable() {
	db := config.GetDB()
	logger := config.GetLogger()

	err := db.AutoMigrate(
		&CompaniaAseguradora{},
		&CorredorSeguros{},
		&TipoPoliza{},
		&TipoSiniestro{},
		&Poliza{},
		&BienAsegurado{},
		&Factura{},
		&Pago{},
		&Siniestro{},
		&SiniestroEmail{},
		&Documento{},
		&Alerta{},
		&NotificacionEmail{},
		&Usuario{},
	)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"field": "Migrating Tables",
		}).Panic(err.Error())
	}
}
