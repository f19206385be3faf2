package main

import (
	"context"
	"log"
	"time"

	"bitbucket.org/mmdatafocus/seguros_backend/config"
	"bitbucket.org/mmdatafocus/seguros_backend/correo"
	"bitbucket.org/mmdatafocus/seguros_backend/models"
)

// One-shot inbox scan: reads the configured mailbox once and applies every
// classification outcome. Photo storage is skipped here; the server's
// processors handle uploads.
func main() {
	config.ConnectDatabaseWithRetry()
	models.MigrateTable()

	settings, err := config.GetImapSettings()
	if err != nil {
		log.Fatalf("imap not configured: %v", err)
	}

	ctx := context.Background()
	now := time.Now().UTC()
	procesador := correo.NewProcesador(nil)

	procesados := 0
	marcados, err := correo.LeerNoLeidos(settings, func(m correo.Mensaje) error {
		registrado, err := procesador.ProcesarMensaje(ctx, m, now)
		if err != nil {
			log.Printf("message %q failed, left unseen: %v", m.Asunto, err)
			return err
		}
		if registrado != nil {
			procesados++
		}
		return nil
	})
	if err != nil {
		log.Fatalf("inbox scan failed: %v", err)
	}
	log.Printf("inbox scan completed: %d ingested, %d flagged seen", procesados, marcados)
}
