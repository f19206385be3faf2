package main

import (
	"context"
	"log"
	"time"

	"bitbucket.org/mmdatafocus/seguros_backend/config"
	"bitbucket.org/mmdatafocus/seguros_backend/models"
	"bitbucket.org/mmdatafocus/seguros_backend/workflow"
)

// One-shot alert derivation run, for cron-style scheduling outside the server.
func main() {
	config.ConnectDatabaseWithRetry()
	models.MigrateTable()

	generadas, err := workflow.GenerarAlertas(context.Background(), time.Now().UTC())
	if err != nil {
		log.Fatalf("alert derivation failed: %v", err)
	}
	log.Printf("alert derivation completed: %d alerts generated", generadas)
}
