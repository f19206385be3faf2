package main

import (
	"bitbucket.org/mmdatafocus/seguros_backend/correo"
)

// NewCorreoBrokerProcessor scans the broker-response mailbox: RESPUESTA
// SINIESTRO replies confirm the documentation step of the matching claim.
func NewCorreoBrokerProcessor() *InboxProcessor {
	return &InboxProcessor{
		Nombre:     "broker",
		MailboxEnv: "IMAP_MAILBOX_BROKER",
		Interval:   intervalFromEnv("CORREO_SCAN_MINUTOS", 10),
		Procesador: correo.NewProcesador(nil),
	}
}
