package main

import (
	"bitbucket.org/mmdatafocus/seguros_backend/correo"
)

// NewCorreoSiniestrosProcessor scans the claim-report mailbox: [SINIESTRO]
// messages open claims automatically when the reported asset resolves.
func NewCorreoSiniestrosProcessor(fotos correo.AlmacenFotos) *InboxProcessor {
	return &InboxProcessor{
		Nombre:     "siniestros",
		MailboxEnv: "IMAP_MAILBOX_REPORTES",
		Interval:   intervalFromEnv("CORREO_SCAN_MINUTOS", 10),
		Procesador: correo.NewProcesador(fotos),
	}
}
