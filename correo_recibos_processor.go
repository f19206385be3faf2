package main

import (
	"bitbucket.org/mmdatafocus/seguros_backend/correo"
)

// NewCorreoRecibosProcessor scans the indemnity-receipt mailbox: receipt PDFs
// move their claim to recibo_recibido and record the settled amounts.
func NewCorreoRecibosProcessor() *InboxProcessor {
	return &InboxProcessor{
		Nombre:     "recibos",
		MailboxEnv: "IMAP_MAILBOX_RECIBOS",
		Interval:   intervalFromEnv("CORREO_SCAN_MINUTOS", 10),
		Procesador: correo.NewProcesador(nil),
	}
}
