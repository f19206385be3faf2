package main

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/bsm/redislock"
	"github.com/sirupsen/logrus"

	"bitbucket.org/mmdatafocus/seguros_backend/config"
	"bitbucket.org/mmdatafocus/seguros_backend/correo"
)

// InboxProcessor periodically scans one IMAP mailbox and feeds every unseen
// message through the classification pipeline. Report, broker and receipt
// scans are separate instances so each mailbox can run on its own cadence.
type InboxProcessor struct {
	Nombre     string
	MailboxEnv string
	Interval   time.Duration
	Procesador *correo.Procesador
}

func (p *InboxProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if _, err := p.ScanOnce(ctx); err != nil {
			logger := config.GetLogger()
			config.LogError(logger, "correo_processor", "Run", p.Nombre, nil, err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(p.Interval):
		}
	}
}

// ScanOnce runs a single mailbox pass. Returns the number of newly ingested
// messages. Transient IMAP failures abort the pass; the next tick retries the
// whole mailbox since unprocessed mail stays unseen.
func (p *InboxProcessor) ScanOnce(ctx context.Context) (int, error) {
	logger := config.GetLogger()

	settings, err := config.GetImapSettings()
	if err != nil {
		logger.WithFields(logrus.Fields{
			"processor": p.Nombre,
		}).Info("imap not configured; skipping inbox scan")
		return 0, nil
	}
	if p.MailboxEnv != "" {
		if mailbox := os.Getenv(p.MailboxEnv); mailbox != "" {
			settings.Mailbox = mailbox
		}
	}

	// Cross-instance skip. Best effort only: the MessageId dedup in the
	// pipeline makes a double scan harmless, just wasteful.
	if locker := config.GetRedisLock(); locker != nil {
		lock, err := locker.Obtain(ctx, "job:correo:"+p.Nombre, p.Interval, nil)
		if err == redislock.ErrNotObtained {
			return 0, nil
		}
		if err == nil {
			defer lock.Release(ctx)
		}
	}

	now := time.Now().UTC()
	procesados := 0
	_, err = correo.LeerNoLeidos(settings, func(m correo.Mensaje) error {
		registrado, err := p.Procesador.ProcesarMensaje(ctx, m, now)
		if err != nil {
			// The message stays unseen; the next tick retries it.
			config.LogError(logger, "correo_processor", "ScanOnce", p.Nombre, m.Asunto, err)
			return err
		}
		if registrado != nil {
			procesados++
		}
		return nil
	})
	return procesados, err
}

func intervalFromEnv(envVar string, defaultMinutes int) time.Duration {
	if v := os.Getenv(envVar); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Minute
		}
	}
	return time.Duration(defaultMinutes) * time.Minute
}
