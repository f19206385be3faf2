package main

import (
	"context"
	"time"

	"github.com/bsm/redislock"
	"github.com/sirupsen/logrus"

	"bitbucket.org/mmdatafocus/seguros_backend/config"
	"bitbucket.org/mmdatafocus/seguros_backend/workflow"
)

// AlertaProcessor periodically derives alerts from a consistent snapshot of
// policies, invoices and claims. The derivation is idempotent at a fixed
// evaluation time, so a re-run after a crash emits nothing new.
type AlertaProcessor struct {
	Interval time.Duration
}

func NewAlertaProcessor() *AlertaProcessor {
	return &AlertaProcessor{
		Interval: intervalFromEnv("ALERTAS_INTERVALO_MINUTOS", 24*60),
	}
}

func (p *AlertaProcessor) Run(ctx context.Context) {
	logger := config.GetLogger()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		p.processOnce(ctx, logger)
		select {
		case <-ctx.Done():
			return
		case <-time.After(p.Interval):
		}
	}
}

func (p *AlertaProcessor) processOnce(ctx context.Context, logger *logrus.Logger) {
	// Best-effort cross-instance skip; duplicate suppression in the
	// derivation makes a double run a no-op anyway.
	if locker := config.GetRedisLock(); locker != nil {
		lock, err := locker.Obtain(ctx, "job:alertas", 5*time.Minute, nil)
		if err == redislock.ErrNotObtained {
			return
		}
		if err == nil {
			defer lock.Release(ctx)
		}
	}

	generadas, err := workflow.GenerarAlertas(ctx, time.Now().UTC())
	if err != nil {
		config.LogError(logger, "alerta_processor", "processOnce", "alert derivation", nil, err)
		return
	}
	if generadas > 0 {
		logger.WithFields(logrus.Fields{
			"alertas_generadas": generadas,
		}).Info("alert derivation pass completed")
	}
}
