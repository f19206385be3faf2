package main

import (
	"context"
	"time"

	"github.com/bsm/redislock"
	"github.com/sirupsen/logrus"

	"bitbucket.org/mmdatafocus/seguros_backend/config"
	"bitbucket.org/mmdatafocus/seguros_backend/workflow"
)

// EstadoProcessor refreshes derived policy and invoice states on a daily
// cadence. Both refreshes are conditional per-row updates, so a pass over an
// already-current database writes nothing.
type EstadoProcessor struct {
	Interval time.Duration
}

func NewEstadoProcessor() *EstadoProcessor {
	return &EstadoProcessor{
		Interval: intervalFromEnv("ESTADOS_INTERVALO_MINUTOS", 24*60),
	}
}

func (p *EstadoProcessor) Run(ctx context.Context) {
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

func (p *EstadoProcessor) processOnce(ctx context.Context, logger *logrus.Logger) {
	if locker := config.GetRedisLock(); locker != nil {
		lock, err := locker.Obtain(ctx, "job:estados", 5*time.Minute, nil)
		if err == redislock.ErrNotObtained {
			return
		}
		if err == nil {
			defer lock.Release(ctx)
		}
	}

	now := time.Now().UTC()

	polizas, err := workflow.RefrescarEstadosPolizas(ctx, now)
	if err != nil {
		config.LogError(logger, "estado_processor", "processOnce", "policy state refresh", nil, err)
		return
	}
	facturas, err := workflow.RefrescarEstadosFacturas(ctx, now)
	if err != nil {
		config.LogError(logger, "estado_processor", "processOnce", "invoice state refresh", nil, err)
		return
	}
	if polizas > 0 || facturas > 0 {
		logger.WithFields(logrus.Fields{
			"polizas_actualizadas":  polizas,
			"facturas_actualizadas": facturas,
		}).Info("state refresh pass completed")
	}
}

// PlazoProcessor expires settlement deadlines hourly. Purely a comparison
// against stored timestamps; no external calls.
type PlazoProcessor struct {
	Interval time.Duration
}

func NewPlazoProcessor() *PlazoProcessor {
	return &PlazoProcessor{
		Interval: intervalFromEnv("PLAZOS_INTERVALO_MINUTOS", 60),
	}
}

func (p *PlazoProcessor) Run(ctx context.Context) {
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

func (p *PlazoProcessor) processOnce(ctx context.Context, logger *logrus.Logger) {
	vencidos, err := workflow.AvanzarPlazosLiquidacion(ctx, time.Now().UTC())
	if err != nil {
		config.LogError(logger, "estado_processor", "PlazoProcessor.processOnce", "settlement deadline scan", nil, err)
		return
	}
	if len(vencidos) > 0 {
		logger.WithFields(logrus.Fields{
			"siniestros_vencidos": len(vencidos),
		}).Info("settlement deadlines expired")
	}
}
