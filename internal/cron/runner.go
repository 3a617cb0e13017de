// Package cronrunner schedules the periodic engine maintenance jobs: the
// yield harvest sweep and the dormancy heartbeat. Both are disabled by
// default; deployments that want lazy on-demand harvesting leave them off.
package cronrunner

import (
	"context"
	"errors"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"seedpool/internal/config"
	"seedpool/internal/protocol"
)

type Runner struct {
	cron    *cron.Cron
	logger  *zap.Logger
	baseCtx context.Context
}

func New(logger *zap.Logger, baseCtx context.Context) *Runner {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	return &Runner{
		cron:    cron.New(),
		logger:  logger,
		baseCtx: baseCtx,
	}
}

func (r *Runner) Add(spec string, job func(context.Context)) (cron.EntryID, error) {
	return r.cron.AddFunc(spec, func() {
		job(r.baseCtx)
	})
}

// Schedule wires the engine jobs per config. The harvest job treats an
// empty harvest as routine; the heartbeat keeps a quiet deployment from
// drifting toward the dormancy threshold.
func (r *Runner) Schedule(cfg config.CronConfig, engine *protocol.Engine, adminAddress string) error {
	if _, err := r.Add(cfg.Harvest, func(ctx context.Context) {
		harvested, err := engine.HarvestYield(ctx, adminAddress)
		switch {
		case errors.Is(err, protocol.ErrNothingToHarvest):
			// routine
		case errors.Is(err, protocol.ErrDormancyActive):
			// nothing left to do, the schedule just keeps ticking
		case err != nil:
			if r.logger != nil {
				r.logger.Warn("scheduled harvest failed", zap.Error(err))
			}
		default:
			if r.logger != nil {
				r.logger.Info("scheduled harvest", zap.String("amount", harvested.String()))
			}
		}
	}); err != nil {
		return err
	}

	if _, err := r.Add(cfg.Heartbeat, func(ctx context.Context) {
		if err := engine.Heartbeat(ctx, adminAddress); err != nil && !errors.Is(err, protocol.ErrDormancyActive) {
			if r.logger != nil {
				r.logger.Warn("scheduled heartbeat failed", zap.Error(err))
			}
		}
	}); err != nil {
		return err
	}
	return nil
}

func (r *Runner) Start() {
	if r.logger != nil {
		r.logger.Info("cron started")
	}
	r.cron.Start()
}

func (r *Runner) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	if r.logger != nil {
		r.logger.Info("cron stopped")
	}
}
