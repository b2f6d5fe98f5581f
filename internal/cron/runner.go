package cronrunner

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Runner wraps a cron scheduler so jobs receive the process base context and
// a panic in one job cannot take the scheduler down.
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
		cron:    cron.New(cron.WithSeconds()),
		logger:  logger,
		baseCtx: baseCtx,
	}
}

// Add schedules a named job. The name only feeds logging.
func (r *Runner) Add(name, spec string, job func(context.Context)) (cron.EntryID, error) {
	id, err := r.cron.AddFunc(spec, func() {
		defer func() {
			if rec := recover(); rec != nil && r.logger != nil {
				r.logger.Error("cron job panicked",
					zap.String("job", name), zap.Any("panic", rec))
			}
		}()
		job(r.baseCtx)
	})
	if err == nil && r.logger != nil {
		r.logger.Info("cron job registered",
			zap.String("job", name), zap.String("spec", spec))
	}
	return id, err
}

func (r *Runner) Start() {
	r.cron.Start()
}

// Stop blocks until running jobs drain.
func (r *Runner) Stop() {
	<-r.cron.Stop().Done()
	if r.logger != nil {
		r.logger.Info("cron stopped")
	}
}
