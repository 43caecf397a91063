package watch

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"go-substack-watch/internal/logx"
	"go-substack-watch/internal/model"
)

// Job is what the scheduler triggers. *Runner satisfies it.
type Job interface {
	Run(ctx context.Context) (model.Stats, error)
}

// Schedule runs job on the cron spec (standard five fields or a "@every" descriptor)
// until ctx is done. A run still in progress when the next tick fires is not doubled.
// It waits for the running job before returning.
func Schedule(ctx context.Context, spec string, job Job) error {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return fmt.Errorf("parse schedule %q: %w", spec, err)
	}
	logger := cronLogger{}
	c := cron.New(cron.WithLogger(logger), cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)))
	c.Schedule(sched, cron.FuncJob(func() {
		if _, err := job.Run(ctx); err != nil && ctx.Err() == nil {
			logx.Errorf("scheduled run failed: %v", err)
		}
	}))
	c.Start()
	logx.Infof("schedule %q: next run at %s", spec, sched.Next(time.Now()).Format("2006-01-02 15:04:05"))

	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

// cronLogger routes cron's own messages into logx.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	logx.Debugf("cron: %s %v", msg, keysAndValues)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	logx.Errorf("cron: %s: %v %v", msg, err, keysAndValues)
}
