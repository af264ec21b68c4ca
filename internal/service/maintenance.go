package service

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Maintenance runs periodic housekeeping jobs on a cron schedule.
type Maintenance struct {
	cron *cron.Cron
	log  zerolog.Logger
}

// NewMaintenance creates a scheduler. Panicking jobs are recovered and logged.
func NewMaintenance(log zerolog.Logger) *Maintenance {
	cl := cronLogger{log: log}
	return &Maintenance{
		cron: cron.New(cron.WithChain(cron.Recover(cl)), cron.WithLogger(cl)),
		log:  log,
	}
}

// AddJob registers fn under a standard cron spec or descriptor such as "@every 1m".
func (m *Maintenance) AddJob(spec, name string, fn func()) error {
	if _, err := m.cron.AddFunc(spec, fn); err != nil {
		return fmt.Errorf("schedule %s job %q: %w", name, spec, err)
	}
	m.log.Info().Str("job", name).Str("schedule", spec).Msg("maintenance job scheduled")
	return nil
}

// Run starts the scheduler and blocks until ctx is done, then waits for
// running jobs to finish.
func (m *Maintenance) Run(ctx context.Context) error {
	m.cron.Start()
	<-ctx.Done()
	<-m.cron.Stop().Done()
	return nil
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
