package storage

import (
	"time"

	"market-aggregator/src/interfaces"
	"market-aggregator/src/logger"

	"github.com/go-co-op/gocron"
)

// RetentionJob purges old archived messages once a day.
type RetentionJob struct {
	Archive interfaces.IDatabase
	At      string
	Logger  *logger.Logger

	cron *gocron.Scheduler
}

func NewRetentionJob(archive interfaces.IDatabase, at string, loc *time.Location) *RetentionJob {
	return &RetentionJob{
		Archive: archive,
		At:      at,
		Logger:  logger.NewLogger(nil, "RetentionJob"),
		cron:    gocron.NewScheduler(loc),
	}
}

// -----------------------------------------------------------------------------

func (j *RetentionJob) Start() error {
	if _, err := j.cron.Every(1).Day().At(j.At).Do(j.run); err != nil {
		return err
	}
	j.cron.StartAsync()
	j.Logger.Info("Retention cleanup scheduled daily at %s", j.At)
	return nil
}

func (j *RetentionJob) Stop() {
	j.cron.Stop()
}

// NextRun returns when the cleanup fires next, zero before Start.
func (j *RetentionJob) NextRun() time.Time {
	jobs := j.cron.Jobs()
	if len(jobs) == 0 {
		return time.Time{}
	}
	return jobs[0].NextRun()
}

func (j *RetentionJob) run() {
	if err := j.Archive.CleanupOldData(); err != nil {
		j.Logger.Error("Retention cleanup failed: %v", err)
	}
}
