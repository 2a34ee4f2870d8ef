package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Job is a named unit of periodic work
type Job func(ctx context.Context) error

// Scheduler runs jobs on cron schedules. Overlapping runs of the same job are skipped.
type Scheduler struct {
	cron    *cron.Cron
	log     *logrus.Logger
	timeout time.Duration
	names   map[cron.EntryID]string
}

func NewScheduler(log *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(cronLogger{log}),
			cron.SkipIfStillRunning(cronLogger{log}),
		)),
		log:     log,
		timeout: 5 * time.Minute,
		names:   make(map[cron.EntryID]string),
	}
}

// Add registers job under a standard five-field cron spec or a descriptor like "@every 10m"
func (s *Scheduler) Add(name, spec string, job Job) error {
	id, err := s.cron.AddFunc(spec, func() { s.run(name, job) })
	if err != nil {
		return fmt.Errorf("failed to schedule %s: %w", name, err)
	}
	s.names[id] = name
	s.log.Infof("Scheduled job %s (%s)", name, spec)
	return nil
}

func (s *Scheduler) run(name string, job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	entry := s.log.WithField("job", name)
	if err := job(ctx); err != nil {
		entry.Errorf("Job failed: %v", err)
		return
	}
	entry.WithField("duration_ms", time.Since(start).Milliseconds()).Debug("Job finished")
}

// Jobs returns registered job names mapped to their next run time
func (s *Scheduler) Jobs() map[string]time.Time {
	out := make(map[string]time.Time, len(s.names))
	for _, e := range s.cron.Entries() {
		out[s.names[e.ID]] = e.Next
	}
	return out
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs and waits for running jobs until ctx is done
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.log.Warn("Timed out waiting for running jobs")
	}
}

// cronLogger adapts logrus to cron.Logger
type cronLogger struct {
	log *logrus.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.WithFields(fields(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.WithFields(fields(keysAndValues)).WithError(err).Error(msg)
}

func fields(kv []interface{}) logrus.Fields {
	f := make(logrus.Fields, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		f[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return f
}
