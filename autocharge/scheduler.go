package autocharge

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

// Scheduler runs a task on a cron schedule in a given time zone.
type Scheduler struct {
	task     func(ctx context.Context)
	cron     string
	location *time.Location
	clock    clockwork.Clock

	mu        sync.RWMutex
	scheduler gocron.Scheduler
	job       gocron.Job
	cancel    context.CancelFunc
	running   bool
}

type SchedulerOption func(*Scheduler)

func WithSchedulerClock(clock clockwork.Clock) SchedulerOption {
	return func(s *Scheduler) {
		s.clock = clock
	}
}

func NewScheduler(task func(ctx context.Context), cron string, location *time.Location, opts ...SchedulerOption) *Scheduler {
	if location == nil {
		location = time.Local
	}
	s := &Scheduler{
		task:     task,
		cron:     cron,
		location: location,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start registers the cron job and starts ticking.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("scheduler is already running")
	}

	opts := []gocron.SchedulerOption{
		gocron.WithLocation(s.location),
		gocron.WithLogger(gocronLogger{entry: log.WithField("component", "gocron")}),
	}
	if s.clock != nil {
		opts = append(opts, gocron.WithClock(s.clock))
	}
	scheduler, err := gocron.NewScheduler(opts...)
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	job, err := scheduler.NewJob(
		gocron.CronJob(s.cron, false),
		gocron.NewTask(func() {
			s.task(ctx)
		}),
		gocron.WithName("charge"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		cancel()
		_ = scheduler.Shutdown()
		return fmt.Errorf("failed to create job for cron %q: %w", s.cron, err)
	}

	log.Infof("Scheduler started: cron=%q, tz=%s", s.cron, s.location)
	scheduler.Start()

	s.scheduler = scheduler
	s.job = job
	s.cancel = cancel
	s.running = true
	return nil
}

// Stop shuts the scheduler down. In-flight work is abandoned through its context.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false

	log.Info("Stopping scheduler")
	s.cancel()
	if err := s.scheduler.Shutdown(); err != nil {
		log.Warnf("scheduler shutdown: %v", err)
	}
}

func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// NextRun returns the next time the task is due.
func (s *Scheduler) NextRun() (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.running {
		return time.Time{}, fmt.Errorf("scheduler is not running")
	}
	return s.job.NextRun()
}

type gocronLogger struct {
	entry *logrus.Entry
}

func (l gocronLogger) Debug(msg string, args ...any) { l.with(args).Debug(msg) }
func (l gocronLogger) Info(msg string, args ...any)  { l.with(args).Debug(msg) }
func (l gocronLogger) Warn(msg string, args ...any)  { l.with(args).Warn(msg) }
func (l gocronLogger) Error(msg string, args ...any) { l.with(args).Error(msg) }

// with turns slog-style key/value pairs into logrus fields.
func (l gocronLogger) with(args []any) *logrus.Entry {
	fields := logrus.Fields{}
	for i := 0; i+1 < len(args); i += 2 {
		fields[fmt.Sprint(args[i])] = args[i+1]
	}
	return l.entry.WithFields(fields)
}
