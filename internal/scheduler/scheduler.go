package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/i474232898/city-explorer/internal/explorer"
	"github.com/i474232898/city-explorer/internal/logger"
)

// Sweeper purges stale cache rows. *explorer.Coordinator implements it.
type Sweeper interface {
	Sweep(ctx context.Context) (map[explorer.ResourceType]int64, error)
}

// Scheduler periodically sweeps stale rows out of the store so they do not
// linger for locations nobody asks about again.
type Scheduler struct {
	scheduler *gocron.Scheduler
	sweeper   Sweeper
	interval  time.Duration
	timeout   time.Duration
	log       *zap.SugaredLogger
}

// New creates a new Scheduler. A non-positive interval disables it.
func New(sweeper Sweeper, interval time.Duration) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		sweeper:   sweeper,
		interval:  interval,
		timeout:   30 * time.Second,
		log:       logger.GetLogger("scheduler"),
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		s.log.Info("sweep interval not set; nothing to schedule")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).WaitForSchedule().Do(s.RunOnce)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.log.Infof("sweeping stale rows every %s", s.interval)
	return nil
}

// RunOnce performs a single sweep.
func (s *Scheduler) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	purged, err := s.sweeper.Sweep(ctx)
	if err != nil {
		s.log.Errorw("sweep failed", "error", err)
		return
	}

	var total int64
	for r, n := range purged {
		if n > 0 {
			s.log.Debugw("swept stale rows", "resource", r.String(), "rows", n)
		}
		total += n
	}
	s.log.Debugw("sweep completed", "rows", total)
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
