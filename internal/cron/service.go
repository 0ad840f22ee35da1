package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/digitos-team/masala-software/pkg/logger"
	"github.com/digitos-team/masala-software/pkg/metrics"
)

const (
	defaultInterval   = time.Hour
	defaultJobTimeout = 5 * time.Minute
)

// ErrLockHeld is returned by RunOnce when another replica owns the cycle.
var ErrLockHeld = errors.New("cron lock held by another worker")

type ServiceParams struct {
	Logger     *logger.Logger
	Registry   *Registry
	Lock       Lock
	Metrics    *metrics.CronJobMetrics
	Interval   time.Duration
	JobTimeout time.Duration
}

// Service runs the registered jobs once per interval. A cycle only starts
// after the shared lock is taken, so one replica works at a time.
type Service struct {
	logg       *logger.Logger
	registry   *Registry
	lock       Lock
	metrics    *metrics.CronJobMetrics
	interval   time.Duration
	jobTimeout time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger required")
	case params.Lock == nil:
		return nil, errors.New("lock required")
	}
	s := &Service{
		logg:       params.Logger,
		registry:   params.Registry,
		lock:       params.Lock,
		metrics:    params.Metrics,
		interval:   params.Interval,
		jobTimeout: params.JobTimeout,
	}
	if s.registry == nil {
		s.registry = &Registry{}
	}
	if s.interval <= 0 {
		s.interval = defaultInterval
	}
	if s.jobTimeout <= 0 {
		s.jobTimeout = defaultJobTimeout
	}
	return s, nil
}

// Run starts a cycle now and then on every tick until ctx is cancelled.
// Cycle failures are logged; only cancellation ends the loop.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		if err := s.RunOnce(ctx); err != nil && !errors.Is(err, ErrLockHeld) {
			s.logg.Error(ctx, "cron cycle failed", err)
		}
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "cron stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce runs a single cycle: every job runs even if an earlier one failed,
// and the failures come back combined.
func (s *Service) RunOnce(ctx context.Context) (err error) {
	ctx = s.logg.WithField(ctx, "cycle_id", uuid.NewString())
	ok, err := s.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire cron lock: %w", err)
	}
	if !ok {
		s.logg.Info(ctx, "lock held elsewhere, skipping cycle")
		return ErrLockHeld
	}
	defer func() {
		if relErr := s.lock.Release(ctx); relErr != nil {
			s.logg.Error(ctx, "release cron lock", relErr)
		}
	}()

	for _, job := range s.registry.Jobs() {
		if ctx.Err() != nil {
			return multierr.Append(err, ctx.Err())
		}
		err = multierr.Append(err, s.runJob(ctx, job))
	}
	return err
}

func (s *Service) runJob(ctx context.Context, job Job) error {
	name := job.Name()
	jobCtx, cancel := context.WithTimeout(s.logg.WithField(ctx, "job", name), s.jobTimeout)
	defer cancel()

	start := time.Now()
	err := guard(jobCtx, job)
	took := time.Since(start)
	s.metrics.Observe(name, took, err)

	jobCtx = s.logg.WithField(jobCtx, "duration_ms", took.Milliseconds())
	if err != nil {
		s.logg.Error(jobCtx, "job failed", err)
		return fmt.Errorf("%s: %w", name, err)
	}
	s.logg.Info(jobCtx, "job completed")
	return nil
}

// guard turns a panicking job into an error so the rest of the cycle runs.
func guard(ctx context.Context, job Job) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return job.Run(ctx)
}
