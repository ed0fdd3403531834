package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/wavecresthq/wavecrest-backend/pkg/logger"
	"github.com/wavecresthq/wavecrest-backend/pkg/metrics"
)

// Overdue detection should lag a rental's end by minutes, not hours.
const defaultInterval = 5 * time.Minute

// HeartbeatStore records liveness of the active worker instance so operators
// can tell a stalled worker apart from one that lost the lock race.
type HeartbeatStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Incr(ctx context.Context, key string) (int64, error)
}

// ServiceParams configure the cron service.
type ServiceParams struct {
	Logger          *logger.Logger
	Registry        *Registry
	Lock            Lock
	Metrics         *metrics.CronJobMetrics
	Interval        time.Duration
	Heartbeat       HeartbeatStore
	HeartbeatKey    string
	CycleCounterKey string
}

// Service executes registered jobs on a fixed cadence, one instance at a time.
type Service struct {
	logg            *logger.Logger
	registry        *Registry
	lock            Lock
	metrics         *metrics.CronJobMetrics
	interval        time.Duration
	heartbeat       HeartbeatStore
	heartbeatKey    string
	cycleCounterKey string
}

// NewService builds a cron service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Lock == nil {
		return nil, fmt.Errorf("lock required")
	}
	registry := params.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	if params.Heartbeat != nil && (params.HeartbeatKey == "" || params.CycleCounterKey == "") {
		return nil, fmt.Errorf("heartbeat keys required when a heartbeat store is set")
	}
	return &Service{
		logg:            params.Logger,
		registry:        registry,
		lock:            params.Lock,
		metrics:         params.Metrics,
		interval:        interval,
		heartbeat:       params.Heartbeat,
		heartbeatKey:    params.HeartbeatKey,
		cycleCounterKey: params.CycleCounterKey,
	}, nil
}

// Run starts the cron loop until the context is canceled. A cycle runs
// immediately on start so a fresh deploy does not wait a full interval.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := s.runCycle(ctx); err != nil {
		s.logg.Error(ctx, "scheduled run failed", err)
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "cron service context canceled")
			return ctx.Err()
		case <-ticker.C:
			if err := s.runCycle(ctx); err != nil {
				s.logg.Error(ctx, "scheduled run failed", err)
			}
		}
	}
}

func (s *Service) runCycle(ctx context.Context) error {
	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("lock acquire: %w", err)
	}
	if !locked {
		s.logg.Info(ctx, "another cron instance is running; skipping this cycle")
		return nil
	}
	defer func() {
		if relErr := s.lock.Release(ctx); relErr != nil {
			s.logg.Error(ctx, "failed to release cron lock", relErr)
		}
	}()

	for _, job := range s.registry.Jobs() {
		s.runJob(ctx, job)
	}
	s.recordCycle(ctx)
	return nil
}

func (s *Service) recordCycle(ctx context.Context) {
	if s.heartbeat == nil {
		return
	}
	// TTL covers three missed intervals before the key expires.
	ttl := 3 * s.interval
	if err := s.heartbeat.Set(ctx, s.heartbeatKey, time.Now().UTC().Format(time.RFC3339), ttl); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "key", s.heartbeatKey), "failed to record cron heartbeat")
	}
	if _, err := s.heartbeat.Incr(ctx, s.cycleCounterKey); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "key", s.cycleCounterKey), "failed to increment cron cycle counter")
	}
}

func (s *Service) runJob(ctx context.Context, job Job) {
	jobCtx := s.logg.WithField(ctx, "job", job.Name())
	s.logg.Info(jobCtx, "job start")
	start := time.Now()
	err := job.Run(jobCtx)
	duration := time.Since(start)
	s.observeDuration(job.Name(), duration)
	jobCtx = s.logg.WithField(jobCtx, "duration_ms", duration.Milliseconds())
	if err != nil {
		s.logg.Error(jobCtx, "job failed", err)
		s.recordFailure(job.Name())
		return
	}
	s.logg.Info(jobCtx, "job completed")
	s.recordSuccess(job.Name())
}

func (s *Service) observeDuration(job string, duration time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveDuration(job, duration)
}

func (s *Service) recordSuccess(job string) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncSuccess(job)
}

func (s *Service) recordFailure(job string) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncFailure(job)
}
