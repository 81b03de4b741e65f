// Package scheduler implements the Control Loops (C5): the ticker-driven
// background workers that move jobs and instances through their state
// machines. Grounded on the teacher's pkg/escalation/engine.go (ticker +
// Redis pub/sub fast-wake + per-tenant fan-out, generalized here to fan out
// over projects) and pkg/roster/worker.go (simpler single-purpose reaper
// loop shape, used for the idle-instance reaper).
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/skyfleet/orchestrator/internal/telemetry"
	"github.com/skyfleet/orchestrator/pkg/compute"
	"github.com/skyfleet/orchestrator/pkg/fleet"
	"github.com/skyfleet/orchestrator/pkg/gateway"
	"github.com/skyfleet/orchestrator/pkg/instance"
	"github.com/skyfleet/orchestrator/pkg/job"
	"github.com/skyfleet/orchestrator/pkg/pool"
	"github.com/skyfleet/orchestrator/pkg/project"
	"github.com/skyfleet/orchestrator/pkg/provisioning"
	"github.com/skyfleet/orchestrator/pkg/run"
)

// Default tick intervals. New applies each one to the matching Scheduler
// interval field left zero, so every loop's interval is set independently.
const (
	DefaultSubmittedInterval   = 2 * time.Second
	DefaultRunningInterval     = 5 * time.Second
	DefaultTerminatingInterval = 3 * time.Second
	DefaultIdleInterval        = 30 * time.Second
	DefaultGatewayInterval     = 10 * time.Second

	// FastWakeChannel is the Redis pub/sub channel process_submitted_jobs
	// subscribes to, so a message on it starts a tick without waiting out the
	// interval. Nothing in this module publishes to it (run.Service.Submit
	// does not). It is a latency shortcut only: the ticker remains the
	// authoritative driver (spec.md §9 design note).
	FastWakeChannel = "orchestrator:jobs:submitted"

	claimBatchSize = 20
)

// Scheduler owns every control loop and its dependencies.
type Scheduler struct {
	Jobs      *job.Store
	Runs      *run.Store
	Instances *instance.Store
	Pools     *pool.Store
	PoolMgr   *pool.Manager
	Projects  *project.Store
	Fleets    *fleet.Store
	Provisioner *provisioning.Provisioner
	Registry  *compute.Registry
	Gateway   gateway.Gateway // nil if no gateway collaborator is configured

	RDB    *redis.Client // nil disables fast-wake; ticker still drives loops
	Logger *slog.Logger

	SubmittedInterval   time.Duration
	RunningInterval     time.Duration
	TerminatingInterval time.Duration
	IdleInterval        time.Duration
	GatewayInterval     time.Duration

	submittedInFlight   *InFlightSet
	runningInFlight     *InFlightSet
	terminatingInFlight *InFlightSet
}

// New builds a Scheduler, filling in default intervals for any left zero.
func New(s Scheduler) *Scheduler {
	if s.SubmittedInterval == 0 {
		s.SubmittedInterval = DefaultSubmittedInterval
	}
	if s.RunningInterval == 0 {
		s.RunningInterval = DefaultRunningInterval
	}
	if s.TerminatingInterval == 0 {
		s.TerminatingInterval = DefaultTerminatingInterval
	}
	if s.IdleInterval == 0 {
		s.IdleInterval = DefaultIdleInterval
	}
	if s.GatewayInterval == 0 {
		s.GatewayInterval = DefaultGatewayInterval
	}
	s.submittedInFlight = NewInFlightSet()
	s.runningInFlight = NewInFlightSet()
	s.terminatingInFlight = NewInFlightSet()
	return &s
}

// Run starts every control loop and blocks until ctx is cancelled or one
// loop returns a non-nil error.
func (s *Scheduler) Run(ctx context.Context) error {
	s.Logger.Info("scheduler starting",
		"submitted_interval", s.SubmittedInterval,
		"running_interval", s.RunningInterval,
		"terminating_interval", s.TerminatingInterval,
		"idle_interval", s.IdleInterval,
		"gateway_interval", s.GatewayInterval,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.runSubmittedLoop(gctx) })
	g.Go(func() error { return s.runRunningLoop(gctx) })
	g.Go(func() error { return s.runTerminatingLoop(gctx) })
	g.Go(func() error { return s.runIdleLoop(gctx) })
	if s.Gateway != nil {
		g.Go(func() error { return s.runGatewayLoop(gctx) })
	}
	return g.Wait()
}

// timeTick records a loop's tick duration and logs any error it returned.
func (s *Scheduler) timeTick(loop string, fn func(context.Context) error) func(context.Context) {
	return func(ctx context.Context) {
		start := time.Now()
		if err := fn(ctx); err != nil {
			s.Logger.Error("scheduler tick failed", "loop", loop, "error", err)
		}
		telemetry.SchedulerTickDuration.WithLabelValues(loop).Observe(time.Since(start).Seconds())
	}
}
