// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/AleutianAI/dingen/services/planner/session"
)

// =============================================================================
// Background Cleanup Scheduler
// =============================================================================

// SchedulerConfig holds configuration for the background cleanup
// scheduler.
//
// # Fields
//
//   - Interval: How often to sweep the session store. Default: 1 minute.
type SchedulerConfig struct {
	Interval time.Duration
}

// DefaultSchedulerConfig returns the production sweep interval. One
// minute keeps the worst-case overshoot past the idle threshold small
// relative to the threshold itself.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{Interval: 1 * time.Minute}
}

// Scheduler periodically sweeps every session through the inactivity
// monitor.
//
// # Description
//
// Inactivity checks are otherwise pull-based: they run only when a
// request for that session arrives. A session abandoned mid-plan would
// then hold its remote resources until the process exits. The scheduler
// closes that gap by sweeping the whole store on an interval,
// independent of request traffic. Uses the ticker + done channel
// pattern for graceful shutdown.
//
// # Thread Safety
//
// All public methods are thread-safe. Only one scheduler should run per
// process.
type Scheduler struct {
	store   *session.Store
	monitor *Monitor
	config  SchedulerConfig
	done    chan struct{}
	mu      sync.Mutex
	running bool
}

// NewScheduler creates a scheduler over the given store and monitor.
// Zero config fields fall back to DefaultSchedulerConfig values.
func NewScheduler(store *session.Store, monitor *Monitor, config SchedulerConfig) *Scheduler {
	if config.Interval <= 0 {
		config.Interval = DefaultSchedulerConfig().Interval
	}
	return &Scheduler{
		store:   store,
		monitor: monitor,
		config:  config,
		done:    make(chan struct{}),
	}
}

// Start begins the background sweep goroutine. It returns an error when
// the scheduler is already running. The goroutine stops on Stop() or on
// context cancellation.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler is already running")
	}
	s.running = true
	s.done = make(chan struct{}) // Reset done channel for potential restart
	s.mu.Unlock()

	slog.Info("Session cleanup scheduler starting", "interval", s.config.Interval.String())
	go s.runLoop(ctx)
	return nil
}

// Stop signals the scheduler to stop. Safe to call multiple times; does
// not interrupt a sweep already in progress.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	slog.Info("Session cleanup scheduler stopping")
	close(s.done)
	s.running = false
	return nil
}

// RunNow performs one sweep immediately, outside the schedule. Returns
// the number of sessions cleaned.
func (s *Scheduler) RunNow(ctx context.Context) int {
	return s.sweep(ctx)
}

// runLoop is the scheduler goroutine.
func (s *Scheduler) runLoop(ctx context.Context) {
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Session cleanup scheduler stopped (context cancelled)")
			return
		case <-s.done:
			slog.Info("Session cleanup scheduler stopped (stop requested)")
			return
		case <-ticker.C:
			cleaned := s.sweep(ctx)
			if cleaned > 0 {
				slog.Info("Cleanup sweep finished", "sessions_cleaned", cleaned)
			}
		}
	}
}

// sweep runs the inactivity check across every registered session.
func (s *Scheduler) sweep(ctx context.Context) int {
	cleaned := 0
	s.store.ForEach(func(st *session.State) {
		if s.monitor.CheckAndMaybeCleanup(ctx, st) {
			cleaned++
		}
	})
	return cleaned
}
