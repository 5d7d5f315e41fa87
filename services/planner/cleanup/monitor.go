// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/AleutianAI/dingen/services/planner/session"
)

// =============================================================================
// Inactivity Monitor
// =============================================================================

// DefaultInactivityThreshold is how long a session may sit idle before
// its resources are released.
const DefaultInactivityThreshold = 10 * time.Minute

// Monitor decides when an idle session's resources should be released.
//
// # Description
//
// Compares a session's last-activity instant against a threshold and
// invokes the Coordinator when the threshold is exceeded. The session
// itself is not retired: its resources are released, its activity clock
// restarts, and a returning user triggers a fresh provisioning pass.
//
// The clock is injectable so threshold behavior is testable without
// sleeping.
type Monitor struct {
	coordinator *Coordinator
	threshold   time.Duration
	now         func() time.Time
}

// NewMonitor returns a Monitor with the given idle threshold. A zero or
// negative threshold falls back to DefaultInactivityThreshold.
func NewMonitor(coordinator *Coordinator, threshold time.Duration) *Monitor {
	if threshold <= 0 {
		threshold = DefaultInactivityThreshold
	}
	return &Monitor{coordinator: coordinator, threshold: threshold, now: time.Now}
}

// CheckAndMaybeCleanup releases the session's resources if it has been
// idle past the threshold.
//
// # Outputs
//   - bool: true when a cleanup was performed on this call.
//
// The first check on a session with no recorded activity only starts
// the clock. A triggered cleanup resets the clock, so one long idle
// period causes exactly one cleanup call.
func (m *Monitor) CheckAndMaybeCleanup(ctx context.Context, st *session.State) bool {
	last := st.LastActivity()
	now := m.now()
	if last.IsZero() {
		st.Touch(now)
		return false
	}
	if now.Sub(last) <= m.threshold {
		return false
	}
	if !st.Provisioned() {
		// Nothing to release; restart the clock so the same idle
		// session is not re-examined every sweep.
		st.Touch(now)
		return false
	}

	slog.Info("Session idle past threshold, releasing resources",
		"session_id", st.Key(),
		"idle", now.Sub(last).Round(time.Second).String(),
		"threshold", m.threshold.String(),
	)
	m.coordinator.Cleanup(ctx, st)
	st.Touch(now)
	return true
}
