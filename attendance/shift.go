/*
shift.go - Shift policies and the lateness engine

PURPOSE:
  A ShiftPolicy is a named work window with a grace period. The lateness
  engine compares a check-in instant against the policy's deadline:

    deadline = date(at) @ start + grace
    lateness = max(0, floor((at - deadline) / minute))

  The deadline is always anchored to the calendar date of the check-in, in
  the check-in's own location. A check-in exactly at the deadline is on time.

DEFAULT POLICY:
  Exactly one default policy named "Morning" (09:00-17:00, 5 minutes grace)
  exists. It is created at startup with EnsureDefaultShift, which relies on
  the store's insert-or-fetch on the unique name, so two processes starting
  together still end up with a single row.

OVERNIGHT SHIFTS:
  Not supported. Validate rejects a policy whose end is not after its start.

FREEZE-AT-WRITE:
  Lateness is stored on the event when it is recorded. Editing a policy
  later never rewrites history.
*/
package attendance

import (
	"context"
	"strings"
	"time"
)

const (
	DefaultShiftName    = "Morning"
	DefaultGraceMinutes = 5
)

// Check-in outcome labels, derived from lateness.
const (
	OutcomeOnTime = "present-on-time"
	OutcomeLate   = "late"
)

// ShiftPolicy is a named work window.
type ShiftPolicy struct {
	ID           ShiftID
	Name         string
	Start        ClockTime
	End          ClockTime
	GraceMinutes int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DefaultShift returns the seed values for the default policy.
func DefaultShift() ShiftPolicy {
	return ShiftPolicy{
		Name:         DefaultShiftName,
		Start:        ClockTime{Hour: 9},
		End:          ClockTime{Hour: 17},
		GraceMinutes: DefaultGraceMinutes,
	}
}

func (p ShiftPolicy) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return Invalid("name", "is required")
	}
	if p.GraceMinutes < 0 {
		return Invalid("grace_minutes", "must not be negative")
	}
	if p.End.Minutes() <= p.Start.Minutes() {
		return Invalid("end", "must be after start (overnight shifts are not supported)")
	}
	return nil
}

// Deadline is the last on-time instant for a check-in at t.
func (p ShiftPolicy) Deadline(t time.Time) time.Time {
	return p.Start.On(t).Add(time.Duration(p.GraceMinutes) * time.Minute)
}

// =============================================================================
// LATENESS ENGINE
// =============================================================================

// Lateness returns whole minutes past the policy deadline, 0 when on time.
// Partial minutes are truncated.
func Lateness(at time.Time, p ShiftPolicy) int {
	over := at.Sub(p.Deadline(at))
	if over <= 0 {
		return 0
	}
	return int(over / time.Minute)
}

// Outcome maps a lateness value to its label.
func Outcome(latenessMinutes int) string {
	if latenessMinutes == 0 {
		return OutcomeOnTime
	}
	return OutcomeLate
}

// EnsureDefaultShift creates the default policy if missing and returns the
// stored row. Safe to call concurrently.
func EnsureDefaultShift(ctx context.Context, store ShiftStore) (ShiftPolicy, error) {
	return store.EnsureShift(ctx, DefaultShift())
}
