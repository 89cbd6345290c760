/*
ledger.go - Append-only attendance log

PURPOSE:
  The Ledger is the source of truth for check-ins. Every check-in becomes
  one Event; statistics are always derived by reading events back, never
  kept in a separate counter that could drift.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: No Update, No Delete. EVER.
  2. IMMUTABLE: lateness is frozen when the event is recorded
  3. NO DEDUPLICATION: several check-ins on one day are all kept;
     accounting decides which one counts (see summary.go)

QUERIES:
  EventsOn(date)                  all employees, one calendar day
  EventsInRange(id, start, end)   one employee, half-open [start, end)

SEE ALSO:
  - store.go: EventStore persistence interface
  - summary.go: Monthly accounting over ledger events
*/
package attendance

import (
	"context"
	"strings"
	"time"
)

// Ledger records and queries attendance events.
type Ledger struct {
	Store EventStore
	now   func() time.Time
}

func NewLedger(store EventStore) *Ledger {
	return &Ledger{Store: store, now: time.Now}
}

// Record appends a new immutable event and returns it.
func (l *Ledger) Record(ctx context.Context, employeeID EmployeeID, at time.Time, latenessMinutes int, snapshotPath string) (Event, error) {
	if strings.TrimSpace(string(employeeID)) == "" {
		return Event{}, Invalid("employee_id", "is required")
	}
	if latenessMinutes < 0 {
		return Event{}, Invalid("lateness_minutes", "must not be negative")
	}
	if at.IsZero() {
		return Event{}, Invalid("at", "is required")
	}

	ev := Event{
		ID:              EventID(NewID()),
		EmployeeID:      employeeID,
		At:              at,
		Status:          StatusPresent,
		LatenessMinutes: latenessMinutes,
		SnapshotPath:    snapshotPath,
		CreatedAt:       l.now(),
	}
	if err := l.Store.AppendEvent(ctx, ev); err != nil {
		return Event{}, err
	}
	return ev, nil
}

// EventsOn returns every employee's events on the calendar date of day,
// evaluated in day's location, ascending by timestamp.
func (l *Ledger) EventsOn(ctx context.Context, day time.Time) ([]Event, error) {
	from, to := DayBounds(day)
	return l.Store.EventsBetween(ctx, from, to)
}

// EventsInRange returns one employee's events with start <= At < end.
func (l *Ledger) EventsInRange(ctx context.Context, employeeID EmployeeID, start, end time.Time) ([]Event, error) {
	if !end.After(start) {
		return nil, Invalid("end", "must be after start")
	}
	return l.Store.EmployeeEventsBetween(ctx, employeeID, start, end)
}
