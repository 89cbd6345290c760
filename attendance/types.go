/*
Package attendance provides the core attendance accounting engine.

PURPOSE:
  Turns a stream of timestamped check-in events into lateness, monthly
  presence and absence statistics. The package is storage-agnostic: it
  defines the records and the Store interfaces, and the algorithms that
  run on top of them.

KEY CONCEPTS IN THIS FILE (types.go):
  - Employee: a directory record identified by a unique business code
  - Event: an immutable check-in recorded in the ledger
  - Type-safe identifiers for employees, shifts and events

DESIGN PRINCIPLES:
  1. Immutability: events are never modified or deleted
  2. Freeze-at-write: lateness is computed once, when the event is recorded
  3. Derived status: "late"/"on-time" is derived from lateness, not stored

SEE ALSO:
  - shift.go: Shift policy and lateness engine
  - ledger.go: Append-only event log
  - summary.go: Monthly accounting
*/
package attendance

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string
type ShiftID string
type EventID string

// NewID returns a random identifier used for every record kind.
func NewID() string {
	return uuid.NewString()
}

// =============================================================================
// EMPLOYEE
// =============================================================================

// Employee is a directory record. Code is the immutable business key typed
// at the kiosk; ID is the internal key referenced by ledger events.
type Employee struct {
	ID          EmployeeID
	Code        string
	FullName    string
	Department  string
	Designation string
	Phone       string
	Email       string
	JoiningDate *time.Time
	Notes       string
	PhotoPath   string
	CreatedAt   time.Time
}

// =============================================================================
// EVENT
// =============================================================================

// EventStatus is the tag stored with each event.
type EventStatus string

// StatusPresent is the only status written at check-in time.
const StatusPresent EventStatus = "present"

// Event is a single check-in. Once appended it never changes.
type Event struct {
	ID              EventID
	EmployeeID      EmployeeID
	At              time.Time
	Status          EventStatus
	LatenessMinutes int
	SnapshotPath    string
	CreatedAt       time.Time
}

// IsLate reports whether the event was recorded after the grace deadline.
func (e Event) IsLate() bool { return e.LatenessMinutes > 0 }
