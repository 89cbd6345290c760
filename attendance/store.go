/*
store.go - Persistence interfaces for employees, shifts and events

PURPOSE:
  Defines the boundary between the attendance logic and the database.
  Implementations: attendance/store (memory), store/sqlite, store/gormdb.
  Every implementation must pass attendance/storetest.

APPEND-ONLY CONTRACT:
  EventStore exposes AppendEvent and read queries only.
  There is NO UpdateEvent and NO DeleteEvent.

UNIQUENESS:
  - Employee.Code is unique (CreateEmployee returns ErrDuplicateCode)
  - ShiftPolicy.Name is unique (EnsureShift is insert-or-fetch)

ORDERING:
  Event queries return ascending At, ties broken by CreatedAt then ID.
  Ranges are half-open: from <= At < to.
*/
package attendance

import (
	"context"
	"time"
)

// EmployeeStore persists the employee directory.
type EmployeeStore interface {
	// CreateEmployee inserts a new employee. ErrDuplicateCode if the code is taken.
	CreateEmployee(ctx context.Context, e Employee) error

	// UpdateEmployee replaces the mutable fields of an existing employee.
	// The code is never changed. ErrEmployeeNotFound if missing.
	UpdateEmployee(ctx context.Context, e Employee) error

	GetEmployee(ctx context.Context, id EmployeeID) (Employee, error)
	GetEmployeeByCode(ctx context.Context, code string) (Employee, error)

	// ListEmployees returns all employees, newest first.
	ListEmployees(ctx context.Context) ([]Employee, error)

	// DeleteEmployee removes an employee without ledger history.
	// ErrEmployeeHasHistory if events reference it, ErrEmployeeNotFound if missing.
	DeleteEmployee(ctx context.Context, id EmployeeID) error
}

// ShiftStore persists shift policies.
type ShiftStore interface {
	// EnsureShift inserts p unless a policy with the same name exists, then
	// returns the stored policy. Must be safe under concurrent first use.
	EnsureShift(ctx context.Context, p ShiftPolicy) (ShiftPolicy, error)

	// SaveShift inserts or replaces the policy with p.Name.
	SaveShift(ctx context.Context, p ShiftPolicy) (ShiftPolicy, error)

	GetShift(ctx context.Context, name string) (ShiftPolicy, error)
	ListShifts(ctx context.Context) ([]ShiftPolicy, error)
}

// EventStore persists the append-only ledger.
type EventStore interface {
	// AppendEvent persists an event. This is the ONLY write operation.
	AppendEvent(ctx context.Context, ev Event) error

	// EventsBetween returns events of all employees with from <= At < to.
	EventsBetween(ctx context.Context, from, to time.Time) ([]Event, error)

	// EmployeeEventsBetween returns one employee's events with from <= At < to.
	EmployeeEventsBetween(ctx context.Context, id EmployeeID, from, to time.Time) ([]Event, error)

	// CountEmployeeEvents returns how many events reference the employee.
	CountEmployeeEvents(ctx context.Context, id EmployeeID) (int, error)
}

// Store is the full persistence surface used by the services.
type Store interface {
	EmployeeStore
	ShiftStore
	EventStore
}
