/*
Package sqlite provides a SQLite-backed implementation of attendance.Store.

PURPOSE:
  Default persistence for a single kiosk deployment. One file, no server.
  store/gormdb covers PostgreSQL for shared deployments.

KEY TABLES:
  employees:          Directory records, UNIQUE(code)
  shifts:             Shift policies, UNIQUE(name)
  attendance_events:  Immutable check-in ledger

APPEND-ONLY ENFORCEMENT:
  - No UPDATE statements on attendance_events
  - No DELETE statements on attendance_events
  - employee_id REFERENCES employees ON DELETE RESTRICT, so an employee
    with history can never be removed underneath the ledger

TIME ENCODING:
  Instants are stored as UTC text with a fixed-width nanosecond layout.
  Lexicographic order equals chronological order, so range queries and
  ORDER BY work directly on the strings.

INDEXES:
  - idx_events_at:           day queries across all employees
  - idx_events_employee_at:  monthly queries for one employee (hot path)

CONCURRENCY:
  Uses sync.RWMutex plus a single pooled connection. Writers are
  serialized, which also makes EnsureShift's insert-or-fetch atomic.

WAL MODE:
  Opened with WAL (Write-Ahead Logging) and foreign keys enabled.

USAGE:
  store, err := sqlite.New("./data/attendance.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - attendance/store.go: Interface definitions
  - attendance/storetest: Contract suite this store passes
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/warp/attendance-engine/attendance"
)

// timeLayout is fixed width so that string comparison is chronological.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const dateLayout = "2006-01-02"

// Store implements attendance.Store using SQLite.
type Store struct {
	db  *sql.DB
	mu  sync.RWMutex
	now func() time.Time
}

var _ attendance.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: ":memory:" databases are per-connection, and SQLite
	// only has one writer anyway.
	db.SetMaxOpenConns(1)

	store := &Store{db: db, now: time.Now}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		code TEXT NOT NULL UNIQUE,
		full_name TEXT NOT NULL,
		department TEXT NOT NULL DEFAULT '',
		designation TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		joining_date TEXT,
		notes TEXT NOT NULL DEFAULT '',
		photo_path TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_employees_created
		ON employees(created_at DESC);

	CREATE TABLE IF NOT EXISTS shifts (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		start_hhmm TEXT NOT NULL,
		end_hhmm TEXT NOT NULL,
		grace_minutes INTEGER NOT NULL DEFAULT 5,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Append-only ledger
	CREATE TABLE IF NOT EXISTS attendance_events (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL REFERENCES employees(id) ON DELETE RESTRICT,
		occurred_at TEXT NOT NULL,
		status TEXT NOT NULL,
		lateness_minutes INTEGER NOT NULL DEFAULT 0 CHECK (lateness_minutes >= 0),
		snapshot_path TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_at
		ON attendance_events(occurred_at);
	CREATE INDEX IF NOT EXISTS idx_events_employee_at
		ON attendance_events(employee_id, occurred_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// EMPLOYEE STORE
// =============================================================================

const employeeColumns = `id, code, full_name, department, designation, phone, email,
	joining_date, notes, photo_path, created_at`

// CreateEmployee inserts a new employee.
func (s *Store) CreateEmployee(ctx context.Context, e attendance.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO employees (`+employeeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Code, e.FullName, e.Department, e.Designation, e.Phone, e.Email,
		formatDate(e.JoiningDate), e.Notes, e.PhotoPath, formatTime(e.CreatedAt),
	)
	if err != nil {
		if isConstraint(err, sqlite3.ErrConstraintUnique) || isConstraint(err, sqlite3.ErrConstraintPrimaryKey) {
			return attendance.ErrDuplicateCode
		}
		return fmt.Errorf("failed to insert employee: %w", err)
	}
	return nil
}

// UpdateEmployee replaces every mutable column. The code column is untouched.
func (s *Store) UpdateEmployee(ctx context.Context, e attendance.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE employees SET
			full_name = ?, department = ?, designation = ?, phone = ?,
			email = ?, joining_date = ?, notes = ?, photo_path = ?
		WHERE id = ?`,
		e.FullName, e.Department, e.Designation, e.Phone,
		e.Email, formatDate(e.JoiningDate), e.Notes, e.PhotoPath,
		e.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update employee: %w", err)
	}
	return requireAffected(res, attendance.ErrEmployeeNotFound)
}

// GetEmployee retrieves an employee by ID.
func (s *Store) GetEmployee(ctx context.Context, id attendance.EmployeeID) (attendance.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, "SELECT "+employeeColumns+" FROM employees WHERE id = ?", id)
	return scanEmployee(row)
}

// GetEmployeeByCode retrieves an employee by business code.
func (s *Store) GetEmployeeByCode(ctx context.Context, code string) (attendance.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, "SELECT "+employeeColumns+" FROM employees WHERE code = ?", code)
	return scanEmployee(row)
}

// ListEmployees returns all employees, newest first.
func (s *Store) ListEmployees(ctx context.Context) ([]attendance.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+employeeColumns+" FROM employees ORDER BY created_at DESC, id DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query employees: %w", err)
	}
	defer rows.Close()

	employees := []attendance.Employee{}
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, e)
	}
	return employees, rows.Err()
}

// DeleteEmployee removes an employee that has no attendance events.
func (s *Store) DeleteEmployee(ctx context.Context, id attendance.EmployeeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	var count int
	if err := sqlTx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM attendance_events WHERE employee_id = ?", id,
	).Scan(&count); err != nil {
		return fmt.Errorf("failed to count events: %w", err)
	}
	if count > 0 {
		return attendance.ErrEmployeeHasHistory
	}

	res, err := sqlTx.ExecContext(ctx, "DELETE FROM employees WHERE id = ?", id)
	if err != nil {
		if isConstraint(err, sqlite3.ErrConstraintForeignKey) {
			return attendance.ErrEmployeeHasHistory
		}
		return fmt.Errorf("failed to delete employee: %w", err)
	}
	if err := requireAffected(res, attendance.ErrEmployeeNotFound); err != nil {
		return err
	}
	return sqlTx.Commit()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row scanner) (attendance.Employee, error) {
	var (
		e           attendance.Employee
		joiningDate sql.NullString
		createdAt   string
	)
	err := row.Scan(&e.ID, &e.Code, &e.FullName, &e.Department, &e.Designation,
		&e.Phone, &e.Email, &joiningDate, &e.Notes, &e.PhotoPath, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return attendance.Employee{}, attendance.ErrEmployeeNotFound
	}
	if err != nil {
		return attendance.Employee{}, fmt.Errorf("failed to scan employee: %w", err)
	}

	if joiningDate.Valid && joiningDate.String != "" {
		if d, err := time.Parse(dateLayout, joiningDate.String); err == nil {
			e.JoiningDate = &d
		}
	}
	e.CreatedAt = parseTime(createdAt)
	return e, nil
}

// =============================================================================
// SHIFT STORE
// =============================================================================

const shiftColumns = "id, name, start_hhmm, end_hhmm, grace_minutes, created_at, updated_at"

// EnsureShift inserts p unless a shift with the same name exists, then
// returns the stored row.
func (s *Store) EnsureShift(ctx context.Context, p attendance.ShiftPolicy) (attendance.ShiftPolicy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := formatTime(s.now())
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO shifts (`+shiftColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO NOTHING`,
		attendance.NewID(), p.Name, p.Start.String(), p.End.String(), p.GraceMinutes, now, now,
	)
	if err != nil {
		return attendance.ShiftPolicy{}, fmt.Errorf("failed to ensure shift: %w", err)
	}

	return s.getShift(ctx, p.Name)
}

// SaveShift inserts or replaces the shift with p.Name, keeping its ID.
func (s *Store) SaveShift(ctx context.Context, p attendance.ShiftPolicy) (attendance.ShiftPolicy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := formatTime(s.now())
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO shifts (`+shiftColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			start_hhmm = excluded.start_hhmm,
			end_hhmm = excluded.end_hhmm,
			grace_minutes = excluded.grace_minutes,
			updated_at = excluded.updated_at`,
		attendance.NewID(), p.Name, p.Start.String(), p.End.String(), p.GraceMinutes, now, now,
	)
	if err != nil {
		return attendance.ShiftPolicy{}, fmt.Errorf("failed to save shift: %w", err)
	}

	return s.getShift(ctx, p.Name)
}

// GetShift retrieves a shift policy by name.
func (s *Store) GetShift(ctx context.Context, name string) (attendance.ShiftPolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.getShift(ctx, name)
}

func (s *Store) getShift(ctx context.Context, name string) (attendance.ShiftPolicy, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+shiftColumns+" FROM shifts WHERE name = ?", name)
	return scanShift(row)
}

// ListShifts returns all shift policies ordered by name.
func (s *Store) ListShifts(ctx context.Context) ([]attendance.ShiftPolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT "+shiftColumns+" FROM shifts ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to query shifts: %w", err)
	}
	defer rows.Close()

	shifts := []attendance.ShiftPolicy{}
	for rows.Next() {
		p, err := scanShift(rows)
		if err != nil {
			return nil, err
		}
		shifts = append(shifts, p)
	}
	return shifts, rows.Err()
}

func scanShift(row scanner) (attendance.ShiftPolicy, error) {
	var (
		p                    attendance.ShiftPolicy
		start, end           string
		createdAt, updatedAt string
	)
	err := row.Scan(&p.ID, &p.Name, &start, &end, &p.GraceMinutes, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return attendance.ShiftPolicy{}, attendance.ErrShiftNotFound
	}
	if err != nil {
		return attendance.ShiftPolicy{}, fmt.Errorf("failed to scan shift: %w", err)
	}

	if p.Start, err = attendance.ParseClock(start); err != nil {
		return attendance.ShiftPolicy{}, fmt.Errorf("shift %s: %w", p.Name, err)
	}
	if p.End, err = attendance.ParseClock(end); err != nil {
		return attendance.ShiftPolicy{}, fmt.Errorf("shift %s: %w", p.Name, err)
	}
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return p, nil
}

// =============================================================================
// EVENT STORE (append-only)
// =============================================================================

const eventColumns = "id, employee_id, occurred_at, status, lateness_minutes, snapshot_path, created_at"

// AppendEvent adds an event to the ledger.
func (s *Store) AppendEvent(ctx context.Context, ev attendance.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := ev.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO attendance_events (`+eventColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.EmployeeID, formatTime(ev.At), ev.Status,
		ev.LatenessMinutes, ev.SnapshotPath, formatTime(createdAt),
	)
	if err != nil {
		if isConstraint(err, sqlite3.ErrConstraintForeignKey) {
			return attendance.ErrEmployeeNotFound
		}
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

// EventsBetween returns events of all employees with from <= at < to.
func (s *Store) EventsBetween(ctx context.Context, from, to time.Time) ([]attendance.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryEvents(ctx, `
		SELECT `+eventColumns+`
		FROM attendance_events
		WHERE occurred_at >= ? AND occurred_at < ?
		ORDER BY occurred_at ASC, created_at ASC, id ASC`,
		formatBound(from), formatBound(to))
}

// EmployeeEventsBetween returns one employee's events with from <= at < to.
func (s *Store) EmployeeEventsBetween(ctx context.Context, id attendance.EmployeeID, from, to time.Time) ([]attendance.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryEvents(ctx, `
		SELECT `+eventColumns+`
		FROM attendance_events
		WHERE employee_id = ? AND occurred_at >= ? AND occurred_at < ?
		ORDER BY occurred_at ASC, created_at ASC, id ASC`,
		id, formatBound(from), formatBound(to))
}

// CountEmployeeEvents returns how many events reference the employee.
func (s *Store) CountEmployeeEvents(ctx context.Context, id attendance.EmployeeID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM attendance_events WHERE employee_id = ?", id,
	).Scan(&count)
	return count, err
}

func (s *Store) queryEvents(ctx context.Context, query string, args ...any) ([]attendance.Event, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []attendance.Event
	for rows.Next() {
		var (
			ev            attendance.Event
			at, createdAt string
		)
		if err := rows.Scan(&ev.ID, &ev.EmployeeID, &at, &ev.Status,
			&ev.LatenessMinutes, &ev.SnapshotPath, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		ev.At = parseTime(at)
		ev.CreatedAt = parseTime(createdAt)
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Helper functions

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// latestStored is the last instant timeLayout renders with a four-digit year.
var latestStored = time.Date(9999, time.December, 31, 23, 59, 59, 999999999, time.UTC)

// formatBound renders a range bound. Past latestStored the five-digit year
// would sort before "9999-", so such bounds sort after every stored value.
func formatBound(t time.Time) string {
	if t.After(latestStored) {
		return formatTime(latestStored) + "~"
	}
	return formatTime(t)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}

func formatDate(d *time.Time) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.Format(dateLayout), Valid: true}
}

func requireAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func isConstraint(err error, code sqlite3.ErrNoExtended) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == code
}
