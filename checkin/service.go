/*
Package checkin orchestrates the kiosk flows.

CHECK-IN FLOW:
  1. Resolve the employee by code (404 when unknown)
  2. Read the active shift policy by its configured name
  3. Store the optional webcam frame under the snapshot directory; a frame
     that cannot be stored is logged and the check-in goes on without it
  4. lateness = attendance.Lateness(now in the configured location, shift)
  5. Append the event to the ledger (lateness frozen on the event); the
     snapshot is removed again if the append fails
  6. Hand the message to the notifier; delivery never blocks or fails
     the check-in

MONTHLY SUMMARY:
  Reads one employee's events for the month and runs attendance.Summarize.
  Months that ended before the current one are immutable (check-ins are
  stamped with "now"), so their Summary is cached for CacheTTL.

SEE ALSO:
  - attendance/shift.go: lateness engine
  - attendance/summary.go: monthly accounting
*/
package checkin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/notify"
)

// DefaultCacheTTL is how long a closed month's summary is kept.
const DefaultCacheTTL = 15 * time.Minute

// ErrNoActiveShift means the configured shift name has no stored policy.
// It is a deployment error, not a client one.
var ErrNoActiveShift = errors.New("active shift is not configured")

// SnapshotStore persists webcam frames. media.DiskStore implements it.
type SnapshotStore interface {
	Save(code string, at time.Time, data []byte) (string, error)
	Remove(path string) error
}

type Options struct {
	ShiftName string
	Location  *time.Location
	Snapshots SnapshotStore
	Notifier  notify.Notifier
	Log       *slog.Logger
	Now       func() time.Time
	CacheTTL  time.Duration
}

type Service struct {
	store     attendance.Store
	ledger    *attendance.Ledger
	snapshots SnapshotStore
	notifier  notify.Notifier
	summaries *cache.Cache
	shiftName string
	loc       *time.Location
	now       func() time.Time
	log       *slog.Logger
}

func New(store attendance.Store, opts Options) *Service {
	if opts.ShiftName == "" {
		opts.ShiftName = attendance.DefaultShiftName
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Nop{}
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}

	return &Service{
		store:     store,
		ledger:    attendance.NewLedger(store),
		snapshots: opts.Snapshots,
		notifier:  opts.Notifier,
		summaries: cache.New(opts.CacheTTL, 2*opts.CacheTTL),
		shiftName: opts.ShiftName,
		loc:       opts.Location,
		now:       opts.Now,
		log:       opts.Log,
	}
}

// Location is the time zone used for dates and deadlines.
func (s *Service) Location() *time.Location {
	return s.loc
}

// =============================================================================
// CHECK-IN
// =============================================================================

// Result is the outcome of one check-in.
type Result struct {
	Employee        attendance.Employee
	Event           attendance.Event
	Status          string
	LatenessMinutes int
	Message         string
	SnapshotPath    string
}

// CheckIn records a check-in for the employee with code. frame may be nil.
func (s *Service) CheckIn(ctx context.Context, code string, frame []byte) (Result, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return Result{}, attendance.Invalid("emp_code", "is required")
	}

	emp, err := s.store.GetEmployeeByCode(ctx, code)
	if err != nil {
		return Result{}, err
	}

	shift, err := s.ActiveShift(ctx)
	if err != nil {
		return Result{}, err
	}

	now := s.now().In(s.loc)
	snapshot := s.saveSnapshot(emp.Code, now, frame)

	lateness := attendance.Lateness(now, shift)
	ev, err := s.ledger.Record(ctx, emp.ID, now, lateness, snapshot)
	if err != nil {
		s.discardSnapshot(snapshot)
		return Result{}, err
	}

	status := attendance.Outcome(lateness)
	msg := Message(emp.FullName, lateness)
	s.notifier.Notify(msg)

	s.log.Info("check-in recorded",
		"emp_code", emp.Code,
		"event_id", ev.ID,
		"status", status,
		"lateness_minutes", lateness,
		"shift", shift.Name,
	)

	return Result{
		Employee:        emp,
		Event:           ev,
		Status:          status,
		LatenessMinutes: lateness,
		Message:         msg,
		SnapshotPath:    snapshot,
	}, nil
}

// ActiveShift returns the policy check-ins are judged against. The default
// shift is created on demand; any other missing name is ErrNoActiveShift.
func (s *Service) ActiveShift(ctx context.Context) (attendance.ShiftPolicy, error) {
	shift, err := s.store.GetShift(ctx, s.shiftName)
	if errors.Is(err, attendance.ErrShiftNotFound) {
		if s.shiftName == attendance.DefaultShiftName {
			return attendance.EnsureDefaultShift(ctx, s.store)
		}
		return attendance.ShiftPolicy{}, fmt.Errorf("%w: %q", ErrNoActiveShift, s.shiftName)
	}
	if err != nil {
		return attendance.ShiftPolicy{}, fmt.Errorf("active shift %q: %w", s.shiftName, err)
	}
	return shift, nil
}

func (s *Service) saveSnapshot(code string, at time.Time, frame []byte) string {
	if len(frame) == 0 || s.snapshots == nil {
		return ""
	}
	path, err := s.snapshots.Save(code, at, frame)
	if err != nil {
		s.log.Warn("snapshot dropped", "emp_code", code, "bytes", len(frame), "error", err)
		return ""
	}
	return path
}

func (s *Service) discardSnapshot(path string) {
	if path == "" {
		return
	}
	if err := s.snapshots.Remove(path); err != nil {
		s.log.Warn("failed to remove orphaned snapshot", "path", path, "error", err)
	}
}

// Message is the sentence shown on the kiosk and announced.
func Message(fullName string, latenessMinutes int) string {
	if latenessMinutes == 0 {
		return fmt.Sprintf("%s on time", fullName)
	}
	return fmt.Sprintf("%s late by %d minutes", fullName, latenessMinutes)
}

// =============================================================================
// TODAY
// =============================================================================

// Entry is a ledger event joined with its employee.
type Entry struct {
	Event    attendance.Event
	Employee attendance.Employee
}

// ParseDay parses "YYYY-MM-DD" as a date in the service location. An empty
// string means today.
func (s *Service) ParseDay(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return attendance.StartOfDay(s.now().In(s.loc)), nil
	}
	d, err := time.ParseInLocation("2006-01-02", value, s.loc)
	if err != nil {
		return time.Time{}, attendance.Invalid("date", "must be YYYY-MM-DD")
	}
	return d, nil
}

// Today lists every check-in on the calendar date of day, ascending.
func (s *Service) Today(ctx context.Context, day time.Time) ([]Entry, error) {
	if day.IsZero() {
		day = s.now()
	}
	events, err := s.ledger.EventsOn(ctx, day.In(s.loc))
	if err != nil {
		return nil, err
	}

	employees := make(map[attendance.EmployeeID]attendance.Employee)
	entries := make([]Entry, 0, len(events))
	for _, ev := range events {
		emp, ok := employees[ev.EmployeeID]
		if !ok {
			if emp, err = s.store.GetEmployee(ctx, ev.EmployeeID); err != nil {
				return nil, err
			}
			employees[ev.EmployeeID] = emp
		}
		ev.At = ev.At.In(s.loc)
		entries = append(entries, Entry{Event: ev, Employee: emp})
	}
	return entries, nil
}

// =============================================================================
// MONTHLY SUMMARY
// =============================================================================

// Report is a monthly summary for one employee.
type Report struct {
	Employee  attendance.Employee
	Summary   attendance.Summary
	MonthName string
	Text      string
}

// MonthlySummary aggregates the employee's month. Zero year or month means
// the current one. When speak is set the text is also announced.
func (s *Service) MonthlySummary(ctx context.Context, code string, year, month int, speak bool) (Report, error) {
	now := s.now().In(s.loc)
	if year == 0 {
		year = now.Year()
	}
	if month == 0 {
		month = int(now.Month())
	}
	if err := attendance.ValidateYearMonth(year, month); err != nil {
		return Report{}, err
	}

	code = strings.TrimSpace(code)
	if code == "" {
		return Report{}, attendance.Invalid("emp_code", "is required")
	}
	emp, err := s.store.GetEmployeeByCode(ctx, code)
	if err != nil {
		return Report{}, err
	}

	summary, err := s.summarize(ctx, emp.ID, year, time.Month(month), now)
	if err != nil {
		return Report{}, err
	}

	r := Report{
		Employee:  emp,
		Summary:   summary,
		MonthName: time.Month(month).String(),
	}
	r.Text = SummaryText(emp.FullName, r.MonthName, year, summary)
	if speak {
		s.notifier.Notify(r.Text)
	}
	return r, nil
}

func (s *Service) summarize(ctx context.Context, id attendance.EmployeeID, year int, month time.Month, now time.Time) (attendance.Summary, error) {
	from, to := attendance.MonthBounds(year, month, s.loc)
	currentMonth, _ := attendance.MonthBounds(now.Year(), now.Month(), s.loc)
	closed := !to.After(currentMonth)

	key := fmt.Sprintf("%s:%04d-%02d", id, year, month)
	if closed {
		if cached, ok := s.summaries.Get(key); ok {
			return cached.(attendance.Summary), nil
		}
	}

	events, err := s.ledger.EventsInRange(ctx, id, from, to)
	if err != nil {
		return attendance.Summary{}, err
	}
	summary := attendance.Summarize(events, year, month, s.loc)

	if closed {
		s.summaries.Set(key, summary, cache.DefaultExpiration)
	}
	return summary, nil
}

// SummaryText renders the spoken monthly summary.
func SummaryText(fullName, monthName string, year int, sum attendance.Summary) string {
	return fmt.Sprintf("%s in %s %d: %d days present, %d days late, %d days absent.",
		fullName, monthName, year, sum.PresentDays, sum.LateDays, sum.AbsentDays)
}
