package checkin_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/attendance/store"
	"github.com/warp/attendance-engine/attendance/storetest"
	"github.com/warp/attendance-engine/checkin"
	"github.com/warp/attendance-engine/logger"
	"github.com/warp/attendance-engine/media"
)

var jpeg = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}

type recorder struct {
	mu    sync.Mutex
	texts []string
}

func (r *recorder) Notify(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts = append(r.texts, text)
}

func (r *recorder) Texts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.texts...)
}

type fixture struct {
	svc      *checkin.Service
	store    *store.Memory
	notified *recorder
	employee attendance.Employee
	snapDir  string
	now      time.Time
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	f := &fixture{store: store.NewMemory(), notified: &recorder{}, now: now}

	f.snapDir = filepath.Join(t.TempDir(), "snapshots")
	snaps, err := media.NewDiskStore(f.snapDir, "frame")
	require.NoError(t, err)

	_, err = attendance.EnsureDefaultShift(context.Background(), f.store)
	require.NoError(t, err)

	f.employee = storetest.Employee("EMP001", "Alice Ahmed", now.Add(-24*time.Hour))
	require.NoError(t, f.store.CreateEmployee(context.Background(), f.employee))

	f.svc = checkin.New(f.store, checkin.Options{
		Location:  time.UTC,
		Snapshots: snaps,
		Notifier:  f.notified,
		Log:       logger.Discard(),
		Now:       func() time.Time { return f.now },
	})
	return f
}

func march(day, hh, mm int) time.Time {
	return time.Date(2024, time.March, day, hh, mm, 0, 0, time.UTC)
}

// =============================================================================
// CHECK-IN
// =============================================================================

func TestCheckIn_OnTime(t *testing.T) {
	// GIVEN: 09:04 with the default 09:00 shift and 5 minutes of grace
	f := newFixture(t, march(4, 9, 4))

	// WHEN: Checking in without a frame
	res, err := f.svc.CheckIn(context.Background(), "EMP001", nil)

	// THEN: On time, no snapshot, announced
	require.NoError(t, err)
	assert.Equal(t, f.employee.ID, res.Employee.ID)
	assert.Equal(t, "present-on-time", res.Status)
	assert.Equal(t, 0, res.LatenessMinutes)
	assert.Equal(t, "Alice Ahmed on time", res.Message)
	assert.Empty(t, res.SnapshotPath)
	assert.NotEmpty(t, res.Event.ID)
	assert.Equal(t, []string{"Alice Ahmed on time"}, f.notified.Texts())
}

func TestCheckIn_LateWithSnapshot(t *testing.T) {
	// GIVEN: 09:26 on a Monday
	f := newFixture(t, march(4, 9, 26))

	// WHEN: Checking in with a webcam frame and a padded code
	res, err := f.svc.CheckIn(context.Background(), "  EMP001 ", jpeg)

	// THEN: Late by 21 minutes, frame stored, event frozen with lateness
	require.NoError(t, err)
	assert.Equal(t, "late", res.Status)
	assert.Equal(t, 21, res.LatenessMinutes)
	assert.Equal(t, "Alice Ahmed late by 21 minutes", res.Message)
	assert.Equal(t, filepath.Join(f.snapDir, "EMP001_20240304_092600.jpg"), res.SnapshotPath)
	_, err = os.Stat(res.SnapshotPath)
	assert.NoError(t, err)

	events, err := f.store.EmployeeEventsBetween(context.Background(), f.employee.ID, march(4, 0, 0), march(5, 0, 0))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, 21, events[0].LatenessMinutes)
	assert.Equal(t, res.SnapshotPath, events[0].SnapshotPath)
}

func TestCheckIn_UnknownCode(t *testing.T) {
	f := newFixture(t, march(4, 9, 0))

	_, err := f.svc.CheckIn(context.Background(), "NOPE", jpeg)

	assert.ErrorIs(t, err, attendance.ErrEmployeeNotFound)
	assert.Empty(t, f.notified.Texts())
	entries, readErr := os.ReadDir(f.snapDir)
	require.NoError(t, readErr)
	assert.Empty(t, entries, "no snapshot for unknown employees")
}

func TestCheckIn_Validation(t *testing.T) {
	f := newFixture(t, march(4, 9, 0))

	_, err := f.svc.CheckIn(context.Background(), "  ", nil)
	assert.ErrorIs(t, err, attendance.ErrInvalidInput)
}

func TestCheckIn_UnreadableFrameIsDropped(t *testing.T) {
	// GIVEN: A kiosk whose camera sends garbage
	f := newFixture(t, march(4, 9, 10))

	// WHEN: Checking in with a frame that is not an image
	res, err := f.svc.CheckIn(context.Background(), "EMP001", []byte("not an image"))

	// THEN: The check-in is recorded without a snapshot
	require.NoError(t, err)
	assert.Equal(t, 5, res.LatenessMinutes)
	assert.Empty(t, res.SnapshotPath)
	assert.Empty(t, res.Event.SnapshotPath)
	assertNoSnapshots(t, f.snapDir)
}

func TestCheckIn_MissingShiftLeavesNoSnapshot(t *testing.T) {
	// GIVEN: SHIFT_NAME points at a shift that was never saved
	f := newFixture(t, march(4, 9, 0))
	snaps, err := media.NewDiskStore(f.snapDir, "frame")
	require.NoError(t, err)
	svc := checkin.New(f.store, checkin.Options{
		ShiftName: "Night",
		Location:  time.UTC,
		Snapshots: snaps,
		Log:       logger.Discard(),
		Now:       func() time.Time { return f.now },
	})

	// WHEN: Checking in with a frame
	_, err = svc.CheckIn(context.Background(), "EMP001", jpeg)

	// THEN: A server-side error, and no file left behind
	assert.ErrorIs(t, err, checkin.ErrNoActiveShift)
	assert.False(t, attendance.IsClientError(err))
	assertNoSnapshots(t, f.snapDir)
}

// failingLedger rejects every append, like an employee deleted mid-request.
type failingLedger struct {
	*store.Memory
}

func (failingLedger) AppendEvent(context.Context, attendance.Event) error {
	return attendance.ErrEmployeeNotFound
}

func TestCheckIn_FailedAppendRemovesSnapshot(t *testing.T) {
	// GIVEN: A store that refuses the event
	f := newFixture(t, march(4, 9, 0))
	snaps, err := media.NewDiskStore(f.snapDir, "frame")
	require.NoError(t, err)
	svc := checkin.New(failingLedger{f.store}, checkin.Options{
		Location:  time.UTC,
		Snapshots: snaps,
		Notifier:  f.notified,
		Log:       logger.Discard(),
		Now:       func() time.Time { return f.now },
	})

	// WHEN: Checking in with a frame
	_, err = svc.CheckIn(context.Background(), "EMP001", jpeg)

	// THEN: The error surfaces, the snapshot is gone, nothing is announced
	assert.True(t, errors.Is(err, attendance.ErrEmployeeNotFound))
	assertNoSnapshots(t, f.snapDir)
	assert.Empty(t, f.notified.Texts())
}

func assertNoSnapshots(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCheckIn_UsesConfiguredShift(t *testing.T) {
	// GIVEN: A saved "Late" shift starting at 10:00 with no grace
	f := newFixture(t, march(4, 9, 30))
	_, err := f.store.SaveShift(context.Background(), attendance.ShiftPolicy{
		Name:  "Late",
		Start: attendance.MustParseClock("10:00"),
		End:   attendance.MustParseClock("18:00"),
	})
	require.NoError(t, err)

	svc := checkin.New(f.store, checkin.Options{
		ShiftName: "Late",
		Location:  time.UTC,
		Log:       logger.Discard(),
		Now:       func() time.Time { return f.now },
	})

	// WHEN/THEN: 09:30 is on time for it
	res, err := svc.CheckIn(context.Background(), "EMP001", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.LatenessMinutes)

	// AND: An unknown shift name is a configuration error
	missing := checkin.New(f.store, checkin.Options{ShiftName: "Night", Location: time.UTC, Log: logger.Discard()})
	_, err = missing.CheckIn(context.Background(), "EMP001", nil)
	assert.ErrorIs(t, err, checkin.ErrNoActiveShift)
	assert.NotErrorIs(t, err, attendance.ErrShiftNotFound)

	_, err = missing.ActiveShift(context.Background())
	assert.ErrorIs(t, err, checkin.ErrNoActiveShift)
}

func TestCheckIn_CreatesDefaultShiftOnDemand(t *testing.T) {
	s := store.NewMemory()
	emp := storetest.Employee("EMP001", "Alice Ahmed", march(1, 8, 0))
	require.NoError(t, s.CreateEmployee(context.Background(), emp))

	svc := checkin.New(s, checkin.Options{
		Location: time.UTC,
		Log:      logger.Discard(),
		Now:      func() time.Time { return march(4, 9, 6) },
	})

	res, err := svc.CheckIn(context.Background(), "EMP001", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.LatenessMinutes)

	shifts, err := s.ListShifts(context.Background())
	require.NoError(t, err)
	require.Len(t, shifts, 1)
	assert.Equal(t, attendance.DefaultShiftName, shifts[0].Name)
}

// =============================================================================
// TODAY
// =============================================================================

func TestToday(t *testing.T) {
	// GIVEN: Two check-ins on March 4 and one on March 5
	f := newFixture(t, march(4, 9, 0))
	ctx := context.Background()
	_, err := f.svc.CheckIn(ctx, "EMP001", nil)
	require.NoError(t, err)
	f.now = march(4, 13, 0)
	_, err = f.svc.CheckIn(ctx, "EMP001", nil)
	require.NoError(t, err)
	f.now = march(5, 9, 0)
	_, err = f.svc.CheckIn(ctx, "EMP001", nil)
	require.NoError(t, err)

	// WHEN: Listing March 4
	day, err := f.svc.ParseDay("2024-03-04")
	require.NoError(t, err)
	entries, err := f.svc.Today(ctx, day)

	// THEN: Both March 4 events, ascending, joined with the employee
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.True(t, entries[0].Event.At.Equal(march(4, 9, 0)))
	assert.True(t, entries[1].Event.At.Equal(march(4, 13, 0)))
	assert.Equal(t, 235, entries[1].Event.LatenessMinutes)
	assert.Equal(t, "Alice Ahmed", entries[0].Employee.FullName)

	// AND: An empty date means today (March 5)
	day, err = f.svc.ParseDay("")
	require.NoError(t, err)
	entries, err = f.svc.Today(ctx, day)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestParseDay_Invalid(t *testing.T) {
	f := newFixture(t, march(4, 9, 0))
	_, err := f.svc.ParseDay("04/03/2024")
	assert.ErrorIs(t, err, attendance.ErrInvalidInput)
}

// =============================================================================
// MONTHLY SUMMARY
// =============================================================================

func TestMonthlySummary_March2024(t *testing.T) {
	// GIVEN: One check-in at 09:06 on Monday March 4 2024
	f := newFixture(t, march(4, 9, 6))
	ctx := context.Background()
	_, err := f.svc.CheckIn(ctx, "EMP001", nil)
	require.NoError(t, err)

	// WHEN: Summarizing March 2024 with speech
	report, err := f.svc.MonthlySummary(ctx, "EMP001", 2024, 3, true)

	// THEN: The documented figures and text
	require.NoError(t, err)
	assert.Equal(t, "March", report.MonthName)
	assert.Equal(t, 21, report.Summary.WorkingDays)
	assert.Equal(t, 1, report.Summary.PresentDays)
	assert.Equal(t, 1, report.Summary.LateDays)
	assert.Equal(t, 20, report.Summary.AbsentDays)
	assert.Equal(t, 1, report.Summary.TotalLateMinutes)
	want := "Alice Ahmed in March 2024: 1 days present, 1 days late, 20 days absent."
	assert.Equal(t, want, report.Text)
	assert.Contains(t, f.notified.Texts(), want)
}

func TestMonthlySummary_DefaultsToCurrentMonth(t *testing.T) {
	f := newFixture(t, march(15, 12, 0))

	report, err := f.svc.MonthlySummary(context.Background(), "EMP001", 0, 0, false)

	require.NoError(t, err)
	assert.Equal(t, 2024, report.Summary.Year)
	assert.Equal(t, time.March, report.Summary.Month)
	assert.Empty(t, f.notified.Texts(), "not spoken unless asked")
}

func TestMonthlySummary_Errors(t *testing.T) {
	f := newFixture(t, march(4, 9, 0))
	ctx := context.Background()

	_, err := f.svc.MonthlySummary(ctx, "EMP001", 2024, 13, false)
	assert.ErrorIs(t, err, attendance.ErrInvalidInput)

	_, err = f.svc.MonthlySummary(ctx, "NOPE", 2024, 3, false)
	assert.ErrorIs(t, err, attendance.ErrEmployeeNotFound)
}

func TestMonthlySummary_CachesClosedMonths(t *testing.T) {
	// GIVEN: It is April; March is summarized once
	f := newFixture(t, time.Date(2024, time.April, 10, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()
	require.NoError(t, f.store.AppendEvent(ctx, storetest.Event(f.employee.ID, march(4, 9, 0), 0)))

	first, err := f.svc.MonthlySummary(ctx, "EMP001", 2024, 3, false)
	require.NoError(t, err)
	require.Equal(t, 1, first.Summary.PresentDays)

	// WHEN: Another March event appears behind the service's back
	require.NoError(t, f.store.AppendEvent(ctx, storetest.Event(f.employee.ID, march(5, 9, 0), 0)))

	// THEN: The closed month is served from cache
	again, err := f.svc.MonthlySummary(ctx, "EMP001", 2024, 3, false)
	require.NoError(t, err)
	assert.Equal(t, 1, again.Summary.PresentDays)

	// AND: The open month is always recomputed
	require.NoError(t, f.store.AppendEvent(ctx, storetest.Event(f.employee.ID, time.Date(2024, time.April, 1, 9, 0, 0, 0, time.UTC), 0)))
	april, err := f.svc.MonthlySummary(ctx, "EMP001", 2024, 4, false)
	require.NoError(t, err)
	assert.Equal(t, 1, april.Summary.PresentDays)

	require.NoError(t, f.store.AppendEvent(ctx, storetest.Event(f.employee.ID, time.Date(2024, time.April, 2, 9, 0, 0, 0, time.UTC), 0)))
	april, err = f.svc.MonthlySummary(ctx, "EMP001", 2024, 4, false)
	require.NoError(t, err)
	assert.Equal(t, 2, april.Summary.PresentDays)
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "Bob on time", checkin.Message("Bob", 0))
	assert.Equal(t, "Bob late by 3 minutes", checkin.Message("Bob", 3))
}
