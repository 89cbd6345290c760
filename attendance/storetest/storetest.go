// Package storetest is the contract every attendance.Store must satisfy.
// Store packages call Run from their own tests.
package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/attendance-engine/attendance"
)

// Factory returns an empty store. It should register its own cleanup.
type Factory func(t *testing.T) attendance.Store

// Run executes the whole contract against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("Employees", func(t *testing.T) { testEmployees(t, newStore) })
	t.Run("DeletePolicy", func(t *testing.T) { testDeletePolicy(t, newStore) })
	t.Run("Shifts", func(t *testing.T) { testShifts(t, newStore) })
	t.Run("ConcurrentDefaultShift", func(t *testing.T) { testConcurrentDefaultShift(t, newStore) })
	t.Run("Events", func(t *testing.T) { testEvents(t, newStore) })
	t.Run("EventsUnknownEmployee", func(t *testing.T) { testEventsUnknownEmployee(t, newStore) })
}

// =============================================================================
// FIXTURES
// =============================================================================

func Employee(code, name string, created time.Time) attendance.Employee {
	return attendance.Employee{
		ID:        attendance.EmployeeID(attendance.NewID()),
		Code:      code,
		FullName:  name,
		CreatedAt: created,
	}
}

func Event(emp attendance.EmployeeID, at time.Time, lateness int) attendance.Event {
	return attendance.Event{
		ID:              attendance.EventID(attendance.NewID()),
		EmployeeID:      emp,
		At:              at,
		Status:          attendance.StatusPresent,
		LatenessMinutes: lateness,
		CreatedAt:       at,
	}
}

var base = time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC)

// =============================================================================
// EMPLOYEES
// =============================================================================

func testEmployees(t *testing.T, newStore Factory) {
	s := newStore(t)
	ctx := context.Background()

	joined := time.Date(2023, time.August, 14, 0, 0, 0, 0, time.UTC)
	alice := Employee("EMP001", "Alice Ahmed", base)
	alice.Department = "Engineering"
	alice.Email = "alice@example.com"
	alice.JoiningDate = &joined
	alice.PhotoPath = "employee_photos/EMP001.jpg"
	bob := Employee("EMP002", "Bob Barua", base.Add(time.Hour))

	require.NoError(t, s.CreateEmployee(ctx, alice))
	require.NoError(t, s.CreateEmployee(ctx, bob))

	// Duplicate code is rejected
	dup := Employee("EMP001", "Someone Else", base.Add(2*time.Hour))
	assert.ErrorIs(t, s.CreateEmployee(ctx, dup), attendance.ErrDuplicateCode)

	got, err := s.GetEmployee(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "EMP001", got.Code)
	assert.Equal(t, "Alice Ahmed", got.FullName)
	assert.Equal(t, "Engineering", got.Department)
	assert.Equal(t, "alice@example.com", got.Email)
	assert.Equal(t, "employee_photos/EMP001.jpg", got.PhotoPath)
	require.NotNil(t, got.JoiningDate)
	assert.True(t, joined.Equal(*got.JoiningDate), "joining date round-trips")

	byCode, err := s.GetEmployeeByCode(ctx, "EMP002")
	require.NoError(t, err)
	assert.Equal(t, bob.ID, byCode.ID)

	_, err = s.GetEmployeeByCode(ctx, "NOPE")
	assert.ErrorIs(t, err, attendance.ErrEmployeeNotFound)
	_, err = s.GetEmployee(ctx, "missing-id")
	assert.ErrorIs(t, err, attendance.ErrEmployeeNotFound)

	// Newest first
	list, err := s.ListEmployees(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, bob.ID, list[0].ID)
	assert.Equal(t, alice.ID, list[1].ID)

	// Update never changes the code
	alice.FullName = "Alice A. Ahmed"
	alice.Code = "HIJACK"
	alice.Notes = "moved to platform team"
	require.NoError(t, s.UpdateEmployee(ctx, alice))
	got, err = s.GetEmployee(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice A. Ahmed", got.FullName)
	assert.Equal(t, "EMP001", got.Code)
	assert.Equal(t, "moved to platform team", got.Notes)

	ghost := Employee("EMP404", "Ghost", base)
	assert.ErrorIs(t, s.UpdateEmployee(ctx, ghost), attendance.ErrEmployeeNotFound)
}

func testDeletePolicy(t *testing.T, newStore Factory) {
	s := newStore(t)
	ctx := context.Background()

	withHistory := Employee("EMP010", "Has History", base)
	without := Employee("EMP011", "No History", base)
	require.NoError(t, s.CreateEmployee(ctx, withHistory))
	require.NoError(t, s.CreateEmployee(ctx, without))
	require.NoError(t, s.AppendEvent(ctx, Event(withHistory.ID, base, 0)))

	// GIVEN an employee with ledger rows WHEN deleting THEN it is refused
	assert.ErrorIs(t, s.DeleteEmployee(ctx, withHistory.ID), attendance.ErrEmployeeHasHistory)
	_, err := s.GetEmployee(ctx, withHistory.ID)
	assert.NoError(t, err, "employee with history must survive")

	require.NoError(t, s.DeleteEmployee(ctx, without.ID))
	_, err = s.GetEmployee(ctx, without.ID)
	assert.ErrorIs(t, err, attendance.ErrEmployeeNotFound)

	// The code is free again
	assert.NoError(t, s.CreateEmployee(ctx, Employee("EMP011", "Reused Code", base)))

	assert.ErrorIs(t, s.DeleteEmployee(ctx, "missing-id"), attendance.ErrEmployeeNotFound)
}

// =============================================================================
// SHIFTS
// =============================================================================

func testShifts(t *testing.T, newStore Factory) {
	s := newStore(t)
	ctx := context.Background()

	_, err := s.GetShift(ctx, attendance.DefaultShiftName)
	assert.ErrorIs(t, err, attendance.ErrShiftNotFound)

	first, err := attendance.EnsureDefaultShift(ctx, s)
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, "09:00", first.Start.String())
	assert.Equal(t, "17:00", first.End.String())
	assert.Equal(t, 5, first.GraceMinutes)

	// Ensure never overwrites an existing policy
	other := attendance.DefaultShift()
	other.GraceMinutes = 30
	again, err := s.EnsureShift(ctx, other)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, 5, again.GraceMinutes)

	// Save replaces values but keeps identity
	edited := attendance.DefaultShift()
	edited.Start = attendance.MustParseClock("08:30")
	edited.GraceMinutes = 10
	saved, err := s.SaveShift(ctx, edited)
	require.NoError(t, err)
	assert.Equal(t, first.ID, saved.ID)

	got, err := s.GetShift(ctx, attendance.DefaultShiftName)
	require.NoError(t, err)
	assert.Equal(t, "08:30", got.Start.String())
	assert.Equal(t, 10, got.GraceMinutes)

	evening := attendance.ShiftPolicy{
		Name:         "Evening",
		Start:        attendance.MustParseClock("14:00"),
		End:          attendance.MustParseClock("22:00"),
		GraceMinutes: 0,
	}
	_, err = s.SaveShift(ctx, evening)
	require.NoError(t, err)

	list, err := s.ListShifts(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Evening", list[0].Name)
	assert.Equal(t, "Morning", list[1].Name)
}

func testConcurrentDefaultShift(t *testing.T, newStore Factory) {
	s := newStore(t)
	ctx := context.Background()

	const callers = 16
	ids := make([]attendance.ShiftID, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := attendance.EnsureDefaultShift(ctx, s)
			ids[i], errs[i] = p.ID, err
		}(i)
	}
	wg.Wait()

	for i := range errs {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i], "every caller sees the same policy")
	}

	list, err := s.ListShifts(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, attendance.DefaultShiftName, list[0].Name)
}

// =============================================================================
// EVENTS
// =============================================================================

func testEvents(t *testing.T, newStore Factory) {
	s := newStore(t)
	ctx := context.Background()

	alice := Employee("EMP001", "Alice", base)
	bob := Employee("EMP002", "Bob", base)
	require.NoError(t, s.CreateEmployee(ctx, alice))
	require.NoError(t, s.CreateEmployee(ctx, bob))

	// Appended out of order on purpose
	late := Event(alice.ID, base.Add(26*time.Minute), 21)
	late.SnapshotPath = "snapshots/EMP001_20240304_092600.jpg"
	early := Event(alice.ID, base.Add(3*time.Minute), 0)
	bobs := Event(bob.ID, base.Add(10*time.Minute), 5)
	nextDay := Event(alice.ID, base.AddDate(0, 0, 1), 0)
	for _, ev := range []attendance.Event{late, nextDay, early, bobs} {
		require.NoError(t, s.AppendEvent(ctx, ev))
	}

	dayStart := time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.AddDate(0, 0, 1)

	all, err := s.EventsBetween(ctx, dayStart, dayEnd)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, early.ID, all[0].ID)
	assert.Equal(t, bobs.ID, all[1].ID)
	assert.Equal(t, late.ID, all[2].ID)

	got := all[2]
	assert.True(t, late.At.Equal(got.At))
	assert.Equal(t, 21, got.LatenessMinutes)
	assert.Equal(t, attendance.StatusPresent, got.Status)
	assert.Equal(t, "snapshots/EMP001_20240304_092600.jpg", got.SnapshotPath)

	// Half-open: an event exactly at `to` is excluded, at `from` included
	mine, err := s.EmployeeEventsBetween(ctx, alice.ID, dayStart, nextDay.At)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, early.ID, mine[0].ID)

	mine, err = s.EmployeeEventsBetween(ctx, alice.ID, nextDay.At, nextDay.At.Add(time.Second))
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, nextDay.ID, mine[0].ID)

	// Queries in another location address the same instants
	dhaka := time.FixedZone("UTC+6", 6*60*60)
	local, err := s.EventsBetween(ctx, dayStart.In(dhaka), dayEnd.In(dhaka))
	require.NoError(t, err)
	assert.Len(t, local, 3)

	n, err := s.CountEmployeeEvents(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	n, err = s.CountEmployeeEvents(ctx, "nobody")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func testEventsUnknownEmployee(t *testing.T, newStore Factory) {
	s := newStore(t)
	ctx := context.Background()

	err := s.AppendEvent(ctx, Event("ghost", base, 0))
	assert.ErrorIs(t, err, attendance.ErrEmployeeNotFound)
}
