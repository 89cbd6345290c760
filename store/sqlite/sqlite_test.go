package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/attendance/storetest"
	"github.com/warp/attendance-engine/store/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_Contract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) attendance.Store {
		return newTestStore(t)
	})
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	// GIVEN: A file-backed database with one employee, shift and event
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "attendance.db")

	store, err := sqlite.New(path)
	require.NoError(t, err)

	at := time.Date(2024, time.March, 4, 9, 26, 0, 123456789, time.UTC)
	emp := storetest.Employee("EMP001", "Alice Ahmed", at)
	require.NoError(t, store.CreateEmployee(ctx, emp))
	shift, err := attendance.EnsureDefaultShift(ctx, store)
	require.NoError(t, err)
	require.NoError(t, store.AppendEvent(ctx, storetest.Event(emp.ID, at, 21)))
	require.NoError(t, store.Close())

	// WHEN: Reopening the same file
	reopened, err := sqlite.New(path)
	require.NoError(t, err)
	t.Cleanup(func() { reopened.Close() })

	// THEN: Everything is still there, with nanosecond timestamps intact
	got, err := reopened.GetEmployeeByCode(ctx, "EMP001")
	require.NoError(t, err)
	assert.Equal(t, emp.ID, got.ID)

	again, err := attendance.EnsureDefaultShift(ctx, reopened)
	require.NoError(t, err)
	assert.Equal(t, shift.ID, again.ID)

	events, err := reopened.EmployeeEventsBetween(ctx, emp.ID, at.Add(-time.Hour), at.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.True(t, at.Equal(events[0].At))
	assert.Equal(t, 21, events[0].LatenessMinutes)
}

func TestSQLiteStore_Ping(t *testing.T) {
	store := newTestStore(t)
	assert.NoError(t, store.Ping(context.Background()))
}

func TestSQLiteStore_LastRepresentableMonth(t *testing.T) {
	// GIVEN: A check-in in December 9999
	ctx := context.Background()
	store := newTestStore(t)
	at := time.Date(9999, time.December, 31, 9, 0, 0, 0, time.UTC)
	emp := storetest.Employee("EMP001", "Alice Ahmed", at)
	require.NoError(t, store.CreateEmployee(ctx, emp))
	require.NoError(t, store.AppendEvent(ctx, storetest.Event(emp.ID, at, 0)))

	// WHEN: Querying the month, whose end bound is in year 10000
	from, to := attendance.MonthBounds(9999, time.December, time.UTC)
	events, err := store.EmployeeEventsBetween(ctx, emp.ID, from, to)
	require.NoError(t, err)

	// THEN: The event is found
	require.Len(t, events, 1)
	assert.True(t, events[0].At.Equal(at))

	all, err := store.EventsBetween(ctx, attendance.StartOfDay(at), attendance.StartOfDay(at).AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Len(t, all, 1)

	none, err := store.EventsBetween(ctx, to, to.AddDate(0, 1, 0))
	require.NoError(t, err)
	assert.Empty(t, none)
}
