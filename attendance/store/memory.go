// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/attendance-engine/attendance"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu        sync.RWMutex
	employees map[attendance.EmployeeID]attendance.Employee
	codes     map[string]attendance.EmployeeID
	shifts    map[string]attendance.ShiftPolicy
	events    []attendance.Event
	now       func() time.Time
}

var _ attendance.Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		employees: make(map[attendance.EmployeeID]attendance.Employee),
		codes:     make(map[string]attendance.EmployeeID),
		shifts:    make(map[string]attendance.ShiftPolicy),
		now:       time.Now,
	}
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func (m *Memory) CreateEmployee(_ context.Context, e attendance.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.codes[e.Code]; taken {
		return attendance.ErrDuplicateCode
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = m.now()
	}
	m.employees[e.ID] = e
	m.codes[e.Code] = e.ID
	return nil
}

func (m *Memory) UpdateEmployee(_ context.Context, e attendance.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.employees[e.ID]
	if !ok {
		return attendance.ErrEmployeeNotFound
	}
	e.Code = existing.Code
	e.CreatedAt = existing.CreatedAt
	m.employees[e.ID] = e
	return nil
}

func (m *Memory) GetEmployee(_ context.Context, id attendance.EmployeeID) (attendance.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.employees[id]
	if !ok {
		return attendance.Employee{}, attendance.ErrEmployeeNotFound
	}
	return e, nil
}

func (m *Memory) GetEmployeeByCode(_ context.Context, code string) (attendance.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.codes[code]
	if !ok {
		return attendance.Employee{}, attendance.ErrEmployeeNotFound
	}
	return m.employees[id], nil
}

func (m *Memory) ListEmployees(_ context.Context) ([]attendance.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]attendance.Employee, 0, len(m.employees))
	for _, e := range m.employees {
		result = append(result, e)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (m *Memory) DeleteEmployee(_ context.Context, id attendance.EmployeeID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.employees[id]
	if !ok {
		return attendance.ErrEmployeeNotFound
	}
	for _, ev := range m.events {
		if ev.EmployeeID == id {
			return attendance.ErrEmployeeHasHistory
		}
	}
	delete(m.employees, id)
	delete(m.codes, e.Code)
	return nil
}

// =============================================================================
// SHIFTS
// =============================================================================

func (m *Memory) EnsureShift(_ context.Context, p attendance.ShiftPolicy) (attendance.ShiftPolicy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.shifts[p.Name]; ok {
		return existing, nil
	}
	return m.putShiftLocked(p), nil
}

func (m *Memory) SaveShift(_ context.Context, p attendance.ShiftPolicy) (attendance.ShiftPolicy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.shifts[p.Name]; ok {
		p.ID = existing.ID
		p.CreatedAt = existing.CreatedAt
	}
	return m.putShiftLocked(p), nil
}

func (m *Memory) putShiftLocked(p attendance.ShiftPolicy) attendance.ShiftPolicy {
	now := m.now()
	if p.ID == "" {
		p.ID = attendance.ShiftID(attendance.NewID())
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	m.shifts[p.Name] = p
	return p
}

func (m *Memory) GetShift(_ context.Context, name string) (attendance.ShiftPolicy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.shifts[name]
	if !ok {
		return attendance.ShiftPolicy{}, attendance.ErrShiftNotFound
	}
	return p, nil
}

func (m *Memory) ListShifts(_ context.Context) ([]attendance.ShiftPolicy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]attendance.ShiftPolicy, 0, len(m.shifts))
	for _, p := range m.shifts {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// =============================================================================
// EVENTS (append-only)
// =============================================================================

// AppendEvent inserts the event keeping the slice ordered.
func (m *Memory) AppendEvent(_ context.Context, ev attendance.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.employees[ev.EmployeeID]; !ok {
		return attendance.ErrEmployeeNotFound
	}

	// Binary search for insertion point: O(log n) instead of O(n log n)
	i := sort.Search(len(m.events), func(i int) bool {
		return eventLess(ev, m.events[i])
	})
	m.events = append(m.events, attendance.Event{})
	copy(m.events[i+1:], m.events[i:])
	m.events[i] = ev
	return nil
}

func eventLess(a, b attendance.Event) bool {
	if !a.At.Equal(b.At) {
		return a.At.Before(b.At)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

func (m *Memory) EventsBetween(_ context.Context, from, to time.Time) ([]attendance.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.filterLocked(func(ev attendance.Event) bool { return inRange(ev.At, from, to) }), nil
}

func (m *Memory) EmployeeEventsBetween(_ context.Context, id attendance.EmployeeID, from, to time.Time) ([]attendance.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.filterLocked(func(ev attendance.Event) bool {
		return ev.EmployeeID == id && inRange(ev.At, from, to)
	}), nil
}

func (m *Memory) CountEmployeeEvents(_ context.Context, id attendance.EmployeeID) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.filterLocked(func(ev attendance.Event) bool { return ev.EmployeeID == id })), nil
}

func (m *Memory) filterLocked(keep func(attendance.Event) bool) []attendance.Event {
	var result []attendance.Event
	for _, ev := range m.events {
		if keep(ev) {
			result = append(result, ev)
		}
	}
	return result
}

func inRange(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}
