/*
Package directory is the Employee Directory: enrollment, lookup, patch
updates and deletion of employees.

RULES:
  - Code and full name are required (surrounding whitespace is trimmed)
  - Code is unique and immutable after enrollment
  - Update is a patch: nil fields are left as they are
  - Delete is refused while the employee owns attendance events

PHOTOS:
  Enrollment and update accept an optional photo. It is validated and
  written through PhotoStore before the record is saved, and removed
  again if saving the record fails.
*/
package directory

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/warp/attendance-engine/attendance"
)

// PhotoStore persists employee photos. media.DiskStore implements it.
type PhotoStore interface {
	Save(code string, at time.Time, data []byte) (string, error)
	Remove(path string) error
}

// EnrollInput is a new employee as submitted by an administrator.
type EnrollInput struct {
	Code        string
	FullName    string
	Department  string
	Designation string
	Phone       string
	Email       string
	JoiningDate string
	Notes       string
	Photo       []byte
}

// Patch lists the fields to change. Nil means "leave unchanged".
type Patch struct {
	FullName    *string
	Department  *string
	Designation *string
	Phone       *string
	Email       *string
	JoiningDate *string
	Notes       *string
	Photo       []byte
}

type Service struct {
	store  attendance.Store
	photos PhotoStore
	loc    *time.Location
	now    func() time.Time
	log    *slog.Logger
}

func New(store attendance.Store, photos PhotoStore, loc *time.Location, log *slog.Logger) *Service {
	if loc == nil {
		loc = time.Local
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, photos: photos, loc: loc, now: time.Now, log: log}
}

// WithClock replaces the time source. Used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// =============================================================================
// COMMANDS
// =============================================================================

func (s *Service) Enroll(ctx context.Context, in EnrollInput) (attendance.Employee, error) {
	code := strings.TrimSpace(in.Code)
	name := strings.TrimSpace(in.FullName)
	if code == "" {
		return attendance.Employee{}, attendance.Invalid("emp_code", "is required")
	}
	if name == "" {
		return attendance.Employee{}, attendance.Invalid("full_name", "is required")
	}
	joining, err := ParseDate(in.JoiningDate)
	if err != nil {
		return attendance.Employee{}, err
	}

	if _, err := s.store.GetEmployeeByCode(ctx, code); err == nil {
		return attendance.Employee{}, attendance.ErrDuplicateCode
	} else if !attendance.IsNotFound(err) {
		return attendance.Employee{}, err
	}

	now := s.now()
	emp := attendance.Employee{
		ID:          attendance.EmployeeID(attendance.NewID()),
		Code:        code,
		FullName:    name,
		Department:  strings.TrimSpace(in.Department),
		Designation: strings.TrimSpace(in.Designation),
		Phone:       strings.TrimSpace(in.Phone),
		Email:       strings.TrimSpace(in.Email),
		JoiningDate: joining,
		Notes:       in.Notes,
		CreatedAt:   now,
	}

	if len(in.Photo) > 0 {
		if emp.PhotoPath, err = s.savePhoto(code, now, in.Photo); err != nil {
			return attendance.Employee{}, err
		}
	}

	if err := s.store.CreateEmployee(ctx, emp); err != nil {
		s.discardPhoto(emp.PhotoPath)
		return attendance.Employee{}, err
	}

	s.log.Info("employee enrolled", "employee_id", emp.ID, "emp_code", emp.Code)
	return emp, nil
}

func (s *Service) Update(ctx context.Context, id attendance.EmployeeID, p Patch) (attendance.Employee, error) {
	emp, err := s.store.GetEmployee(ctx, id)
	if err != nil {
		return attendance.Employee{}, err
	}

	if p.FullName != nil {
		name := strings.TrimSpace(*p.FullName)
		if name == "" {
			return attendance.Employee{}, attendance.Invalid("full_name", "must not be empty")
		}
		emp.FullName = name
	}
	setTrimmed(&emp.Department, p.Department)
	setTrimmed(&emp.Designation, p.Designation)
	setTrimmed(&emp.Phone, p.Phone)
	setTrimmed(&emp.Email, p.Email)
	if p.Notes != nil {
		emp.Notes = *p.Notes
	}
	if p.JoiningDate != nil {
		if emp.JoiningDate, err = ParseDate(*p.JoiningDate); err != nil {
			return attendance.Employee{}, err
		}
	}

	var newPhoto string
	if len(p.Photo) > 0 {
		if newPhoto, err = s.savePhoto(emp.Code, s.now(), p.Photo); err != nil {
			return attendance.Employee{}, err
		}
		emp.PhotoPath = newPhoto
	}

	if err := s.store.UpdateEmployee(ctx, emp); err != nil {
		s.discardPhoto(newPhoto)
		return attendance.Employee{}, err
	}
	return emp, nil
}

// Delete removes an employee with no attendance history.
func (s *Service) Delete(ctx context.Context, id attendance.EmployeeID) error {
	if _, err := s.store.GetEmployee(ctx, id); err != nil {
		return err
	}
	n, err := s.store.CountEmployeeEvents(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return attendance.ErrEmployeeHasHistory
	}
	if err := s.store.DeleteEmployee(ctx, id); err != nil {
		return err
	}
	s.log.Info("employee deleted", "employee_id", id)
	return nil
}

// =============================================================================
// QUERIES
// =============================================================================

func (s *Service) Get(ctx context.Context, id attendance.EmployeeID) (attendance.Employee, error) {
	return s.store.GetEmployee(ctx, id)
}

func (s *Service) GetByCode(ctx context.Context, code string) (attendance.Employee, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return attendance.Employee{}, attendance.Invalid("emp_code", "is required")
	}
	return s.store.GetEmployeeByCode(ctx, code)
}

// List returns every employee, newest first.
func (s *Service) List(ctx context.Context) ([]attendance.Employee, error) {
	return s.store.ListEmployees(ctx)
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Service) savePhoto(code string, at time.Time, data []byte) (string, error) {
	if s.photos == nil {
		return "", nil
	}
	return s.photos.Save(code, at.In(s.loc), data)
}

func (s *Service) discardPhoto(path string) {
	if path == "" || s.photos == nil {
		return
	}
	if err := s.photos.Remove(path); err != nil {
		s.log.Warn("failed to remove orphaned photo", "path", path, "error", err)
	}
}

func setTrimmed(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

// dateLayouts are tried in order; the first match wins, so an ambiguous
// "03/04/2024" is read day-first.
var dateLayouts = []string{
	"2006-1-2",
	"2-1-2006",
	"2/1/2006",
	"1/2/2006",
}

// ParseDate accepts YYYY-MM-DD, DD-MM-YYYY, DD/MM/YYYY and MM/DD/YYYY.
// An empty string yields nil.
func ParseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return &d, nil
		}
	}
	return nil, attendance.Invalid("joining_date",
		"must be YYYY-MM-DD or DD-MM-YYYY or DD/MM/YYYY or MM/DD/YYYY")
}
