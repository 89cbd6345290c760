/*
Package gormdb provides a GORM-backed implementation of attendance.Store.

PURPOSE:
  Shared deployments where several kiosks write to one PostgreSQL
  database. The same code runs against SQLite through the GORM sqlite
  dialector, which is how the contract tests exercise it.

SCHEMA:
  AutoMigrate on Open creates employees, shifts and attendance_events with
  the same constraints as store/sqlite:
  - UNIQUE(employees.code), UNIQUE(shifts.name)
  - attendance_events.employee_id REFERENCES employees ON DELETE RESTRICT

CONCURRENCY:
  EnsureShift relies on INSERT ... ON CONFLICT (name) DO NOTHING followed
  by a read, so concurrent first use converges on one row without any
  process-level lock.

SEE ALSO:
  - store/sqlite: database/sql implementation for single-node kiosks
  - attendance/storetest: Contract suite this store passes
*/
package gormdb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/warp/attendance-engine/attendance"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Store implements attendance.Store on top of *gorm.DB.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

var _ attendance.Store = (*Store)(nil)

// OpenPostgres connects to PostgreSQL using a DSN such as
// "host=localhost user=attendance dbname=attendance sslmode=disable".
func OpenPostgres(dsn string, log *slog.Logger) (*Store, error) {
	return Open(postgres.Open(dsn), log)
}

// Open connects with any GORM dialector and migrates the schema.
func Open(dialector gorm.Dialector, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.New(slogWriter{log: log}, logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&employeeRow{}, &shiftRow{}, &eventRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// DB exposes the underlying handle, mainly for pool tuning.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// slogWriter routes GORM's printf-style logger into slog.
type slogWriter struct {
	log *slog.Logger
}

func (w slogWriter) Printf(format string, args ...any) {
	w.log.Warn(fmt.Sprintf(format, args...), "component", "gorm")
}

// =============================================================================
// EMPLOYEE STORE
// =============================================================================

func (s *Store) CreateEmployee(ctx context.Context, e attendance.Employee) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	row := toEmployeeRow(e)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var taken int64
		if err := tx.Model(&employeeRow{}).Where("code = ?", row.Code).Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			return attendance.ErrDuplicateCode
		}
		if err := tx.Create(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return attendance.ErrDuplicateCode
			}
			return fmt.Errorf("failed to insert employee: %w", err)
		}
		return nil
	})
}

func (s *Store) UpdateEmployee(ctx context.Context, e attendance.Employee) error {
	row := toEmployeeRow(e)
	res := s.db.WithContext(ctx).Model(&employeeRow{}).Where("id = ?", row.ID).Updates(map[string]any{
		"full_name":    row.FullName,
		"department":   row.Department,
		"designation":  row.Designation,
		"phone":        row.Phone,
		"email":        row.Email,
		"joining_date": row.JoiningDate,
		"notes":        row.Notes,
		"photo_path":   row.PhotoPath,
	})
	if res.Error != nil {
		return fmt.Errorf("failed to update employee: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return attendance.ErrEmployeeNotFound
	}
	return nil
}

func (s *Store) GetEmployee(ctx context.Context, id attendance.EmployeeID) (attendance.Employee, error) {
	return s.firstEmployee(ctx, "id = ?", string(id))
}

func (s *Store) GetEmployeeByCode(ctx context.Context, code string) (attendance.Employee, error) {
	return s.firstEmployee(ctx, "code = ?", code)
}

func (s *Store) firstEmployee(ctx context.Context, query string, arg any) (attendance.Employee, error) {
	var row employeeRow
	err := s.db.WithContext(ctx).Where(query, arg).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return attendance.Employee{}, attendance.ErrEmployeeNotFound
	}
	if err != nil {
		return attendance.Employee{}, err
	}
	return row.toDomain(), nil
}

func (s *Store) ListEmployees(ctx context.Context) ([]attendance.Employee, error) {
	var rows []employeeRow
	if err := s.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	employees := make([]attendance.Employee, 0, len(rows))
	for _, r := range rows {
		employees = append(employees, r.toDomain())
	}
	return employees, nil
}

func (s *Store) DeleteEmployee(ctx context.Context, id attendance.EmployeeID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var history int64
		if err := tx.Model(&eventRow{}).Where("employee_id = ?", string(id)).Count(&history).Error; err != nil {
			return err
		}
		if history > 0 {
			return attendance.ErrEmployeeHasHistory
		}

		res := tx.Where("id = ?", string(id)).Delete(&employeeRow{})
		if res.Error != nil {
			if errors.Is(res.Error, gorm.ErrForeignKeyViolated) {
				return attendance.ErrEmployeeHasHistory
			}
			return fmt.Errorf("failed to delete employee: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return attendance.ErrEmployeeNotFound
		}
		return nil
	})
}

// =============================================================================
// SHIFT STORE
// =============================================================================

func (s *Store) EnsureShift(ctx context.Context, p attendance.ShiftPolicy) (attendance.ShiftPolicy, error) {
	row := s.newShiftRow(p)
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(&row).Error
	if err != nil {
		return attendance.ShiftPolicy{}, fmt.Errorf("failed to ensure shift: %w", err)
	}
	return s.GetShift(ctx, p.Name)
}

func (s *Store) SaveShift(ctx context.Context, p attendance.ShiftPolicy) (attendance.ShiftPolicy, error) {
	row := s.newShiftRow(p)
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"start_hhmm", "end_hhmm", "grace_minutes", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return attendance.ShiftPolicy{}, fmt.Errorf("failed to save shift: %w", err)
	}
	return s.GetShift(ctx, p.Name)
}

func (s *Store) newShiftRow(p attendance.ShiftPolicy) shiftRow {
	now := s.now().UTC()
	return shiftRow{
		ID:           attendance.NewID(),
		Name:         p.Name,
		StartHHMM:    p.Start.String(),
		EndHHMM:      p.End.String(),
		GraceMinutes: p.GraceMinutes,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (s *Store) GetShift(ctx context.Context, name string) (attendance.ShiftPolicy, error) {
	var row shiftRow
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return attendance.ShiftPolicy{}, attendance.ErrShiftNotFound
	}
	if err != nil {
		return attendance.ShiftPolicy{}, err
	}
	return row.toDomain()
}

func (s *Store) ListShifts(ctx context.Context) ([]attendance.ShiftPolicy, error) {
	var rows []shiftRow
	if err := s.db.WithContext(ctx).Order("name").Find(&rows).Error; err != nil {
		return nil, err
	}
	shifts := make([]attendance.ShiftPolicy, 0, len(rows))
	for _, r := range rows {
		p, err := r.toDomain()
		if err != nil {
			return nil, fmt.Errorf("shift %s: %w", r.Name, err)
		}
		shifts = append(shifts, p)
	}
	return shifts, nil
}

// =============================================================================
// EVENT STORE (append-only)
// =============================================================================

func (s *Store) AppendEvent(ctx context.Context, ev attendance.Event) error {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = s.now()
	}
	row := toEventRow(ev)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var exists int64
		if err := tx.Model(&employeeRow{}).Where("id = ?", row.EmployeeID).Count(&exists).Error; err != nil {
			return err
		}
		if exists == 0 {
			return attendance.ErrEmployeeNotFound
		}
		if err := tx.Omit(clause.Associations).Create(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrForeignKeyViolated) {
				return attendance.ErrEmployeeNotFound
			}
			return fmt.Errorf("failed to append event: %w", err)
		}
		return nil
	})
}

func (s *Store) EventsBetween(ctx context.Context, from, to time.Time) ([]attendance.Event, error) {
	return s.findEvents(s.db.WithContext(ctx).
		Where("occurred_at >= ? AND occurred_at < ?", from.UTC(), to.UTC()))
}

func (s *Store) EmployeeEventsBetween(ctx context.Context, id attendance.EmployeeID, from, to time.Time) ([]attendance.Event, error) {
	return s.findEvents(s.db.WithContext(ctx).
		Where("employee_id = ? AND occurred_at >= ? AND occurred_at < ?", string(id), from.UTC(), to.UTC()))
}

func (s *Store) CountEmployeeEvents(ctx context.Context, id attendance.EmployeeID) (int, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&eventRow{}).Where("employee_id = ?", string(id)).Count(&n).Error
	return int(n), err
}

func (s *Store) findEvents(q *gorm.DB) ([]attendance.Event, error) {
	var rows []eventRow
	if err := q.Order("occurred_at ASC, created_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	events := make([]attendance.Event, 0, len(rows))
	for _, r := range rows {
		events = append(events, r.toDomain())
	}
	return events, nil
}
