package gormdb

import (
	"time"

	"github.com/warp/attendance-engine/attendance"
)

type employeeRow struct {
	ID          string     `gorm:"column:id;size:36;primaryKey"`
	Code        string     `gorm:"column:code;size:64;not null;uniqueIndex"`
	FullName    string     `gorm:"column:full_name;size:200;not null"`
	Department  string     `gorm:"column:department;size:120"`
	Designation string     `gorm:"column:designation;size:120"`
	Phone       string     `gorm:"column:phone;size:40"`
	Email       string     `gorm:"column:email;size:200"`
	JoiningDate *time.Time `gorm:"column:joining_date;type:date"`
	Notes       string     `gorm:"column:notes;type:text"`
	PhotoPath   string     `gorm:"column:photo_path;size:500"`
	CreatedAt   time.Time  `gorm:"column:created_at;not null;index"`
}

func (employeeRow) TableName() string {
	return "employees"
}

type shiftRow struct {
	ID           string    `gorm:"column:id;size:36;primaryKey"`
	Name         string    `gorm:"column:name;size:64;not null;uniqueIndex"`
	StartHHMM    string    `gorm:"column:start_hhmm;size:5;not null"`
	EndHHMM      string    `gorm:"column:end_hhmm;size:5;not null"`
	GraceMinutes int       `gorm:"column:grace_minutes;not null;default:5"`
	CreatedAt    time.Time `gorm:"column:created_at;not null"`
	UpdatedAt    time.Time `gorm:"column:updated_at;not null"`
}

func (shiftRow) TableName() string {
	return "shifts"
}

type eventRow struct {
	ID              string      `gorm:"column:id;size:36;primaryKey"`
	EmployeeID      string      `gorm:"column:employee_id;size:36;not null;index:idx_events_employee_at,priority:1"`
	OccurredAt      time.Time   `gorm:"column:occurred_at;not null;index:idx_events_employee_at,priority:2;index:idx_events_at"`
	Status          string      `gorm:"column:status;size:20;not null"`
	LatenessMinutes int         `gorm:"column:lateness_minutes;not null;default:0"`
	SnapshotPath    string      `gorm:"column:snapshot_path;size:500"`
	CreatedAt       time.Time   `gorm:"column:created_at;not null"`
	Employee        employeeRow `gorm:"foreignKey:EmployeeID;references:ID;constraint:OnUpdate:RESTRICT,OnDelete:RESTRICT"`
}

func (eventRow) TableName() string {
	return "attendance_events"
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toEmployeeRow(e attendance.Employee) employeeRow {
	var joining *time.Time
	if e.JoiningDate != nil {
		d := e.JoiningDate.UTC()
		joining = &d
	}
	return employeeRow{
		ID:          string(e.ID),
		Code:        e.Code,
		FullName:    e.FullName,
		Department:  e.Department,
		Designation: e.Designation,
		Phone:       e.Phone,
		Email:       e.Email,
		JoiningDate: joining,
		Notes:       e.Notes,
		PhotoPath:   e.PhotoPath,
		CreatedAt:   e.CreatedAt.UTC(),
	}
}

func (r employeeRow) toDomain() attendance.Employee {
	return attendance.Employee{
		ID:          attendance.EmployeeID(r.ID),
		Code:        r.Code,
		FullName:    r.FullName,
		Department:  r.Department,
		Designation: r.Designation,
		Phone:       r.Phone,
		Email:       r.Email,
		JoiningDate: r.JoiningDate,
		Notes:       r.Notes,
		PhotoPath:   r.PhotoPath,
		CreatedAt:   r.CreatedAt,
	}
}

func (r shiftRow) toDomain() (attendance.ShiftPolicy, error) {
	start, err := attendance.ParseClock(r.StartHHMM)
	if err != nil {
		return attendance.ShiftPolicy{}, err
	}
	end, err := attendance.ParseClock(r.EndHHMM)
	if err != nil {
		return attendance.ShiftPolicy{}, err
	}
	return attendance.ShiftPolicy{
		ID:           attendance.ShiftID(r.ID),
		Name:         r.Name,
		Start:        start,
		End:          end,
		GraceMinutes: r.GraceMinutes,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}, nil
}

func toEventRow(ev attendance.Event) eventRow {
	return eventRow{
		ID:              string(ev.ID),
		EmployeeID:      string(ev.EmployeeID),
		OccurredAt:      ev.At.UTC(),
		Status:          string(ev.Status),
		LatenessMinutes: ev.LatenessMinutes,
		SnapshotPath:    ev.SnapshotPath,
		CreatedAt:       ev.CreatedAt.UTC(),
	}
}

func (r eventRow) toDomain() attendance.Event {
	return attendance.Event{
		ID:              attendance.EventID(r.ID),
		EmployeeID:      attendance.EmployeeID(r.EmployeeID),
		At:              r.OccurredAt,
		Status:          attendance.EventStatus(r.Status),
		LatenessMinutes: r.LatenessMinutes,
		SnapshotPath:    r.SnapshotPath,
		CreatedAt:       r.CreatedAt,
	}
}
