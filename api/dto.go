/*
dto.go - JSON shapes of the HTTP contract

PURPOSE:
  Decouples the attendance domain types from what the kiosk and admin
  front end read. Field names follow the kiosk contract (emp_code,
  log_id, lateness_minutes), so existing kiosks keep working.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: JSON request bodies
  - *Response: Envelopes with the "ok" flag

TIMESTAMPS:
  RFC 3339 in the configured location. Dates are YYYY-MM-DD.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/checkin"
)

const dateLayout = "2006-01-02"

// =============================================================================
// EMPLOYEE DTOs
// =============================================================================

type EmployeeDTO struct {
	ID          string  `json:"id"`
	Code        string  `json:"emp_code"`
	FullName    string  `json:"full_name"`
	Department  string  `json:"department,omitempty"`
	Designation string  `json:"designation,omitempty"`
	Phone       string  `json:"phone,omitempty"`
	Email       string  `json:"email,omitempty"`
	JoiningDate *string `json:"joining_date"`
	Notes       string  `json:"notes,omitempty"`
	PhotoPath   string  `json:"photo_path,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

type EnrollResponse struct {
	OK         bool   `json:"ok"`
	EmployeeID string `json:"employee_id"`
	PhotoPath  string `json:"photo_path,omitempty"`
}

type UpdateEmployeeResponse struct {
	OK       bool        `json:"ok"`
	Employee EmployeeDTO `json:"employee"`
}

type DeleteEmployeeResponse struct {
	OK        bool   `json:"ok"`
	DeletedID string `json:"deleted_id"`
}

func toEmployeeDTO(e attendance.Employee, loc *time.Location) EmployeeDTO {
	dto := EmployeeDTO{
		ID:          string(e.ID),
		Code:        e.Code,
		FullName:    e.FullName,
		Department:  e.Department,
		Designation: e.Designation,
		Phone:       e.Phone,
		Email:       e.Email,
		Notes:       e.Notes,
		PhotoPath:   e.PhotoPath,
		CreatedAt:   e.CreatedAt.In(loc).Format(time.RFC3339),
	}
	if e.JoiningDate != nil {
		d := e.JoiningDate.Format(dateLayout)
		dto.JoiningDate = &d
	}
	return dto
}

// =============================================================================
// ATTENDANCE DTOs
// =============================================================================

type CheckInResponse struct {
	OK              bool    `json:"ok"`
	EmployeeID      string  `json:"employee_id"`
	EmployeeCode    string  `json:"emp_code"`
	FullName        string  `json:"full_name"`
	Status          string  `json:"status"`
	LatenessMinutes int     `json:"lateness_minutes"`
	Message         string  `json:"message"`
	LogID           string  `json:"log_id"`
	SnapshotPath    *string `json:"snapshot_path"`
	Timestamp       string  `json:"ts"`
}

type AttendanceLogDTO struct {
	ID              string  `json:"id"`
	EmployeeID      string  `json:"employee_id"`
	EmployeeCode    string  `json:"emp_code"`
	FullName        string  `json:"full_name"`
	Timestamp       string  `json:"ts"`
	LatenessMinutes int     `json:"lateness_minutes"`
	Status          string  `json:"status"`
	SnapshotPath    *string `json:"snapshot_path"`
}

type SummaryEmployeeDTO struct {
	ID       string `json:"id"`
	Code     string `json:"emp_code"`
	FullName string `json:"full_name"`
}

type SummaryDayDTO struct {
	Date            string `json:"date"`
	FirstCheckIn    string `json:"first_check_in"`
	LatenessMinutes int    `json:"lateness_minutes"`
	CheckIns        int    `json:"check_ins"`
}

type MonthlySummaryResponse struct {
	OK               bool               `json:"ok"`
	Employee         SummaryEmployeeDTO `json:"employee"`
	Year             int                `json:"year"`
	Month            int                `json:"month"`
	MonthName        string             `json:"month_name"`
	PresentDays      int                `json:"present_days"`
	LateDays         int                `json:"late_days"`
	AbsentDays       int                `json:"absent_days"`
	WorkingDays      int                `json:"working_days"`
	TotalLateMinutes int                `json:"total_late_minutes"`
	AttendanceRate   decimal.Decimal    `json:"attendance_rate"`
	SummaryText      string             `json:"summary_text"`
	Days             []SummaryDayDTO    `json:"days"`
}

func optionalPath(p string) *string {
	if p == "" {
		return nil
	}
	return &p
}

func toCheckInResponse(r checkin.Result, loc *time.Location) CheckInResponse {
	return CheckInResponse{
		OK:              true,
		EmployeeID:      string(r.Employee.ID),
		EmployeeCode:    r.Employee.Code,
		FullName:        r.Employee.FullName,
		Status:          r.Status,
		LatenessMinutes: r.LatenessMinutes,
		Message:         r.Message,
		LogID:           string(r.Event.ID),
		SnapshotPath:    optionalPath(r.SnapshotPath),
		Timestamp:       r.Event.At.In(loc).Format(time.RFC3339),
	}
}

func toAttendanceLogDTO(e checkin.Entry, loc *time.Location) AttendanceLogDTO {
	return AttendanceLogDTO{
		ID:              string(e.Event.ID),
		EmployeeID:      string(e.Event.EmployeeID),
		EmployeeCode:    e.Employee.Code,
		FullName:        e.Employee.FullName,
		Timestamp:       e.Event.At.In(loc).Format(time.RFC3339),
		LatenessMinutes: e.Event.LatenessMinutes,
		Status:          string(e.Event.Status),
		SnapshotPath:    optionalPath(e.Event.SnapshotPath),
	}
}

func toMonthlySummaryResponse(r checkin.Report, loc *time.Location) MonthlySummaryResponse {
	s := r.Summary
	days := make([]SummaryDayDTO, 0, len(s.Days))
	for _, d := range s.Days {
		days = append(days, SummaryDayDTO{
			Date:            d.Date.Format(dateLayout),
			FirstCheckIn:    d.FirstCheckIn.In(loc).Format(time.RFC3339),
			LatenessMinutes: d.LatenessMinutes,
			CheckIns:        d.CheckIns,
		})
	}
	return MonthlySummaryResponse{
		OK: true,
		Employee: SummaryEmployeeDTO{
			ID:       string(r.Employee.ID),
			Code:     r.Employee.Code,
			FullName: r.Employee.FullName,
		},
		Year:             s.Year,
		Month:            int(s.Month),
		MonthName:        r.MonthName,
		PresentDays:      s.PresentDays,
		LateDays:         s.LateDays,
		AbsentDays:       s.AbsentDays,
		WorkingDays:      s.WorkingDays,
		TotalLateMinutes: s.TotalLateMinutes,
		AttendanceRate:   s.AttendanceRate,
		SummaryText:      r.Text,
		Days:             days,
	}
}

// =============================================================================
// SHIFT DTOs
// =============================================================================

type ShiftDTO struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Start        string `json:"start"`
	End          string `json:"end"`
	GraceMinutes int    `json:"grace_minutes"`
	UpdatedAt    string `json:"updated_at"`
}

// UpdateShiftRequest is the body of PUT /shifts/{name}. A nil grace keeps
// the default.
type UpdateShiftRequest struct {
	Start        string `json:"start"`
	End          string `json:"end"`
	GraceMinutes *int   `json:"grace_minutes"`
}

func toShiftDTO(p attendance.ShiftPolicy, loc *time.Location) ShiftDTO {
	return ShiftDTO{
		ID:           string(p.ID),
		Name:         p.Name,
		Start:        p.Start.String(),
		End:          p.End.String(),
		GraceMinutes: p.GraceMinutes,
		UpdatedAt:    p.UpdatedAt.In(loc).Format(time.RFC3339),
	}
}

// =============================================================================
// ENVELOPES
// =============================================================================

type MessageResponse struct {
	OK  bool   `json:"ok"`
	Msg string `json:"msg"`
}

type ErrorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}
