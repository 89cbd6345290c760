/*
handlers.go - HTTP API handlers for the attendance backend

PURPOSE:
  Exposes the attendance engine over the kiosk HTTP contract. Handles
  request parsing (multipart uploads, query strings, JSON), delegates to
  the directory and check-in services, and serializes responses.

ENDPOINTS:
  Health:
    GET    /                            API is running
    GET    /test                        Kiosk connectivity check
    GET    /admin/ping                  Admin reachability (admin)
    GET    /admin/employees             HTML directory page (admin, see admin.go)
    POST   /admin/employees/new         HTML enroll form (admin)

  Employees:
    POST   /employees/enroll            Enroll with photo (admin)
    GET    /employees                   List, newest first
    GET    /employees/{id}              Get one
    PUT    /employees/{id}              Patch fields and/or photo (admin)
    DELETE /employees/{id}              Delete without history (admin)

  Attendance:
    POST   /attendance/checkin          Kiosk check-in (rate limited)
    GET    /attendance/today            Events of a date
    GET    /attendance/monthly_summary  Monthly statistics

  Shifts:
    GET    /shifts                      List shift policies
    PUT    /shifts/{name}               Create or edit a policy (admin)

ERROR HANDLING:
  Errors are returned as {"ok":false,"error":"..."}:
  - 400: Validation errors, malformed uploads
  - 404: Unknown employee or shift
  - 409: Duplicate code, delete with history
  - 413: Upload larger than MAX_UPLOAD_BYTES
  - 429: Check-in rate limit
  - 500: Internal errors (logged, message hidden)

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/checkin"
	"github.com/warp/attendance-engine/directory"
)

// errTooLarge marks uploads rejected by http.MaxBytesReader.
var errTooLarge = errors.New("upload too large")

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Directory      *directory.Service
	Attendance     *checkin.Service
	Shifts         attendance.ShiftStore
	MaxUploadBytes int64
	Log            *slog.Logger

	loc *time.Location
}

// NewHandler wires the services. Timestamps are rendered in the check-in
// service's location.
func NewHandler(dir *directory.Service, svc *checkin.Service, shifts attendance.ShiftStore, maxUploadBytes int64, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	if maxUploadBytes <= 0 {
		maxUploadBytes = 10 << 20
	}
	return &Handler{
		Directory:      dir,
		Attendance:     svc,
		Shifts:         shifts,
		MaxUploadBytes: maxUploadBytes,
		Log:            log,
		loc:            svc.Location(),
	}
}

// =============================================================================
// HEALTH
// =============================================================================

func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, MessageResponse{OK: true, Msg: "API is running"})
}

func (h *Handler) Test(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, MessageResponse{OK: true, Msg: "Test endpoint is working"})
}

func (h *Handler) AdminPing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "where": "admin"})
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// EnrollEmployee creates an employee from a multipart form with a photo.
func (h *Handler) EnrollEmployee(w http.ResponseWriter, r *http.Request) {
	if err := h.parseForm(w, r); err != nil {
		h.fail(w, r, err)
		return
	}
	photo, err := formFile(r, "photo")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if len(photo) == 0 {
		h.fail(w, r, attendance.Invalid("photo", "is required"))
		return
	}

	emp, err := h.Directory.Enroll(r.Context(), directory.EnrollInput{
		Code:        r.PostFormValue("emp_code"),
		FullName:    r.PostFormValue("full_name"),
		Department:  r.PostFormValue("department"),
		Designation: r.PostFormValue("designation"),
		Phone:       r.PostFormValue("phone"),
		Email:       r.PostFormValue("email"),
		JoiningDate: r.PostFormValue("joining_date"),
		Notes:       r.PostFormValue("notes"),
		Photo:       photo,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, EnrollResponse{OK: true, EmployeeID: string(emp.ID), PhotoPath: emp.PhotoPath})
}

// ListEmployees returns all employees, newest first.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Directory.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = toEmployeeDTO(e, h.loc)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	emp, err := h.Directory.Get(r.Context(), attendance.EmployeeID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(emp, h.loc))
}

// UpdateEmployee patches the fields present in the form. Absent fields are
// left alone; present but empty fields are cleared.
func (h *Handler) UpdateEmployee(w http.ResponseWriter, r *http.Request) {
	if err := h.parseForm(w, r); err != nil {
		h.fail(w, r, err)
		return
	}
	photo, err := formFile(r, "photo")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	emp, err := h.Directory.Update(r.Context(), attendance.EmployeeID(chi.URLParam(r, "id")), directory.Patch{
		FullName:    formValue(r, "full_name"),
		Department:  formValue(r, "department"),
		Designation: formValue(r, "designation"),
		Phone:       formValue(r, "phone"),
		Email:       formValue(r, "email"),
		JoiningDate: formValue(r, "joining_date"),
		Notes:       formValue(r, "notes"),
		Photo:       photo,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, UpdateEmployeeResponse{OK: true, Employee: toEmployeeDTO(emp, h.loc)})
}

func (h *Handler) DeleteEmployee(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Directory.Delete(r.Context(), attendance.EmployeeID(id)); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DeleteEmployeeResponse{OK: true, DeletedID: id})
}

// =============================================================================
// ATTENDANCE HANDLERS
// =============================================================================

// CheckIn records a kiosk check-in. The frame upload is optional.
func (h *Handler) CheckIn(w http.ResponseWriter, r *http.Request) {
	if err := h.parseForm(w, r); err != nil {
		h.fail(w, r, err)
		return
	}
	frame, err := formFile(r, "frame")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	res, err := h.Attendance.CheckIn(r.Context(), r.PostFormValue("emp_code"), frame)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCheckInResponse(res, h.loc))
}

// Today lists the check-ins of ?date=YYYY-MM-DD, default today.
func (h *Handler) Today(w http.ResponseWriter, r *http.Request) {
	day, err := h.Attendance.ParseDay(r.URL.Query().Get("date"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	entries, err := h.Attendance.Today(r.Context(), day)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	dtos := make([]AttendanceLogDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toAttendanceLogDTO(e, h.loc)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// MonthlySummary handles ?emp_code=&year=&month=&speak=.
func (h *Handler) MonthlySummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	year, err := queryInt(q.Get("year"), "year")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	month, err := queryInt(q.Get("month"), "month")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	speak := false
	if raw := q.Get("speak"); raw != "" {
		if speak, err = strconv.ParseBool(raw); err != nil {
			h.fail(w, r, attendance.Invalid("speak", "must be true or false"))
			return
		}
	}

	report, err := h.Attendance.MonthlySummary(r.Context(), q.Get("emp_code"), year, month, speak)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMonthlySummaryResponse(report, h.loc))
}

// =============================================================================
// SHIFT HANDLERS
// =============================================================================

func (h *Handler) ListShifts(w http.ResponseWriter, r *http.Request) {
	shifts, err := h.Shifts.ListShifts(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	dtos := make([]ShiftDTO, len(shifts))
	for i, p := range shifts {
		dtos[i] = toShiftDTO(p, h.loc)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// UpdateShift creates or replaces the named policy. Existing events keep
// the lateness they were recorded with.
func (h *Handler) UpdateShift(w http.ResponseWriter, r *http.Request) {
	var req UpdateShiftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, r, attendance.Invalid("body", "invalid JSON"))
		return
	}

	start, err := attendance.ParseClock(req.Start)
	if err != nil {
		h.fail(w, r, attendance.Invalid("start", "%v", err))
		return
	}
	end, err := attendance.ParseClock(req.End)
	if err != nil {
		h.fail(w, r, attendance.Invalid("end", "%v", err))
		return
	}

	policy := attendance.ShiftPolicy{
		Name:         strings.TrimSpace(chi.URLParam(r, "name")),
		Start:        start,
		End:          end,
		GraceMinutes: attendance.DefaultGraceMinutes,
	}
	if req.GraceMinutes != nil {
		policy.GraceMinutes = *req.GraceMinutes
	}
	if err := policy.Validate(); err != nil {
		h.fail(w, r, err)
		return
	}

	saved, err := h.Shifts.SaveShift(r.Context(), policy)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toShiftDTO(saved, h.loc))
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{OK: false, Error: message})
}

// fail maps a domain error to its status code. Internal errors are logged
// and hidden from the client.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.Log.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err,
		)
		writeError(w, status, "internal server error")
		return
	}
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errTooLarge):
		return http.StatusRequestEntityTooLarge
	case attendance.IsNotFound(err):
		return http.StatusNotFound
	case attendance.IsConflict(err):
		return http.StatusConflict
	case errors.Is(err, attendance.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// parseForm reads a multipart or urlencoded body capped at MaxUploadBytes.
func (h *Handler) parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)

	err := r.ParseMultipartForm(h.MaxUploadBytes)
	if errors.Is(err, http.ErrNotMultipart) {
		err = r.ParseForm()
	}
	if err == nil {
		return nil
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
		return errTooLarge
	}
	return attendance.Invalid("body", "malformed form data")
}

// formFile returns the uploaded file's bytes, or nil when the field is
// absent or empty.
func formFile(r *http.Request, field string) ([]byte, error) {
	f, _, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, attendance.Invalid(field, "unreadable upload")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, attendance.Invalid(field, "unreadable upload")
	}
	return data, nil
}

// formValue returns a pointer to the submitted value, or nil when the field
// was not sent at all.
func formValue(r *http.Request, field string) *string {
	values, ok := r.PostForm[field]
	if !ok || len(values) == 0 {
		return nil
	}
	v := values[0]
	return &v
}

func queryInt(raw, field string) (int, error) {
	if strings.TrimSpace(raw) == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, attendance.Invalid(field, "must be an integer")
	}
	return v, nil
}
