/*
admin.go - Server-rendered admin pages

PURPOSE:
  A minimal browser front end for the employee directory, for offices
  without a separate admin client. Both routes sit in the /admin group and
  share its token check.

ROUTES:
  GET  /admin/employees       Directory table (newest first) and enroll form
  POST /admin/employees/new   Enroll, then 303 back to the table

REDIRECTS:
  ?ok=1            enrolled
  ?error=exists    code already taken
  ?error=invalid   missing code or name, or a photo that is not an image

  Unlike POST /employees/enroll the photo is optional here, and a joining
  date that cannot be parsed is dropped instead of rejected.
*/
package api

import (
	"embed"
	"errors"
	"html/template"
	"net/http"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/directory"
)

//go:embed templates/employees.html
var templateFS embed.FS

var employeesPage = template.Must(template.ParseFS(templateFS, "templates/employees.html"))

var adminErrors = map[string]string{
	"exists":  "An employee with this code already exists.",
	"invalid": "Code and full name are required, and the photo must be an image.",
}

type employeesView struct {
	Employees []EmployeeDTO
	OK        bool
	Error     string
}

// AdminEmployeesPage renders the directory and the enroll form.
func (h *Handler) AdminEmployeesPage(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Directory.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	view := employeesView{
		Employees: make([]EmployeeDTO, len(employees)),
		OK:        r.URL.Query().Get("ok") == "1",
		Error:     adminErrors[r.URL.Query().Get("error")],
	}
	for i, e := range employees {
		view.Employees[i] = toEmployeeDTO(e, h.loc)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := employeesPage.Execute(w, view); err != nil {
		h.Log.Error("failed to render employees page", "error", err)
	}
}

// AdminEnrollEmployee handles the enroll form.
func (h *Handler) AdminEnrollEmployee(w http.ResponseWriter, r *http.Request) {
	if err := h.parseForm(w, r); err != nil {
		h.fail(w, r, err)
		return
	}
	photo, err := formFile(r, "photo")
	if err != nil {
		redirectAdmin(w, r, "error=invalid")
		return
	}

	joining := r.PostFormValue("joining_date")
	if _, err := directory.ParseDate(joining); err != nil {
		h.Log.Info("ignoring unparseable joining date", "emp_code", r.PostFormValue("emp_code"), "joining_date", joining)
		joining = ""
	}

	_, err = h.Directory.Enroll(r.Context(), directory.EnrollInput{
		Code:        r.PostFormValue("emp_code"),
		FullName:    r.PostFormValue("full_name"),
		Department:  r.PostFormValue("department"),
		Designation: r.PostFormValue("designation"),
		Phone:       r.PostFormValue("phone"),
		Email:       r.PostFormValue("email"),
		JoiningDate: joining,
		Notes:       r.PostFormValue("notes"),
		Photo:       photo,
	})
	switch {
	case err == nil:
		redirectAdmin(w, r, "ok=1")
	case errors.Is(err, attendance.ErrDuplicateCode):
		redirectAdmin(w, r, "error=exists")
	case errors.Is(err, attendance.ErrInvalidInput):
		redirectAdmin(w, r, "error=invalid")
	default:
		h.fail(w, r, err)
	}
}

func redirectAdmin(w http.ResponseWriter, r *http.Request, query string) {
	http.Redirect(w, r, "/admin/employees?"+query, http.StatusSeeOther)
}
