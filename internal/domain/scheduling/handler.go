package scheduling

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/ihorms/ihorms/internal/platform/auth"
	"github.com/ihorms/ihorms/pkg/apperr"
	"github.com/ihorms/ihorms/pkg/pagination"
	"github.com/labstack/echo/v4"
)

// Handler exposes the appointment lifecycle over HTTP.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	staff := auth.RequireRole(auth.RoleReceptionist, auth.RoleBranchAdmin, auth.RoleOrgAdmin)

	g.POST("/appointments", h.Create, auth.RequireRole(
		auth.RoleReceptionist, auth.RoleBranchAdmin, auth.RolePatient))
	g.GET("/appointments/availability", h.Availability, auth.RequireRole(
		auth.RoleReceptionist, auth.RoleBranchAdmin, auth.RoleDoctor, auth.RolePatient))
	g.GET("/appointments/:id", h.Get, auth.RequireRole(
		auth.RoleReceptionist, auth.RoleBranchAdmin, auth.RoleOrgAdmin, auth.RoleDoctor, auth.RoleNurse))
	g.POST("/appointments/:id/accept", h.Accept, auth.RequireRole(auth.RoleDoctor))
	g.POST("/appointments/:id/reject", h.Reject, auth.RequireRole(auth.RoleDoctor))
	g.POST("/appointments/:id/confirm", h.Confirm, staff)
	g.POST("/appointments/:id/cancel", h.Cancel, auth.RequireRole(
		auth.RoleReceptionist, auth.RoleBranchAdmin, auth.RolePatient))
	g.POST("/appointments/:id/reschedule", h.Reschedule, staff)
	g.POST("/appointments/:id/notes", h.AddNotes, auth.RequireRole(auth.RoleDoctor))
	g.GET("/doctors/me/appointments", h.ListMine, auth.RequireRole(auth.RoleDoctor))
	g.GET("/patients/me/appointments", h.ListOwn, auth.RequireRole(auth.RolePatient))
	g.GET("/patients/:id/appointments", h.ListForPatient, auth.RequireRole(
		auth.RoleReceptionist, auth.RoleBranchAdmin, auth.RoleOrgAdmin, auth.RoleDoctor, auth.RoleNurse))
	g.GET("/branches/:id/appointments", h.ListForBranch, staff)
}

type createRequest struct {
	PatientID      uuid.UUID  `json:"patient_id"`
	DoctorID       *uuid.UUID `json:"doctor_id,omitempty"`
	Date           string     `json:"date"`
	StartTime      string     `json:"start_time"`
	ChiefComplaint string     `json:"chief_complaint"`
}

func (h *Handler) Create(c echo.Context) error {
	var req createRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
	}

	a, err := h.svc.CreateAppointment(c.Request().Context(), &CreateAppointmentInput{
		PatientID:      req.PatientID,
		DoctorID:       req.DoctorID,
		Date:           date,
		StartTime:      req.StartTime,
		ChiefComplaint: req.ChiefComplaint,
	})
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) Availability(c echo.Context) error {
	doctorID, err := uuid.Parse(c.QueryParam("doctor_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor_id")
	}
	date, err := time.Parse("2006-01-02", c.QueryParam("date"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
	}

	available, err := h.svc.IsDoctorAvailable(c.Request().Context(), doctorID, date, c.QueryParam("start_time"))
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"available": available})
}

func (h *Handler) Get(c echo.Context) error {
	apptID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid appointment id")
	}
	a, err := h.svc.GetAppointment(c.Request().Context(), apptID)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Accept(c echo.Context) error {
	return h.transition(c, h.svc.Accept)
}

func (h *Handler) Reject(c echo.Context) error {
	return h.transition(c, h.svc.Reject)
}

func (h *Handler) Confirm(c echo.Context) error {
	return h.transition(c, h.svc.Confirm)
}

func (h *Handler) Cancel(c echo.Context) error {
	return h.transition(c, h.svc.Cancel)
}

func (h *Handler) transition(c echo.Context, fn func(ctx context.Context, id uuid.UUID) (*Appointment, error)) error {
	apptID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid appointment id")
	}
	a, err := fn(c.Request().Context(), apptID)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, a)
}

type rescheduleRequest struct {
	Date      string     `json:"date"`
	StartTime string     `json:"start_time"`
	DoctorID  *uuid.UUID `json:"doctor_id,omitempty"`
}

func (h *Handler) Reschedule(c echo.Context) error {
	apptID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid appointment id")
	}
	var req rescheduleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
	}

	a, err := h.svc.Reschedule(c.Request().Context(), apptID, &RescheduleInput{
		Date:      date,
		StartTime: req.StartTime,
		DoctorID:  req.DoctorID,
	})
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, a)
}

type notesRequest struct {
	DoctorNotes  string `json:"doctor_notes"`
	Diagnosis    string `json:"diagnosis"`
	Prescription string `json:"prescription"`
	Verdict      string `json:"verdict"`
}

func (h *Handler) AddNotes(c echo.Context) error {
	apptID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid appointment id")
	}
	var req notesRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	a, err := h.svc.AddClinicalNotes(c.Request().Context(), apptID, &ClinicalNotesInput{
		DoctorNotes:  req.DoctorNotes,
		Diagnosis:    req.Diagnosis,
		Prescription: req.Prescription,
		Verdict:      req.Verdict,
	})
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) ListMine(c echo.Context) error {
	p := pagination.FromContext(c)
	date, err := dateFilter(c)
	if err != nil {
		return err
	}
	appts, total, err := h.svc.ListForDoctor(c.Request().Context(), date, p)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(appts, total, p.Limit, p.Offset))
}

func (h *Handler) ListOwn(c echo.Context) error {
	p := pagination.FromContext(c)
	appts, total, err := h.svc.ListOwnAppointments(c.Request().Context(), p)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(appts, total, p.Limit, p.Offset))
}

func (h *Handler) ListForPatient(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	p := pagination.FromContext(c)
	appts, total, err := h.svc.ListForPatient(c.Request().Context(), patientID, p)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(appts, total, p.Limit, p.Offset))
}

func (h *Handler) ListForBranch(c echo.Context) error {
	branchID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid branch id")
	}
	p := pagination.FromContext(c)
	date, err := dateFilter(c)
	if err != nil {
		return err
	}
	appts, total, err := h.svc.ListForBranch(c.Request().Context(), branchID, date, p)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(appts, total, p.Limit, p.Offset))
}

func dateFilter(c echo.Context) (*time.Time, error) {
	raw := c.QueryParam("date")
	if raw == "" {
		return nil, nil
	}
	date, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
	}
	return &date, nil
}
